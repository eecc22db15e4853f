package ruler

import (
	"slices"
	"time"

	"github.com/dnldd/chartwindow/shared"
)

// Ruler represents the canonical ascending set of valid trading timestamps of an instrument.
type Ruler struct {
	// Dates are the UTC normalized trading timestamps.
	Dates []time.Time
	// Intraday indicates a minute resolution ruler.
	Intraday bool
	// Location is the exchange locale the ruler was built in.
	Location *time.Location
}

// Len returns the number of ruler entries.
func (r *Ruler) Len() int {
	if r == nil {
		return 0
	}

	return len(r.Dates)
}

// IsEmpty checks whether the ruler has no entries.
func (r *Ruler) IsEmpty() bool {
	return r.Len() == 0
}

// At returns the ruler entry at the provided index clamped to the ruler bounds.
func (r *Ruler) At(idx int) time.Time {
	if r.IsEmpty() {
		return time.Time{}
	}

	idx = max(0, min(idx, len(r.Dates)-1))
	return r.Dates[idx]
}

// Local returns the ruler entry at the provided index in the exchange locale.
func (r *Ruler) Local(idx int) time.Time {
	t := r.At(idx)
	if r.Location != nil {
		return t.In(r.Location)
	}

	return t
}

// IndexOf returns the ruler position of the provided date.
func (r *Ruler) IndexOf(date time.Time) int {
	if r == nil {
		return -1
	}

	return ClosestIndexByDate(r.Dates, date)
}

// First returns the earliest ruler entry.
func (r *Ruler) First() time.Time {
	return r.At(0)
}

// Last returns the latest ruler entry.
func (r *Ruler) Last() time.Time {
	return r.At(r.Len() - 1)
}

// DayCount returns the number of distinct trading days covered by the ruler.
func (r *Ruler) DayCount() int {
	if r.IsEmpty() {
		return 0
	}
	if !r.Intraday {
		return len(r.Dates)
	}

	count := 1
	for idx := 1; idx < len(r.Dates); idx++ {
		if !shared.SameDay(r.Local(idx), r.Local(idx-1)) {
			count++
		}
	}

	return count
}

// normalizeDays returns the provided days as ascending, distinct midnights in loc.
func normalizeDays(days []time.Time, loc *time.Location) []time.Time {
	set := make([]time.Time, 0, len(days))
	for _, day := range days {
		set = append(set, shared.StartOfDay(day.In(loc)))
	}

	slices.SortFunc(set, func(a, b time.Time) int {
		return a.Compare(b)
	})

	return slices.CompactFunc(set, func(a, b time.Time) bool {
		return a.Equal(b)
	})
}

// tradable checks whether the calendar allows trading on the provided day.
func tradable(cal *shared.SessionCalendar, day time.Time) bool {
	return !cal.IsNonTradingDay(day) && !cal.IsFullyClosed(day)
}

// Build constructs the ruler for the provided trading days. Inter-day rulers carry one
// entry per trading day; intraday rulers carry one entry per tradable minute of each day's
// typical sessions, so session gaps and closed days are excluded. An intraday build without
// typical session data yields an empty ruler.
func Build(cal *shared.SessionCalendar, tradingDays []time.Time, intraday bool) *Ruler {
	loc := cal.Location
	if loc == nil {
		loc = time.UTC
	}

	r := &Ruler{
		Intraday: intraday,
		Location: loc,
	}

	days := normalizeDays(tradingDays, loc)
	if !intraday {
		r.Dates = make([]time.Time, 0, len(days))
		for _, day := range days {
			if !tradable(cal, day) {
				continue
			}

			r.Dates = append(r.Dates, day.UTC())
		}

		return r
	}

	for _, day := range days {
		if !tradable(cal, day) {
			continue
		}

		sessions := cal.SessionsOn(day)
		if len(sessions) == 0 {
			continue
		}

		minOpen, maxClose := shared.Envelope(sessions)
		for minute := minOpen; minute < maxClose; minute++ {
			var open bool
			for idx := range sessions {
				if sessions[idx].Contains(minute) {
					open = true
					break
				}
			}
			if !open {
				continue
			}

			ts := time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, loc).UTC()
			if n := len(r.Dates); n > 0 && !ts.After(r.Dates[n-1]) {
				// Overlapping sessions across days and DST repeats keep the ruler strictly increasing.
				continue
			}

			r.Dates = append(r.Dates, ts)
		}
	}

	return r
}

// TradingDays expands the provided range into trading days. Without typical session data
// weekdays are assumed to trade.
func TradingDays(cal *shared.SessionCalendar, start time.Time, end time.Time) []time.Time {
	loc := cal.Location
	if loc == nil {
		loc = time.UTC
	}

	first := shared.StartOfDay(start.In(loc))
	last := shared.StartOfDay(end.In(loc))
	hasSessions := cal.HasTypicalSessions()

	var days []time.Time
	for day := first; !day.After(last); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		if !tradable(cal, day) {
			continue
		}

		switch hasSessions {
		case true:
			if len(cal.SessionsOn(day)) == 0 {
				continue
			}
		case false:
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}
		}

		days = append(days, day)
	}

	return days
}

// TypicalWindow returns the typical session envelope of the trading day containing at.
// A session opening on the prior evening moves the anchor to the following trading day once
// that session has opened.
func TypicalWindow(cal *shared.SessionCalendar, at time.Time) (time.Time, time.Time, bool) {
	loc := cal.Location
	if loc == nil {
		loc = time.UTC
	}

	at = at.In(loc)
	day := shared.StartOfDay(at)
	next := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	if sessions := cal.SessionsOn(next); len(sessions) > 0 {
		open, _ := shared.Envelope(sessions)
		minute := at.Hour()*60 + at.Minute()
		if open < 0 && minute >= shared.MinutesPerDay+open {
			day = next
		}
	}

	sessions := cal.SessionsOn(day)
	if len(sessions) == 0 {
		return time.Time{}, time.Time{}, false
	}

	open, close := shared.Envelope(sessions)
	windowOpen := time.Date(day.Year(), day.Month(), day.Day(), 0, open, 0, 0, loc)
	windowClose := time.Date(day.Year(), day.Month(), day.Day(), 0, close, 0, 0, loc)

	return windowOpen, windowClose, true
}
