package shared

import (
	"fmt"
	"time"
)

const (
	// SessionTimeLayout is the format layout for parsing session times in a day.
	SessionTimeLayout = "15:04"
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
	// DayLayout is the format layout for parsing calendar days.
	DayLayout = "2006-01-02"
	// NewYorkLocation is the default exchange locale.
	NewYorkLocation = "America/New_York"

	// MinutesPerDay is the number of minutes in a calendar day.
	MinutesPerDay = 24 * 60
)

// Period represents the sampling period of the loaded market data.
type Period int

const (
	OneMinute Period = iota
	FiveMinute
	FifteenMinute
	ThirtyMinute
	OneHour
	Daily
	Weekly
	Monthly
)

// String stringifies the provided period.
func (p Period) String() string {
	switch p {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case ThirtyMinute:
		return "30m"
	case OneHour:
		return "1H"
	case Daily:
		return "1D"
	case Weekly:
		return "1W"
	case Monthly:
		return "1M"
	default:
		return "unknown"
	}
}

// ParsePeriod parses the provided period string.
func ParsePeriod(s string) (Period, error) {
	for p := OneMinute; p <= Monthly; p++ {
		if p.String() == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown period provided: %s", s)
}

// IsIntraday checks whether the period samples below a trading day.
func (p Period) IsIntraday() bool {
	return p < Daily
}

// Duration returns the sampling duration of intraday periods, zero otherwise.
func (p Period) Duration() time.Duration {
	switch p {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case ThirtyMinute:
		return time.Minute * 30
	case OneHour:
		return time.Hour
	default:
		return 0
	}
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}

// StartOfDay returns midnight of the day containing t, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay checks whether both times fall on the same calendar day in a's location.
func SameDay(a time.Time, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
