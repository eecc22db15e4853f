package shared

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Session types.
const (
	RegularSession = "regular"
	PreMarket      = "pre"
	PostMarket     = "post"
)

// TypicalSession represents a weekday-recurring trading window of an exchange. Offsets are
// minutes from the trading day's midnight; a negative open starts on the prior day.
type TypicalSession struct {
	ExchangeID  string
	Open        int
	Close       int
	SessionType string
}

// NewTypicalSession initializes a typical session from "15:04" formatted open and close times.
// A close before the open is treated as an open on the prior day.
func NewTypicalSession(exchangeID string, open string, close string, sessionType string) (*TypicalSession, error) {
	sessionOpen, err := time.Parse(SessionTimeLayout, open)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}

	sessionClose, err := time.Parse(SessionTimeLayout, close)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}

	openOffset := sessionOpen.Hour()*60 + sessionOpen.Minute()
	closeOffset := sessionClose.Hour()*60 + sessionClose.Minute()
	if closeOffset <= openOffset {
		openOffset -= MinutesPerDay
	}

	return &TypicalSession{
		ExchangeID:  exchangeID,
		Open:        openOffset,
		Close:       closeOffset,
		SessionType: sessionType,
	}, nil
}

// Contains checks whether the provided minute offset falls inside the session window.
func (s *TypicalSession) Contains(minute int) bool {
	return minute >= s.Open && minute < s.Close
}

// Closure represents a full-day closure of the listed exchanges. An empty exchange list
// closes every exchange.
type Closure struct {
	Date        time.Time
	ExchangeIDs []string
}

// Closes checks whether the closure applies to the provided exchange.
func (c *Closure) Closes(exchangeID string) bool {
	return len(c.ExchangeIDs) == 0 || slices.Contains(c.ExchangeIDs, exchangeID)
}

// SessionCalendar represents the trading calendar of an instrument.
type SessionCalendar struct {
	// TypicalSessions holds the typical sessions of each weekday, indexed by time.Weekday.
	TypicalSessions [7][]TypicalSession
	// FullClosures are the full-day exchange closures.
	FullClosures []Closure
	// NonTradingDays are days nothing trades.
	NonTradingDays []time.Time
	// Location is the exchange locale trading days are normalized to.
	Location *time.Location
}

// Validate asserts the calendar is usable.
func (c *SessionCalendar) Validate() error {
	var errs error

	if c.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("calendar location cannot be nil"))
	}
	for day := range c.TypicalSessions {
		for _, s := range c.TypicalSessions[day] {
			if s.Close <= s.Open {
				errs = errors.Join(errs, fmt.Errorf("%s session for %s closes before it opens",
					s.ExchangeID, time.Weekday(day)))
			}
			if s.Open <= -MinutesPerDay || s.Close > MinutesPerDay {
				errs = errors.Join(errs, fmt.Errorf("%s session for %s spans more than a day",
					s.ExchangeID, time.Weekday(day)))
			}
		}
	}

	return errs
}

// HasTypicalSessions checks whether any weekday carries typical session data.
func (c *SessionCalendar) HasTypicalSessions() bool {
	for day := range c.TypicalSessions {
		if len(c.TypicalSessions[day]) > 0 {
			return true
		}
	}

	return false
}

// IsNonTradingDay checks whether the provided day is a non-trading day.
func (c *SessionCalendar) IsNonTradingDay(day time.Time) bool {
	for idx := range c.NonTradingDays {
		if SameDay(day, c.NonTradingDays[idx]) {
			return true
		}
	}

	return false
}

// SessionsOn returns the typical sessions trading on the provided day, with sessions of
// closed exchanges removed.
func (c *SessionCalendar) SessionsOn(day time.Time) []TypicalSession {
	typical := c.TypicalSessions[day.Weekday()]
	if len(typical) == 0 {
		return nil
	}

	sessions := make([]TypicalSession, 0, len(typical))
	for _, s := range typical {
		var closed bool
		for idx := range c.FullClosures {
			closure := &c.FullClosures[idx]
			if SameDay(day, closure.Date) && closure.Closes(s.ExchangeID) {
				closed = true
				break
			}
		}

		if !closed {
			sessions = append(sessions, s)
		}
	}

	return sessions
}

// IsFullyClosed checks whether a closure on the provided day applies to every exchange.
func (c *SessionCalendar) IsFullyClosed(day time.Time) bool {
	for idx := range c.FullClosures {
		closure := &c.FullClosures[idx]
		if SameDay(day, closure.Date) && len(closure.ExchangeIDs) == 0 {
			return true
		}
	}

	return false
}

// Envelope returns the earliest open and latest close across the provided sessions.
func Envelope(sessions []TypicalSession) (int, int) {
	if len(sessions) == 0 {
		return 0, 0
	}

	minOpen, maxClose := sessions[0].Open, sessions[0].Close
	for _, s := range sessions[1:] {
		minOpen = min(minOpen, s.Open)
		maxClose = max(maxClose, s.Close)
	}

	return minOpen, maxClose
}

// NewYorkFuturesCalendar returns a calendar for futures trading on the new york clock, with
// the session opening on the prior evening.
func NewYorkFuturesCalendar() (*SessionCalendar, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %w", err)
	}

	session, err := NewTypicalSession("CME", "18:00", "17:00", RegularSession)
	if err != nil {
		return nil, fmt.Errorf("creating futures session: %w", err)
	}

	cal := &SessionCalendar{Location: loc}
	for day := time.Monday; day <= time.Friday; day++ {
		cal.TypicalSessions[day] = []TypicalSession{*session}
	}

	return cal, nil
}

// NewYorkEquitiesCalendar returns a calendar for equities trading the regular new york session.
func NewYorkEquitiesCalendar() (*SessionCalendar, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %w", err)
	}

	session, err := NewTypicalSession("NYSE", "09:30", "16:00", RegularSession)
	if err != nil {
		return nil, fmt.Errorf("creating equities session: %w", err)
	}

	cal := &SessionCalendar{Location: loc}
	for day := time.Monday; day <= time.Friday; day++ {
		cal.TypicalSessions[day] = []TypicalSession{*session}
	}

	return cal, nil
}
