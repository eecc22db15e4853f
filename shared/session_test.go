package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestTypicalSession(t *testing.T) {
	// Ensure a same day session can be created.
	regular, err := NewTypicalSession("NYSE", "09:30", "16:00", RegularSession)
	assert.NoError(t, err)
	assert.Equal(t, regular.Open, 570)
	assert.Equal(t, regular.Close, 960)
	assert.True(t, regular.Contains(570))
	assert.True(t, regular.Contains(959))
	assert.False(t, regular.Contains(960))

	// Ensure a session closing before it opens starts on the prior day.
	overnight, err := NewTypicalSession("CME", "18:00", "17:00", RegularSession)
	assert.NoError(t, err)
	assert.Equal(t, overnight.Open, -360)
	assert.Equal(t, overnight.Close, 1020)
	assert.True(t, overnight.Contains(-1))
	assert.True(t, overnight.Contains(0))

	// Ensure malformed session times are rejected.
	_, err = NewTypicalSession("NYSE", "9.30", "16:00", RegularSession)
	assert.Error(t, err)
	_, err = NewTypicalSession("NYSE", "09:30", "4pm", RegularSession)
	assert.Error(t, err)
}

func TestSessionCalendar(t *testing.T) {
	cal, err := NewYorkEquitiesCalendar()
	assert.NoError(t, err)
	assert.NoError(t, cal.Validate())
	assert.True(t, cal.HasTypicalSessions())

	loc := cal.Location
	tuesday := time.Date(2024, time.March, 5, 0, 0, 0, 0, loc)
	saturday := time.Date(2024, time.March, 9, 0, 0, 0, 0, loc)

	// Ensure weekdays carry sessions and weekends do not.
	assert.Equal(t, len(cal.SessionsOn(tuesday)), 1)
	assert.Equal(t, len(cal.SessionsOn(saturday)), 0)

	// Ensure non-trading days are detected.
	cal.NonTradingDays = []time.Time{tuesday}
	assert.True(t, cal.IsNonTradingDay(tuesday.Add(time.Hour*10)))
	assert.False(t, cal.IsNonTradingDay(tuesday.AddDate(0, 0, 1)))

	// Ensure a closure listing exchanges only removes their sessions.
	ice, err := NewTypicalSession("ICE", "08:00", "12:00", RegularSession)
	assert.NoError(t, err)
	cal.TypicalSessions[time.Wednesday] = append(cal.TypicalSessions[time.Wednesday], *ice)
	wednesday := tuesday.AddDate(0, 0, 1)
	cal.FullClosures = []Closure{{Date: wednesday, ExchangeIDs: []string{"NYSE"}}}
	sessions := cal.SessionsOn(wednesday)
	assert.Equal(t, len(sessions), 1)
	assert.Equal(t, sessions[0].ExchangeID, "ICE")
	assert.False(t, cal.IsFullyClosed(wednesday))

	// Ensure a closure without exchanges closes the whole day.
	cal.FullClosures = []Closure{{Date: wednesday}}
	assert.Equal(t, len(cal.SessionsOn(wednesday)), 0)
	assert.True(t, cal.IsFullyClosed(wednesday))

	// Ensure the envelope spans every session.
	open, close := Envelope([]TypicalSession{*ice, cal.TypicalSessions[time.Monday][0]})
	assert.Equal(t, open, 480)
	assert.Equal(t, close, 960)
	open, close = Envelope(nil)
	assert.Equal(t, open, 0)
	assert.Equal(t, close, 0)
}

func TestSessionCalendarValidate(t *testing.T) {
	tests := []struct {
		name    string
		cal     *SessionCalendar
		wantErr bool
	}{
		{
			name:    "nil location",
			cal:     &SessionCalendar{},
			wantErr: true,
		},
		{
			name: "inverted session",
			cal: func() *SessionCalendar {
				c := &SessionCalendar{Location: time.UTC}
				c.TypicalSessions[time.Monday] = []TypicalSession{{ExchangeID: "X", Open: 600, Close: 500}}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "session longer than a day",
			cal: func() *SessionCalendar {
				c := &SessionCalendar{Location: time.UTC}
				c.TypicalSessions[time.Monday] = []TypicalSession{{ExchangeID: "X", Open: -1500, Close: 500}}
				return c
			}(),
			wantErr: true,
		},
		{
			name:    "no sessions",
			cal:     &SessionCalendar{Location: time.UTC},
			wantErr: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cal.Validate()
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}

	// Ensure the futures calendar opens on the prior evening.
	futures, err := NewYorkFuturesCalendar()
	assert.NoError(t, err)
	assert.NoError(t, futures.Validate())
	assert.Equal(t, futures.TypicalSessions[time.Monday][0].Open, -360)
	assert.Equal(t, len(futures.TypicalSessions[time.Sunday]), 0)
}
