package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestPeriod(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		str      string
		intraday bool
		duration time.Duration
	}{
		{"one minute", OneMinute, "1m", true, time.Minute},
		{"five minute", FiveMinute, "5m", true, time.Minute * 5},
		{"fifteen minute", FifteenMinute, "15m", true, time.Minute * 15},
		{"thirty minute", ThirtyMinute, "30m", true, time.Minute * 30},
		{"one hour", OneHour, "1H", true, time.Hour},
		{"daily", Daily, "1D", false, 0},
		{"weekly", Weekly, "1W", false, 0},
		{"monthly", Monthly, "1M", false, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Ensure periods stringify, parse and classify accurately.
			assert.Equal(t, test.period.String(), test.str)
			assert.Equal(t, test.period.IsIntraday(), test.intraday)
			assert.Equal(t, test.period.Duration(), test.duration)

			parsed, err := ParsePeriod(test.str)
			assert.NoError(t, err)
			assert.Equal(t, parsed, test.period)
		})
	}

	// Ensure unknown periods cannot be parsed.
	_, err := ParsePeriod("2Y")
	assert.Error(t, err)
	assert.Equal(t, Period(99).String(), "unknown")
}

func TestDayHelpers(t *testing.T) {
	_, loc, err := NewYorkTime()
	assert.NoError(t, err)

	// Ensure the start of a day is its midnight in the same location.
	at := time.Date(2024, time.March, 5, 14, 31, 12, 0, loc)
	start := StartOfDay(at)
	assert.Equal(t, start, time.Date(2024, time.March, 5, 0, 0, 0, 0, loc))

	// Ensure same day comparisons use the first time's location.
	lateUTC := time.Date(2024, time.March, 6, 2, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(at, lateUTC))
	assert.False(t, SameDay(lateUTC, at))
	assert.False(t, SameDay(at, at.AddDate(0, 0, 1)))
}
