package fetch

import (
	"testing"
	"time"

	"github.com/dnldd/chartwindow/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestParseDate(t *testing.T) {
	_, loc, err := shared.NewYorkTime()
	assert.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "timestamp",
			input: "2024-03-04 09:30:00",
			want:  time.Date(2024, time.March, 4, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "calendar day",
			input: "2024-03-04",
			want:  time.Date(2024, time.March, 4, 5, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339",
			input: "2024-03-04T09:30:00Z",
			want:  time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "malformed",
			input:   "04/03/2024",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseDate(test.input, loc)
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, got, test.want)
		})
	}
}

func TestParsePayload(t *testing.T) {
	_, loc, err := shared.NewYorkTime()
	assert.NoError(t, err)

	payload, err := loadPayload("testdata/payload.json")
	assert.NoError(t, err)

	// Ensure a payload can be parsed.
	parsed, err := ParsePayload(payload, time.UTC)
	assert.NoError(t, err)
	assert.NotNil(t, parsed.Calendar)
	assert.Equal(t, len(parsed.Batches), 4)

	// Ensure the calendar carries its location, sessions, closures and non-trading days.
	cal := parsed.Calendar
	assert.Equal(t, cal.Location.String(), shared.NewYorkLocation)
	assert.Equal(t, len(cal.TypicalSessions[time.Monday]), 1)
	assert.Equal(t, len(cal.TypicalSessions[time.Sunday]), 0)
	assert.Equal(t, cal.TypicalSessions[time.Friday][0].Open, 570)
	assert.Equal(t, len(cal.FullClosures), 1)
	assert.Equal(t, len(cal.FullClosures[0].ExchangeIDs), 0)
	assert.True(t, cal.IsNonTradingDay(time.Date(2024, time.January, 1, 12, 0, 0, 0, loc)))

	// Ensure batch dates are read in the calendar location and normalized to utc.
	price := parsed.Batches[0]
	assert.Equal(t, price.Symbol, "^GSPC")
	assert.Equal(t, price.Type, "price")
	assert.Equal(t, len(price.Points), 5)
	assert.Equal(t, price.Points[0].Date, time.Date(2024, time.March, 4, 0, 0, 0, 0, loc).UTC())
	assert.Equal(t, price.Points[0].Value("close"), float64(5130))
	assert.Equal(t, len(price.Points[0].Values), 5)

	sma := parsed.Batches[1]
	assert.Equal(t, sma.ID, "sma-20")
	assert.Equal(t, sma.Points[2].Value("value"), float64(5070))

	// Ensure payloads without a calendar use the provided location.
	bare := gjson.Parse(`{"series":[{"symbol":"X","type":"price","points":[{"date":"2024-03-04","close":1}]}]}`)
	parsed, err = ParsePayload(bare, time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, parsed.Calendar)
	assert.Equal(t, parsed.Batches[0].Points[0].Date, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))

	// Ensure malformed payloads are rejected.
	malformed := []string{
		`[]`,
		`{"series":[{"type":"price","points":[]}]}`,
		`{"series":[{"symbol":"X","points":[]}]}`,
		`{"series":[{"symbol":"X","type":"price","points":[{"date":"yesterday"}]}]}`,
		`{"series":[],"calendar":{"location":"Mars/Olympus"}}`,
		`{"series":[],"calendar":{"typicalSessions":{"9":[]}}}`,
		`{"series":[],"calendar":{"typicalSessions":{"1":[{"exchangeId":"X","open":"9","close":"16:00"}]}}}`,
		`{"series":[],"calendar":{"fullClosures":[{"date":"soon"}]}}`,
		`{"series":[],"calendar":{"nonTradingDays":["later"]}}`,
	}
	for _, data := range malformed {
		_, err = ParsePayload(gjson.Parse(data), time.UTC)
		assert.Error(t, err)
	}
}
