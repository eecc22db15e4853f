package ruler

import (
	"testing"
	"time"

	"github.com/dnldd/chartwindow/shared"
	"github.com/peterldowns/testy/assert"
)

func days(n int) []time.Time {
	dates := make([]time.Time, n)
	for idx := range n {
		dates[idx] = time.Date(2024, time.March, 4+idx, 0, 0, 0, 0, time.UTC)
	}

	return dates
}

func TestClosestIndexByDate(t *testing.T) {
	dates := days(5)

	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"exact first", dates[0], 0},
		{"exact middle", dates[2], 2},
		{"before the ruler", dates[0].AddDate(0, 0, -3), 0},
		{"between entries", dates[1].Add(time.Hour), 2},
		{"after the ruler", dates[4].AddDate(0, 0, 3), 4},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, ClosestIndexByDate(dates, test.date), test.want)
		})
	}

	// Ensure an empty ruler yields no index.
	assert.Equal(t, ClosestIndexByDate(nil, dates[0]), -1)

	// Ensure every ruler date round trips to its own index.
	for idx := range dates {
		assert.Equal(t, ClosestIndexByDate(dates, dates[idx]), idx)
	}
}

func TestClosestDomainIndex(t *testing.T) {
	data := []float64{0, 2, 4, 10}
	identity := func(v float64) float64 { return v }

	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"exact", 4, 2},
		{"below", -5, 0},
		{"above", 50, 3},
		{"nearer the later entry", 8, 3},
		{"nearer the earlier entry", 5, 2},
		{"equidistant", 3, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, ClosestDomainIndex(data, test.value, identity), test.want)
		})
	}

	// Ensure an empty array yields no index.
	assert.Equal(t, ClosestDomainIndex([]float64{}, 1, identity), -1)
}

func TestFilterBounds(t *testing.T) {
	dates := days(5)
	points := []shared.Datapoint{{Date: dates[0]}, {Date: dates[2]}, {Date: dates[4]}}

	// Ensure the lower bound is the last datapoint at or before the date.
	assert.Equal(t, FilterLowerBound(points, dates[2]), 1)
	assert.Equal(t, FilterLowerBound(points, dates[3]), 1)
	assert.Equal(t, FilterLowerBound(points, dates[0].AddDate(0, 0, -1)), 0)
	assert.Equal(t, FilterLowerBound(points, dates[4].AddDate(0, 0, 1)), 2)

	// Ensure the upper bound is the first datapoint at or after the date.
	assert.Equal(t, FilterUpperBound(points, dates[2]), 1)
	assert.Equal(t, FilterUpperBound(points, dates[1]), 1)
	assert.Equal(t, FilterUpperBound(points, dates[0].AddDate(0, 0, -1)), 0)
	assert.Equal(t, FilterUpperBound(points, dates[4].AddDate(0, 0, 1)), 2)

	// Ensure empty data yields the zero index.
	assert.Equal(t, FilterLowerBound(nil, dates[0]), 0)
	assert.Equal(t, FilterUpperBound(nil, dates[0]), 0)
}
