package ruler

import (
	"math"
	"sort"
	"time"

	"github.com/dnldd/chartwindow/shared"
)

// ClosestIndexByDate returns the index of the earliest ruler entry at or after the provided
// date, falling back to the last index when every entry precedes it. An empty ruler
// returns -1.
func ClosestIndexByDate(dates []time.Time, date time.Time) int {
	if len(dates) == 0 {
		return -1
	}

	idx := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(date)
	})
	if idx == len(dates) {
		return len(dates) - 1
	}

	return idx
}

// ClosestDomainIndex returns the index of the entry whose key is nearest the provided value
// in an array sorted ascending by key. Equidistant neighbours resolve to the earlier entry.
// An empty array returns -1.
func ClosestDomainIndex[T any](data []T, value float64, key func(T) float64) int {
	if len(data) == 0 {
		return -1
	}

	idx := sort.Search(len(data), func(i int) bool {
		return key(data[i]) >= value
	})

	switch idx {
	case 0:
		return 0
	case len(data):
		return len(data) - 1
	}

	if math.Abs(key(data[idx])-value) < math.Abs(value-key(data[idx-1])) {
		return idx
	}

	return idx - 1
}

// FilterLowerBound returns the index of the last datapoint at or before the provided date,
// or 0 when none precedes it.
func FilterLowerBound(data []shared.Datapoint, date time.Time) int {
	if len(data) == 0 {
		return 0
	}

	idx := sort.Search(len(data), func(i int) bool {
		return data[i].Date.After(date)
	})
	if idx == 0 {
		return 0
	}

	return idx - 1
}

// FilterUpperBound returns the index of the first datapoint at or after the provided date,
// or the last index when none follows it.
func FilterUpperBound(data []shared.Datapoint, date time.Time) int {
	if len(data) == 0 {
		return 0
	}

	idx := sort.Search(len(data), func(i int) bool {
		return !data[i].Date.Before(date)
	})
	if idx == len(data) {
		return len(data) - 1
	}

	return idx
}
