package series

import (
	"testing"

	"github.com/dnldd/chartwindow/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func assertStrictlyAscending(t *testing.T, points []shared.Datapoint) {
	t.Helper()

	for idx := 1; idx < len(points); idx++ {
		assert.True(t, points[idx].Date.After(points[idx-1].Date))
	}
}

func TestReplace(t *testing.T) {
	s := NewStore()
	s.Replace([]Batch{{Symbol: "AAPL", Type: "price", Points: []shared.Datapoint{point(1, 1)}}})

	// Ensure replacing normalizes order, resolves duplicates to the latest and drops prior data.
	count := s.Replace([]Batch{{
		Symbol: "^GSPC",
		Type:   "price",
		Points: []shared.Datapoint{point(3, 3), point(1, 1), point(2, 2), point(3, 4)},
	}})
	assert.Equal(t, count, 3)
	assert.Equal(t, s.Symbols(), []string{"^GSPC"})

	points := s.Series("^GSPC", "price", "")
	assertStrictlyAscending(t, points)
	assert.Equal(t, points[2].Value("v"), float64(4))
}

func TestAppend(t *testing.T) {
	s := NewStore()
	s.Replace([]Batch{{
		Symbol: "^GSPC",
		Type:   "price",
		Points: []shared.Datapoint{point(1, 1), point(2, 2), point(3, 3)},
	}})

	// Ensure the last datapoint is replaced and newer datapoints appended.
	batch := []Batch{{
		Symbol: "^GSPC",
		Type:   "price",
		Points: []shared.Datapoint{point(3, 9), point(4, 10)},
	}}
	count := s.Append(batch)
	assert.Equal(t, count, 2)

	points := s.Series("^GSPC", "price", "")
	assert.Equal(t, len(points), 4)
	assertStrictlyAscending(t, points)
	assert.Equal(t, points[2].Date, day(3))
	assert.Equal(t, points[2].Value("v"), float64(9))
	assert.Equal(t, points[3].Date, day(4))
	assert.Equal(t, points[3].Value("v"), float64(10))

	// Ensure appending the same batch again leaves the series unchanged.
	before := s.Series("^GSPC", "price", "")
	s.Append(batch)
	after := s.Series("^GSPC", "price", "")
	assert.True(t, cmp.Equal(before, after))

	// Ensure datapoints older than the last are ignored.
	count = s.Append([]Batch{{Symbol: "^GSPC", Type: "price", Points: []shared.Datapoint{point(2, 7)}}})
	assert.Equal(t, count, 0)
	assert.Equal(t, s.Series("^GSPC", "price", "")[1].Value("v"), float64(2))

	// Ensure appending to an unknown series creates it.
	count = s.Append([]Batch{{Symbol: "AAPL", Type: "price", Points: []shared.Datapoint{point(5, 1)}}})
	assert.Equal(t, count, 1)
	assert.Equal(t, len(s.Series("AAPL", "price", "")), 1)
}

func TestPrepend(t *testing.T) {
	s := NewStore()
	s.Replace([]Batch{{
		Symbol: "^GSPC",
		Type:   "price",
		Points: []shared.Datapoint{point(5, 5), point(6, 6)},
	}})

	// Ensure only datapoints strictly earlier than the first are inserted, in order.
	count := s.Prepend([]Batch{{
		Symbol: "^GSPC",
		Type:   "price",
		Points: []shared.Datapoint{point(4, 4), point(2, 2), point(5, 50), point(3, 3), point(6, 60)},
	}})
	assert.Equal(t, count, 3)

	points := s.Series("^GSPC", "price", "")
	assert.Equal(t, len(points), 5)
	assertStrictlyAscending(t, points)
	assert.Equal(t, points[0].Date, day(2))
	assert.Equal(t, points[3].Value("v"), float64(5))

	// Ensure prepending nothing older is a no-op.
	count = s.Prepend([]Batch{{Symbol: "^GSPC", Type: "price", Points: []shared.Datapoint{point(3, 30)}}})
	assert.Equal(t, count, 0)
	assert.Equal(t, len(s.Series("^GSPC", "price", "")), 5)

	// Ensure prepending to an unknown series creates it.
	count = s.Prepend([]Batch{{Symbol: "^GSPC", Type: "sma", ID: "a", Points: []shared.Datapoint{point(1, 1)}}})
	assert.Equal(t, count, 1)
	assert.Equal(t, len(s.Series("^GSPC", "sma", "a")), 1)
}
