package series

import (
	"slices"

	"github.com/dnldd/chartwindow/shared"
)

// normalize returns a copy of the provided datapoints sorted ascending by date, with
// duplicate dates resolved to the latest occurrence.
func normalize(points []shared.Datapoint) []shared.Datapoint {
	set := slices.Clone(points)
	slices.SortStableFunc(set, func(a, b shared.Datapoint) int {
		return a.Date.Compare(b.Date)
	})

	out := set[:0]
	for idx := range set {
		if n := len(out); n > 0 && out[n-1].Date.Equal(set[idx].Date) {
			out[n-1] = set[idx]
			continue
		}

		out = append(out, set[idx])
	}

	return out
}

// Replace drops the store contents and loads the provided batches. It returns the number
// of datapoints stored.
func (s *Store) Replace(batches []Batch) int {
	s.Clear()

	var count int
	for idx := range batches {
		points := normalize(batches[idx].Points)
		s.set(batches[idx].Key(), points)
		count += len(points)
	}

	return count
}

// Prepend merges historical backfill into the store. Only datapoints strictly earlier than
// a series' current first datapoint are inserted. It returns the number of datapoints
// inserted.
func (s *Store) Prepend(batches []Batch) int {
	var count int
	for idx := range batches {
		batch := &batches[idx]
		incoming := normalize(batch.Points)
		existing := s.Series(batch.Symbol, batch.Type, batch.ID)
		if len(existing) == 0 {
			s.set(batch.Key(), incoming)
			count += len(incoming)
			continue
		}

		// Walk the batch backwards so the earliest accepted date only ever decreases.
		first := existing[0].Date
		kept := make([]shared.Datapoint, 0, len(incoming))
		for i := len(incoming) - 1; i >= 0; i-- {
			if incoming[i].Date.Before(first) {
				kept = append(kept, incoming[i])
				first = incoming[i].Date
			}
		}
		if len(kept) == 0 {
			continue
		}

		slices.Reverse(kept)
		merged := make([]shared.Datapoint, 0, len(kept)+len(existing))
		merged = append(merged, kept...)
		merged = append(merged, existing...)
		s.set(batch.Key(), merged)
		count += len(kept)
	}

	return count
}

// Append merges polled datapoints into the store. Datapoints later than a series' last
// datapoint are appended; one dated exactly at the last datapoint replaces it. It returns
// the number of datapoints appended or replaced.
func (s *Store) Append(batches []Batch) int {
	var count int
	for idx := range batches {
		batch := &batches[idx]
		incoming := normalize(batch.Points)
		existing := slices.Clone(s.Series(batch.Symbol, batch.Type, batch.ID))

		for _, point := range incoming {
			n := len(existing)
			switch {
			case n == 0 || point.Date.After(existing[n-1].Date):
				existing = append(existing, point)
				count++
			case point.Date.Equal(existing[n-1].Date):
				existing[n-1] = point
				count++
			}
		}

		s.set(batch.Key(), existing)
	}

	return count
}
