package series

import (
	"cmp"
	"slices"
	"time"

	"github.com/dnldd/chartwindow/shared"
)

// Key identifies a single series of the store.
type Key struct {
	Symbol string
	Type   string
	ID     string
}

// Batch represents freshly fetched datapoints of a single series.
type Batch struct {
	Symbol string
	Type   string
	ID     string
	Points []shared.Datapoint
}

// Key returns the series key of the batch.
func (b *Batch) Key() Key {
	return Key{Symbol: b.Symbol, Type: b.Type, ID: b.ID}
}

// Store represents the canonical in-memory dataset, keyed symbol -> series type -> series id.
// Every series is kept strictly ascending by date.
type Store struct {
	data map[string]map[string]map[string][]shared.Datapoint
}

// NewStore initializes an empty series store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]map[string][]shared.Datapoint),
	}
}

// Series returns the datapoints of the provided series. The returned slice must not be
// modified.
func (s *Store) Series(symbol string, seriesType string, id string) []shared.Datapoint {
	types, ok := s.data[symbol]
	if !ok {
		return nil
	}
	ids, ok := types[seriesType]
	if !ok {
		return nil
	}

	return ids[id]
}

// set swaps in the provided datapoints for a series.
func (s *Store) set(key Key, points []shared.Datapoint) {
	types, ok := s.data[key.Symbol]
	if !ok {
		types = make(map[string]map[string][]shared.Datapoint)
		s.data[key.Symbol] = types
	}
	ids, ok := types[key.Type]
	if !ok {
		ids = make(map[string][]shared.Datapoint)
		types[key.Type] = ids
	}

	ids[key.ID] = points
}

// Clear drops every series from the store.
func (s *Store) Clear() {
	clear(s.data)
}

// IsEmpty checks whether the store holds no datapoints.
func (s *Store) IsEmpty() bool {
	var count int
	s.Each(func(_ Key, points []shared.Datapoint) {
		count += len(points)
	})

	return count == 0
}

// Symbols returns the stored symbols in ascending order.
func (s *Store) Symbols() []string {
	symbols := make([]string, 0, len(s.data))
	for symbol := range s.data {
		symbols = append(symbols, symbol)
	}

	slices.Sort(symbols)
	return symbols
}

// Keys returns every stored series key in a deterministic order.
func (s *Store) Keys() []Key {
	var keys []Key
	for symbol, types := range s.data {
		for seriesType, ids := range types {
			for id := range ids {
				keys = append(keys, Key{Symbol: symbol, Type: seriesType, ID: id})
			}
		}
	}

	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(
			cmp.Compare(a.Symbol, b.Symbol),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.ID, b.ID),
		)
	})

	return keys
}

// Each calls fn for every stored series in key order.
func (s *Store) Each(fn func(key Key, points []shared.Datapoint)) {
	for _, key := range s.Keys() {
		fn(key, s.data[key.Symbol][key.Type][key.ID])
	}
}

// Bounds returns the earliest and latest datapoint dates of the provided symbol's windowed
// series.
func (s *Store) Bounds(symbol string) (time.Time, time.Time, bool) {
	var first, last time.Time
	var found bool
	for seriesType, ids := range s.data[symbol] {
		if shared.IsUnwindowed(seriesType) {
			continue
		}

		for _, points := range ids {
			if len(points) == 0 {
				continue
			}

			if !found || points[0].Date.Before(first) {
				first = points[0].Date
			}
			if !found || points[len(points)-1].Date.After(last) {
				last = points[len(points)-1].Date
			}
			found = true
		}
	}

	return first, last, found
}
