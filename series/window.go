package series

import (
	"maps"
	"time"

	"github.com/dnldd/chartwindow/ruler"
	"github.com/dnldd/chartwindow/shared"
)

// Point represents a copy of a stored datapoint tagged with its ruler position.
type Point struct {
	shared.Datapoint
	RulerIndex int
}

// WindowedData represents the visible subset of every stored series.
type WindowedData struct {
	// Domain is the viewport domain the data was windowed for.
	Domain shared.Domain
	// Start is the ruler date nearest the left domain edge.
	Start time.Time
	// End is the ruler date nearest the right domain edge.
	End time.Time
	// Series holds the visible datapoints of each series.
	Series map[Key][]Point
}

// Get returns the visible datapoints of the provided series.
func (w *WindowedData) Get(symbol string, seriesType string, id string) []Point {
	return w.Series[Key{Symbol: symbol, Type: seriesType, ID: id}]
}

// Window returns the subset of every stored series visible in the provided domain, with one
// datapoint of overscan on each side. Event-like series are returned in full. The store is
// not modified.
func Window(store *Store, domain shared.Domain, r *ruler.Ruler) WindowedData {
	out := WindowedData{
		Domain: domain,
		Series: make(map[Key][]Point),
	}
	if r.IsEmpty() {
		return out
	}

	lo, hi := domain.Edges(r.Len())
	out.Start = r.At(lo)
	out.End = r.At(hi)

	store.Each(func(key Key, points []shared.Datapoint) {
		visible := points
		if !shared.IsUnwindowed(key.Type) {
			lower := ruler.FilterLowerBound(points, out.Start)
			upper := ruler.FilterUpperBound(points, out.End)
			start := max(0, lower-1)
			end := min(upper+2, len(points))
			visible = nil
			if start < end {
				visible = points[start:end]
			}
		}

		tagged := make([]Point, len(visible))
		for idx := range visible {
			tagged[idx] = Point{
				Datapoint: shared.Datapoint{
					Date:   visible[idx].Date,
					Values: maps.Clone(visible[idx].Values),
				},
				RulerIndex: r.IndexOf(visible[idx].Date),
			}
		}

		out.Series[key] = tagged
	})

	return out
}
