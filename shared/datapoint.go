package shared

import (
	"math"
	"time"
)

// Series types consumed in full rather than windowed.
const (
	PreviousClose = "previousclose"
	Dividends     = "dividends"
	Splits        = "splits"
	Earnings      = "earnings"
	Events        = "events"
)

// Datapoint represents a single dated sample of a series.
type Datapoint struct {
	Date   time.Time
	Values map[string]float64
}

// Value returns the named field, NaN when absent.
func (d *Datapoint) Value(field string) float64 {
	v, ok := d.Values[field]
	if !ok {
		return math.NaN()
	}

	return v
}

// IsUnwindowed checks whether the provided series type bypasses windowing.
func IsUnwindowed(seriesType string) bool {
	switch seriesType {
	case PreviousClose, Dividends, Splits, Earnings, Events:
		return true
	default:
		return false
	}
}

// Domain represents a visible window in ruler-index space.
type Domain struct {
	Left  float64
	Right float64
}

// Width returns the span of the domain.
func (d Domain) Width() float64 {
	return d.Right - d.Left
}

// IsDegenerate checks whether the domain has no positive width.
func (d Domain) IsDegenerate() bool {
	return !(d.Right > d.Left) || math.IsNaN(d.Left) || math.IsNaN(d.Right)
}

// Edges returns the integer ruler positions nearest the domain edges, clamped to a ruler
// of the provided length.
func (d Domain) Edges(length int) (int, int) {
	if length == 0 {
		return 0, 0
	}

	clamp := func(v int) int {
		return max(0, min(v, length-1))
	}

	return clamp(int(math.Floor(d.Left))), clamp(int(math.Ceil(d.Right)))
}
