package label

import (
	"math"
	"time"

	"github.com/dnldd/chartwindow/shared"
)

// RowType represents the time resolution of a label row.
type RowType int

const (
	NoRow RowType = iota - 1
	Minutes
	Hours
	Days
	Weeks
	Months
	Years

	rowCount = int(Years) + 1
)

// String stringifies the provided row type.
func (r RowType) String() string {
	switch r {
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	case Months:
		return "months"
	case Years:
		return "years"
	default:
		return "none"
	}
}

// Formats holds the display variants of a label.
type Formats struct {
	// Default is the text shown in the label's own row.
	Default string
	// First is the text shown when the label provides context at the left edge.
	First string
	// FirstAlt is the shorter fallback of First.
	FirstAlt string
	// Intraday is the text shown in the label's own row on intraday charts, when set.
	Intraday string
}

// Label represents a single axis label.
type Label struct {
	RulerIndex       int
	Date             time.Time
	Formats          Formats
	StepCompareValue int
	PixelX           float64
	Text             string
	Synthetic        bool
}

// stepRule maps a minimum average pixel spacing to a thinning step.
type stepRule struct {
	minPx float64
	step  int
}

// rowSpec holds the pure functions describing a row type.
type rowSpec struct {
	// boundary checks whether cur starts a new unit relative to prev.
	boundary func(prev time.Time, cur time.Time) bool
	// compare returns the zero based value step thinning is applied to.
	compare func(t time.Time) int
	// layouts are the time layouts of the label formats.
	layouts Formats
	// steps are the thinning rules in descending spacing order.
	steps []stepRule
	// fallback returns the step for spacing below every rule.
	fallback func(avgPx float64) int
	// intradayOnly restricts the row to intraday rulers.
	intradayOnly bool
}

// targetSpacing is the pixel spacing dynamic fallback steps aim for.
const targetSpacing = 45

// dynamicStep returns the step keeping labels about targetSpacing apart, with a floor.
func dynamicStep(floor int) func(avgPx float64) int {
	return func(avgPx float64) int {
		if avgPx <= 0 {
			return floor
		}

		return max(floor, int(math.Ceil(targetSpacing/avgPx)))
	}
}

// constantStep returns a fixed fallback step.
func constantStep(step int) func(avgPx float64) int {
	return func(float64) int {
		return step
	}
}

var rowSpecs = [rowCount]rowSpec{
	Minutes: {
		boundary: func(prev, cur time.Time) bool {
			return !prev.Truncate(time.Minute).Equal(cur.Truncate(time.Minute))
		},
		compare: func(t time.Time) int { return t.Minute() },
		layouts: Formats{Default: "15:04", First: "Jan 2 15:04", FirstAlt: "15:04"},
		steps: []stepRule{
			{minPx: 40, step: 1}, {minPx: 8, step: 5}, {minPx: 4, step: 10}, {minPx: 2.5, step: 15},
		},
		fallback:     constantStep(30),
		intradayOnly: true,
	},
	Hours: {
		boundary: func(prev, cur time.Time) bool {
			return prev.Hour() != cur.Hour() || !shared.SameDay(prev, cur)
		},
		compare: func(t time.Time) int { return t.Hour() },
		layouts: Formats{Default: "15:04", First: "Jan 2 15:04", FirstAlt: "15:04"},
		steps: []stepRule{
			{minPx: 40, step: 1}, {minPx: 20, step: 2}, {minPx: 12, step: 3}, {minPx: 7, step: 6},
		},
		fallback:     constantStep(12),
		intradayOnly: true,
	},
	Days: {
		boundary: func(prev, cur time.Time) bool {
			return !shared.SameDay(prev, cur)
		},
		compare: func(t time.Time) int { return t.Day() - 1 },
		layouts: Formats{Default: "2", First: "Mon, Jan 2", FirstAlt: "Jan 2", Intraday: "Mon 2"},
		steps: []stepRule{
			{minPx: 30, step: 1}, {minPx: 25, step: 2}, {minPx: 15, step: 3},
		},
		fallback: dynamicStep(1),
	},
	Weeks: {
		boundary: func(prev, cur time.Time) bool {
			py, pw := prev.ISOWeek()
			cy, cw := cur.ISOWeek()
			return py != cy || pw != cw
		},
		compare: func(t time.Time) int {
			_, week := t.ISOWeek()
			return week - 1
		},
		layouts: Formats{Default: "Jan 2", First: "Jan 2, 2006", FirstAlt: "Jan 2"},
		steps: []stepRule{
			{minPx: 30, step: 1}, {minPx: 15, step: 2},
		},
		fallback: constantStep(4),
	},
	Months: {
		boundary: func(prev, cur time.Time) bool {
			return prev.Month() != cur.Month() || prev.Year() != cur.Year()
		},
		compare: func(t time.Time) int { return int(t.Month()) - 1 },
		layouts: Formats{Default: "Jan", First: "Jan 2006", FirstAlt: "Jan"},
		steps: []stepRule{
			{minPx: 40, step: 1}, {minPx: 20, step: 3}, {minPx: 10, step: 6},
		},
		fallback: constantStep(12),
	},
	Years: {
		boundary: func(prev, cur time.Time) bool {
			return prev.Year() != cur.Year()
		},
		compare: func(t time.Time) int { return t.Year() },
		layouts: Formats{Default: "2006", First: "2006", FirstAlt: "'06"},
		steps: []stepRule{
			{minPx: 40, step: 1}, {minPx: 20, step: 2}, {minPx: 8, step: 5},
		},
		fallback: dynamicStep(10),
	},
}

// formatsFor renders the label formats of the provided row type for t.
func formatsFor(row RowType, t time.Time) Formats {
	layouts := rowSpecs[row].layouts
	formats := Formats{
		Default:  t.Format(layouts.Default),
		First:    t.Format(layouts.First),
		FirstAlt: t.Format(layouts.FirstAlt),
	}
	if layouts.Intraday != "" {
		formats.Intraday = t.Format(layouts.Intraday)
	}

	return formats
}

// StepFor returns the thinning step of the provided row type for an average pixel spacing
// between its candidate labels. Wider spacing never yields a larger step.
func StepFor(row RowType, avgPixelDistance float64) int {
	if row < Minutes || row > Years {
		return 1
	}

	spec := rowSpecs[row]
	for _, rule := range spec.steps {
		if avgPixelDistance > rule.minPx {
			return rule.step
		}
	}

	return spec.fallback(avgPixelDistance)
}
