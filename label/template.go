package label

import (
	"math"
	"time"
)

// SizeClass represents the panel size tiers the row templates are keyed by.
type SizeClass int

const (
	Thumbnail SizeClass = iota
	DefaultSize
	Large
)

const (
	// thumbnailMaxWidth is the widest panel, in pixels, considered a thumbnail.
	thumbnailMaxWidth = 300
	// defaultMaxWidth is the widest panel, in pixels, considered default sized.
	defaultMaxWidth = 800
)

// String stringifies the provided size class.
func (s SizeClass) String() string {
	switch s {
	case Thumbnail:
		return "thumbnail"
	case DefaultSize:
		return "default"
	case Large:
		return "large"
	default:
		return "unknown"
	}
}

// ClassFor returns the size class of a panel of the provided pixel width.
func ClassFor(width float64) SizeClass {
	switch {
	case width < thumbnailMaxWidth:
		return Thumbnail
	case width < defaultMaxWidth:
		return DefaultSize
	default:
		return Large
	}
}

// Template pairs the label rows displayed together. Upper is the finer resolution, Lower
// provides its context and may be NoRow.
type Template struct {
	Upper RowType
	Lower RowType
}

// templateRule selects a template for spans up to maxSpan, in hours for intraday charts and
// days otherwise.
type templateRule struct {
	class    SizeClass
	intraday bool
	maxSpan  float64
	template Template
}

var templateTable = []templateRule{
	{Large, true, 3, Template{Minutes, Days}},
	{Large, true, 72, Template{Hours, Days}},
	{Large, true, math.Inf(1), Template{Days, Months}},
	{DefaultSize, true, 2, Template{Minutes, Days}},
	{DefaultSize, true, 48, Template{Hours, Days}},
	{DefaultSize, true, math.Inf(1), Template{Days, Months}},
	{Thumbnail, true, 24, Template{Hours, NoRow}},
	{Thumbnail, true, math.Inf(1), Template{Days, NoRow}},

	{Large, false, 45, Template{Days, Months}},
	{Large, false, 120, Template{Weeks, Months}},
	{Large, false, 1100, Template{Months, Years}},
	{Large, false, math.Inf(1), Template{Years, NoRow}},
	{DefaultSize, false, 31, Template{Days, Months}},
	{DefaultSize, false, 730, Template{Months, Years}},
	{DefaultSize, false, math.Inf(1), Template{Years, NoRow}},
	{Thumbnail, false, 60, Template{Days, NoRow}},
	{Thumbnail, false, 730, Template{Months, NoRow}},
	{Thumbnail, false, math.Inf(1), Template{Years, NoRow}},
}

// SelectRowTemplate returns the label rows to display for a panel size class and the
// visible span.
func SelectRowTemplate(class SizeClass, span time.Duration, intraday bool) Template {
	magnitude := span.Hours()
	if !intraday {
		magnitude /= 24
	}

	for _, rule := range templateTable {
		if rule.class == class && rule.intraday == intraday && magnitude <= rule.maxSpan {
			return rule.template
		}
	}

	return Template{Upper: Years, Lower: NoRow}
}
