package label

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dnldd/chartwindow/ruler"
	"github.com/dnldd/chartwindow/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultGap is the default minimum pixel gap between adjacent labels.
	DefaultGap = 6
)

// View represents the render-time geometry labels are planned against. The renderer owns
// all pixel math through PixelX and Measure.
type View struct {
	// Domain is the visible domain.
	Domain shared.Domain
	// PanelWidth is the panel width in pixels.
	PanelWidth float64
	// PixelX maps a ruler position to a horizontal pixel offset.
	PixelX func(rulerIndex float64) float64
	// Measure returns the rendered pixel width of the provided text.
	Measure func(text string) float64
}

// Validate asserts the view can be planned against.
func (v *View) Validate() error {
	var errs error

	if v.PanelWidth <= 0 {
		errs = errors.Join(errs, fmt.Errorf("panel width must be positive"))
	}
	if v.PixelX == nil {
		errs = errors.Join(errs, fmt.Errorf("pixel mapping function cannot be nil"))
	}
	if v.Measure == nil {
		errs = errors.Join(errs, fmt.Errorf("measure function cannot be nil"))
	}

	return errs
}

// Row represents the planned labels of a single resolution.
type Row struct {
	Type   RowType
	Labels []Label
}

// Plan represents the labels to display for a render.
type Plan struct {
	Rows []Row
}

// PlannerConfig represents the label planner configuration.
type PlannerConfig struct {
	// Gap is the minimum pixel gap between adjacent labels.
	Gap float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *PlannerConfig) Validate() error {
	var errs error

	if cfg.Gap < 0 {
		errs = errors.Join(errs, fmt.Errorf("label gap cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Planner computes collision free axis labels. Candidate labels are built once per ruler,
// thinning and collision filtering run per render.
type Planner struct {
	cfg   *PlannerConfig
	ruler *ruler.Ruler
	rows  [rowCount][]Label
}

// NewPlanner initializes a new label planner.
func NewPlanner(cfg *PlannerConfig) (*Planner, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating planner config: %w", err)
	}

	return &Planner{cfg: cfg}, nil
}

// Rebuild recomputes the candidate labels of every row type from the provided ruler.
func (p *Planner) Rebuild(r *ruler.Ruler) {
	p.ruler = r
	for idx := range p.rows {
		p.rows[idx] = nil
	}
	if r.IsEmpty() {
		return
	}

	for row := Minutes; row <= Years; row++ {
		spec := rowSpecs[row]
		if spec.intradayOnly && !r.Intraday {
			continue
		}

		var labels []Label
		for idx := range r.Len() {
			cur := r.Local(idx)
			switch {
			case idx == 0:
				// The first entry only starts a unit for rows at or below the ruler resolution.
				if row > Days {
					continue
				}
			case !spec.boundary(r.Local(idx-1), cur):
				continue
			}

			formats := formatsFor(row, cur)
			text := formats.Default
			if r.Intraday && formats.Intraday != "" {
				text = formats.Intraday
			}

			labels = append(labels, Label{
				RulerIndex:       idx,
				Date:             r.At(idx),
				Formats:          formats,
				StepCompareValue: spec.compare(cur),
				Text:             text,
			})
		}

		p.rows[row] = labels
	}

	p.cfg.Logger.Debug().Msgf("rebuilt labels for %d ruler entries", r.Len())
}

// Row returns the candidate labels of the provided row type.
func (p *Planner) Row(row RowType) []Label {
	if row < Minutes || row > Years {
		return nil
	}

	return p.rows[row]
}

// visible returns the candidate labels of a row within the provided ruler positions, with
// pixel offsets assigned.
func (p *Planner) visible(row RowType, lo int, hi int, view *View) []Label {
	candidates := p.Row(row)
	start := ruler.ClosestDomainIndex(candidates, float64(lo), func(l Label) float64 {
		return float64(l.RulerIndex)
	})
	if start < 0 {
		return nil
	}
	if candidates[start].RulerIndex < lo {
		start++
	}

	var labels []Label
	for idx := start; idx < len(candidates) && candidates[idx].RulerIndex <= hi; idx++ {
		l := candidates[idx]
		l.PixelX = view.PixelX(float64(l.RulerIndex))
		labels = append(labels, l)
	}

	return labels
}

// thin drops labels whose step compare value is not a multiple of the row's step.
func thin(row RowType, labels []Label, width float64) []Label {
	if len(labels) == 0 {
		return nil
	}

	avg := width
	if len(labels) > 1 {
		avg = (labels[len(labels)-1].PixelX - labels[0].PixelX) / float64(len(labels)-1)
	}

	step := StepFor(row, avg)
	thinned := make([]Label, 0, len(labels))
	for _, l := range labels {
		if l.StepCompareValue%step == 0 {
			thinned = append(thinned, l)
		}
	}

	return thinned
}

// overlaps checks whether two labels' pixel ranges, padded by gap, intersect.
func overlaps(a *Label, b *Label, measure func(string) float64, gap float64) bool {
	return a.PixelX < b.PixelX+measure(b.Text)+gap && b.PixelX < a.PixelX+measure(a.Text)+gap
}

// resolve places labels right to left, keeping a label only when it fits the panel and does
// not overlap the nearest kept label to its right. A pinned label is always kept and evicts
// any label colliding with it.
func (p *Planner) resolve(labels []Label, pinned *Label, view *View) []Label {
	kept := make([]Label, 0, len(labels)+1)
	nextX := view.PanelWidth + p.cfg.Gap
	for idx := len(labels) - 1; idx >= 0; idx-- {
		l := labels[idx]
		width := view.Measure(l.Text)
		if l.PixelX < 0 || l.PixelX+width > view.PanelWidth {
			continue
		}
		if l.PixelX+width+p.cfg.Gap > nextX {
			continue
		}
		if pinned != nil && overlaps(&l, pinned, view.Measure, p.cfg.Gap) {
			continue
		}

		kept = append(kept, l)
		nextX = l.PixelX
	}

	if pinned != nil {
		kept = append(kept, *pinned)
	}

	slices.SortFunc(kept, func(a, b Label) int {
		return a.RulerIndex - b.RulerIndex
	})

	return kept
}

// synthesize builds the context label the first visible label of the upper row contributes
// to the lower row. It returns nil when neither first format fits the panel.
func synthesize(lower RowType, first *Label, loc *time.Location, view *View) *Label {
	local := first.Date.In(loc)
	formats := formatsFor(lower, local)
	l := &Label{
		RulerIndex:       first.RulerIndex,
		Date:             first.Date,
		Formats:          formats,
		StepCompareValue: rowSpecs[lower].compare(local),
		PixelX:           first.PixelX,
		Synthetic:        true,
	}

	for _, text := range []string{formats.First, formats.FirstAlt} {
		if first.PixelX >= 0 && first.PixelX+view.Measure(text) <= view.PanelWidth {
			l.Text = text
			return l
		}
	}

	return nil
}

// Plan selects the label rows for the provided view and returns their thinned, collision
// free labels.
func (p *Planner) Plan(view *View) (Plan, error) {
	err := view.Validate()
	if err != nil {
		return Plan{}, fmt.Errorf("validating view: %w", err)
	}
	if p.ruler.IsEmpty() {
		return Plan{}, nil
	}

	lo, hi := view.Domain.Edges(p.ruler.Len())
	span := p.ruler.At(hi).Sub(p.ruler.At(lo))
	template := SelectRowTemplate(ClassFor(view.PanelWidth), span, p.ruler.Intraday)

	upper := p.resolve(thin(template.Upper, p.visible(template.Upper, lo, hi, view), view.PanelWidth), nil, view)
	plan := Plan{Rows: []Row{{Type: template.Upper, Labels: upper}}}
	if template.Lower == NoRow {
		return plan, nil
	}

	lower := thin(template.Lower, p.visible(template.Lower, lo, hi, view), view.PanelWidth)
	var pinned *Label
	if len(upper) > 0 {
		pinned = synthesize(template.Lower, &upper[0], p.ruler.Location, view)
	}
	if pinned != nil {
		// The synthetic label overwrites a natural label at the same position.
		lower = slices.DeleteFunc(lower, func(l Label) bool {
			return l.RulerIndex == pinned.RulerIndex
		})
	}

	plan.Rows = append(plan.Rows, Row{Type: template.Lower, Labels: p.resolve(lower, pinned, view)})
	return plan, nil
}
