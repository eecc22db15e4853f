package viewport

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/chartwindow/ruler"
	"github.com/dnldd/chartwindow/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// DefaultIntradayDayLimit is the default maximum number of trading days an intraday chart
	// may span before switching to daily data.
	DefaultIntradayDayLimit = 10
	// DefaultMarkerPadding is the default ruler-index padding added at the domain edges for
	// bar-style markers.
	DefaultMarkerPadding = 0.5
	// DefaultIntradayLookback is the default depth of fetchable intraday history.
	DefaultIntradayLookback = time.Hour * 24 * 60
	// DefaultInterdayLookback is the default depth of fetchable daily history.
	DefaultInterdayLookback = time.Hour * 24 * 365 * 30
)

// Mode represents the resolution of the loaded ruler.
type Mode int

const (
	Interday Mode = iota
	Intraday
)

// String stringifies the provided mode.
func (m Mode) String() string {
	switch m {
	case Interday:
		return "interday"
	case Intraday:
		return "intraday"
	default:
		return "unknown"
	}
}

// BackfillGapDays holds the history, in days, that must remain between the earliest loaded
// datapoint and the lookback ceiling for a backfill to be requested.
type BackfillGapDays struct {
	Minute int
	Hour   int
	Day    int
}

// DefaultBackfillGapDays returns the default backfill thresholds.
func DefaultBackfillGapDays() BackfillGapDays {
	return BackfillGapDays{Minute: 7, Hour: 30, Day: 0}
}

// For returns the threshold of the provided period.
func (b BackfillGapDays) For(period shared.Period) int {
	switch {
	case period == shared.OneHour:
		return b.Hour
	case period.IsIntraday():
		return b.Minute
	default:
		return b.Day
	}
}

// ControllerConfig represents the viewport controller configuration.
type ControllerConfig struct {
	// AllowOverscroll permits the domain to extend past the ruler edges.
	AllowOverscroll bool
	// IntradayDayLimit is the maximum number of trading days an intraday chart may span.
	IntradayDayLimit int
	// MarkerPadding is the ruler-index padding added at both domain edges for bar markers.
	MarkerPadding float64
	// BackfillGapDays are the per-period backfill thresholds.
	BackfillGapDays BackfillGapDays
	// IntradayLookback is the depth of fetchable intraday history.
	IntradayLookback time.Duration
	// InterdayLookback is the depth of fetchable daily history.
	InterdayLookback time.Duration
	// Now returns the current time.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ControllerConfig) Validate() error {
	var errs error

	if cfg.IntradayDayLimit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("intraday day limit must be positive"))
	}
	if cfg.MarkerPadding < 0 {
		errs = errors.Join(errs, fmt.Errorf("marker padding cannot be negative"))
	}
	if cfg.IntradayLookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("intraday lookback must be positive"))
	}
	if cfg.InterdayLookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("interday lookback must be positive"))
	}
	if cfg.Now == nil {
		errs = errors.Join(errs, fmt.Errorf("now function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// DefaultRequest represents the inputs for choosing the initial visible window.
type DefaultRequest struct {
	// Ruler is the freshly built ruler.
	Ruler *ruler.Ruler
	// Calendar is the session calendar the ruler was built from.
	Calendar *shared.SessionCalendar
	// Start is the optional explicit start date.
	Start time.Time
	// Stop is the optional explicit stop date.
	Stop time.Time
	// ShortRange indicates an intraday request spanning a single session.
	ShortRange bool
	// PadMarkers indicates bar-style markers need edge space.
	PadMarkers bool
}

// ZoomResult represents the outcome of a completed pan or zoom.
type ZoomResult struct {
	// Domain is the legal domain applied.
	Domain shared.Domain
	// ZoomedOut indicates the domain widened since the zoom started.
	ZoomedOut bool
	// ModeSwitch indicates the chart must reload as daily data.
	ModeSwitch bool
}

// Controller governs the viewport domain of a chart panel.
type Controller struct {
	cfg         *ControllerConfig
	domain      shared.Domain
	zoomStart   shared.Domain
	mode        Mode
	zooming     atomic.Bool
	drawing     atomic.Bool
	resizing    atomic.Bool
	backfilling atomic.Bool
}

// NewController initializes a new viewport controller.
func NewController(cfg *ControllerConfig, mode Mode) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating controller config: %w", err)
	}

	return &Controller{
		cfg:  cfg,
		mode: mode,
	}, nil
}

// Domain returns the current domain.
func (c *Controller) Domain() shared.Domain {
	return c.domain
}

// Mode returns the current ruler mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// SetMode sets the ruler mode.
func (c *Controller) SetMode(mode Mode) {
	c.mode = mode
}

// correct fixes degenerate domains: a zero width domain is widened by one ruler entry when
// possible, otherwise it spans the full ruler.
func (c *Controller) correct(d shared.Domain, length int) shared.Domain {
	if !d.IsDegenerate() {
		return d
	}

	var fixed shared.Domain
	switch {
	case !math.IsNaN(d.Left) && d.Left >= 0 && d.Left+1 <= float64(length-1):
		fixed = shared.Domain{Left: d.Left, Right: d.Left + 1}
	case length > 1:
		fixed = shared.Domain{Left: 0, Right: float64(length - 1)}
	default:
		fixed = shared.Domain{Left: -0.5, Right: 0.5}
	}

	c.cfg.Logger.Debug().Msgf("corrected degenerate domain %s to %s",
		spew.Sdump(d), spew.Sdump(fixed))

	return fixed
}

// clamp keeps the domain within the ruler edges, allowing marker padding, while
// preserving its width where possible.
func (c *Controller) clamp(d shared.Domain, length int) shared.Domain {
	if length == 0 {
		return d
	}

	lo := -c.cfg.MarkerPadding
	hi := float64(length-1) + c.cfg.MarkerPadding
	width := d.Width()

	switch {
	case width >= hi-lo:
		return shared.Domain{Left: lo, Right: hi}
	case d.Left < lo:
		return shared.Domain{Left: lo, Right: lo + width}
	case d.Right > hi:
		return shared.Domain{Left: hi - width, Right: hi}
	default:
		return d
	}
}

// ComputeDefaultDomain chooses and applies the initial visible window of a freshly loaded
// ruler. Explicit start and stop dates take precedence, short intraday requests snap to the
// latest typical session and everything else spans the full ruler.
func (c *Controller) ComputeDefaultDomain(req *DefaultRequest) shared.Domain {
	r := req.Ruler
	length := r.Len()
	if length == 0 {
		c.domain = shared.Domain{Left: 0, Right: 1}
		c.zoomStart = c.domain
		return c.domain
	}

	d := shared.Domain{Left: 0, Right: float64(length - 1)}
	switch {
	case !req.Start.IsZero() || !req.Stop.IsZero():
		if !req.Start.IsZero() {
			d.Left = float64(r.IndexOf(req.Start))
		}
		if !req.Stop.IsZero() {
			d.Right = float64(r.IndexOf(req.Stop))
		}

	case r.Intraday && req.ShortRange && req.Calendar != nil:
		open, close, ok := ruler.TypicalWindow(req.Calendar, r.Last())
		if ok {
			d.Left = float64(r.IndexOf(open))
			d.Right = float64(r.IndexOf(close.Add(-time.Minute)))
		}
	}

	d = c.correct(d, length)
	if req.PadMarkers {
		d.Left -= c.cfg.MarkerPadding
		d.Right += c.cfg.MarkerPadding
	}

	c.domain = d
	c.zoomStart = d

	return d
}

// SetDomain applies a domain while panning or zooming. Degenerate domains are corrected.
func (c *Controller) SetDomain(d shared.Domain, length int) shared.Domain {
	c.domain = c.correct(d, length)
	return c.domain
}

// Shift moves the domain by the provided number of ruler entries.
func (c *Controller) Shift(delta float64) shared.Domain {
	c.domain.Left += delta
	c.domain.Right += delta
	c.zoomStart.Left += delta
	c.zoomStart.Right += delta

	return c.domain
}

// BeginZoom marks the start of a pan or zoom interaction.
func (c *Controller) BeginZoom() {
	c.zoomStart = c.domain
	c.zooming.Store(true)
}

// IsZooming checks whether a pan or zoom interaction is in progress.
func (c *Controller) IsZooming() bool {
	return c.zooming.Load()
}

// requestedDays estimates the trading days the provided domain spans on an intraday ruler.
func requestedDays(d shared.Domain, r *ruler.Ruler) int {
	days := r.DayCount()
	if days == 0 {
		return 0
	}

	perDay := float64(r.Len()) / float64(days)
	return int(math.Ceil(d.Width() / perDay))
}

// OnZoomEnd completes a pan or zoom interaction. The domain is clamped to the ruler unless
// overscroll is allowed. An intraday domain requesting more days than the intraday limit
// switches the controller to inter-day mode and leaves the domain for the caller's reload.
func (c *Controller) OnZoomEnd(d shared.Domain, r *ruler.Ruler) ZoomResult {
	c.zooming.Store(false)

	res := ZoomResult{
		ZoomedOut: d.Width() > c.zoomStart.Width(),
	}

	if c.mode == Intraday && r.Intraday {
		requested := requestedDays(d, r)
		if requested > c.cfg.IntradayDayLimit {
			c.cfg.Logger.Info().Msgf("domain requests %d days, above the intraday limit of %d, "+
				"switching to %s", requested, c.cfg.IntradayDayLimit, Interday)
			c.mode = Interday
			res.ModeSwitch = true
			res.Domain = d
			c.domain = d
			return res
		}
	}

	applied := c.correct(d, r.Len())
	if !c.cfg.AllowOverscroll {
		applied = c.clamp(applied, r.Len())
	}

	c.domain = applied
	res.Domain = applied

	return res
}

// lookbackCeiling returns the earliest fetchable date of the provided period.
func (c *Controller) lookbackCeiling(period shared.Period) time.Time {
	lookback := c.cfg.InterdayLookback
	if period.IsIntraday() {
		lookback = c.cfg.IntradayLookback
	}

	return c.cfg.Now().Add(-lookback)
}

// NeedsBackfill checks whether the provided domain reaches past the earliest loaded datapoint
// while enough fetchable history remains beyond it.
func (c *Controller) NeedsBackfill(d shared.Domain, r *ruler.Ruler, earliest time.Time, period shared.Period) bool {
	if r.IsEmpty() || earliest.IsZero() || c.backfilling.Load() {
		return false
	}

	past := d.Left < 0 || r.At(int(math.Floor(d.Left))).Before(earliest)
	if !past {
		return false
	}

	gap := time.Duration(c.cfg.BackfillGapDays.For(period)) * time.Hour * 24
	return earliest.Sub(c.lookbackCeiling(period)) > gap
}

// SetBackfilling flags an in-flight backfill.
func (c *Controller) SetBackfilling(active bool) {
	c.backfilling.Store(active)
}

// SetDrawing flags an in-progress tool drawing.
func (c *Controller) SetDrawing(active bool) {
	c.drawing.Store(active)
}

// SetResizing flags an in-progress panel resize.
func (c *Controller) SetResizing(active bool) {
	c.resizing.Store(active)
}

// SuppressPolling checks whether a backfill, zoom, drawing or resize is in flight.
func (c *Controller) SuppressPolling() bool {
	return c.zooming.Load() || c.backfilling.Load() || c.drawing.Load() || c.resizing.Load()
}
