package chart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/chartwindow/fetch"
	"github.com/dnldd/chartwindow/label"
	"github.com/dnldd/chartwindow/metrics"
	"github.com/dnldd/chartwindow/ruler"
	"github.com/dnldd/chartwindow/series"
	"github.com/dnldd/chartwindow/shared"
	"github.com/dnldd/chartwindow/viewport"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

const (
	// renderBufferSize is the capacity of the render signal channel. Render requests made
	// while one is pending are coalesced.
	renderBufferSize = 1

	// DefaultPollInterval is the default delay between polls for new data.
	DefaultPollInterval = time.Minute
	// DefaultBackfillDelay is the default delay before a requested backfill is fetched.
	DefaultBackfillDelay = time.Millisecond * 250
	// DefaultIntradayRange is the default history span of intraday loads and backfills.
	DefaultIntradayRange = time.Hour * 24 * 5
	// DefaultInterdayRange is the default history span of daily loads and backfills.
	DefaultInterdayRange = time.Hour * 24 * 365 * 2
)

// LoadOptions represents the inputs of a full load.
type LoadOptions struct {
	// Start is the optional explicit start date.
	Start time.Time
	// Stop is the optional explicit stop date.
	Stop time.Time
	// ShortRange indicates an intraday request spanning a single session.
	ShortRange bool
	// PadMarkers indicates bar-style markers need edge space.
	PadMarkers bool
}

// SessionConfig represents the chart session configuration.
type SessionConfig struct {
	// Symbol is the charted symbol.
	Symbol string
	// Period is the initial sampling period.
	Period shared.Period
	// Calendar is the session calendar used when payloads carry none.
	Calendar *shared.SessionCalendar
	// Fetcher fetches chart data payloads.
	Fetcher shared.Fetcher
	// Render draws the chart. It is only invoked from the session's run loop.
	Render func()
	// NotifyError relays failed loads, backfills and polls.
	NotifyError func(err shared.Error)
	// OnDomainChanged is an optional callback relaying every applied domain.
	OnDomainChanged func(domain shared.Domain)
	// Metrics represents the session metrics.
	Metrics *metrics.Metrics
	// Controller represents the viewport controller configuration.
	Controller *viewport.ControllerConfig
	// Planner represents the label planner configuration.
	Planner *label.PlannerConfig
	// PollInterval is the delay between polls for new data.
	PollInterval time.Duration
	// BackfillDelay is the delay before a requested backfill is fetched.
	BackfillDelay time.Duration
	// IntradayRange is the history span of intraday loads and backfills.
	IntradayRange time.Duration
	// InterdayRange is the history span of daily loads and backfills.
	InterdayRange time.Duration
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *SessionConfig) Validate() error {
	var errs error

	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be empty"))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("fetcher cannot be nil"))
	}
	if cfg.Render == nil {
		errs = errors.Join(errs, fmt.Errorf("render function cannot be nil"))
	}
	if cfg.NotifyError == nil {
		errs = errors.Join(errs, fmt.Errorf("notify error function cannot be nil"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Controller == nil {
		errs = errors.Join(errs, fmt.Errorf("controller config cannot be nil"))
	}
	if cfg.Planner == nil {
		errs = errors.Join(errs, fmt.Errorf("planner config cannot be nil"))
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.BackfillDelay <= 0 {
		errs = errors.Join(errs, fmt.Errorf("backfill delay must be positive"))
	}
	if cfg.IntradayRange <= 0 {
		errs = errors.Join(errs, fmt.Errorf("intraday range must be positive"))
	}
	if cfg.InterdayRange <= 0 {
		errs = errors.Join(errs, fmt.Errorf("interday range must be positive"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Session holds the state of a single chart panel: its ruler, series store, viewport and
// labels. Mutations are serialized; fetches are the only asynchronous boundary and carry a
// generation token so superseded responses are dropped.
type Session struct {
	cfg        *SessionConfig
	mtx        sync.Mutex
	period     shared.Period
	calendar   *shared.SessionCalendar
	ruler      *ruler.Ruler
	store      *series.Store
	controller *viewport.Controller
	planner    *label.Planner
	load       LoadOptions
	loading    bool

	generation  atomic.Uint64
	cancelFetch context.CancelFunc
	fetches     sync.WaitGroup

	renderSignals chan struct{}
	renderPending atomic.Bool

	polling     atomic.Bool
	pollJob     *gocron.Job
	backfillJob *gocron.Job

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession initializes a new chart session.
func NewSession(cfg *SessionConfig) (*Session, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating session config: %w", err)
	}

	mode := viewport.Interday
	if cfg.Period.IsIntraday() {
		mode = viewport.Intraday
	}

	controller, err := viewport.NewController(cfg.Controller, mode)
	if err != nil {
		return nil, fmt.Errorf("creating viewport controller: %w", err)
	}

	planner, err := label.NewPlanner(cfg.Planner)
	if err != nil {
		return nil, fmt.Errorf("creating label planner: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		cfg:           cfg,
		period:        cfg.Period,
		calendar:      cfg.Calendar,
		store:         series.NewStore(),
		controller:    controller,
		planner:       planner,
		renderSignals: make(chan struct{}, renderBufferSize),
		ctx:           ctx,
		cancel:        cancel,
	}
	s.ruler = &ruler.Ruler{Intraday: mode == viewport.Intraday, Location: s.location()}
	s.planner.Rebuild(s.ruler)

	return s, nil
}

// location returns the exchange locale of the session.
func (s *Session) location() *time.Location {
	if s.calendar != nil && s.calendar.Location != nil {
		return s.calendar.Location
	}

	return time.UTC
}

// historyRange returns the history span of loads and backfills for the current mode.
func (s *Session) historyRange() time.Duration {
	if s.controller.Mode() == viewport.Intraday {
		return s.cfg.IntradayRange
	}

	return s.cfg.InterdayRange
}

// notifyDomain relays the provided domain when a listener is configured.
func (s *Session) notifyDomain(domain shared.Domain) {
	if s.cfg.OnDomainChanged != nil {
		s.cfg.OnDomainChanged(domain)
	}
}

// startFetch aborts any in-flight fetch and fetches the provided request asynchronously.
// The response is applied only if no other fetch was started in the meantime. This must be
// called with the session lock held.
func (s *Session) startFetch(req *shared.FetchRequest, apply func(payload *fetch.Payload) error) {
	if s.ctx.Err() != nil {
		return
	}

	if s.cancelFetch != nil {
		s.cancelFetch()
	}

	s.loading = req.Kind == shared.FullFetch
	s.controller.SetBackfilling(req.Kind == shared.PrependFetch)

	gen := s.generation.Inc()
	ctx, cancel := context.WithTimeout(s.ctx, shared.TimeoutDuration)
	s.cancelFetch = cancel

	s.cfg.Logger.Debug().Msgf("fetching %s data (%s) for %s, request %s", req.Kind, req.Period,
		req.Symbol, req.ID)

	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		defer cancel()

		data, err := s.cfg.Fetcher.Fetch(ctx, req)
		s.complete(gen, req, data, err, apply)
	}()
}

// failureKind returns the error kind reported for a failed fetch of the provided kind.
func failureKind(kind shared.FetchKind) shared.ErrorKind {
	if kind == shared.FullFetch {
		return shared.DataUnavailable
	}

	return shared.TransientFetchError
}

// complete applies a fetch response unless it has been superseded.
func (s *Session) complete(gen uint64, req *shared.FetchRequest, data gjson.Result, fetchErr error, apply func(payload *fetch.Payload) error) {
	s.mtx.Lock()
	if gen != s.generation.Load() {
		s.mtx.Unlock()
		s.cfg.Metrics.StaleResponses.Inc()
		s.cfg.Logger.Debug().Msgf("dropping stale %s response for %s, request %s", req.Kind,
			req.Symbol, req.ID)
		return
	}

	s.cancelFetch = nil
	s.loading = false
	s.controller.SetBackfilling(false)

	err := fetchErr
	if err == nil {
		var payload *fetch.Payload
		payload, err = fetch.ParsePayload(data, s.location())
		if err != nil {
			s.cfg.Logger.Debug().Msgf("unparsable %s payload: %s", req.Kind, data.Raw)
		} else {
			if evt := s.cfg.Logger.Trace(); evt.Enabled() {
				evt.Msgf("parsed %s payload: %s", req.Kind, spew.Sdump(payload))
			}
			err = apply(payload)
		}
	}

	// A failed full load leaves nothing to show until the next load.
	if err != nil && req.Kind == shared.FullFetch {
		s.clear()
	}

	domain := s.controller.Domain()
	s.mtx.Unlock()

	if err != nil {
		var serr shared.Error
		if !errors.As(err, &serr) {
			serr = shared.NewError(failureKind(req.Kind), "%s fetch for %s: %v", req.Kind, req.Symbol, err)
		}

		s.cfg.Metrics.FetchErrors.WithLabelValues(serr.Kind.String()).Inc()
		s.cfg.Logger.Error().Msgf("request %s: %v", req.ID, serr)
		s.cfg.NotifyError(serr)
		return
	}

	s.notifyDomain(domain)
	s.RequestRender()
}

// rebuildRuler rebuilds the ruler and its labels to cover the provided dates. This must be
// called with the session lock held.
func (s *Session) rebuildRuler(first time.Time, last time.Time) {
	intraday := s.controller.Mode() == viewport.Intraday
	if intraday {
		// Extend to the close of the session the latest datapoint trades in.
		_, closeTime, ok := ruler.TypicalWindow(s.calendar, last)
		if ok && closeTime.After(last) {
			last = closeTime
		}
	}

	days := ruler.TradingDays(s.calendar, first, last)
	s.ruler = ruler.Build(s.calendar, days, intraday)
	s.planner.Rebuild(s.ruler)
	s.cfg.Metrics.RulerEntries.Set(float64(s.ruler.Len()))

	s.cfg.Logger.Debug().Msgf("rebuilt %s ruler with %d entries over %d days",
		s.controller.Mode(), s.ruler.Len(), len(days))
}

// clear drops the loaded ruler, series and labels. This must be called with the session
// lock held.
func (s *Session) clear() {
	s.store.Clear()
	s.ruler = &ruler.Ruler{Intraday: s.controller.Mode() == viewport.Intraday, Location: s.location()}
	s.planner.Rebuild(s.ruler)
	s.cfg.Metrics.RulerEntries.Set(0)
}

// applyFull replaces the loaded data with a full load payload. This must be called with the
// session lock held.
func (s *Session) applyFull(payload *fetch.Payload) error {
	cal := payload.Calendar
	if cal == nil {
		cal = s.cfg.Calendar
	}
	if cal == nil {
		s.clear()
		return shared.NewError(shared.DataUnavailable, "no session calendar for %s", s.cfg.Symbol)
	}
	if s.controller.Mode() == viewport.Intraday && !cal.HasTypicalSessions() {
		s.clear()
		return shared.NewError(shared.DataUnavailable, "no typical sessions for intraday %s chart",
			s.cfg.Symbol)
	}

	s.calendar = cal

	count := s.store.Replace(payload.Batches)
	s.cfg.Metrics.RecordMerge(metrics.MergeReplace, count)

	first, last, found := s.store.Bounds(s.cfg.Symbol)
	if !found {
		s.clear()
		return shared.NewError(shared.DataUnavailable, "no series data for %s", s.cfg.Symbol)
	}

	s.rebuildRuler(first, last)
	s.controller.ComputeDefaultDomain(&viewport.DefaultRequest{
		Ruler:      s.ruler,
		Calendar:   s.calendar,
		Start:      s.load.Start,
		Stop:       s.load.Stop,
		ShortRange: s.load.ShortRange,
		PadMarkers: s.load.PadMarkers,
	})

	s.cfg.Logger.Info().Msgf("loaded %d %s datapoints for %s", count, s.period, s.cfg.Symbol)

	return nil
}

// applyPrepend merges backfilled history. When the ruler grows at its start the domain is
// shifted so the same dates stay visible. This must be called with the session lock held.
func (s *Session) applyPrepend(payload *fetch.Payload) error {
	oldFirst := s.ruler.First()

	count := s.store.Prepend(payload.Batches)
	s.cfg.Metrics.RecordMerge(metrics.MergePrepend, count)
	if count == 0 {
		s.cfg.Logger.Debug().Msgf("backfill for %s returned no older data", s.cfg.Symbol)
		return nil
	}

	first, last, found := s.store.Bounds(s.cfg.Symbol)
	if !found || !first.Before(oldFirst) {
		return nil
	}

	s.rebuildRuler(first, last)
	s.controller.Shift(float64(s.ruler.IndexOf(oldFirst)))

	return nil
}

// applyAppend merges polled data. The ruler only grows at its end, so the domain is kept.
// This must be called with the session lock held.
func (s *Session) applyAppend(payload *fetch.Payload) error {
	count := s.store.Append(payload.Batches)
	s.cfg.Metrics.RecordMerge(metrics.MergeAppend, count)

	first, last, found := s.store.Bounds(s.cfg.Symbol)
	if !found || !last.After(s.ruler.Last()) {
		return nil
	}

	s.rebuildRuler(first, last)

	return nil
}

// loadFull starts a full load with the current load options. This must be called with the
// session lock held.
func (s *Session) loadFull() {
	if s.backfillJob != nil {
		s.cfg.JobScheduler.RemoveByReference(s.backfillJob)
		s.backfillJob = nil
	}

	from := s.load.Start
	if from.IsZero() {
		from = s.cfg.Controller.Now().Add(-s.historyRange())
	}

	req := shared.NewFetchRequest(s.cfg.Symbol, s.period, shared.FullFetch, from, s.load.Stop)
	s.startFetch(req, s.applyFull)
}

// Load replaces the loaded data with a full load of the session's symbol.
func (s *Session) Load(opts LoadOptions) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.load = opts
	s.loadFull()
}

// switchToDaily reloads the chart as daily data covering the provided domain. This must be
// called with the session lock held.
func (s *Session) switchToDaily(d shared.Domain) {
	lo, hi := d.Edges(s.ruler.Len())
	opts := LoadOptions{
		Start:      shared.StartOfDay(s.ruler.Local(lo)),
		PadMarkers: s.load.PadMarkers,
	}
	if hi < s.ruler.Len()-1 {
		opts.Stop = shared.StartOfDay(s.ruler.Local(hi))
	}

	s.cfg.Metrics.ModeSwitches.Inc()
	s.cfg.Logger.Info().Msgf("switching %s from %s to %s data", s.cfg.Symbol, s.period, shared.Daily)

	s.period = shared.Daily
	s.controller.SetMode(viewport.Interday)
	s.clear()
	s.load = opts
	s.loadFull()
}

// schedule replaces the provided job with a single-shot job running task after delay. This
// must be called with the session lock held.
func (s *Session) schedule(prior *gocron.Job, name string, delay time.Duration, task func()) (*gocron.Job, error) {
	if prior != nil {
		s.cfg.JobScheduler.RemoveByReference(prior)
	}

	tag := fmt.Sprintf("%s-%s-%s", s.cfg.Symbol, name, uuid.New())
	job, err := s.cfg.JobScheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Tag(tag).Do(task)
	if err != nil {
		return nil, fmt.Errorf("scheduling %s job: %w", name, err)
	}

	return job, nil
}

// backfill fetches history older than the loaded data.
func (s *Session) backfill() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.backfillJob = nil
	if s.loading || s.ctx.Err() != nil {
		s.controller.SetBackfilling(false)
		return
	}

	// The zoom end following the active interaction re-evaluates the backfill.
	if s.controller.IsZooming() {
		s.cfg.Logger.Debug().Msgf("skipping backfill for %s, zoom in progress", s.cfg.Symbol)
		s.controller.SetBackfilling(false)
		return
	}

	first, _, found := s.store.Bounds(s.cfg.Symbol)
	if !found {
		s.controller.SetBackfilling(false)
		return
	}

	s.cfg.Metrics.Backfills.Inc()
	req := shared.NewFetchRequest(s.cfg.Symbol, s.period, shared.PrependFetch,
		first.Add(-s.historyRange()), first)
	s.startFetch(req, s.applyPrepend)
}

// poll fetches data newer than the loaded data and schedules the next poll. Polls are
// skipped while loading or while a backfill or interaction is in flight.
func (s *Session) poll() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.polling.Load() || s.ctx.Err() != nil {
		return
	}

	_, last, found := s.store.Bounds(s.cfg.Symbol)
	switch {
	case s.loading || !found:
		s.cfg.Logger.Debug().Msgf("skipping poll for %s, no data loaded", s.cfg.Symbol)
	case s.controller.SuppressPolling():
		s.cfg.Logger.Debug().Msgf("skipping poll for %s, interaction in progress", s.cfg.Symbol)
	default:
		req := shared.NewFetchRequest(s.cfg.Symbol, s.period, shared.AppendFetch, last, time.Time{})
		s.startFetch(req, s.applyAppend)
	}

	job, err := s.schedule(s.pollJob, "poll", s.cfg.PollInterval, s.poll)
	if err != nil {
		s.cfg.Logger.Error().Msgf("rescheduling poll for %s: %v", s.cfg.Symbol, err)
		return
	}

	s.pollJob = job
}

// StartPolling schedules periodic polls for new data.
func (s *Session) StartPolling() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.polling.Store(true)
	job, err := s.schedule(s.pollJob, "poll", s.cfg.PollInterval, s.poll)
	if err != nil {
		return err
	}

	s.pollJob = job
	return nil
}

// StopPolling cancels periodic polls.
func (s *Session) StopPolling() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.polling.Store(false)
	if s.pollJob != nil {
		s.cfg.JobScheduler.RemoveByReference(s.pollJob)
		s.pollJob = nil
	}
}

// BeginZoom marks the start of a pan or zoom interaction.
func (s *Session) BeginZoom() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.controller.BeginZoom()
}

// SetDomain applies a domain while panning or zooming.
func (s *Session) SetDomain(d shared.Domain) shared.Domain {
	s.mtx.Lock()
	applied := s.controller.SetDomain(d, s.ruler.Len())
	s.mtx.Unlock()

	s.notifyDomain(applied)
	s.RequestRender()

	return applied
}

// EndZoom completes a pan or zoom interaction. A domain reaching past loaded history
// schedules a backfill; one spanning too many intraday sessions reloads the chart as daily
// data.
func (s *Session) EndZoom(d shared.Domain) viewport.ZoomResult {
	s.mtx.Lock()
	res := s.controller.OnZoomEnd(d, s.ruler)
	switch {
	case res.ModeSwitch:
		s.switchToDaily(d)

	case !s.loading:
		first, _, found := s.store.Bounds(s.cfg.Symbol)
		if found && s.controller.NeedsBackfill(d, s.ruler, first, s.period) {
			job, err := s.schedule(s.backfillJob, "backfill", s.cfg.BackfillDelay, s.backfill)
			if err != nil {
				s.cfg.Logger.Error().Msgf("scheduling backfill for %s: %v", s.cfg.Symbol, err)
				break
			}

			s.backfillJob = job
			s.controller.SetBackfilling(true)
		}
	}

	domain := s.controller.Domain()
	s.mtx.Unlock()

	if !res.ModeSwitch {
		s.notifyDomain(domain)
		s.RequestRender()
	}

	return res
}

// SetDrawing flags an in-progress tool drawing.
func (s *Session) SetDrawing(active bool) {
	s.controller.SetDrawing(active)
}

// SetResizing flags an in-progress panel resize.
func (s *Session) SetResizing(active bool) {
	s.controller.SetResizing(active)
}

// Domain returns the current domain.
func (s *Session) Domain() shared.Domain {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.controller.Domain()
}

// Mode returns the current ruler mode.
func (s *Session) Mode() viewport.Mode {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.controller.Mode()
}

// Period returns the current sampling period.
func (s *Session) Period() shared.Period {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.period
}

// Ruler returns the current ruler. Rulers are replaced, never modified, once built.
func (s *Session) Ruler() *ruler.Ruler {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.ruler
}

// VisibleWindow returns the datapoints visible in the current domain.
func (s *Session) VisibleWindow() series.WindowedData {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	start := time.Now()
	w := series.Window(s.store, s.controller.Domain(), s.ruler)
	s.cfg.Metrics.WindowDuration.Observe(time.Since(start).Seconds())

	return w
}

// LabelPlan returns the axis labels for the provided view over the current domain.
func (s *Session) LabelPlan(view label.View) (label.Plan, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	view.Domain = s.controller.Domain()
	return s.planner.Plan(&view)
}

// RequestRender requests a render pass. Requests made while a render is pending are
// coalesced into it.
func (s *Session) RequestRender() {
	if !s.renderPending.CompareAndSwap(false, true) {
		s.cfg.Metrics.CoalescedRenders.Inc()
		return
	}

	select {
	case s.renderSignals <- struct{}{}:
		// do nothing.
	default:
		s.cfg.Logger.Error().Msgf("render signal channel at capacity: %d/%d",
			len(s.renderSignals), renderBufferSize)
	}
}

// Wait blocks until in-flight fetches complete.
func (s *Session) Wait() {
	s.fetches.Wait()
}

// Close stops polling, aborts in-flight fetches and waits for them to complete.
func (s *Session) Close() {
	s.mtx.Lock()
	s.polling.Store(false)
	if s.pollJob != nil {
		s.cfg.JobScheduler.RemoveByReference(s.pollJob)
		s.pollJob = nil
	}
	if s.backfillJob != nil {
		s.cfg.JobScheduler.RemoveByReference(s.backfillJob)
		s.backfillJob = nil
	}
	// Aborted responses are stale.
	s.generation.Inc()
	s.cancel()
	s.mtx.Unlock()

	s.fetches.Wait()
}

// Run manages the lifecycle processes of the chart session.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.renderSignals:
			s.renderPending.Store(false)
			s.cfg.Render()
			s.cfg.Metrics.Renders.Inc()
		}
	}
}
