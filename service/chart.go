package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/chartwindow/chart"
	"github.com/dnldd/chartwindow/fetch"
	"github.com/dnldd/chartwindow/label"
	"github.com/dnldd/chartwindow/metrics"
	"github.com/dnldd/chartwindow/shared"
	"github.com/dnldd/chartwindow/viewport"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// panelWidth is the pixel width rendered summaries plan labels against.
	panelWidth = 800
	// glyphWidth is the approximate pixel width of a label character.
	glyphWidth = 7
	// shutdownTimeout is the maximum duration of the metrics server shutdown.
	shutdownTimeout = time.Second * 5
)

// ChartConfig represents the configuration struct for the chart service.
type ChartConfig struct {
	// Symbol is the charted symbol.
	Symbol string
	// Period is the sampling period.
	Period shared.Period
	// DataEndpoint is the base url of the chart data api.
	DataEndpoint string
	// APIKey is the chart data api key.
	APIKey string
	// DataFilepath is the filepath to a chart data payload replayed instead of the api.
	DataFilepath string
	// PollInterval is the delay between polls for new data.
	PollInterval time.Duration
	// IntradayDayLimit is the maximum number of trading days an intraday chart may span.
	IntradayDayLimit int
	// AllowOverscroll permits panning past the loaded data.
	AllowOverscroll bool
	// MetricsAddress is the optional listen address of the metrics endpoint.
	MetricsAddress string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ChartConfig) Validate() error {
	var errs error

	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}
	if cfg.DataEndpoint == "" && cfg.DataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("either a data endpoint or a data filepath is required"))
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.IntradayDayLimit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("intraday day limit must be positive"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Chart represents a headless chart viewing service: it loads, windows and polls a single
// chart session and logs a summary of every render pass.
type Chart struct {
	cfg          *ChartConfig
	session      *chart.Session
	jobScheduler *gocron.Scheduler
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	server       *http.Server
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// newFetcher creates the chart data source described by the provided config, along with
// the clock the chart runs on. Replayed files run on the latest stored date.
func newFetcher(cfg *ChartConfig, loc *time.Location) (shared.Fetcher, func() time.Time, error) {
	if cfg.DataFilepath != "" {
		fileLogger := cfg.Logger.With().Str("component", "filesource").Logger()
		source, err := fetch.NewFileSource(&fetch.FileSourceConfig{
			FilePath: cfg.DataFilepath,
			Location: loc,
			Logger:   &fileLogger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating file source: %v", err)
		}

		latest := source.Latest()
		return source, func() time.Time { return latest }, nil
	}

	client, err := fetch.NewClient(&fetch.ClientConfig{
		BaseURL: cfg.DataEndpoint,
		APIKey:  cfg.APIKey,
		Timeout: shared.TimeoutDuration,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating chart data client: %v", err)
	}

	return client, time.Now, nil
}

// NewChart initializes a new chart service.
func NewChart(cfg *ChartConfig) (*Chart, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating chart config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := cfg.Logger.With().Str("service", "chart").Logger()

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york time: %v", err)
	}

	calendar, err := shared.NewYorkEquitiesCalendar()
	if err != nil {
		return nil, fmt.Errorf("creating fallback calendar: %v", err)
	}

	fetcher, now, err := newFetcher(cfg, loc)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %v", err)
	}

	svc := &Chart{
		cfg:          cfg,
		jobScheduler: gocron.NewScheduler(loc),
		registry:     registry,
		metrics:      m,
		logger:       &logger,
	}

	controllerLogger := logger.With().Str("component", "viewport").Logger()
	plannerLogger := logger.With().Str("component", "labels").Logger()
	sessionLogger := logger.With().Str("component", "session").Logger()
	svc.session, err = chart.NewSession(&chart.SessionConfig{
		Symbol:   cfg.Symbol,
		Period:   cfg.Period,
		Calendar: calendar,
		Fetcher:  fetcher,
		Render:   svc.render,
		NotifyError: func(err shared.Error) {
			logger.Error().Msgf("chart %s: %v", cfg.Symbol, err)
		},
		OnDomainChanged: func(domain shared.Domain) {
			logger.Debug().Msgf("domain changed to [%.2f, %.2f]", domain.Left, domain.Right)
		},
		Metrics: m,
		Controller: &viewport.ControllerConfig{
			AllowOverscroll:  cfg.AllowOverscroll,
			IntradayDayLimit: cfg.IntradayDayLimit,
			MarkerPadding:    viewport.DefaultMarkerPadding,
			BackfillGapDays:  viewport.DefaultBackfillGapDays(),
			IntradayLookback: viewport.DefaultIntradayLookback,
			InterdayLookback: viewport.DefaultInterdayLookback,
			Now:              now,
			Logger:           &controllerLogger,
		},
		Planner: &label.PlannerConfig{
			Gap:    label.DefaultGap,
			Logger: &plannerLogger,
		},
		PollInterval:  cfg.PollInterval,
		BackfillDelay: chart.DefaultBackfillDelay,
		IntradayRange: chart.DefaultIntradayRange,
		InterdayRange: chart.DefaultInterdayRange,
		JobScheduler:  svc.jobScheduler,
		Logger:        &sessionLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chart session: %v", err)
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		svc.server = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: shared.TimeoutDuration,
		}
	}

	return svc, nil
}

// labelSummary stringifies the labels of the provided plan, one bracketed group per row.
func labelSummary(plan label.Plan) string {
	var b strings.Builder
	for idx, row := range plan.Rows {
		if idx > 0 {
			b.WriteString(" ")
		}

		texts := make([]string, 0, len(row.Labels))
		for _, l := range row.Labels {
			texts = append(texts, l.Text)
		}
		fmt.Fprintf(&b, "%s[%s]", row.Type, strings.Join(texts, ", "))
	}

	return b.String()
}

// render logs a summary of the visible window and its axis labels.
func (c *Chart) render() {
	w := c.session.VisibleWindow()

	var points int
	for _, series := range w.Series {
		points += len(series)
	}

	width := w.Domain.Width()
	plan, err := c.session.LabelPlan(label.View{
		PanelWidth: panelWidth,
		PixelX: func(idx float64) float64 {
			if width <= 0 {
				return 0
			}
			return (idx - w.Domain.Left) / width * panelWidth
		},
		Measure: func(text string) float64 {
			return float64(len(text) * glyphWidth)
		},
	})
	if err != nil {
		c.logger.Error().Msgf("planning labels: %v", err)
		return
	}

	c.logger.Info().Msgf("rendered %s %s %s to %s: %d series, %d points, labels %s",
		c.cfg.Symbol, c.session.Period(), w.Start.Format(shared.DateLayout),
		w.End.Format(shared.DateLayout), len(w.Series), points, labelSummary(plan))
}

// Run handles the lifecycle processes of the chart service.
func (c *Chart) Run(ctx context.Context) {
	c.jobScheduler.StartAsync()
	defer c.jobScheduler.Stop()

	c.session.Load(chart.LoadOptions{
		ShortRange: c.cfg.Period.IsIntraday(),
		PadMarkers: true,
	})

	err := c.session.StartPolling()
	if err != nil {
		c.logger.Error().Msgf("starting polls: %v", err)
	}

	c.wg.Add(1)
	go func() {
		c.session.Run(ctx)
		c.wg.Done()
	}()

	if c.server != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()

			c.logger.Info().Msgf("serving metrics on %s", c.server.Addr)
			err := c.server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error().Msgf("serving metrics: %v", err)
			}
		}()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			err := c.server.Shutdown(shutdownCtx)
			if err != nil {
				c.logger.Error().Msgf("shutting down metrics server: %v", err)
			}
		}()
	}

	c.wg.Wait()
}
