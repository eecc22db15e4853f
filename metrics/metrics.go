package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge kinds.
const (
	MergeReplace = "replace"
	MergePrepend = "prepend"
	MergeAppend  = "append"
)

// Metrics holds the prometheus metrics of a chart session.
type Metrics struct {
	// Merges counts series merges, labelled by kind.
	Merges *prometheus.CounterVec
	// MergedPoints counts datapoints merged into the store, labelled by kind.
	MergedPoints *prometheus.CounterVec
	// Renders counts render passes executed.
	Renders prometheus.Counter
	// CoalescedRenders counts render requests folded into a pending render.
	CoalescedRenders prometheus.Counter
	// StaleResponses counts fetch responses dropped for a superseded generation.
	StaleResponses prometheus.Counter
	// FetchErrors counts failed fetches, labelled by error kind.
	FetchErrors *prometheus.CounterVec
	// Backfills counts backfill fetches started.
	Backfills prometheus.Counter
	// ModeSwitches counts intraday to daily reloads.
	ModeSwitches prometheus.Counter
	// RulerEntries tracks the size of the current ruler.
	RulerEntries prometheus.Gauge
	// WindowDuration tracks the latency of windowing the store.
	WindowDuration prometheus.Histogram
}

// NewMetrics initializes the chart session metrics and registers them with the provided
// registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartwindow_merges_total",
			Help: "Total series merges by kind",
		}, []string{"kind"}),
		MergedPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartwindow_merged_points_total",
			Help: "Total datapoints merged into the store by kind",
		}, []string{"kind"}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartwindow_renders_total",
			Help: "Total render passes executed",
		}),
		CoalescedRenders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartwindow_coalesced_renders_total",
			Help: "Total render requests folded into a pending render",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartwindow_stale_responses_total",
			Help: "Total fetch responses dropped for a superseded generation",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartwindow_fetch_errors_total",
			Help: "Total failed fetches by error kind",
		}, []string{"kind"}),
		Backfills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartwindow_backfills_total",
			Help: "Total backfill fetches started",
		}),
		ModeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartwindow_mode_switches_total",
			Help: "Total intraday to daily reloads",
		}),
		RulerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartwindow_ruler_entries",
			Help: "Entries of the current ruler",
		}),
		WindowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartwindow_window_duration_seconds",
			Help:    "Latency of windowing the series store",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}

	collectors := []prometheus.Collector{
		m.Merges,
		m.MergedPoints,
		m.Renders,
		m.CoalescedRenders,
		m.StaleResponses,
		m.FetchErrors,
		m.Backfills,
		m.ModeSwitches,
		m.RulerEntries,
		m.WindowDuration,
	}
	for _, c := range collectors {
		err := reg.Register(c)
		if err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	return m, nil
}

// RecordMerge tracks a completed merge of the provided kind.
func (m *Metrics) RecordMerge(kind string, points int) {
	m.Merges.WithLabelValues(kind).Inc()
	m.MergedPoints.WithLabelValues(kind).Add(float64(points))
}
