package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/chartwindow/label"
	"github.com/dnldd/chartwindow/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog/log"
)

func TestChartConfigValidate(t *testing.T) {
	cfg := &ChartConfig{}
	err := cfg.Validate()

	// Ensure every missing input is reported.
	assert.Error(t, err)
	for _, want := range []string{
		"symbol cannot be an empty string",
		"either a data endpoint or a data filepath is required",
		"poll interval must be positive",
		"intraday day limit must be positive",
		"logger cannot be nil",
	} {
		assert.True(t, strings.Contains(err.Error(), want))
	}
}

func TestLabelSummary(t *testing.T) {
	plan := label.Plan{Rows: []label.Row{
		{Type: label.Days, Labels: []label.Label{{Text: "4"}, {Text: "5"}}},
		{Type: label.Months, Labels: []label.Label{{Text: "Mar 2024"}}},
	}}

	// Ensure every row is summarized in order.
	assert.Equal(t, labelSummary(plan), label.Days.String()+"[4, 5] "+label.Months.String()+"[Mar 2024]")
	assert.Equal(t, labelSummary(label.Plan{}), "")
}

func TestChartGracefulShutdown(t *testing.T) {
	cfg := &ChartConfig{
		Symbol:           "^GSPC",
		Period:           shared.Daily,
		DataFilepath:     "../fetch/testdata/payload.json",
		PollInterval:     time.Minute,
		IntradayDayLimit: 10,
		Logger:           &log.Logger,
	}

	svc, err := NewChart(cfg)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	// Ensure the replayed data is loaded and rendered.
	deadline := time.Now().Add(time.Second * 5)
	for testutil.ToFloat64(svc.metrics.Renders) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 10)
	}
	assert.GreaterThan(t, testutil.ToFloat64(svc.metrics.Renders), 0.0)
	assert.Equal(t, svc.session.Ruler().Len(), 5)

	// Ensure the chart service can be gracefully terminated.
	cancel()
	<-done
}
