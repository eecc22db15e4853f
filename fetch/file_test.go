package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/chartwindow/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestFileSource(t *testing.T) {
	_, loc, err := shared.NewYorkTime()
	assert.NoError(t, err)

	// Ensure the file source config is validated.
	_, err = NewFileSource(&FileSourceConfig{})
	assert.Error(t, err)

	// Ensure a missing payload file fails initialization.
	_, err = NewFileSource(&FileSourceConfig{
		FilePath: "testdata/missing.json",
		Location: time.UTC,
		Logger:   &log.Logger,
	})
	assert.Error(t, err)

	src, err := NewFileSource(&FileSourceConfig{
		FilePath: "testdata/payload.json",
		Location: time.UTC,
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 0, 0, 0, 0, loc).UTC()
	}

	// Ensure the latest windowed datapoint date is reported.
	assert.Equal(t, src.Latest(), day(8))

	// Ensure a full fetch serves every series of the symbol.
	req := shared.NewFetchRequest("^GSPC", shared.Daily, shared.FullFetch, time.Time{}, time.Time{})
	data, err := src.Fetch(context.Background(), req)
	assert.NoError(t, err)
	payload, err := ParsePayload(data, time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, len(payload.Batches), 3)
	assert.NotNil(t, payload.Calendar)
	assert.Equal(t, len(payload.Batches[0].Points), 5)

	// Ensure prepend fetches exclude their upper bound.
	req = shared.NewFetchRequest("^GSPC", shared.Daily, shared.PrependFetch, time.Time{}, day(6))
	data, err = src.Fetch(context.Background(), req)
	assert.NoError(t, err)
	payload, err = ParsePayload(data, time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, len(payload.Batches[0].Points), 2)
	assert.Equal(t, payload.Batches[0].Points[1].Date, day(5))
	assert.Equal(t, len(payload.Batches[1].Points), 0)

	// Ensure unwindowed series are served in full regardless of range.
	assert.Equal(t, payload.Batches[2].Type, shared.Dividends)
	assert.Equal(t, len(payload.Batches[2].Points), 1)

	// Ensure append fetches exclude their lower bound.
	req = shared.NewFetchRequest("^GSPC", shared.Daily, shared.AppendFetch, day(7), time.Time{})
	data, err = src.Fetch(context.Background(), req)
	assert.NoError(t, err)
	payload, err = ParsePayload(data, time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, len(payload.Batches[0].Points), 1)
	assert.Equal(t, payload.Batches[0].Points[0].Date, day(8))

	// Ensure unknown symbols yield no series.
	req = shared.NewFetchRequest("MSFT", shared.Daily, shared.FullFetch, time.Time{}, time.Time{})
	data, err = src.Fetch(context.Background(), req)
	assert.NoError(t, err)
	payload, err = ParsePayload(data, time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, len(payload.Batches), 0)

	// Ensure cancelled fetches fail.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, req)
	assert.Error(t, err)
}
