package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dnldd/chartwindow/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// FileSourceConfig represents the file backed chart data source configuration.
type FileSourceConfig struct {
	// FilePath is the filepath to the chart data payload.
	FilePath string
	// Location is the locale of payload dates without zone information.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *FileSourceConfig) Validate() error {
	var errs error

	if cfg.FilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("file path cannot be empty"))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// FileSource serves a chart data payload stored on disk, filtered to the requested range.
type FileSource struct {
	cfg     *FileSourceConfig
	payload gjson.Result
	loc     *time.Location
}

// Ensure the file source implements the Fetcher interface.
var _ shared.Fetcher = (*FileSource)(nil)

// loadPayload loads the payload bytes from the provided file path.
func loadPayload(filepath string) (gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading chart data from file with path '%s': %w", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return gjson.Result{}, fmt.Errorf("invalid json in file with path '%s'", filepath)
	}

	return gjson.ParseBytes(readb), nil
}

// NewFileSource initializes a new file backed chart data source.
func NewFileSource(cfg *FileSourceConfig) (*FileSource, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating file source config: %w", err)
	}

	payload, err := loadPayload(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading payload: %w", err)
	}

	loc := cfg.Location
	if name := payload.Get("calendar.location").String(); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("loading calendar location: %w", err)
		}
	}

	return &FileSource{
		cfg:     cfg,
		payload: payload,
		loc:     loc,
	}, nil
}

// Latest returns the latest windowed datapoint date stored, the zero time when none is
// stored. Replays use it as their clock.
func (f *FileSource) Latest() time.Time {
	var latest time.Time
	for _, entry := range f.payload.Get("series").Array() {
		if shared.IsUnwindowed(entry.Get("type").String()) {
			continue
		}

		for _, point := range entry.Get("points").Array() {
			dt, err := ParseDate(point.Get("date").String(), f.loc)
			if err != nil {
				continue
			}
			if dt.After(latest) {
				latest = dt
			}
		}
	}

	return latest
}

// inRange checks whether the provided date satisfies the request range. Prepend ranges
// exclude their upper bound, append ranges their lower bound.
func inRange(date time.Time, req *shared.FetchRequest) bool {
	if !req.From.IsZero() {
		if date.Before(req.From) || (req.Kind == shared.AppendFetch && date.Equal(req.From)) {
			return false
		}
	}
	if !req.To.IsZero() {
		if date.After(req.To) || (req.Kind == shared.PrependFetch && date.Equal(req.To)) {
			return false
		}
	}

	return true
}

// Fetch returns the stored payload restricted to the provided request's symbol and range.
// Unwindowed series are always served in full.
func (f *FileSource) Fetch(ctx context.Context, req *shared.FetchRequest) (gjson.Result, error) {
	select {
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	default:
		// fallthrough
	}

	var buf bytes.Buffer
	buf.WriteString(`{"series":[`)

	var written int
	var matched int
	for _, entry := range f.payload.Get("series").Array() {
		if entry.Get("symbol").String() != req.Symbol {
			continue
		}
		matched++

		unwindowed := shared.IsUnwindowed(entry.Get("type").String())

		if written > 0 {
			buf.WriteString(",")
		}
		written++

		buf.WriteString(`{"symbol":`)
		buf.WriteString(entry.Get("symbol").Raw)
		buf.WriteString(`,"type":`)
		buf.WriteString(entry.Get("type").Raw)
		if id := entry.Get("id"); id.Exists() {
			buf.WriteString(`,"id":`)
			buf.WriteString(id.Raw)
		}
		buf.WriteString(`,"points":[`)

		var points int
		for _, point := range entry.Get("points").Array() {
			if !unwindowed {
				dt, err := ParseDate(point.Get("date").String(), f.loc)
				if err != nil {
					return gjson.Result{}, fmt.Errorf("parsing %s point date: %w", req.Symbol, err)
				}
				if !inRange(dt, req) {
					continue
				}
			}

			if points > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(point.Raw)
			points++
		}

		buf.WriteString("]}")
	}

	buf.WriteString("]")
	if calendar := f.payload.Get("calendar"); calendar.Exists() {
		buf.WriteString(`,"calendar":`)
		buf.WriteString(calendar.Raw)
	}
	buf.WriteString("}")

	if matched == 0 {
		f.cfg.Logger.Debug().Msgf("no series stored for %s", req.Symbol)
	}

	return gjson.ParseBytes(buf.Bytes()), nil
}
