package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dnldd/chartwindow/shared"
	"github.com/tidwall/gjson"
)

const (
	// chartPath is the path of the chart data endpoint.
	chartPath = "/chart"
)

// ClientConfig represents the configuration for the chart data client.
type ClientConfig struct {
	// BaseURL is the base url of the chart data api.
	BaseURL string
	// APIKey is the optional api key sent with every request.
	APIKey string
	// Timeout is the maximum duration of a single request.
	Timeout time.Duration
}

// Validate asserts the config sane inputs.
func (cfg *ClientConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("base url cannot be empty"))
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		errs = errors.Join(errs, fmt.Errorf("parsing base url: %w", err))
	}
	if cfg.Timeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout must be positive"))
	}

	return errs
}

// Client represents the chart data api client.
type Client struct {
	cfg   *ClientConfig
	httpc http.Client
}

// Ensure the client implements the Fetcher interface.
var _ shared.Fetcher = (*Client)(nil)

// NewClient instantiates a new chart data client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: cfg.Timeout},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *Client) formURL(path string, params string) string {
	var buf bytes.Buffer
	buf.Grow(len(c.cfg.BaseURL) + len(path) + len(params) + 1)
	buf.WriteString(c.cfg.BaseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// requestParams encodes the provided fetch request as query parameters.
func (c *Client) requestParams(req *shared.FetchRequest) url.Values {
	params := url.Values{}
	params.Add("symbol", req.Symbol)
	params.Add("period", req.Period.String())
	params.Add("kind", req.Kind.String())
	params.Add("requestId", req.ID.String())
	if c.cfg.APIKey != "" {
		params.Add("apikey", c.cfg.APIKey)
	}
	if !req.From.IsZero() {
		params.Add("from", req.From.UTC().Format(shared.DateLayout))
	}
	if !req.To.IsZero() {
		params.Add("to", req.To.UTC().Format(shared.DateLayout))
	}

	return params
}

// Fetch fetches the chart data payload for the provided request.
func (c *Client) Fetch(ctx context.Context, req *shared.FetchRequest) (gjson.Result, error) {
	formedURL := c.formURL(chartPath, c.requestParams(req).Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating %s request for %s: %w", req.Kind, req.Symbol, err)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetching %s data (%s) for %s: %w", req.Kind,
			req.Period, req.Symbol, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status fetching %s data for %s: %s",
			req.Kind, req.Symbol, resp.Status)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json payload for %s", req.Symbol)
	}

	return gjson.ParseBytes(body), nil
}
