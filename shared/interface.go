package shared

import (
	"context"

	"github.com/tidwall/gjson"
)

// Fetcher defines the requirements for fetching chart data payloads.
type Fetcher interface {
	// Fetch fetches the payload satisfying the provided request. Implementations must
	// return promptly once the context is cancelled.
	Fetch(ctx context.Context, req *FetchRequest) (gjson.Result, error)
}
