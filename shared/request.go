package shared

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TimeoutDuration is the maximum time to wait on a fetch before timing out.
	TimeoutDuration = time.Second * 10
)

// FetchKind represents the purpose of a data fetch.
type FetchKind int

const (
	// FullFetch replaces the loaded dataset.
	FullFetch FetchKind = iota
	// PrependFetch backfills history older than the loaded dataset.
	PrependFetch
	// AppendFetch polls for data newer than the loaded dataset.
	AppendFetch
)

// String stringifies the provided fetch kind.
func (k FetchKind) String() string {
	switch k {
	case FullFetch:
		return "full"
	case PrependFetch:
		return "prepend"
	case AppendFetch:
		return "append"
	default:
		return "unknown"
	}
}

// FetchRequest represents a request for chart data of a symbol within a date range.
type FetchRequest struct {
	ID     uuid.UUID
	Symbol string
	Period Period
	Kind   FetchKind
	From   time.Time
	To     time.Time
}

// NewFetchRequest initializes a new fetch request.
func NewFetchRequest(symbol string, period Period, kind FetchKind, from time.Time, to time.Time) *FetchRequest {
	return &FetchRequest{
		ID:     uuid.New(),
		Symbol: symbol,
		Period: period,
		Kind:   kind,
		From:   from,
		To:     to,
	}
}
