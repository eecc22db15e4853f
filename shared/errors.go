package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind int

const (
	// DataUnavailable indicates missing calendar or series data at load time.
	DataUnavailable ErrorKind = iota
	// TransientFetchError indicates a failed backfill or poll fetch.
	TransientFetchError
	// DegenerateDomain indicates a zero-width or out of range viewport domain.
	DegenerateDomain
	// StaleResponse indicates a fetch completed after being superseded.
	StaleResponse
)

// String stringifies the provided error kind.
func (k ErrorKind) String() string {
	switch k {
	case DataUnavailable:
		return "data unavailable"
	case TransientFetchError:
		return "transient fetch error"
	case DegenerateDomain:
		return "degenerate domain"
	case StaleResponse:
		return "stale response"
	default:
		return "unknown"
	}
}

// Error represents a structured engine error.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// NewError initializes a structured error of the provided kind.
func NewError(kind ErrorKind, format string, args ...any) Error {
	return Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a structured error wrapped in err.
func KindOf(err error) (ErrorKind, bool) {
	var e Error
	if errors.As(err, &e) {
		return e.Kind, true
	}

	return 0, false
}
