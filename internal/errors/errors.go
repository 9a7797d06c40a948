// Package errors provides error handling for scaleviewer.
//
// It re-exports github.com/cockroachdb/errors (stack traces, wrapping,
// user-facing hints) and defines the error kinds the analysis core reports:
//
//	// Wrap with context
//	if err := src.Load(ctx); err != nil {
//	    return errors.Wrap(err, "failed to load catalog")
//	}
//
//	// Inspect a request-level failure
//	var metricErr *errors.InvalidMetricError
//	if errors.As(err, &metricErr) {
//	    fmt.Println("unknown metric", metricErr.Name)
//	}
package errors

import (
	"fmt"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Sentinel errors. Wrap them with errors.Wrap to add context while keeping
// errors.Is working.
var (
	// ErrNotFound indicates the requested entity or resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates a malformed request (bad threshold, negative top_n, empty schema)
	ErrInvalidRequest = New("invalid request")

	// ErrCanceled indicates a sweep was stopped before completion and its partial results discarded
	ErrCanceled = New("operation canceled")
)

// ParseError describes a property value that held no usable number.
// The normalizer absorbs it; it is exposed so callers can explain why a
// property degraded to text or absence.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Raw, e.Reason)
}

// SchemaMismatchError reports schema properties that exist on no entity of
// the catalog version being queried.
type SchemaMismatchError struct {
	Properties []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema properties not present in catalog: %s", strings.Join(e.Properties, ", "))
}

// EmptyCatalogError reports that a similarity query had fewer than two
// eligible entities to rank.
type EmptyCatalogError struct {
	Eligible int `json:"eligible"`
}

func (e *EmptyCatalogError) Error() string {
	return fmt.Sprintf("not enough eligible entities for comparison: %d (need at least 2)", e.Eligible)
}

// InvalidMetricError reports an unrecognized metric name.
type InvalidMetricError struct {
	Name string
}

func (e *InvalidMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q (expected cosine or euclidean)", e.Name)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// NewCanceledError marks a context error as ErrCanceled while keeping
// errors.Is(err, context.Canceled) working
func NewCanceledError(cause error, operation string) error {
	return Mark(Wrapf(cause, "%s canceled", operation), ErrCanceled)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}
