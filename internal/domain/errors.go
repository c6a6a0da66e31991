package domain

import "errors"

// Stable error kinds. Handlers map these to HTTP status classes with
// errors.Is; services wrap them with operation context.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrForbidden indicates the record exists but belongs to another user
	ErrForbidden = errors.New("record belongs to another user")

	// ErrDuplicateInvoiceNumber indicates a unique-constraint violation on
	// the invoice number, either from an explicit pre-check or from the
	// storage layer rejecting an insert
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")

	// ErrUpstreamUnavailable indicates every generation backend failed or
	// returned empty text
	ErrUpstreamUnavailable = errors.New("all generation backends unavailable")

	// ErrNoJSONFound indicates the winning backend produced text with no
	// JSON object in it
	ErrNoJSONFound = errors.New("no JSON object found in generated text")

	// ErrMalformedOutput indicates JSON was located but failed to parse
	ErrMalformedOutput = errors.New("generated JSON is malformed")
)

// UpstreamError carries the raw backend text alongside a classification
// error so the boundary can attach it for diagnostics.
type UpstreamError struct {
	Kind    error  // ErrNoJSONFound or ErrMalformedOutput
	RawText string // the winning backend's unmodified output
	Err     error  // underlying parse error, if any
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes the classification kind to errors.Is
func (e *UpstreamError) Unwrap() error {
	return e.Kind
}
