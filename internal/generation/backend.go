package generation

import (
	"context"
)

// Backend is a single external text-generation provider. Backends are
// tried in a fixed priority order; a failed or empty result moves the
// pipeline to the next one.
type Backend interface {
	// Name identifies the backend in results and logs
	Name() string

	// Generate sends the prompt and returns the raw text output
	Generate(ctx context.Context, prompt string) (string, error)
}

// BackendError represents an error from a generation backend
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return e.Backend + ": " + e.Op
	}
	return e.Backend + ": " + e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
