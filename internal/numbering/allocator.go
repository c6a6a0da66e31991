package numbering

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// NumberStore is the storage primitive the allocator needs: an existence
// check on the exact invoice-number value.
type NumberStore interface {
	ExistsByInvoiceNumber(ctx context.Context, number string) (bool, error)
}

const (
	// prefix of system-generated invoice numbers
	prefix = "INV"

	// maxAttempts bounds the generate-then-check loop before falling back
	// to a structurally unique token
	maxAttempts = 8

	// retryDelay is the pause between attempts when a candidate collides
	retryDelay = 50 * time.Millisecond
)

// AllocatorError represents an error during number allocation
type AllocatorError struct {
	Op  string
	Err error
}

func (e *AllocatorError) Error() string {
	return "numbering: " + e.Op + ": " + e.Err.Error()
}

func (e *AllocatorError) Unwrap() error {
	return e.Err
}

// Allocator produces invoice numbers that are unique at the time of the
// storage check. The check-then-use gap is inherently racy; the insert
// path still relies on the storage unique constraint as the source of
// truth and re-allocates on conflict.
type Allocator struct {
	store NumberStore

	// injectable for tests
	now   func() time.Time
	randn func(n int) int
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAllocator creates an allocator backed by the given store
func NewAllocator(store NumberStore) *Allocator {
	return &Allocator{
		store: store,
		now:   time.Now,
		randn: rand.Intn,
		sleep: sleepCtx,
	}
}

// Allocate returns a fresh invoice number. Up to maxAttempts candidates
// are drawn and verified against the store; exhausting the budget falls
// back to a UUID token whose uniqueness is structural rather than
// checked. Storage errors from the existence check propagate.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := a.candidate()

		exists, err := a.store.ExistsByInvoiceNumber(ctx, candidate)
		if err != nil {
			return "", &AllocatorError{Op: "check_candidate", Err: err}
		}
		if !exists {
			return candidate, nil
		}

		if err := a.sleep(ctx, retryDelay); err != nil {
			return "", &AllocatorError{Op: "wait_retry", Err: err}
		}
	}

	// Fallback token space: globally unique by construction, so no
	// existence check is needed. Deliberately not of the INV- shape.
	return uuid.NewString(), nil
}

// candidate derives one human-readable number from the low-order digits
// of the current unix time plus a zero-padded random suffix
func (a *Allocator) candidate() string {
	timePart := a.now().Unix() % 1000000
	randPart := a.randn(1000000)
	return fmt.Sprintf("%s-%06d-%06d", prefix, timePart, randPart)
}

// sleepCtx pauses for d, waking early if the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
