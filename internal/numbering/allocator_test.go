package numbering

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore remembers every number it has been told exists and
// counts existence checks.
type recordingStore struct {
	mu     sync.Mutex
	taken  map[string]bool
	checks int
	err    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{taken: make(map[string]bool)}
}

func (s *recordingStore) ExistsByInvoiceNumber(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if s.err != nil {
		return false, s.err
	}
	return s.taken[number], nil
}

func (s *recordingStore) claim(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taken[number] = true
}

func newTestAllocator(store NumberStore) *Allocator {
	a := NewAllocator(store)
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestAllocateReturnsFreeCandidate(t *testing.T) {
	store := newRecordingStore()
	a := newTestAllocator(store)

	number, err := a.Allocate(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, `^INV-\d{6}-\d{6}$`, number)
	assert.Equal(t, 1, store.checks)
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	store := newRecordingStore()
	a := newTestAllocator(store)

	// Make the first drawn candidate collide, then free up
	seq := []int{111111, 222222}
	a.randn = func(int) int {
		v := seq[0]
		if len(seq) > 1 {
			seq = seq[1:]
		}
		return v
	}
	a.now = func() time.Time { return time.Unix(1700000042, 0) }
	store.claim("INV-000042-111111")

	number, err := a.Allocate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "INV-000042-222222", number)
	assert.Equal(t, 2, store.checks)
}

func TestAllocateFallsBackAfterBudget(t *testing.T) {
	store := newRecordingStore()
	a := newTestAllocator(store)

	// Every candidate is reported as taken
	a.now = func() time.Time { return time.Unix(1700000042, 0) }
	a.randn = func(int) int { return 7 }
	store.claim(a.candidate())

	number, err := a.Allocate(context.Background())
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(number, "INV-"))
	assert.Equal(t, maxAttempts, store.checks)
	assert.Len(t, number, 36) // UUID string form
}

// reservingStore marks a number as taken the moment it passes an
// existence check, so every previously-returned value reads as existing
// for all later callers. This mirrors a storage layer whose check is
// atomic with the reservation.
type reservingStore struct {
	mu    sync.Mutex
	taken map[string]bool
}

func (s *reservingStore) ExistsByInvoiceNumber(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken[number] {
		return true, nil
	}
	s.taken[number] = true
	return false, nil
}

func TestAllocateUniqueUnderContention(t *testing.T) {
	store := &reservingStore{taken: make(map[string]bool)}

	const n = 50
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := newTestAllocator(store)
			number, err := a.Allocate(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for number := range results {
		assert.False(t, seen[number], "duplicate number allocated: %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
}

func TestAllocatePropagatesStorageError(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("connection reset")
	a := newTestAllocator(store)

	_, err := a.Allocate(context.Background())
	require.Error(t, err)

	var allocErr *AllocatorError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "check_candidate", allocErr.Op)
	assert.Equal(t, 1, store.checks)
}
