package breaker

import (
	"context"
	"sync"
	"time"
)

// StateStore holds the shared circuit state. Implementations must make
// IncrFailures atomic: the caller that observes the exact threshold crossing
// is the one that performs the CLOSED to OPEN transition, which is what keeps
// the failure notification a once-per-edge event across processes.
type StateStore interface {
	Failures(ctx context.Context) (int, error)
	IncrFailures(ctx context.Context) (int, error)
	ResetFailures(ctx context.Context) error

	OpenedAt(ctx context.Context) (time.Time, bool, error)
	SetOpenedAt(ctx context.Context, t time.Time) error
	ClearOpenedAt(ctx context.Context) error

	// ClaimProbe atomically claims the short-lived probe flag. It returns
	// false when another caller already holds the claim. The ttl bounds how
	// long a crashed prober can wedge the half-open window.
	ClaimProbe(ctx context.Context, ttl time.Duration) (bool, error)
	ProbeClaimed(ctx context.Context) (bool, error)
	ClearProbe(ctx context.Context) error
}

// MemStore implements StateStore in process memory. It is intended for tests
// and single-process deployments; multi-process setups need the Redis store.
type MemStore struct {
	mu         sync.Mutex
	failures   int
	openedAt   time.Time
	opened     bool
	probeUntil time.Time
}

// NewMemStore returns an empty in-memory state store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Failures implements StateStore.Failures.
func (s *MemStore) Failures(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures, nil
}

// IncrFailures implements StateStore.IncrFailures.
func (s *MemStore) IncrFailures(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures, nil
}

// ResetFailures implements StateStore.ResetFailures.
func (s *MemStore) ResetFailures(ctx context.Context) error {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
	return nil
}

// OpenedAt implements StateStore.OpenedAt.
func (s *MemStore) OpenedAt(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openedAt, s.opened, nil
}

// SetOpenedAt implements StateStore.SetOpenedAt.
func (s *MemStore) SetOpenedAt(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	s.openedAt = t
	s.opened = true
	s.mu.Unlock()
	return nil
}

// ClearOpenedAt implements StateStore.ClearOpenedAt.
func (s *MemStore) ClearOpenedAt(ctx context.Context) error {
	s.mu.Lock()
	s.openedAt = time.Time{}
	s.opened = false
	s.mu.Unlock()
	return nil
}

// ClaimProbe implements StateStore.ClaimProbe.
func (s *MemStore) ClaimProbe(ctx context.Context, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if s.probeUntil.After(now) {
		return false, nil
	}
	s.probeUntil = now.Add(ttl)
	return true, nil
}

// ProbeClaimed implements StateStore.ProbeClaimed.
func (s *MemStore) ProbeClaimed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeUntil.After(time.Now()), nil
}

// ClearProbe implements StateStore.ClearProbe.
func (s *MemStore) ClearProbe(ctx context.Context) error {
	s.mu.Lock()
	s.probeUntil = time.Time{}
	s.mu.Unlock()
	return nil
}
