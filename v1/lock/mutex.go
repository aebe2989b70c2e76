package lock

import (
	"context"
	"sync"
	"time"
)

const (
	defaultLease        = 60 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// SessionLocker is the server-side named-lock provider backing a Mutex.
// TryLock must return true only for an unambiguous "acquired" signal; denied
// and error outcomes both read as not acquired. Unlock is fire-and-forget:
// the session lease expires on its own if the owner dies first.
type SessionLocker interface {
	TryLock(ctx context.Context, name string, lease time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}

// Mutex is a named, timeout-bounded distributed lock. The held flag is a
// local cache of ownership; the session lock itself lives server-side and
// outlives or expires independently of this value.
type Mutex struct {
	locker  SessionLocker
	name    string
	timeout time.Duration

	lease time.Duration
	poll  time.Duration

	mu   sync.Mutex
	held bool
}

// Option configures a Mutex.
type Option func(*Mutex)

// WithLease sets the server-side session lease. A crashed owner frees the
// lock when the lease expires.
func WithLease(d time.Duration) Option {
	return func(m *Mutex) { m.lease = d }
}

// WithPollInterval sets how often Acquire re-attempts a contended lock.
func WithPollInterval(d time.Duration) Option {
	return func(m *Mutex) { m.poll = d }
}

// New returns a Mutex for the named resource. Acquire waits up to timeout
// for the lock before giving up.
func New(locker SessionLocker, name string, timeout time.Duration, opts ...Option) *Mutex {
	m := &Mutex{
		locker:  locker,
		name:    name,
		timeout: timeout,
		lease:   defaultLease,
		poll:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire requests the named session lock, waiting up to the configured
// timeout. It returns true only when the provider reports the exact
// "acquired" signal; contention, timeout and provider errors all return
// false and leave the mutex unheld.
func (m *Mutex) Acquire(ctx context.Context) bool {
	deadline := time.Now().Add(m.timeout)
	for {
		ok, err := m.locker.TryLock(ctx, m.name, m.lease)
		if err != nil {
			return false
		}
		if ok {
			m.mu.Lock()
			m.held = true
			m.mu.Unlock()
			return true
		}
		if time.Now().Add(m.poll).After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.poll):
		}
	}
}

// Release frees the lock if held. Calling Release on an unheld mutex is a
// no-op that issues no provider call.
func (m *Mutex) Release(ctx context.Context) {
	m.mu.Lock()
	held := m.held
	m.held = false
	m.mu.Unlock()
	if !held {
		return
	}
	_ = m.locker.Unlock(ctx, m.name)
}

// IsHeld reports whether this mutex currently caches ownership of the lock.
func (m *Mutex) IsHeld() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

// Name returns the lock key.
func (m *Mutex) Name() string { return m.name }
