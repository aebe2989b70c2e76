package lock

import (
	"context"
	"sync"
	"time"
)

// InMemory implements SessionLocker using local memory. It honors the lease
// by expiring locks on a timer, which makes it a faithful stand-in for the
// Redis provider in tests and single-process deployments.
type InMemory struct {
	mu    sync.Mutex
	locks map[string]*time.Timer
}

// NewInMemory returns a new in-memory session locker.
func NewInMemory() *InMemory {
	return &InMemory{locks: make(map[string]*time.Timer)}
}

// TryLock implements SessionLocker.TryLock.
func (l *InMemory) TryLock(ctx context.Context, name string, lease time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.locks[name]; ok {
		return false, nil
	}
	var timer *time.Timer
	if lease > 0 {
		timer = time.AfterFunc(lease, func() {
			l.mu.Lock()
			delete(l.locks, name)
			l.mu.Unlock()
		})
	}
	l.locks[name] = timer
	return true, nil
}

// Unlock implements SessionLocker.Unlock.
func (l *InMemory) Unlock(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if timer, ok := l.locks[name]; ok {
		if timer != nil {
			timer.Stop()
		}
		delete(l.locks, name)
	}
	return nil
}
