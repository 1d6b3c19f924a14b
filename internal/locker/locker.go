// Package locker serializes balance-affecting mutations per account. Every
// transaction create/update/delete, split/merge and balance refresh runs under
// the owning account's lock so two writers never persist a stale balance.
package locker

import (
	"sync"

	"github.com/google/uuid"
)

// Locker hands out one mutex per key. Mutexes are never evicted; the key space
// is bounded by the number of accounts a process touches.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func New() *Locker {
	return &Locker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (l *Locker) Lock(key uuid.UUID) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for key. The key must have been locked before.
func (l *Locker) Unlock(key uuid.UUID) {
	l.mu.Lock()
	m := l.locks[key]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
