package repolock

import (
	"context"
	"sync"
)

// Locker hands out one critical section per key. Lock on a given key
// blocks until any earlier caller for that same key has released it;
// distinct keys never block each other.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{} // buffered 1; holding the token means holding the lock
	waiters int
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{entries: make(map[string]*keyLock)}
}

// Lock blocks until key's critical section is free, or ctx is done.
// On success it returns an unlock function that must be called exactly
// once, from a defer, so the lock is released on every exit path
// including a panic.
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyLock{ch: make(chan struct{}, 1)}
		entry.ch <- struct{}{}
		l.entries[key] = entry
	}
	entry.waiters++
	l.mu.Unlock()

	select {
	case <-entry.ch:
	case <-ctx.Done():
		l.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	unlock = func() {
		once.Do(func() { l.release(key, entry, true) })
	}
	return unlock, nil
}

// release accounts for one fewer reference to entry under key. If the
// caller actually held the token (holding is true), it is returned to
// the channel for the next waiter, unless this was the last reference
// to the key, in which case the entry is dropped entirely.
func (l *Locker) release(key string, entry *keyLock, holding bool) {
	l.mu.Lock()
	entry.waiters--
	last := entry.waiters == 0
	if last {
		delete(l.entries, key)
	}
	l.mu.Unlock()

	if holding && !last {
		entry.ch <- struct{}{}
	}
}
