// Package keyedlock provides mutual exclusion and ordered execution per key. Lock entries
// are reference counted and dropped once no goroutine holds or waits for them.
package keyedlock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker serializes work per key while letting different keys run in parallel.
type Locker[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New returns an empty locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: make(map[K]*entry)}
}

// Lock blocks until key is free and returns the function that releases it.
func (l *Locker[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
