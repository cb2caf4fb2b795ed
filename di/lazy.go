package di

import "sync"

// Lazy caches the first successful result of a producer. Concurrent callers
// of Get share one construction; a failed construction is not cached, so the
// next call tries again.
type Lazy struct {
	mu       sync.RWMutex
	instance any
	done     bool
}

// Get returns the cached instance or runs produce under the cell lock.
// created is true for the call that produced the instance.
func (l *Lazy) Get(produce func() (any, error)) (instance any, created bool, err error) {
	l.mu.RLock()
	if l.done {
		instance = l.instance
		l.mu.RUnlock()
		return instance, false, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check pattern
	if l.done {
		return l.instance, false, nil
	}
	instance, err = produce()
	if err != nil {
		return nil, false, err
	}
	l.instance = instance
	l.done = true
	return instance, true, nil
}

// Initialized reports whether an instance is cached.
func (l *Lazy) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}
