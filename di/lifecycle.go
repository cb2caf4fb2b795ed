package di

import (
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/busdi/errors"
)

// Lifecycle is one node of a scope tree. It owns the disposable instances
// tracked on it and its live child nodes. Adapters create one for their
// root and one per scope.
type Lifecycle struct {
	id      string
	name    string
	parent  *Lifecycle
	release func() error

	mu       sync.Mutex
	disposed bool
	children []*Lifecycle
	owned    []any
	seen     map[any]struct{}
}

// NewLifecycle creates a node under parent (nil for a root). name labels
// errors ("container", "scope"). release, when non-nil, is called exactly
// once after the owned instances are disposed, to free the native scope.
func NewLifecycle(parent *Lifecycle, name string, release func() error) (*Lifecycle, error) {
	l := &Lifecycle{
		id:      uuid.NewString(),
		name:    name,
		parent:  parent,
		release: release,
		seen:    make(map[any]struct{}),
	}
	if parent == nil {
		return l, nil
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()
	if parent.disposed {
		return nil, errors.UseAfterDispose(parent.name, "create scope")
	}
	parent.children = append(parent.children, l)
	return l, nil
}

// ID returns a unique identifier, usable as a native scope name.
func (l *Lifecycle) ID() string { return l.id }

// Parent returns the parent node, nil for a root.
func (l *Lifecycle) Parent() *Lifecycle { return l.parent }

// Guard returns USE_AFTER_DISPOSE when the node was disposed.
func (l *Lifecycle) Guard(operation string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return errors.UseAfterDispose(l.name, operation)
	}
	return nil
}

// Disposed reports whether Dispose was called.
func (l *Lifecycle) Disposed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disposed
}

// Track takes ownership of instance if it is disposable. An instance is
// tracked at most once. When the node is already disposed the instance is
// disposed right away and USE_AFTER_DISPOSE is returned.
func (l *Lifecycle) Track(instance any) error {
	if !IsDisposable(instance) {
		return nil
	}

	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		_ = disposeInstance(instance)
		return errors.UseAfterDispose(l.name, "resolve")
	}
	if isComparable(instance) {
		if _, ok := l.seen[instance]; ok {
			l.mu.Unlock()
			return nil
		}
		l.seen[instance] = struct{}{}
	}
	l.owned = append(l.owned, instance)
	l.mu.Unlock()
	return nil
}

// Dispose disposes live children, then the owned instances in reverse
// tracking order, then calls release. Later calls are no-ops.
func (l *Lifecycle) Dispose() error {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return nil
	}
	l.disposed = true
	children := l.children
	owned := l.owned
	l.children, l.owned, l.seen = nil, nil, nil
	l.mu.Unlock()

	var errs []error
	for _, child := range slices.Backward(children) {
		if err := child.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, instance := range slices.Backward(owned) {
		if err := disposeInstance(instance); err != nil {
			errs = append(errs, err)
		}
	}
	if l.release != nil {
		if err := l.release(); err != nil {
			errs = append(errs, err)
		}
	}
	if l.parent != nil {
		l.parent.detach(l)
	}

	if len(errs) > 0 {
		return errors.DisposeFailed(l.name, errors.Join(errs...))
	}
	return nil
}

func (l *Lifecycle) detach(child *Lifecycle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.children = slices.DeleteFunc(l.children, func(c *Lifecycle) bool { return c == child })
}

// IsDisposable reports whether v implements Disposable or io.Closer.
func IsDisposable(v any) bool {
	switch v.(type) {
	case Disposable, io.Closer:
		return true
	}
	return false
}

func disposeInstance(v any) error {
	switch d := v.(type) {
	case Disposable:
		return d.Dispose()
	case io.Closer:
		return d.Close()
	}
	return nil
}

func isComparable(v any) bool {
	return reflect.TypeOf(v).Comparable()
}
