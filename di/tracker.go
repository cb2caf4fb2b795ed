package di

import (
	"slices"
	"sync"

	"github.com/kbukum/busdi/errors"
)

// Tracker takes ownership of disposable instances. *Lifecycle is one.
type Tracker interface {
	Track(instance any) error
}

// Collector holds the disposable dependencies produced for one transient
// until the lifecycle that owns the transient is known. Native containers
// call producers without saying which scope asked, so adapters collect
// while producing and hand the collected instances over with the result.
type Collector struct {
	mu    sync.Mutex
	items []any
}

// Track records instance if it is disposable.
func (c *Collector) Track(instance any) error {
	if !IsDisposable(instance) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, instance)
	return nil
}

// Items returns the collected instances in tracking order.
func (c *Collector) Items() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Release disposes the collected instances in reverse order. Adapters call
// it when the construction they were collected for failed.
func (c *Collector) Release() error {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.mu.Unlock()

	var errs []error
	for _, instance := range slices.Backward(items) {
		if err := disposeInstance(instance); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TrackAll hands every instance to t and returns the first failure. A
// disposed lifecycle disposes what it is handed, so nothing is left
// unowned.
func TrackAll(t Tracker, instances []any) error {
	var first error
	for _, instance := range instances {
		if err := t.Track(instance); err != nil && first == nil {
			first = err
		}
	}
	return first
}
