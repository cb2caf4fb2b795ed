package di

import (
	"fmt"
	"sync"

	"github.com/kbukum/busdi/errors"
)

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	Key        ServiceKey
	Kind       ProducerKind
	Lifetime   Lifetime
	Collection bool // Member of the collection view rather than the single-winner view
	Index      int  // Position within the collection; 0 for single-winner entries
}

// Registry is the single-winner view: at most one registration per key.
// It is not safe for concurrent use; Catalog guards it.
type Registry struct {
	entries map[ServiceKey]Registration
	order   []ServiceKey
}

// NewRegistry creates an empty single-winner registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ServiceKey]Registration)}
}

// Set stores reg, replacing any previous registration for its key.
func (r *Registry) Set(reg Registration) (replaced bool) {
	if _, replaced = r.entries[reg.key]; !replaced {
		r.order = append(r.order, reg.key)
	}
	r.entries[reg.key] = reg
	return replaced
}

// Get returns the live registration for key.
func (r *Registry) Get(key ServiceKey) (Registration, bool) {
	reg, ok := r.entries[key]
	return reg, ok
}

// Keys returns the registered keys in first-registration order.
func (r *Registry) Keys() []ServiceKey {
	return append([]ServiceKey(nil), r.order...)
}

// Len returns the number of registered keys.
func (r *Registry) Len() int { return len(r.entries) }

// CollectionRegistry is the collection view: an ordered, append-only list
// of registrations per key.
type CollectionRegistry struct {
	entries map[ServiceKey][]Registration
	order   []ServiceKey
}

// NewCollectionRegistry creates an empty collection registry.
func NewCollectionRegistry() *CollectionRegistry {
	return &CollectionRegistry{entries: make(map[ServiceKey][]Registration)}
}

// Append adds reg after the existing members of its key and returns its index.
func (c *CollectionRegistry) Append(reg Registration) int {
	members, ok := c.entries[reg.key]
	if !ok {
		c.order = append(c.order, reg.key)
	}
	c.entries[reg.key] = append(members, reg)
	return len(members)
}

// Get returns the members of key in registration order.
func (c *CollectionRegistry) Get(key ServiceKey) []Registration {
	return append([]Registration(nil), c.entries[key]...)
}

// Keys returns the keys with at least one member, in first-append order.
func (c *CollectionRegistry) Keys() []ServiceKey {
	return append([]ServiceKey(nil), c.order...)
}

// Len returns the total number of members across all keys.
func (c *CollectionRegistry) Len() int {
	n := 0
	for _, members := range c.entries {
		n += len(members)
	}
	return n
}

var resolverKey = KeyOf[Resolver]()

// ResolverKey returns the reserved key under which every resolver resolves
// to itself.
func ResolverKey() ServiceKey { return resolverKey }

// Catalog holds both registration views of one adapter and enforces the
// registration rules shared by all adapters: the resolver key is reserved
// and nothing can be registered once the catalog is frozen by Build.
type Catalog struct {
	mu         sync.RWMutex
	single     *Registry
	collection *CollectionRegistry
	frozen     bool
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		single:     NewRegistry(),
		collection: NewCollectionRegistry(),
	}
}

// Register adds reg to the single-winner view.
func (c *Catalog) Register(reg Registration) (replaced bool, err error) {
	if err := c.admit(reg); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return false, errFrozen(reg.key)
	}
	return c.single.Set(reg), nil
}

// Append adds reg to the collection view and returns its index.
func (c *Catalog) Append(reg Registration) (int, error) {
	if err := c.admit(reg); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return 0, errFrozen(reg.key)
	}
	return c.collection.Append(reg), nil
}

func (c *Catalog) admit(reg Registration) error {
	if reg.key.IsZero() {
		return errors.InvalidArgument("registration", "empty registration; use the New*Registration constructors")
	}
	if reg.key == resolverKey {
		return errors.InvalidArgument("service", fmt.Sprintf("%s is provided by the container and cannot be registered", resolverKey))
	}
	return nil
}

func errFrozen(key ServiceKey) error {
	return errors.InvalidArgument("registration", fmt.Sprintf("cannot register %s after the container was built", key))
}

// Freeze closes the catalog for registration. It reports whether this call
// froze it.
func (c *Catalog) Freeze() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return false
	}
	c.frozen = true
	return true
}

// Frozen reports whether Freeze was called.
func (c *Catalog) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Lookup returns the single-winner registration for key.
func (c *Catalog) Lookup(key ServiceKey) (Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.single.Get(key)
}

// LookupAll returns the collection members of key in registration order.
func (c *Catalog) LookupAll(key ServiceKey) []Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.Get(key)
}

// Singles returns every single-winner registration in first-registration order.
func (c *Catalog) Singles() []Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := c.single.Keys()
	regs := make([]Registration, 0, len(keys))
	for _, key := range keys {
		reg, _ := c.single.Get(key)
		regs = append(regs, reg)
	}
	return regs
}

// Collections returns the collection members grouped by key, keys in
// first-append order.
func (c *Catalog) Collections() map[ServiceKey][]Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[ServiceKey][]Registration, len(c.collection.entries))
	for _, key := range c.collection.Keys() {
		out[key] = c.collection.Get(key)
	}
	return out
}

// Registrations implements Inspector.
func (c *Catalog) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, c.single.Len()+c.collection.Len())
	for _, key := range c.single.Keys() {
		reg, _ := c.single.Get(key)
		result = append(result, RegistrationInfo{
			Key:      key,
			Kind:     reg.kind,
			Lifetime: reg.lifetime,
		})
	}
	for _, key := range c.collection.Keys() {
		for i, reg := range c.collection.Get(key) {
			result = append(result, RegistrationInfo{
				Key:        key,
				Kind:       reg.kind,
				Lifetime:   reg.lifetime,
				Collection: true,
				Index:      i,
			})
		}
	}
	return result
}
