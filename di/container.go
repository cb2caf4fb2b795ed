package di

import (
	"sync"

	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
)

// Container is the built-in adapter. It keeps the registrations itself and
// constructs instances on demand: singletons once per container, transients
// on every resolve.
type Container struct {
	catalog *Catalog
	root    *Lifecycle
	log     *logger.Logger

	mu      sync.RWMutex
	built   bool
	singles map[ServiceKey]*Entry
	members map[ServiceKey][]*Entry
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *logger.Logger) ContainerOption {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// NewContainer creates an empty built-in container.
func NewContainer(opts ...ContainerOption) *Container {
	root, _ := NewLifecycle(nil, "container", nil)
	c := &Container{
		catalog: NewCatalog(),
		root:    root,
		log:     logger.Get("di"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ Adapter   = (*Container)(nil)
	_ Inspector = (*Container)(nil)
)

// Register implements ServiceRegister.
func (c *Container) Register(reg Registration) error {
	replaced, err := c.catalog.Register(reg)
	if err != nil {
		return err
	}
	c.log.Debug("Service registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"kind":     reg.Kind().String(),
		"lifetime": reg.Lifetime().String(),
		"replaced": replaced,
	})
	return nil
}

// Append implements CollectionServiceRegister.
func (c *Container) Append(reg Registration) error {
	index, err := c.catalog.Append(reg)
	if err != nil {
		return err
	}
	c.log.Debug("Collection member registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"kind":     reg.Kind().String(),
		"lifetime": reg.Lifetime().String(),
		"index":    index,
	})
	return nil
}

// Build freezes the registrations. Resolving builds implicitly.
func (c *Container) Build() error {
	if err := c.root.Guard("build"); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return nil
	}
	c.catalog.Freeze()

	singles := c.catalog.Singles()
	c.singles = make(map[ServiceKey]*Entry, len(singles))
	for _, reg := range singles {
		c.singles[reg.Key()] = NewEntry(reg)
	}
	collections := c.catalog.Collections()
	c.members = make(map[ServiceKey][]*Entry, len(collections))
	for key, regs := range collections {
		entries := make([]*Entry, len(regs))
		for i, reg := range regs {
			entries[i] = NewEntry(reg)
		}
		c.members[key] = entries
	}
	c.built = true

	c.log.Debug("Container built", map[string]interface{}{
		"services":    len(c.singles),
		"collections": len(c.members),
	})
	return nil
}

func (c *Container) ensureBuilt() error {
	c.mu.RLock()
	built := c.built
	c.mu.RUnlock()
	if built {
		return nil
	}
	return c.Build()
}

// Resolve implements Resolver. Disposable transients resolved directly on
// the container are released when the container is disposed.
func (c *Container) Resolve(key ServiceKey) (any, error) {
	return c.resolve(key, c.root, c)
}

// ResolveAll implements Resolver.
func (c *Container) ResolveAll(key ServiceKey) ([]any, error) {
	return c.resolveAll(key, c.root)
}

// CreateScope implements Resolver.
func (c *Container) CreateScope() (Scope, error) {
	return c.newScope(c.root)
}

// Dispose disposes live scopes, then the singletons the container
// constructed in reverse construction order. Later calls are no-ops.
func (c *Container) Dispose() error {
	if c.root.Disposed() {
		return nil
	}
	err := c.root.Dispose()
	c.log.Debug("Container disposed", map[string]interface{}{"error": err != nil})
	return err
}

// Registrations implements Inspector.
func (c *Container) Registrations() []RegistrationInfo {
	return c.catalog.Registrations()
}

func (c *Container) resolve(key ServiceKey, life *Lifecycle, self Resolver) (any, error) {
	if err := life.Guard("resolve"); err != nil {
		return nil, err
	}
	return c.lookup(key, life, self)
}

func (c *Container) resolveAll(key ServiceKey, life *Lifecycle) ([]any, error) {
	if err := life.Guard("resolve all"); err != nil {
		return nil, err
	}
	return c.lookupAll(key, life)
}

func (c *Container) lookup(key ServiceKey, owner Tracker, self Resolver) (any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if key == resolverKey {
		return self, nil
	}
	if err := c.ensureBuilt(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	e, ok := c.singles[key]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.NotRegistered(key.String())
	}
	return e.Get(c.dependencies, c.root, owner)
}

func (c *Container) lookupAll(key ServiceKey, owner Tracker) ([]any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := c.ensureBuilt(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	entries := c.members[key]
	c.mu.RUnlock()

	instances := make([]any, 0, len(entries))
	for _, e := range entries {
		instance, err := e.Get(c.dependencies, c.root, owner)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// dependencies is the resolver handed to producers. Disposable transients
// it resolves go to owner.
func (c *Container) dependencies(owner Tracker) Resolver {
	return NewResolver(
		func(key ServiceKey) (any, error) { return c.lookup(key, owner, c) },
		func(key ServiceKey) ([]any, error) { return c.lookupAll(key, owner) },
		c.CreateScope,
	)
}

func (c *Container) newScope(parent *Lifecycle) (Scope, error) {
	if err := c.ensureBuilt(); err != nil {
		return nil, err
	}
	life, err := NewLifecycle(parent, "scope", nil)
	if err != nil {
		return nil, err
	}
	c.log.Debug("Scope created", map[string]interface{}{"scope": life.ID()})
	return &containerScope{c: c, life: life}, nil
}

type containerScope struct {
	c    *Container
	life *Lifecycle
}

func (s *containerScope) Resolve(key ServiceKey) (any, error) {
	return s.c.resolve(key, s.life, s)
}

func (s *containerScope) ResolveAll(key ServiceKey) ([]any, error) {
	return s.c.resolveAll(key, s.life)
}

func (s *containerScope) CreateScope() (Scope, error) {
	return s.c.newScope(s.life)
}

func (s *containerScope) Dispose() error {
	if s.life.Disposed() {
		return nil
	}
	err := s.life.Dispose()
	s.c.log.Debug("Scope disposed", map[string]interface{}{"scope": s.life.ID()})
	return err
}
