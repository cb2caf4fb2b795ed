// Package doadapter binds the di contract to github.com/samber/do/v2.
//
// do replaces a named service in place, which serves the single-winner view
// directly. Collection members are registered under indexed names. Services
// are wrapped before they reach the injector so that do never shuts down
// instances the adapter does not own; disposal runs through di.Lifecycle.
//
// do keeps child scopes attached to their parent until the parent shuts
// down, so adapter scopes resolve against the root injector and keep their
// own lifecycle.
package doadapter

import (
	"fmt"
	"sync"

	"github.com/samber/do/v2"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
)

// held wraps every value stored in the injector. deps are the disposable
// transients produced for a transient value; the resolving scope owns them.
type held struct {
	value any
	deps  []any
}

// Adapter implements di.Adapter on top of a do injector.
type Adapter struct {
	injector *do.RootScope
	catalog  *di.Catalog
	root     *di.Lifecycle
	log      *logger.Logger

	mu    sync.RWMutex
	built bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithInjector uses an existing root injector instead of a new one.
func WithInjector(injector *do.RootScope) Option {
	return func(a *Adapter) {
		a.injector = injector
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an adapter over a do injector.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		catalog: di.NewCatalog(),
		log:     logger.Get("di.do"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.injector == nil {
		a.injector = do.New()
	}
	a.root, _ = di.NewLifecycle(nil, "container", a.shutdown)
	return a
}

var (
	_ di.Adapter   = (*Adapter)(nil)
	_ di.Inspector = (*Adapter)(nil)
)

// Injector returns the native injector.
func (a *Adapter) Injector() *do.RootScope { return a.injector }

func singleName(key di.ServiceKey) string { return "busdi:" + key.Name() }

func memberName(key di.ServiceKey, index int) string {
	return fmt.Sprintf("busdi:%s#%d", key.Name(), index)
}

// Register implements di.ServiceRegister by overriding the named service.
func (a *Adapter) Register(reg di.Registration) error {
	replaced, err := a.catalog.Register(reg)
	if err != nil {
		return err
	}

	name := singleName(reg.Key())
	switch {
	case reg.Kind() == di.KindInstance:
		instance, _ := reg.Instance()
		do.OverrideNamedValue(a.injector, name, &held{value: instance})
	case reg.Lifetime() == di.Singleton:
		do.OverrideNamed(a.injector, name, a.provider(reg))
	default:
		do.OverrideNamedTransient(a.injector, name, a.provider(reg))
	}

	a.log.Debug("Service registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"name":     name,
		"lifetime": reg.Lifetime().String(),
		"replaced": replaced,
	})
	return nil
}

// Append implements di.CollectionServiceRegister with an indexed name per
// member. Indexed names never collide, so overriding only inserts.
func (a *Adapter) Append(reg di.Registration) error {
	index, err := a.catalog.Append(reg)
	if err != nil {
		return err
	}

	name := memberName(reg.Key(), index)
	switch {
	case reg.Kind() == di.KindInstance:
		instance, _ := reg.Instance()
		do.OverrideNamedValue(a.injector, name, &held{value: instance})
	case reg.Lifetime() == di.Singleton:
		do.OverrideNamed(a.injector, name, a.provider(reg))
	default:
		do.OverrideNamedTransient(a.injector, name, a.provider(reg))
	}

	a.log.Debug("Collection member registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"name":     name,
		"lifetime": reg.Lifetime().String(),
	})
	return nil
}

// provider adapts a registration to a do provider. Singletons the injector
// builds, and the transients they depend on, are owned by the adapter root.
// A transient carries its disposable dependencies to the resolving scope.
func (a *Adapter) provider(reg di.Registration) do.Provider[*held] {
	return func(do.Injector) (*held, error) {
		if reg.Lifetime() == di.Singleton {
			instance, err := reg.Produce(a.dependencies(a.root))
			if err != nil {
				return nil, di.ConstructionError(reg.Key(), err)
			}
			if err := a.root.Track(instance); err != nil {
				return nil, err
			}
			return &held{value: instance}, nil
		}

		deps := &di.Collector{}
		instance, err := reg.Produce(a.dependencies(deps))
		if err != nil {
			_ = deps.Release()
			return nil, di.ConstructionError(reg.Key(), err)
		}
		return &held{value: instance, deps: deps.Items()}, nil
	}
}

// Build closes the adapter for registration. The injector already holds
// every service.
func (a *Adapter) Build() error {
	if err := a.root.Guard("build"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return nil
	}
	a.catalog.Freeze()
	a.built = true
	a.log.Debug("Container built", map[string]interface{}{
		"services": len(a.injector.ListProvidedServices()),
	})
	return nil
}

func (a *Adapter) ensureBuilt() error {
	a.mu.RLock()
	built := a.built
	a.mu.RUnlock()
	if built {
		return nil
	}
	return a.Build()
}

// Resolve implements di.Resolver.
func (a *Adapter) Resolve(key di.ServiceKey) (any, error) {
	return a.resolve(key, a.root, a)
}

// ResolveAll implements di.Resolver.
func (a *Adapter) ResolveAll(key di.ServiceKey) ([]any, error) {
	return a.resolveAll(key, a.root)
}

// CreateScope implements di.Resolver.
func (a *Adapter) CreateScope() (di.Scope, error) {
	return a.newScope(a.root)
}

// Dispose disposes live scopes and owned singletons, then shuts the
// injector down.
func (a *Adapter) Dispose() error {
	return a.root.Dispose()
}

// Registrations implements di.Inspector.
func (a *Adapter) Registrations() []di.RegistrationInfo {
	return a.catalog.Registrations()
}

func (a *Adapter) shutdown() error {
	report := a.injector.Shutdown()
	if report != nil && !report.Succeed {
		return report
	}
	a.log.Debug("Injector shut down")
	return nil
}

func (a *Adapter) resolve(key di.ServiceKey, life *di.Lifecycle, self di.Resolver) (any, error) {
	if err := life.Guard("resolve"); err != nil {
		return nil, err
	}
	return a.lookup(key, life, self)
}

func (a *Adapter) resolveAll(key di.ServiceKey, life *di.Lifecycle) ([]any, error) {
	if err := life.Guard("resolve all"); err != nil {
		return nil, err
	}
	return a.lookupAll(key, life)
}

func (a *Adapter) lookup(key di.ServiceKey, owner di.Tracker, self di.Resolver) (any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if key == di.ResolverKey() {
		return self, nil
	}
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}

	reg, ok := a.catalog.Lookup(key)
	if !ok {
		return nil, errors.NotRegistered(key.String())
	}
	return a.invoke(singleName(key), reg, owner)
}

func (a *Adapter) lookupAll(key di.ServiceKey, owner di.Tracker) ([]any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}

	members := a.catalog.LookupAll(key)
	instances := make([]any, 0, len(members))
	for i, reg := range members {
		instance, err := a.invoke(memberName(key, i), reg, owner)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (a *Adapter) invoke(name string, reg di.Registration, owner di.Tracker) (any, error) {
	h, err := do.InvokeNamed[*held](a.injector, name)
	if err != nil {
		return nil, di.NativeError(reg.Key(), err)
	}
	if reg.Lifetime() == di.Transient {
		if err := di.TrackAll(owner, h.deps); err != nil {
			return nil, err
		}
		if err := owner.Track(h.value); err != nil {
			return nil, err
		}
	}
	return h.value, nil
}

// dependencies is the resolver handed to producers. Disposable transients
// it resolves go to owner.
func (a *Adapter) dependencies(owner di.Tracker) di.Resolver {
	return di.NewResolver(
		func(key di.ServiceKey) (any, error) { return a.lookup(key, owner, a) },
		func(key di.ServiceKey) ([]any, error) { return a.lookupAll(key, owner) },
		a.CreateScope,
	)
}

func (a *Adapter) newScope(parent *di.Lifecycle) (di.Scope, error) {
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}
	life, err := di.NewLifecycle(parent, "scope", nil)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Scope created", map[string]interface{}{"scope": life.ID()})
	return &scope{a: a, life: life}, nil
}

type scope struct {
	a    *Adapter
	life *di.Lifecycle
}

func (s *scope) Resolve(key di.ServiceKey) (any, error) {
	return s.a.resolve(key, s.life, s)
}

func (s *scope) ResolveAll(key di.ServiceKey) ([]any, error) {
	return s.a.resolveAll(key, s.life)
}

func (s *scope) CreateScope() (di.Scope, error) {
	return s.a.newScope(s.life)
}

func (s *scope) Dispose() error {
	return s.life.Dispose()
}
