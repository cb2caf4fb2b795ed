// Package vesseladapter binds the di contract to github.com/xraph/vessel.
//
// vessel refuses a second registration under an existing name, so the
// adapter keeps registrations until Build and registers only the winners
// and the collection members, each under its own name. Values reach vessel
// boxed, which keeps the container from starting or stopping services the
// adapter resolves. Adapter scopes map to native scopes and end them once
// when disposed.
package vesseladapter

import (
	"context"
	"fmt"
	"sync"

	vdi "github.com/xraph/go-utils/di"
	"github.com/xraph/vessel"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
)

// held wraps every value stored in the container. deps are the disposable
// transients produced for a transient value; the resolving scope owns them.
type held struct {
	value any
	deps  []any
}

// Adapter implements di.Adapter on top of a vessel container.
type Adapter struct {
	container vessel.Vessel
	catalog   *di.Catalog
	root      *di.Lifecycle
	log       *logger.Logger

	mu       sync.RWMutex
	built    bool
	buildErr error
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithContainer uses an existing vessel container instead of a new one.
func WithContainer(c vessel.Vessel) Option {
	return func(a *Adapter) {
		a.container = c
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

// New creates an adapter over a vessel container.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		catalog: di.NewCatalog(),
		log:     logger.Get("di.vessel"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.container == nil {
		a.container = vessel.New()
	}
	a.root, _ = di.NewLifecycle(nil, "container", a.stop)
	return a
}

var (
	_ di.Adapter   = (*Adapter)(nil)
	_ di.Inspector = (*Adapter)(nil)
)

// Container returns the native container.
func (a *Adapter) Container() vessel.Vessel { return a.container }

func singleName(key di.ServiceKey) string { return "busdi:" + key.Name() }

func memberName(key di.ServiceKey, index int) string {
	return fmt.Sprintf("busdi:%s#%d", key.Name(), index)
}

// Register implements di.ServiceRegister. The registration reaches vessel at Build.
func (a *Adapter) Register(reg di.Registration) error {
	replaced, err := a.catalog.Register(reg)
	if err != nil {
		return err
	}
	a.log.Debug("Service registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"lifetime": reg.Lifetime().String(),
		"replaced": replaced,
	})
	return nil
}

// Append implements di.CollectionServiceRegister.
func (a *Adapter) Append(reg di.Registration) error {
	index, err := a.catalog.Append(reg)
	if err != nil {
		return err
	}
	a.log.Debug("Collection member registered", map[string]interface{}{
		"service":  reg.Key().String(),
		"lifetime": reg.Lifetime().String(),
		"index":    index,
	})
	return nil
}

// Build registers every live registration with vessel. A failed build is
// final: later calls return the same error.
func (a *Adapter) Build() error {
	if err := a.root.Guard("build"); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return nil
	}
	if a.buildErr != nil {
		return a.buildErr
	}
	a.catalog.Freeze()

	count, err := a.registerAll()
	if err != nil {
		a.buildErr = err
		a.log.Error("Container build failed", logger.ErrorFields("build", err))
		return err
	}
	a.built = true

	a.log.Debug("Container built", map[string]interface{}{"services": count})
	return nil
}

func (a *Adapter) registerAll() (int, error) {
	count := 0
	for _, reg := range a.catalog.Singles() {
		if err := a.register(singleName(reg.Key()), reg); err != nil {
			return count, err
		}
		count++
	}
	for key, regs := range a.catalog.Collections() {
		for i, reg := range regs {
			if err := a.register(memberName(key, i), reg); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (a *Adapter) register(name string, reg di.Registration) error {
	lifecycle := vdi.Singleton()
	if reg.Lifetime() == di.Transient {
		lifecycle = vdi.Transient()
	}
	if err := a.container.Register(name, a.factory(reg), lifecycle); err != nil {
		return errors.Internal(fmt.Errorf("vessel: registering %s: %w", name, err))
	}
	return nil
}

// factory adapts a registration to a vessel factory. vessel caches a
// singleton only when the factory succeeds; singletons it builds, and the
// transients they depend on, are owned by the adapter root. A transient
// carries its disposable dependencies to the resolving scope.
func (a *Adapter) factory(reg di.Registration) vessel.Factory {
	if reg.Kind() == di.KindInstance {
		instance, _ := reg.Instance()
		return func(vessel.Vessel) (any, error) {
			return &held{value: instance}, nil
		}
	}
	if reg.Lifetime() == di.Singleton {
		return func(vessel.Vessel) (any, error) {
			instance, err := reg.Produce(a.dependencies(a.root))
			if err != nil {
				return nil, di.ConstructionError(reg.Key(), err)
			}
			if err := a.root.Track(instance); err != nil {
				return nil, err
			}
			return &held{value: instance}, nil
		}
	}
	return func(vessel.Vessel) (any, error) {
		deps := &di.Collector{}
		instance, err := reg.Produce(a.dependencies(deps))
		if err != nil {
			_ = deps.Release()
			return nil, di.ConstructionError(reg.Key(), err)
		}
		return &held{value: instance, deps: deps.Items()}, nil
	}
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
	return a.resolve(a.container.Resolve, key, a.root, a)
}

// ResolveAll implements di.Resolver.
func (a *Adapter) ResolveAll(key di.ServiceKey) ([]any, error) {
	return a.resolveAll(a.container.Resolve, key, a.root)
}

// CreateScope implements di.Resolver.
func (a *Adapter) CreateScope() (di.Scope, error) {
	return a.newScope(a.root)
}

// Dispose disposes live scopes and owned singletons, then stops the container.
func (a *Adapter) Dispose() error {
	return a.root.Dispose()
}

// Registrations implements di.Inspector.
func (a *Adapter) Registrations() []di.RegistrationInfo {
	return a.catalog.Registrations()
}

// stop is a no-op unless the container was started by its owner.
func (a *Adapter) stop() error {
	if err := a.container.Stop(context.Background()); err != nil {
		return err
	}
	a.log.Debug("Container stopped")
	return nil
}

type lookupFunc func(name string) (any, error)

func (a *Adapter) resolve(lookup lookupFunc, key di.ServiceKey, life *di.Lifecycle, self di.Resolver) (any, error) {
	if err := life.Guard("resolve"); err != nil {
		return nil, err
	}
	return a.lookup(lookup, key, life, self)
}

func (a *Adapter) resolveAll(lookup lookupFunc, key di.ServiceKey, life *di.Lifecycle) ([]any, error) {
	if err := life.Guard("resolve all"); err != nil {
		return nil, err
	}
	return a.lookupAll(lookup, key, life)
}

func (a *Adapter) lookup(lookup lookupFunc, key di.ServiceKey, owner di.Tracker, self di.Resolver) (any, error) {
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
	return a.invoke(lookup, singleName(key), reg, owner)
}

func (a *Adapter) lookupAll(lookup lookupFunc, key di.ServiceKey, owner di.Tracker) ([]any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}

	members := a.catalog.LookupAll(key)
	instances := make([]any, 0, len(members))
	for i, reg := range members {
		instance, err := a.invoke(lookup, memberName(key, i), reg, owner)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (a *Adapter) invoke(lookup lookupFunc, name string, reg di.Registration, owner di.Tracker) (any, error) {
	v, err := lookup(name)
	if err != nil {
		return nil, di.NativeError(reg.Key(), err)
	}
	h, ok := v.(*held)
	if !ok {
		return nil, errors.Internal(fmt.Errorf("vessel: %s resolved to %T", name, v))
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

// dependencies resolves through the container, never a native scope: a
// vessel scope is locked while its factories run. Disposable transients it
// resolves go to owner.
func (a *Adapter) dependencies(owner di.Tracker) di.Resolver {
	return di.NewResolver(
		func(key di.ServiceKey) (any, error) {
			return a.lookup(a.container.Resolve, key, owner, a)
		},
		func(key di.ServiceKey) ([]any, error) {
			return a.lookupAll(a.container.Resolve, key, owner)
		},
		a.CreateScope,
	)
}

func (a *Adapter) newScope(parent *di.Lifecycle) (di.Scope, error) {
	if err := parent.Guard("create scope"); err != nil {
		return nil, err
	}
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}

	native := a.container.BeginScope()
	life, err := di.NewLifecycle(parent, "scope", native.End)
	if err != nil {
		_ = native.End()
		return nil, err
	}
	a.log.Debug("Scope created", map[string]interface{}{"scope": life.ID()})
	return &scope{a: a, native: native, life: life}, nil
}

type scope struct {
	a      *Adapter
	native vessel.Scope
	life   *di.Lifecycle
}

func (s *scope) Resolve(key di.ServiceKey) (any, error) {
	return s.a.resolve(s.native.Resolve, key, s.life, s)
}

func (s *scope) ResolveAll(key di.ServiceKey) ([]any, error) {
	return s.a.resolveAll(s.native.Resolve, key, s.life)
}

func (s *scope) CreateScope() (di.Scope, error) {
	return s.a.newScope(s.life)
}

func (s *scope) Dispose() error {
	return s.life.Dispose()
}
