// Package digadapter binds the di contract to go.uber.org/dig.
//
// dig rejects a second constructor for the same type, has no transient
// lifetime, returns value groups in unspecified order and never releases
// what it built. The adapter therefore keeps the registrations until Build,
// then provides one named constructor per registration: the single winner
// under "busdi:<type>" and collection members under "busdi:<type>#<index>".
//
// Singletons are dig constructors returning the service type, so dig
// builds each once, caches it and retries a constructor that failed.
// Transients cannot be expressed in dig; their name provides a di.Entry
// that produces a new instance on every resolve.
package digadapter

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
)

var (
	inType    = reflect.TypeOf(dig.In{})
	entryType = reflect.TypeOf((*di.Entry)(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Adapter implements di.Adapter on top of a dig container.
type Adapter struct {
	container *dig.Container
	catalog   *di.Catalog
	root      *di.Lifecycle
	log       *logger.Logger

	mu       sync.RWMutex
	built    bool
	buildErr error
	params   map[string]reflect.Type // dig.In parameter struct per name

	// dig is not safe for concurrent use. Constructors run inside Invoke
	// and resolve their dependencies on the same goroutine without
	// taking the lock again.
	invokeMu sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithContainer uses an existing dig container instead of a new one.
func WithContainer(c *dig.Container) Option {
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

// New creates an adapter over a dig container.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		catalog: di.NewCatalog(),
		log:     logger.Get("di.dig"),
		params:  make(map[string]reflect.Type),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.container == nil {
		a.container = dig.New()
	}
	a.root, _ = di.NewLifecycle(nil, "container", nil)
	return a
}

var (
	_ di.Adapter   = (*Adapter)(nil)
	_ di.Inspector = (*Adapter)(nil)
)

// Container returns the native container.
func (a *Adapter) Container() *dig.Container { return a.container }

func singleName(key di.ServiceKey) string { return "busdi:" + key.Name() }

func memberName(key di.ServiceKey, index int) string {
	return fmt.Sprintf("busdi:%s#%d", key.Name(), index)
}

// Register implements di.ServiceRegister. The registration reaches dig at Build.
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

// Build provides every live registration to dig. A failed build is final:
// later calls return the same error.
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

	count, err := a.provideAll()
	if err != nil {
		a.buildErr = err
		a.log.Error("Container build failed", logger.ErrorFields("build", err))
		return err
	}
	a.built = true

	a.log.Debug("Container built", map[string]interface{}{"constructors": count})
	return nil
}

func (a *Adapter) provideAll() (int, error) {
	count := 0
	for _, reg := range a.catalog.Singles() {
		if err := a.provide(singleName(reg.Key()), reg); err != nil {
			return count, err
		}
		count++
	}
	for key, regs := range a.catalog.Collections() {
		for i, reg := range regs {
			if err := a.provide(memberName(key, i), reg); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (a *Adapter) provide(name string, reg di.Registration) error {
	var ctor any
	out := entryType
	if reg.Lifetime() == di.Singleton {
		out = reg.Key().Type()
		ctor = a.constructor(reg).Interface()
	} else {
		ctor = func() *di.Entry { return di.NewEntry(reg) }
	}

	if err := a.container.Provide(ctor, dig.Name(name)); err != nil {
		return errors.Internal(fmt.Errorf("dig: providing %s: %w", name, err))
	}
	a.params[name] = reflect.StructOf([]reflect.StructField{
		{Name: "In", Type: inType, Anonymous: true},
		{Name: "Value", Type: out, Tag: reflect.StructTag(fmt.Sprintf(`name:%q`, name))},
	})
	return nil
}

// constructor builds a func() (T, error) for a singleton registration of
// T. It runs inside Invoke; the singleton and the disposable transients it
// depends on are owned by the adapter root.
func (a *Adapter) constructor(reg di.Registration) reflect.Value {
	typ := reg.Key().Type()
	fnType := reflect.FuncOf(nil, []reflect.Type{typ, errorType}, false)

	fail := func(err error) []reflect.Value {
		errValue := reflect.New(errorType).Elem()
		errValue.Set(reflect.ValueOf(err))
		return []reflect.Value{reflect.Zero(typ), errValue}
	}

	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := reg.Produce(a.dependencies(a.root, true))
		if err != nil {
			return fail(di.ConstructionError(reg.Key(), err))
		}
		rv, err := di.ValueOf(instance, typ)
		if err != nil {
			return fail(di.ConstructionError(reg.Key(), err))
		}
		if reg.Owned() {
			if err := a.root.Track(instance); err != nil {
				return fail(err)
			}
		}
		value := reflect.New(typ).Elem()
		value.Set(rv)
		return []reflect.Value{value, reflect.Zero(errorType)}
	})
}

// value invokes dig for the named value: the instance of a singleton or
// the di.Entry of a transient. locked is set when the caller already runs
// inside Invoke.
func (a *Adapter) value(name string, locked bool) (any, error) {
	param, ok := a.params[name]
	if !ok {
		return nil, fmt.Errorf("nothing provided as %q", name)
	}

	var out any
	fnType := reflect.FuncOf([]reflect.Type{param}, nil, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		out = args[0].Field(1).Interface()
		return nil
	})

	if !locked {
		a.invokeMu.Lock()
		defer a.invokeMu.Unlock()
	}
	if err := a.container.Invoke(fn.Interface()); err != nil {
		return nil, err
	}
	return out, nil
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

// CreateScope implements di.Resolver. dig child scopes stay attached to
// their parent for its whole life, so scopes are tracked by the adapter only.
func (a *Adapter) CreateScope() (di.Scope, error) {
	return a.newScope(a.root)
}

// Dispose disposes live scopes and the singletons the adapter constructed.
func (a *Adapter) Dispose() error {
	return a.root.Dispose()
}

// Registrations implements di.Inspector.
func (a *Adapter) Registrations() []di.RegistrationInfo {
	return a.catalog.Registrations()
}

func (a *Adapter) resolve(key di.ServiceKey, life *di.Lifecycle, self di.Resolver) (any, error) {
	if err := life.Guard("resolve"); err != nil {
		return nil, err
	}
	return a.lookup(key, life, self, false)
}

func (a *Adapter) resolveAll(key di.ServiceKey, life *di.Lifecycle) ([]any, error) {
	if err := life.Guard("resolve all"); err != nil {
		return nil, err
	}
	return a.lookupAll(key, life, false)
}

func (a *Adapter) lookup(key di.ServiceKey, owner di.Tracker, self di.Resolver, locked bool) (any, error) {
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
	return a.get(singleName(key), reg, owner, locked)
}

func (a *Adapter) lookupAll(key di.ServiceKey, owner di.Tracker, locked bool) ([]any, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := a.ensureBuilt(); err != nil {
		return nil, err
	}

	members := a.catalog.LookupAll(key)
	instances := make([]any, 0, len(members))
	for i, reg := range members {
		instance, err := a.get(memberName(key, i), reg, owner, locked)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// get returns a singleton straight from dig, or produces a transient from
// the entry dig holds for it.
func (a *Adapter) get(name string, reg di.Registration, owner di.Tracker, locked bool) (any, error) {
	v, err := a.value(name, locked)
	if err != nil {
		return nil, di.NativeError(reg.Key(), dig.RootCause(err))
	}
	if reg.Lifetime() == di.Singleton {
		return v, nil
	}
	e, ok := v.(*di.Entry)
	if !ok {
		return nil, errors.Internal(fmt.Errorf("dig: %s resolved to %T", name, v))
	}
	return e.Get(func(t di.Tracker) di.Resolver { return a.dependencies(t, locked) }, a.root, owner)
}

// dependencies is the resolver handed to producers. Disposable transients
// it resolves go to owner.
func (a *Adapter) dependencies(owner di.Tracker, locked bool) di.Resolver {
	return di.NewResolver(
		func(key di.ServiceKey) (any, error) { return a.lookup(key, owner, a, locked) },
		func(key di.ServiceKey) ([]any, error) { return a.lookupAll(key, owner, locked) },
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
