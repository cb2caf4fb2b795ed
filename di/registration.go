package di

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/busdi/errors"
)

// ProducerKind tells how a registration produces its instance.
type ProducerKind int

const (
	KindImplementationType ProducerKind = iota // Constructor function with injected parameters
	KindInstance                               // Pre-built value handed back as-is
	KindFactory                                // func(Resolver) (any, error)
)

func (k ProducerKind) String() string {
	switch k {
	case KindImplementationType:
		return "type"
	case KindInstance:
		return "instance"
	case KindFactory:
		return "factory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Factory produces an instance from a resolver.
type Factory func(r Resolver) (any, error)

// Registration is one registration request: a service key, how to produce
// the instance, and its lifetime. Build it with NewTypeRegistration,
// NewInstanceRegistration or NewFactoryRegistration.
type Registration struct {
	key      ServiceKey
	kind     ProducerKind
	lifetime Lifetime

	ctor   reflect.Value
	params []ctorParam

	instance any
	factory  Factory
}

// Key returns the service key.
func (r Registration) Key() ServiceKey { return r.key }

// Kind returns the producer kind.
func (r Registration) Kind() ProducerKind { return r.kind }

// Lifetime returns the lifetime. Instance registrations are always singletons.
func (r Registration) Lifetime() Lifetime { return r.lifetime }

// Owned reports whether instances of this registration are created by the
// container and therefore released by it.
func (r Registration) Owned() bool { return r.kind != KindInstance }

// Instance returns the pre-built value of an instance registration.
func (r Registration) Instance() (any, bool) {
	if r.kind != KindInstance {
		return nil, false
	}
	return r.instance, true
}

// NewTypeRegistration registers a constructor function. Its parameters are
// resolved when the instance is produced: T from the single-winner view, []T
// from the collection view, Resolver as the resolving container and
// context.Context as a background context. It must return X or (X, error)
// where X is assignable to the service type.
func NewTypeRegistration(key ServiceKey, ctor any, lifetime Lifetime) (Registration, error) {
	if err := key.Validate(); err != nil {
		return Registration{}, err
	}
	if err := lifetime.Validate(); err != nil {
		return Registration{}, err
	}
	fn, params, err := analyzeConstructor(key, ctor)
	if err != nil {
		return Registration{}, err
	}
	return Registration{
		key:      key,
		kind:     KindImplementationType,
		lifetime: lifetime,
		ctor:     fn,
		params:   params,
	}, nil
}

// NewInstanceRegistration registers a pre-built instance. It is stored as-is
// and handed back on every resolve.
func NewInstanceRegistration(key ServiceKey, instance any) (Registration, error) {
	if err := key.Validate(); err != nil {
		return Registration{}, err
	}
	if isNil(instance) {
		return Registration{}, errors.InvalidArgument("instance", fmt.Sprintf("nil instance for %s", key))
	}
	if t := reflect.TypeOf(instance); !t.AssignableTo(key.typ) {
		return Registration{}, errors.InvalidArgument("instance", fmt.Sprintf("%s does not implement %s", t, key))
	}
	return Registration{
		key:      key,
		kind:     KindInstance,
		lifetime: Singleton,
		instance: instance,
	}, nil
}

// NewFactoryRegistration registers a factory function.
func NewFactoryRegistration(key ServiceKey, factory Factory, lifetime Lifetime) (Registration, error) {
	if err := key.Validate(); err != nil {
		return Registration{}, err
	}
	if err := lifetime.Validate(); err != nil {
		return Registration{}, err
	}
	if factory == nil {
		return Registration{}, errors.InvalidArgument("factory", fmt.Sprintf("nil factory for %s", key))
	}
	return Registration{
		key:      key,
		kind:     KindFactory,
		lifetime: lifetime,
		factory:  factory,
	}, nil
}

// Produce runs the producer once. Errors are returned unchanged; a panic in
// user code is recovered into an error. Adapters wrap the result into a
// CONSTRUCTION_FAILURE for the key being resolved.
func (r Registration) Produce(res Resolver) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = fmt.Errorf("panic while producing %s: %v", r.key, p)
		}
	}()

	switch r.kind {
	case KindInstance:
		return r.instance, nil
	case KindFactory:
		instance, err = r.factory(res)
	case KindImplementationType:
		instance, err = r.callConstructor(res)
	default:
		return nil, errors.Internal(fmt.Errorf("unknown producer kind %d for %s", r.kind, r.key))
	}
	if err != nil {
		return nil, err
	}
	if instance != nil && !reflect.TypeOf(instance).AssignableTo(r.key.typ) {
		return nil, fmt.Errorf("producer returned %T, which does not implement %s", instance, r.key)
	}
	return instance, nil
}

// --- constructor injection ---

type paramKind int

const (
	paramService paramKind = iota
	paramCollection
	paramResolver
	paramContext
)

type ctorParam struct {
	kind paramKind
	key  ServiceKey
	typ  reflect.Type
}

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
)

func analyzeConstructor(key ServiceKey, ctor any) (reflect.Value, []ctorParam, error) {
	if ctor == nil {
		return reflect.Value{}, nil, errors.InvalidArgument("constructor", fmt.Sprintf("nil constructor for %s", key))
	}
	fn := reflect.ValueOf(ctor)
	fnType := fn.Type()
	if fnType.Kind() != reflect.Func {
		return reflect.Value{}, nil, errors.InvalidArgument("constructor", fmt.Sprintf("%s is not a function", fnType))
	}
	if fn.IsNil() {
		return reflect.Value{}, nil, errors.InvalidArgument("constructor", fmt.Sprintf("nil constructor for %s", key))
	}
	if fnType.IsVariadic() {
		return reflect.Value{}, nil, errors.InvalidArgument("constructor", "variadic constructors are not supported")
	}

	// Constructor returns (instance) or (instance, error)
	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return reflect.Value{}, nil, errors.InvalidArgument("constructor",
				fmt.Sprintf("second result of %s must be error", fnType))
		}
	default:
		return reflect.Value{}, nil, errors.InvalidArgument("constructor",
			"constructor must return either (instance) or (instance, error)")
	}
	if out := fnType.Out(0); !out.AssignableTo(key.typ) {
		return reflect.Value{}, nil, errors.InvalidArgument("constructor",
			fmt.Sprintf("%s does not implement %s", out, key))
	}

	params := make([]ctorParam, fnType.NumIn())
	for i := range params {
		in := fnType.In(i)
		switch {
		case in == resolverType:
			params[i] = ctorParam{kind: paramResolver, typ: in}
		case in == contextType:
			params[i] = ctorParam{kind: paramContext, typ: in}
		case in.Kind() == reflect.Slice:
			elem := ServiceKey{typ: in.Elem()}
			if err := elem.Validate(); err != nil {
				return reflect.Value{}, nil, errors.InvalidArgument("constructor",
					fmt.Sprintf("parameter %d (%s) cannot be injected", i, in)).WithCause(err)
			}
			params[i] = ctorParam{kind: paramCollection, key: elem, typ: in}
		default:
			dep := ServiceKey{typ: in}
			if err := dep.Validate(); err != nil {
				return reflect.Value{}, nil, errors.InvalidArgument("constructor",
					fmt.Sprintf("parameter %d (%s) cannot be injected", i, in)).WithCause(err)
			}
			params[i] = ctorParam{kind: paramService, key: dep, typ: in}
		}
	}
	return fn, params, nil
}

func (r Registration) callConstructor(res Resolver) (any, error) {
	args := make([]reflect.Value, len(r.params))
	for i, p := range r.params {
		switch p.kind {
		case paramResolver:
			args[i] = reflect.ValueOf(res)
		case paramContext:
			args[i] = reflect.ValueOf(context.Background())
		case paramService:
			dep, err := res.Resolve(p.key)
			if err != nil {
				return nil, err
			}
			v, err := valueOf(dep, p.typ)
			if err != nil {
				return nil, err
			}
			args[i] = v
		case paramCollection:
			deps, err := res.ResolveAll(p.key)
			if err != nil {
				return nil, err
			}
			slice := reflect.MakeSlice(p.typ, 0, len(deps))
			for _, dep := range deps {
				v, err := valueOf(dep, p.typ.Elem())
				if err != nil {
					return nil, err
				}
				slice = reflect.Append(slice, v)
			}
			args[i] = slice
		}
	}

	results := r.ctor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// valueOf converts a resolved instance into a reflect.Value usable as t.
func valueOf(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("resolved %s cannot be used as %s", rv.Type(), t)
	}
	return rv, nil
}

// ValueOf is valueOf for adapters that hand instances to reflection-based
// native containers.
func ValueOf(v any, t reflect.Type) (reflect.Value, error) { return valueOf(v, t) }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
