package di

import (
	"fmt"
	"reflect"

	"github.com/kbukum/busdi/errors"
)

// ServiceKey identifies a service by its Go type.
type ServiceKey struct {
	typ reflect.Type
}

// KeyOf returns the key of T. It does not validate the kind of T; the
// registration and resolution helpers do.
func KeyOf[T any]() ServiceKey {
	return ServiceKey{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// KeyFor returns the key for a runtime type, rejecting value types.
func KeyFor(t reflect.Type) (ServiceKey, error) {
	k := ServiceKey{typ: t}
	if err := k.Validate(); err != nil {
		return ServiceKey{}, err
	}
	return k, nil
}

// Type returns the underlying reflect.Type.
func (k ServiceKey) Type() reflect.Type { return k.typ }

// IsZero reports whether the key was never set.
func (k ServiceKey) IsZero() bool { return k.typ == nil }

// String returns the short Go type name, e.g. "*bus.Connection".
func (k ServiceKey) String() string {
	if k.typ == nil {
		return "<nil>"
	}
	return k.typ.String()
}

// Name returns a package-qualified name that is unique per type. Adapters
// whose native container is keyed by strings use it.
func (k ServiceKey) Name() string {
	return qualifiedName(k.typ)
}

// Validate checks that the key names a reference or interface-like type.
func (k ServiceKey) Validate() error {
	if k.typ == nil {
		return errors.InvalidArgument("service", "service type is nil")
	}
	switch k.typ.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func:
		return nil
	default:
		return errors.InvalidArgument("service",
			fmt.Sprintf("%s is a %s; services must be interface, pointer, map, chan or func types", k.typ, k.typ.Kind()))
	}
}

func qualifiedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	if t.Kind() == reflect.Pointer {
		return "*" + qualifiedName(t.Elem())
	}
	return t.String()
}
