package di

import (
	"fmt"

	"github.com/kbukum/busdi/errors"
)

// Resolve resolves the single-winner registration of T.
//
// Example:
//
//	conn, err := di.Resolve[*connection.Configuration](resolver)
//	if err != nil {
//	    return fmt.Errorf("failed to get connection configuration: %w", err)
//	}
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	key := KeyOf[T]()
	instance, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	return cast[T](key, instance)
}

// MustResolve resolves T and panics on error.
// Use this in setup code where a missing service is a programming error.
func MustResolve[T any](r Resolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s: %v", KeyOf[T](), err))
	}
	return instance
}

// TryResolve resolves T when it is registered. found is false with a nil
// error when it is not; other failures are returned.
//
// Example:
//
//	if parser, ok, err := di.TryResolve[connection.Parser](r); err == nil && ok {
//	    cfg, err = parser.Parse(connectionString)
//	}
func TryResolve[T any](r Resolver) (instance T, found bool, err error) {
	instance, err = Resolve[T](r)
	if err != nil {
		if errors.IsNotRegistered(err) {
			return instance, false, nil
		}
		return instance, false, err
	}
	return instance, true, nil
}

// ResolveAll resolves every collection member of T in registration order.
// The result is empty, not nil, when there are none.
func ResolveAll[T any](r Resolver) ([]T, error) {
	key := KeyOf[T]()
	instances, err := r.ResolveAll(key)
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(instances))
	for _, instance := range instances {
		v, err := cast[T](key, instance)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func cast[T any](key ServiceKey, instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}
	result, ok := instance.(T)
	if !ok {
		return zero, errors.Internal(fmt.Errorf("component %s is %T, expected %s", key, instance, key))
	}
	return result, nil
}
