package di

import (
	"github.com/kbukum/busdi/errors"
)

type funcResolver struct {
	resolve     func(ServiceKey) (any, error)
	resolveAll  func(ServiceKey) ([]any, error)
	createScope func() (Scope, error)
}

// NewResolver builds a Resolver from functions. Adapters use it for the
// resolver they hand to producers.
func NewResolver(
	resolve func(ServiceKey) (any, error),
	resolveAll func(ServiceKey) ([]any, error),
	createScope func() (Scope, error),
) Resolver {
	return &funcResolver{resolve: resolve, resolveAll: resolveAll, createScope: createScope}
}

func (r *funcResolver) Resolve(key ServiceKey) (any, error)      { return r.resolve(key) }
func (r *funcResolver) ResolveAll(key ServiceKey) ([]any, error) { return r.resolveAll(key) }
func (r *funcResolver) CreateScope() (Scope, error)              { return r.createScope() }

// ConstructionError reports a producer failure for key as
// CONSTRUCTION_FAILURE with err as the cause. USE_AFTER_DISPOSE passes
// through unchanged.
func ConstructionError(key ServiceKey, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsUseAfterDispose(err) {
		return err
	}
	return errors.ConstructionFailed(key.String(), err)
}

// NativeError translates an error returned by a native container. Errors
// raised by this package travel through native wrappers and are returned
// as-is; anything else is reported as a construction failure for key.
func NativeError(key ServiceKey, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.ConstructionFailed(key.String(), err)
}
