package di

// Option configures a registration made through the typed helpers.
type Option func(*registerOptions)

type registerOptions struct {
	lifetime Lifetime
}

// WithLifetime sets the lifetime. Registrations are singletons by default.
func WithLifetime(l Lifetime) Option {
	return func(o *registerOptions) {
		o.lifetime = l
	}
}

func applyOptions(opts []Option) registerOptions {
	o := registerOptions{lifetime: Singleton}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Register registers ctor as the single-winner producer of TService,
// replacing any earlier registration.
//
// Example:
//
//	err := di.Register[Publisher](r, NewPublisher, di.WithLifetime(di.Transient))
func Register[TService any](r ServiceRegister, ctor any, opts ...Option) error {
	reg, err := NewTypeRegistration(KeyOf[TService](), ctor, applyOptions(opts).lifetime)
	if err != nil {
		return err
	}
	return r.Register(reg)
}

// RegisterInstance registers a pre-built singleton instance of TService.
func RegisterInstance[TService any](r ServiceRegister, instance TService) error {
	reg, err := NewInstanceRegistration(KeyOf[TService](), instance)
	if err != nil {
		return err
	}
	return r.Register(reg)
}

// RegisterFactory registers a factory as the single-winner producer of TService.
func RegisterFactory[TService any](r ServiceRegister, factory func(Resolver) (TService, error), opts ...Option) error {
	reg, err := NewFactoryRegistration(KeyOf[TService](), erase(factory), applyOptions(opts).lifetime)
	if err != nil {
		return err
	}
	return r.Register(reg)
}

// Append adds ctor as a collection member of TService.
func Append[TService any](r CollectionServiceRegister, ctor any, opts ...Option) error {
	reg, err := NewTypeRegistration(KeyOf[TService](), ctor, applyOptions(opts).lifetime)
	if err != nil {
		return err
	}
	return r.Append(reg)
}

// AppendInstance adds a pre-built instance as a collection member of TService.
func AppendInstance[TService any](r CollectionServiceRegister, instance TService) error {
	reg, err := NewInstanceRegistration(KeyOf[TService](), instance)
	if err != nil {
		return err
	}
	return r.Append(reg)
}

// AppendFactory adds a factory as a collection member of TService.
func AppendFactory[TService any](r CollectionServiceRegister, factory func(Resolver) (TService, error), opts ...Option) error {
	reg, err := NewFactoryRegistration(KeyOf[TService](), erase(factory), applyOptions(opts).lifetime)
	if err != nil {
		return err
	}
	return r.Append(reg)
}

func erase[T any](factory func(Resolver) (T, error)) Factory {
	if factory == nil {
		return nil
	}
	return func(r Resolver) (any, error) {
		instance, err := factory(r)
		if err != nil {
			return nil, err
		}
		return instance, nil
	}
}
