package di

// Resolver is the read-only side of the contract.
type Resolver interface {
	// Resolve returns the instance of the single-winner registration for key.
	// It fails with NOT_REGISTERED when no such registration exists; collection
	// members are never considered.
	Resolve(key ServiceKey) (any, error)

	// ResolveAll returns one instance per collection registration of key, in
	// registration order. It returns an empty slice when there are none.
	ResolveAll(key ServiceKey) ([]any, error)

	// CreateScope returns a child resolver over the same registrations with
	// its own lifecycle.
	CreateScope() (Scope, error)
}

// Scope is an owned, disposable Resolver.
type Scope interface {
	Resolver

	// Dispose releases the disposable transients handed out through the
	// scope, disposes live child scopes and invalidates the scope. Calling it
	// again is a no-op.
	Dispose() error
}

// ServiceRegister is the single-winner registration view: registering a key
// again replaces the previous registration.
type ServiceRegister interface {
	Register(reg Registration) error
}

// CollectionServiceRegister is the collection registration view: registering
// a key again appends a new member.
type CollectionServiceRegister interface {
	Append(reg Registration) error
}

// Adapter binds the contract to one backing container instance.
type Adapter interface {
	ServiceRegister
	CollectionServiceRegister
	Resolver

	// Build finalizes the registrations into the native container. Resolving
	// through an adapter that was not built builds it first. Registrations
	// after Build fail with INVALID_ARGUMENT.
	Build() error

	// Dispose disposes every live scope and the singletons the container
	// constructed, then releases the native container.
	Dispose() error
}

// Inspector is implemented by adapters that expose their registrations.
type Inspector interface {
	Registrations() []RegistrationInfo
}

// Disposable is implemented by services that release resources when their
// owning scope is disposed. io.Closer is honoured as well.
type Disposable interface {
	Dispose() error
}
