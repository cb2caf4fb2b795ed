// Package di defines the container-agnostic dependency injection contract
// used by the messaging library, together with the built-in default adapter.
//
// Library code registers services through two independent views of an
// Adapter: ServiceRegister, where the last registration of a service type
// wins, and CollectionServiceRegister, where registrations accumulate into an
// ordered collection. Resolution goes through a Resolver; CreateScope returns
// a disposable child Resolver.
//
// # Registration
//
//	c := di.NewContainer()
//	_ = di.Register[Publisher](c, NewPublisher)                       // constructor, singleton
//	_ = di.RegisterInstance[Clock](c, systemClock{})                   // pre-built instance
//	_ = di.RegisterFactory[Serializer](c, newSerializer, di.WithLifetime(di.Transient))
//	_ = di.Append[Interceptor](c, NewTracingInterceptor)               // collection member
//
// # Resolution
//
//	pub := di.MustResolve[Publisher](c)
//	interceptors, err := di.ResolveAll[Interceptor](c)
//
// Third-party containers are wired through the adapters under adapters/.
package di
