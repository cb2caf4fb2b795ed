package ditest

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
)

// Factory returns a fresh, empty adapter for one test.
type Factory func(t *testing.T) di.Adapter

type scenario struct {
	name string
	run  func(t *testing.T, a di.Adapter)
}

// Run executes the conformance suite against adapters produced by factory.
// Every scenario gets its own adapter, disposed when the scenario ends.
func Run(t *testing.T, factory Factory) {
	t.Helper()
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			a := factory(t)
			require.NotNil(t, a)
			t.Cleanup(func() { _ = a.Dispose() })
			sc.run(t, a)
		})
	}
}

var scenarios = []scenario{
	{"LastRegistrationWins", testLastRegistrationWins},
	{"ResolveSingleRegistration", testResolveSingleRegistration},
	{"ResolveMultipleRegistrations", testResolveMultipleRegistrations},
	{"CollectionOrder", testCollectionOrder},
	{"CollectionNotVisibleToResolve", testCollectionNotVisibleToResolve},
	{"SingleNotVisibleToResolveAll", testSingleNotVisibleToResolveAll},
	{"SingleAndCollectionIndependentInstances", testIndependentInstances},
	{"EmptyCollection", testEmptyCollection},
	{"SingletonCreatedOnce", testSingletonCreatedOnce},
	{"TransientCreatedEveryTime", testTransientCreatedEveryTime},
	{"SingletonFactoryCalledOnce", testSingletonFactoryCalledOnce},
	{"TransientFactoryCalledEveryTime", testTransientFactoryCalledEveryTime},
	{"InstanceReturnedAsIs", testInstanceReturnedAsIs},
	{"CollectionSingletonMembersKeepIdentity", testCollectionSingletonIdentity},
	{"NothingConstructedAtRegistration", testLazyConstruction},
	{"ConstructorInjection", testConstructorInjection},
	{"NotRegistered", testNotRegistered},
	{"MissingDependency", testMissingDependency},
	{"FailedSingletonIsRetried", testFailedSingletonRetried},
	{"PanickingFactory", testPanickingFactory},
	{"ResolveServiceResolver", testResolveServiceResolver},
	{"ResolverKeyReserved", testResolverKeyReserved},
	{"InvalidRegistration", testInvalidRegistration},
	{"RegisterAfterBuild", testRegisterAfterBuild},
	{"ScopeSharesSingletons", testScopeSharesSingletons},
	{"ScopeDisposesTransients", testScopeDisposesTransients},
	{"ScopeDisposesTransientDependencies", testScopeDisposesTransientDependencies},
	{"SingletonOwnsTransientDependencies", testSingletonOwnsTransientDependencies},
	{"ScopeDisposeIdempotent", testScopeDisposeIdempotent},
	{"ScopeUseAfterDispose", testScopeUseAfterDispose},
	{"NestedScopesDisposedWithParent", testNestedScopes},
	{"ScopeResolvesItself", testScopeResolvesItself},
	{"AdapterDisposeReleasesSingletons", testAdapterDispose},
	{"ConcurrentSingletonResolution", testConcurrentSingleton},
	{"ConcurrentDispose", testConcurrentDispose},
	{"Registrations", testRegistrations},
}

func testLastRegistrationWins(t *testing.T, a di.Adapter) {
	first, last := NewService(), NewService()
	require.NoError(t, di.RegisterInstance[Service](a, first))
	require.NoError(t, di.RegisterInstance[Service](a, last))

	s, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.Same(t, last, s)
}

func testResolveSingleRegistration(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Append[Service](a, NewService))
	require.NoError(t, di.Register[ServiceWithCollection](a, NewServiceWithCollection))

	swc, err := di.Resolve[ServiceWithCollection](a)
	require.NoError(t, err)
	assert.Len(t, swc.Services(), 1)
}

func testResolveMultipleRegistrations(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Append[Service](a, NewService))
	require.NoError(t, di.Append[Service](a, NewService))
	require.NoError(t, di.Append[Service](a, NewService))
	require.NoError(t, di.Register[ServiceWithCollection](a, NewServiceWithCollection))

	swc, err := di.Resolve[ServiceWithCollection](a)
	require.NoError(t, err)
	services := swc.Services()
	require.Len(t, services, 3)
	assert.Less(t, services[0].Number(), services[1].Number())
	assert.Less(t, services[1].Number(), services[2].Number())
}

func testCollectionOrder(t *testing.T, a di.Adapter) {
	first, second := NewService(), NewService()
	require.NoError(t, di.AppendInstance[Service](a, first))
	require.NoError(t, di.AppendFactory[Service](a, func(di.Resolver) (Service, error) {
		return second, nil
	}))
	require.NoError(t, di.Append[Service](a, NewService, di.WithLifetime(di.Transient)))

	all, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Same(t, first, all[0])
	assert.Same(t, second, all[1])
	assert.Greater(t, all[2].Number(), second.Number())
}

func testCollectionNotVisibleToResolve(t *testing.T, a di.Adapter) {
	require.NoError(t, di.AppendInstance[Service](a, NewService()))

	_, err := di.Resolve[Service](a)
	assert.True(t, errors.IsNotRegistered(err), "got %v", err)
}

func testSingleNotVisibleToResolveAll(t *testing.T, a di.Adapter) {
	require.NoError(t, di.RegisterInstance[Service](a, NewService()))

	all, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testIndependentInstances(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Append[Service](a, NewService))

	single, err := di.Resolve[Service](a)
	require.NoError(t, err)
	all, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotSame(t, single, all[0])
}

func testEmptyCollection(t *testing.T, a di.Adapter) {
	all, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	raw, err := a.ResolveAll(di.KeyOf[Service]())
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func testSingletonCreatedOnce(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))

	first, err := di.Resolve[Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func testTransientCreatedEveryTime(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService, di.WithLifetime(di.Transient)))

	first, err := di.Resolve[Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func testSingletonFactoryCalledOnce(t *testing.T, a di.Adapter) {
	var calls atomic.Int32
	require.NoError(t, di.RegisterFactory[Service](a, func(di.Resolver) (Service, error) {
		calls.Add(1)
		return NewService(), nil
	}))

	first, err := di.Resolve[Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func testTransientFactoryCalledEveryTime(t *testing.T, a di.Adapter) {
	var calls atomic.Int32
	require.NoError(t, di.RegisterFactory[Service](a, func(di.Resolver) (Service, error) {
		calls.Add(1)
		return NewService(), nil
	}, di.WithLifetime(di.Transient)))

	first, err := di.Resolve[Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func testInstanceReturnedAsIs(t *testing.T, a di.Adapter) {
	instance := NewResource()
	require.NoError(t, di.RegisterInstance[*Resource](a, instance))

	scope, err := a.CreateScope()
	require.NoError(t, err)

	fromRoot, err := di.Resolve[*Resource](a)
	require.NoError(t, err)
	fromScope, err := di.Resolve[*Resource](scope)
	require.NoError(t, err)
	assert.Same(t, instance, fromRoot)
	assert.Same(t, instance, fromScope)

	require.NoError(t, scope.Dispose())
	require.NoError(t, a.Dispose())
	assert.Zero(t, instance.Disposed(), "registered instances are not owned by the adapter")
}

func testCollectionSingletonIdentity(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Append[Service](a, NewService))
	require.NoError(t, di.Append[Service](a, NewService, di.WithLifetime(di.Transient)))

	first, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	second, err := di.ResolveAll[Service](a)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Same(t, first[0], second[0])
	assert.NotSame(t, first[1], second[1])
}

func testLazyConstruction(t *testing.T, a di.Adapter) {
	var calls atomic.Int32
	factory := func(di.Resolver) (Service, error) {
		calls.Add(1)
		return NewService(), nil
	}
	require.NoError(t, di.RegisterFactory[Service](a, factory))
	require.NoError(t, di.AppendFactory[Service](a, factory))
	require.NoError(t, a.Build())
	assert.Zero(t, calls.Load())
}

func testConstructorInjection(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Consumer](a, NewConsumer, di.WithLifetime(di.Transient)))
	require.NoError(t, di.Register[Service](a, NewService))

	consumer, err := di.Resolve[*Consumer](a)
	require.NoError(t, err)
	s, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.Same(t, s, consumer.Service)
}

func testNotRegistered(t *testing.T, a di.Adapter) {
	_, err := di.Resolve[Service](a)
	require.Error(t, err)
	assert.True(t, errors.IsNotRegistered(err), "got %v", err)

	_, found, err := di.TryResolve[Service](a)
	require.NoError(t, err)
	assert.False(t, found)
}

func testMissingDependency(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Consumer](a, NewConsumer))

	_, err := di.Resolve[*Consumer](a)
	require.Error(t, err)
	assert.True(t, errors.IsConstructionFailure(err), "got %v", err)
	assert.False(t, errors.IsNotRegistered(err))

	var inner *errors.AppError
	require.True(t, stderrors.As(stderrors.Unwrap(err), &inner), "got %v", err)
	assert.Equal(t, errors.ErrCodeNotRegistered, inner.Code)
}

func testFailedSingletonRetried(t *testing.T, a di.Adapter) {
	boom := stderrors.New("connection refused")
	var calls atomic.Int32
	require.NoError(t, di.RegisterFactory[Service](a, func(di.Resolver) (Service, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return NewService(), nil
	}))

	_, err := di.Resolve[Service](a)
	require.Error(t, err)
	assert.True(t, errors.IsConstructionFailure(err), "got %v", err)
	assert.ErrorIs(t, err, boom)

	first, err := di.Resolve[Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[Service](a)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func testPanickingFactory(t *testing.T, a di.Adapter) {
	require.NoError(t, di.RegisterFactory[Service](a, func(di.Resolver) (Service, error) {
		panic("misconfigured")
	}))

	_, err := di.Resolve[Service](a)
	assert.True(t, errors.IsConstructionFailure(err), "got %v", err)
}

func testResolveServiceResolver(t *testing.T, a di.Adapter) {
	r, err := di.Resolve[di.Resolver](a)
	require.NoError(t, err)
	assert.NotNil(t, r)

	var injected di.Resolver
	require.NoError(t, di.Register[Service](a, func(r di.Resolver) *ServiceImpl {
		injected = r
		return NewService()
	}))
	_, err = di.Resolve[Service](a)
	require.NoError(t, err)
	assert.NotNil(t, injected)
}

func testResolverKeyReserved(t *testing.T, a di.Adapter) {
	err := di.RegisterInstance[di.Resolver](a, a)
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
	err = di.AppendInstance[di.Resolver](a, a)
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
}

func testInvalidRegistration(t *testing.T, a di.Adapter) {
	err := di.Register[Service](a, NewService, di.WithLifetime(di.Lifetime(42)))
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
	err = di.Register[Service](a, "not a constructor")
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
	err = a.Register(di.Registration{})
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
	err = a.Append(di.Registration{})
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
}

func testRegisterAfterBuild(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, a.Build())
	require.NoError(t, a.Build())

	err := di.Register[Service](a, NewService)
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
	err = di.Append[Service](a, NewService)
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
}

func testScopeSharesSingletons(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	defer scope.Dispose()

	fromRoot, err := di.Resolve[Service](a)
	require.NoError(t, err)
	fromScope, err := di.Resolve[Service](scope)
	require.NoError(t, err)
	assert.Same(t, fromRoot, fromScope)

	r1, err := di.Resolve[*Resource](scope)
	require.NoError(t, err)
	r2, err := di.Resolve[*Resource](scope)
	require.NoError(t, err)
	assert.NotSame(t, r1, r2)
}

func testScopeDisposesTransients(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))
	require.NoError(t, di.Append[*Handle](a, NewHandle, di.WithLifetime(di.Transient)))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	r, err := di.Resolve[*Resource](scope)
	require.NoError(t, err)
	handles, err := di.ResolveAll[*Handle](scope)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	assert.Zero(t, r.Disposed())
	require.NoError(t, scope.Dispose())
	assert.Equal(t, int32(1), r.Disposed())
	assert.Equal(t, int32(1), handles[0].Closed())
}

func testScopeDisposesTransientDependencies(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))
	require.NoError(t, di.Register[*Holder](a, NewHolder, di.WithLifetime(di.Transient)))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	h, err := di.Resolve[*Holder](scope)
	require.NoError(t, err)
	require.NotNil(t, h.Resource)

	assert.Zero(t, h.Resource.Disposed())
	require.NoError(t, scope.Dispose())
	assert.Equal(t, int32(1), h.Resource.Disposed())

	require.NoError(t, a.Dispose())
	assert.Equal(t, int32(1), h.Resource.Disposed())
}

func testSingletonOwnsTransientDependencies(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))
	require.NoError(t, di.Register[*Holder](a, NewHolder))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	h, err := di.Resolve[*Holder](scope)
	require.NoError(t, err)

	require.NoError(t, scope.Dispose())
	assert.Zero(t, h.Resource.Disposed())

	require.NoError(t, a.Dispose())
	assert.Equal(t, int32(1), h.Resource.Disposed())
}

func testScopeDisposeIdempotent(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	r, err := di.Resolve[*Resource](scope)
	require.NoError(t, err)

	require.NoError(t, scope.Dispose())
	require.NoError(t, scope.Dispose())
	assert.Equal(t, int32(1), r.Disposed())
}

func testScopeUseAfterDispose(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[Service](a, NewService))

	scope, err := a.CreateScope()
	require.NoError(t, err)
	require.NoError(t, scope.Dispose())

	_, err = scope.Resolve(di.KeyOf[Service]())
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
	_, err = scope.ResolveAll(di.KeyOf[Service]())
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
	_, err = scope.CreateScope()
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)

	// The adapter itself is unaffected.
	_, err = di.Resolve[Service](a)
	assert.NoError(t, err)
}

func testNestedScopes(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))

	parent, err := a.CreateScope()
	require.NoError(t, err)
	child, err := parent.CreateScope()
	require.NoError(t, err)
	grandchild, err := child.CreateScope()
	require.NoError(t, err)

	inChild, err := di.Resolve[*Resource](child)
	require.NoError(t, err)
	inGrandchild, err := di.Resolve[*Resource](grandchild)
	require.NoError(t, err)

	require.NoError(t, parent.Dispose())
	assert.Equal(t, int32(1), inChild.Disposed())
	assert.Equal(t, int32(1), inGrandchild.Disposed())

	_, err = grandchild.Resolve(di.KeyOf[*Resource]())
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
	require.NoError(t, child.Dispose())
	assert.Equal(t, int32(1), inChild.Disposed())
}

func testScopeResolvesItself(t *testing.T, a di.Adapter) {
	scope, err := a.CreateScope()
	require.NoError(t, err)
	defer scope.Dispose()

	r, err := di.Resolve[di.Resolver](scope)
	require.NoError(t, err)
	assert.Equal(t, di.Resolver(scope), r)
}

func testAdapterDispose(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource))
	require.NoError(t, di.Append[*Handle](a, NewHandle))
	require.NoError(t, di.Register[Service](a, NewService, di.WithLifetime(di.Transient)))

	r, err := di.Resolve[*Resource](a)
	require.NoError(t, err)
	handles, err := di.ResolveAll[*Handle](a)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	scope, err := a.CreateScope()
	require.NoError(t, err)

	require.NoError(t, a.Dispose())
	require.NoError(t, a.Dispose())
	assert.Equal(t, int32(1), r.Disposed())
	assert.Equal(t, int32(1), handles[0].Closed())

	_, err = a.Resolve(di.KeyOf[Service]())
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
	_, err = scope.Resolve(di.KeyOf[Service]())
	assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
}

func testConcurrentSingleton(t *testing.T, a di.Adapter) {
	var calls atomic.Int32
	require.NoError(t, di.RegisterFactory[Service](a, func(di.Resolver) (Service, error) {
		calls.Add(1)
		return NewService(), nil
	}))
	require.NoError(t, a.Build())

	const workers = 64
	results := make([]Service, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = di.Resolve[Service](a)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), calls.Load())
}

func testConcurrentDispose(t *testing.T, a di.Adapter) {
	require.NoError(t, di.Register[*Resource](a, NewResource, di.WithLifetime(di.Transient)))

	scope, err := a.CreateScope()
	require.NoError(t, err)

	const workers = 16
	resolved := make([]*Resource, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := di.Resolve[*Resource](scope)
			if err != nil {
				assert.True(t, errors.IsUseAfterDispose(err), "got %v", err)
				return
			}
			resolved[i] = r
		}(i)
	}
	require.NoError(t, scope.Dispose())
	wg.Wait()

	for _, r := range resolved {
		if r != nil {
			assert.Equal(t, int32(1), r.Disposed())
		}
	}
}

func testRegistrations(t *testing.T, a di.Adapter) {
	inspector, ok := a.(di.Inspector)
	if !ok {
		t.Skip("adapter does not implement di.Inspector")
	}
	require.NoError(t, di.Register[Service](a, NewService))
	require.NoError(t, di.Register[Service](a, NewService, di.WithLifetime(di.Transient)))
	require.NoError(t, di.AppendInstance[Service](a, NewService()))

	infos := inspector.Registrations()
	require.Len(t, infos, 2)
	assert.Equal(t, di.KeyOf[Service](), infos[0].Key)
	assert.Equal(t, di.Transient, infos[0].Lifetime)
	assert.False(t, infos[0].Collection)
	assert.True(t, infos[1].Collection)
	assert.Equal(t, di.KindInstance, infos[1].Kind)
}
