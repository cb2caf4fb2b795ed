package digadapter

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/ditest"
	"github.com/kbukum/busdi/errors"
)

func TestConformance(t *testing.T) {
	ditest.Run(t, func(*testing.T) di.Adapter {
		return New()
	})
}

func TestSingletonsAreBuiltByDig(t *testing.T) {
	c := dig.New()
	a := New(WithContainer(c))
	t.Cleanup(func() { _ = a.Dispose() })

	var calls atomic.Int32
	require.NoError(t, di.RegisterFactory[ditest.Service](a, func(di.Resolver) (ditest.Service, error) {
		calls.Add(1)
		return ditest.NewService(), nil
	}))
	require.NoError(t, di.Append[ditest.Service](a, ditest.NewService))
	require.NoError(t, a.Build())
	assert.Same(t, c, a.Container())
	assert.Zero(t, calls.Load())

	key := di.KeyOf[ditest.Service]()
	native, err := a.value(singleName(key), false)
	require.NoError(t, err)
	require.Implements(t, (*ditest.Service)(nil), native)

	s, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)
	assert.Same(t, native, s)
	assert.Equal(t, int32(1), calls.Load())

	member, err := a.value(memberName(key, 0), false)
	require.NoError(t, err)
	assert.NotSame(t, native, member)
}

func TestTransientsAreEntriesInDig(t *testing.T) {
	a := New()
	t.Cleanup(func() { _ = a.Dispose() })
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService, di.WithLifetime(di.Transient)))
	require.NoError(t, a.Build())

	key := di.KeyOf[ditest.Service]()
	v, err := a.value(singleName(key), false)
	require.NoError(t, err)
	e, ok := v.(*di.Entry)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, key, e.Registration().Key())
}

func TestSingletonDependsOnSingletonInsideDig(t *testing.T) {
	a := New()
	t.Cleanup(func() { _ = a.Dispose() })
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))
	require.NoError(t, di.Register[*ditest.Consumer](a, ditest.NewConsumer))

	consumer, err := di.Resolve[*ditest.Consumer](a)
	require.NoError(t, err)
	s, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)
	assert.Same(t, s, consumer.Service)
}

func TestBuildIsIdempotent(t *testing.T) {
	a := New()
	t.Cleanup(func() { _ = a.Dispose() })

	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))
	require.NoError(t, a.Build())
	require.NoError(t, a.Build())

	first, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)
	second, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestBuildFailsOnConflictingNativeProvider(t *testing.T) {
	c := dig.New()
	key := di.KeyOf[ditest.Service]()
	require.NoError(t, c.Provide(func() ditest.Service { return nil }, dig.Name(singleName(key))))

	a := New(WithContainer(c))
	t.Cleanup(func() { _ = a.Dispose() })
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))

	err := a.Build()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.CodeOf(err))

	again := a.Build()
	assert.Same(t, err, again)
	_, err = di.Resolve[ditest.Service](a)
	assert.Same(t, again, err)
}
