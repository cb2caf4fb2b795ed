package vesseladapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vdi "github.com/xraph/go-utils/di"
	"github.com/xraph/vessel"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/ditest"
	"github.com/kbukum/busdi/errors"
)

func TestConformance(t *testing.T) {
	ditest.Run(t, func(*testing.T) di.Adapter {
		return New()
	})
}

func TestBuildRegistersNamedServices(t *testing.T) {
	c := vessel.New()
	a := New(WithContainer(c))
	t.Cleanup(func() { _ = a.Dispose() })

	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))
	require.NoError(t, di.Append[ditest.Service](a, ditest.NewService))
	require.NoError(t, di.Append[ditest.Service](a, ditest.NewService))

	key := di.KeyOf[ditest.Service]()
	assert.False(t, c.Has(singleName(key)))

	require.NoError(t, a.Build())
	assert.Same(t, c, a.Container())
	assert.True(t, c.Has(singleName(key)))
	assert.True(t, c.Has(memberName(key, 0)))
	assert.True(t, c.Has(memberName(key, 1)))
	assert.Len(t, c.Services(), 3)
}

func TestNativeResolveSharesSingleton(t *testing.T) {
	a := New()
	t.Cleanup(func() { _ = a.Dispose() })
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))

	s, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)

	v, err := a.Container().Resolve(singleName(di.KeyOf[ditest.Service]()))
	require.NoError(t, err)
	require.IsType(t, &held{}, v)
	assert.Same(t, s, v.(*held).value)
}

func TestBuildFailsOnExistingNativeName(t *testing.T) {
	c := vessel.New()
	key := di.KeyOf[ditest.Service]()
	require.NoError(t, c.Register(singleName(key), func(vessel.Vessel) (any, error) {
		return nil, nil
	}, vdi.Singleton()))

	a := New(WithContainer(c))
	t.Cleanup(func() { _ = a.Dispose() })
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))

	err := a.Build()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.CodeOf(err))
	assert.ErrorIs(t, err, vessel.ErrServiceAlreadyExists(singleName(key)))

	assert.Same(t, err, a.Build())
	_, err = di.Resolve[ditest.Service](a)
	assert.ErrorIs(t, err, vessel.ErrServiceAlreadyExists(singleName(key)))
}

func TestDisposeStopsStartedContainer(t *testing.T) {
	c := vessel.New()
	require.NoError(t, c.Start(context.Background()))

	a := New(WithContainer(c))
	require.NoError(t, di.Register[ditest.Service](a, ditest.NewService))
	_, err := di.Resolve[ditest.Service](a)
	require.NoError(t, err)

	require.NoError(t, a.Dispose())
	assert.NoError(t, a.Dispose())
}
