package digresolver_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/digresolver"
	"github.com/junioryono/ioc/internal/testutil"
)

type config struct {
	DSN string
}

func newDig(t *testing.T, constructors ...any) *dig.Container {
	t.Helper()

	d := dig.New()
	for _, ctor := range constructors {
		require.NoError(t, d.Provide(ctor))
	}
	return d
}

func TestLookup(t *testing.T) {
	t.Run("provided", func(t *testing.T) {
		d := newDig(t, func() *config { return &config{DSN: "postgres://"} })

		v, ok, err := digresolver.Lookup(d, reflect.TypeOf(&config{}))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "postgres://", v.(*config).DSN)
	})

	t.Run("not provided", func(t *testing.T) {
		d := newDig(t)

		v, ok, err := digresolver.Lookup(d, reflect.TypeOf(&config{}))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("failing constructor", func(t *testing.T) {
		d := newDig(t, func() (*config, error) { return nil, testutil.ErrConstructor })

		_, ok, err := digresolver.Lookup(d, reflect.TypeOf(&config{}))
		require.Error(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, err, testutil.ErrConstructor)
	})
}

func TestResolver(t *testing.T) {
	t.Run("resolves dig values as singletons", func(t *testing.T) {
		var calls testutil.Counter
		d := newDig(t, func() *config {
			calls.Inc()
			return &config{DSN: "postgres://"}
		})

		c := testutil.NewContainer(t)
		require.NoError(t, c.OnResolveUnregisteredType(digresolver.Resolver(d)))

		first := testutil.RequireResolve[*config](t, c)
		second := testutil.RequireResolve[*config](t, c)
		assert.Same(t, first, second)
		assert.Equal(t, int64(1), calls.Load())

		producer, err := c.GetProducer(reflect.TypeOf(&config{}))
		require.NoError(t, err)
		assert.Equal(t, ioc.Singleton, producer.Lifestyle())
	})

	t.Run("dig values satisfy registered constructors", func(t *testing.T) {
		d := newDig(t, func() *config { return &config{DSN: "postgres://"} })

		type service struct{ Config *config }

		c := testutil.NewContainer(t)
		require.NoError(t, c.OnResolveUnregisteredType(digresolver.Resolver(d)))
		require.NoError(t, ioc.RegisterSingleton[*service](c, func(cfg *config) *service {
			return &service{Config: cfg}
		}))

		require.NoError(t, c.Verify())
		assert.Equal(t, "postgres://", testutil.RequireResolve[*service](t, c).Config.DSN)
	})

	t.Run("dig values are decorated", func(t *testing.T) {
		d := newDig(t, func() testutil.Repository { return testutil.NewSQLRepository() })

		c := testutil.NewContainer(t)
		require.NoError(t, c.OnResolveUnregisteredType(digresolver.Resolver(d)))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Repository](c, testutil.NewCachingRepository))

		repo := testutil.RequireResolve[testutil.Repository](t, c)
		assert.Equal(t, "cache(sql:1)", repo.Find("1"))
	})

	t.Run("types dig cannot provide stay unregistered", func(t *testing.T) {
		c := testutil.NewContainer(t)
		require.NoError(t, c.OnResolveUnregisteredType(digresolver.Resolver(newDig(t))))

		_, err := ioc.Resolve[*config](c)
		require.Error(t, err)
		assert.True(t, ioc.IsNotRegistered(err))
	})

	t.Run("failing dig constructor", func(t *testing.T) {
		d := newDig(t, func() (*config, error) { return nil, testutil.ErrConstructor })

		c := testutil.NewContainer(t)
		require.NoError(t, c.OnResolveUnregisteredType(digresolver.Resolver(d)))

		activationErr := testutil.RequireActivationError[*config](t, c)
		assert.ErrorIs(t, activationErr, testutil.ErrConstructor)
	})
}
