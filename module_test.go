package ioc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestModule(t *testing.T) {
	t.Run("install applies every registration", func(t *testing.T) {
		t.Parallel()

		recorder := testutil.NewRecorder()
		data := ioc.NewModule("data",
			ioc.Value[*testutil.Recorder](recorder),
			ioc.Provide[testutil.Repository](testutil.NewSQLRepository, ioc.Singleton),
			ioc.Decorate[testutil.Repository](testutil.NewLoggingRepository),
		)
		validation := ioc.NewModule("validation",
			ioc.Collection[testutil.Validator](ioc.Transient, testutil.NewNotEmptyValidator, testutil.NewLengthValidator),
		)

		c := testutil.NewContainer(t)
		require.NoError(t, c.Install(data, validation, nil))
		require.NoError(t, c.Verify())

		repo := testutil.RequireResolve[testutil.Repository](t, c)
		assert.Equal(t, "log(sql:1)", repo.Find("1"))
		assert.Equal(t, []string{"find 1"}, recorder.Messages())
		assert.Len(t, testutil.RequireResolve[[]testutil.Validator](t, c), 2)
	})

	t.Run("open decorators", func(t *testing.T) {
		t.Parallel()

		d, err := ioc.NewOpenDecorator(testutil.NewLoggingHandler[testutil.CreateUser])
		require.NoError(t, err)

		c := testutil.NewContainer(t)
		require.NoError(t, c.Install(
			ioc.Provide[testutil.Handler[testutil.CreateUser]](testutil.NewCreateUserHandler, ioc.Transient),
			ioc.DecorateOpen(d),
		))

		h := testutil.RequireResolve[testutil.Handler[testutil.CreateUser]](t, c)
		assert.Equal(t, "log(created ann)", h.Handle(testutil.CreateUser{Name: "ann"}))
	})

	t.Run("errors carry the module name", func(t *testing.T) {
		t.Parallel()

		broken := ioc.NewModule("broken",
			ioc.Provide[testutil.Repository](testutil.NewSQLRepository, ioc.Transient),
			ioc.Provide[testutil.Repository](testutil.NewSQLRepository, ioc.Transient),
		)

		c := testutil.NewContainer(t)
		err := c.Install(ioc.NewModule("app", broken))
		require.Error(t, err)

		var moduleErr *ioc.ModuleError
		require.True(t, errors.As(err, &moduleErr))
		assert.Equal(t, "app", moduleErr.Module)
		assert.Contains(t, err.Error(), `module "app": module "broken"`)

		var registered *ioc.AlreadyRegisteredError
		assert.True(t, errors.As(err, &registered))
	})

	t.Run("custom modules", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		err := c.Install(func(c *ioc.Container) error {
			return testutil.ErrTest
		})
		assert.ErrorIs(t, err, testutil.ErrTest)
	})
}
