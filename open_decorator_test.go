package ioc_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
	"github.com/junioryono/ioc/plan"
)

type describer interface {
	Describe() string
}

type box[T any] struct{ value T }

func newIntBox() *box[int] { return &box[int]{value: 7} }

func (b *box[T]) Describe() string { return "box" }

type labeled[T any] struct{ inner describer }

func newLabeled[T any](inner describer) *labeled[T] { return &labeled[T]{inner: inner} }

func (l *labeled[T]) Describe() string {
	var zero T
	return "labeled[" + strconv.Quote(describeZero(zero)) + "](" + l.inner.Describe() + ")"
}

func describeZero(v any) string {
	switch v.(type) {
	case int:
		return "int"
	case string:
		return "string"
	default:
		return "?"
	}
}

func handlerContainer(t *testing.T) *ioc.Container {
	t.Helper()

	c := testutil.NewContainer(t)
	require.NoError(t, ioc.RegisterTransient[testutil.Handler[testutil.CreateUser]](c, testutil.NewCreateUserHandler))
	require.NoError(t, ioc.RegisterTransient[testutil.Handler[testutil.DeleteUser]](c, testutil.NewDeleteUserHandler))
	require.NoError(t, ioc.RegisterTransient[testutil.Handler[testutil.RenameUser]](c, testutil.NewRenameUserHandler))
	return c
}

func TestOpenDecorator(t *testing.T) {
	t.Run("applies the matching instantiation", func(t *testing.T) {
		t.Parallel()

		c := handlerContainer(t)
		d, err := ioc.NewOpenDecorator(
			testutil.NewLoggingHandler[testutil.CreateUser],
			testutil.NewLoggingHandler[testutil.DeleteUser],
		)
		require.NoError(t, err)
		require.NoError(t, c.RegisterOpenDecorator(d))

		create := testutil.RequireResolve[testutil.Handler[testutil.CreateUser]](t, c)
		assert.IsType(t, &testutil.LoggingHandler[testutil.CreateUser]{}, create)
		assert.Equal(t, "log(created ann)", create.Handle(testutil.CreateUser{Name: "ann"}))

		del := testutil.RequireResolve[testutil.Handler[testutil.DeleteUser]](t, c)
		assert.Equal(t, "log(deleted 4)", del.Handle(testutil.DeleteUser{ID: 4}))
	})

	t.Run("instantiations without a match are left alone", func(t *testing.T) {
		t.Parallel()

		c := handlerContainer(t)
		d, err := ioc.NewOpenDecorator(testutil.NewLoggingHandler[testutil.CreateUser])
		require.NoError(t, err)
		require.NoError(t, c.RegisterOpenDecorator(d))

		rename := testutil.RequireResolve[testutil.Handler[testutil.RenameUser]](t, c)
		assert.IsType(t, &testutil.RenameUserHandler{}, rename)
		assert.Equal(t, "renamed bob", rename.Handle(testutil.RenameUser{Name: "bob"}))
	})

	t.Run("predicate filters instantiations", func(t *testing.T) {
		t.Parallel()

		deleteType := ioc.TypeOf[testutil.Handler[testutil.DeleteUser]]()
		c := handlerContainer(t)
		d, err := ioc.NewOpenDecorator(
			testutil.NewLoggingHandler[testutil.CreateUser],
			testutil.NewLoggingHandler[testutil.DeleteUser],
		)
		require.NoError(t, err)
		require.NoError(t, c.RegisterOpenDecorator(d, ioc.When(func(ctx ioc.DecoratorPredicateContext) bool {
			return ctx.ServiceType() != deleteType
		})))

		assert.IsType(t, &testutil.LoggingHandler[testutil.CreateUser]{},
			testutil.RequireResolve[testutil.Handler[testutil.CreateUser]](t, c))
		assert.IsType(t, &testutil.DeleteUserHandler{},
			testutil.RequireResolve[testutil.Handler[testutil.DeleteUser]](t, c))
	})

	t.Run("type arguments fall back to the implementation", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterTransient[describer](c, newIntBox))

		d, err := ioc.NewOpenDecorator(newLabeled[int], newLabeled[string])
		require.NoError(t, err)
		require.NoError(t, c.RegisterOpenDecorator(d))

		got := testutil.RequireResolve[describer](t, c)
		assert.IsType(t, &labeled[int]{}, got)
		assert.Equal(t, `labeled["int"](box)`, got.Describe())
	})

	t.Run("closed and open decorators compose", func(t *testing.T) {
		t.Parallel()

		c := handlerContainer(t)
		d, err := ioc.NewOpenDecorator(testutil.NewLoggingHandler[testutil.CreateUser])
		require.NoError(t, err)
		require.NoError(t, c.RegisterOpenDecorator(d))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Handler[testutil.CreateUser]](c, testutil.NewLoggingHandler[testutil.CreateUser]))

		create := testutil.RequireResolve[testutil.Handler[testutil.CreateUser]](t, c)
		assert.Equal(t, "log(log(created ann))", create.Handle(testutil.CreateUser{Name: "ann"}))

		producer, err := c.GetProducer(ioc.TypeOf[testutil.Handler[testutil.CreateUser]]())
		require.NoError(t, err)
		p, err := producer.BuildPlan()
		require.NoError(t, err)
		assert.Len(t, plan.Decorators(p), 2)
	})
}

func TestNewOpenDecorator_Errors(t *testing.T) {
	tests := []struct {
		name         string
		constructors []any
		target       error
	}{
		{
			name:   "empty",
			target: ioc.ErrEmptyOpenDecorator,
		},
		{
			name:         "not generic",
			constructors: []any{testutil.NewTracingValidator},
			target:       ioc.ErrNotGeneric,
		},
		{
			name:         "mixed definitions",
			constructors: []any{testutil.NewLoggingHandler[testutil.CreateUser], newLabeled[int]},
			target:       ioc.ErrMixedOpenDecorator,
		},
		{
			name: "duplicate instantiation",
			constructors: []any{
				testutil.NewLoggingHandler[testutil.CreateUser],
				testutil.NewLoggingHandler[testutil.CreateUser],
			},
			target: ioc.ErrDuplicateClosedDecorator,
		},
		{
			name:         "not a function",
			constructors: []any{"decorator"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := ioc.NewOpenDecorator(tt.constructors...)
			assert.Nil(t, d)
			testutil.AssertConfigurationError(t, err, tt.target)
		})
	}

	t.Run("definition and length", func(t *testing.T) {
		t.Parallel()

		d, err := ioc.NewOpenDecorator(newLabeled[int], newLabeled[string])
		require.NoError(t, err)
		assert.Equal(t, 2, d.Len())
		assert.Equal(t, "github.com/junioryono/ioc_test.labeled", d.Definition())
	})

	t.Run("nil decorator", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		testutil.AssertConfigurationError(t, c.RegisterOpenDecorator(nil), ioc.ErrConstructorNil)
	})
}
