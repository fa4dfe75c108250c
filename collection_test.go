package ioc_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

var validatorType = ioc.TypeOf[testutil.Validator]()

// lazyValidator creates its inner validator on first use.
type lazyValidator struct {
	create func() (testutil.Validator, error)
}

func newLazyValidator(create func() (testutil.Validator, error)) *lazyValidator {
	return &lazyValidator{create: create}
}

func (v *lazyValidator) Validate(s string) error {
	inner, err := v.create()
	if err != nil {
		return err
	}
	return inner.Validate(s)
}

func TestCollection_Controlled(t *testing.T) {
	t.Run("resolves all elements in order", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient,
			testutil.NewNotEmptyValidator,
			testutil.NewLengthValidator,
		))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		require.Len(t, validators, 2)
		assert.IsType(t, &testutil.NotEmptyValidator{}, validators[0])
		assert.IsType(t, &testutil.LengthValidator{}, validators[1])
	})

	t.Run("elements follow their lifestyle", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Singleton, testutil.NewLengthValidator))

		first := testutil.RequireResolve[[]testutil.Validator](t, c)
		second := testutil.RequireResolve[[]testutil.Validator](t, c)
		assert.Same(t, first[0], second[0])
	})

	t.Run("instances and constructors can be mixed", func(t *testing.T) {
		t.Parallel()

		instance := &testutil.LengthValidator{Max: 2}
		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient, instance, testutil.NewNotEmptyValidator))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		require.Len(t, validators, 2)
		assert.Same(t, instance, validators[0])
	})

	t.Run("decorators wrap every element", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient,
			testutil.NewNotEmptyValidator,
			testutil.NewLengthValidator,
		))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Validator](c, testutil.NewTracingValidator))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		require.Len(t, validators, 2)
		for _, v := range validators {
			assert.IsType(t, &testutil.TracingValidator{}, v)
		}
		assert.IsType(t, &testutil.LengthValidator{}, validators[1].(*testutil.TracingValidator).Inner)
	})

	t.Run("predicate sees each element's implementation", func(t *testing.T) {
		t.Parallel()

		lengthType := reflect.TypeOf(&testutil.LengthValidator{})
		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient,
			testutil.NewNotEmptyValidator,
			testutil.NewLengthValidator,
		))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Validator](c, testutil.NewTracingValidator,
			ioc.When(func(ctx ioc.DecoratorPredicateContext) bool {
				return ctx.ImplementationType() == lengthType
			}),
		))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		assert.IsType(t, &testutil.NotEmptyValidator{}, validators[0])
		assert.IsType(t, &testutil.TracingValidator{}, validators[1])
	})

	t.Run("nil element fails verification with the element type", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient, testutil.NewLengthValidator, nil))

		err := c.Verify()
		require.Error(t, err)

		var nilErr *ioc.CollectionItemNilError
		require.True(t, errors.As(err, &nilErr))
		assert.Equal(t, validatorType, nilErr.ElementType)
		assert.Contains(t, err.Error(), "one of the items in the collection for type Validator is a nil reference")
	})

	t.Run("verify runs element decoratee factories", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient,
			testutil.NewNotEmptyValidator,
			func() (*testutil.LengthValidator, error) { return nil, testutil.ErrConstructor },
		))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Validator](c, newLazyValidator))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		require.Len(t, validators, 2)
		assert.NoError(t, validators[0].Validate("ok"))

		err := c.Verify()
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrConstructor)

		var verifyErr *ioc.VerificationError
		require.True(t, errors.As(err, &verifyErr))
		require.Len(t, verifyErr.Failures, 1)
		assert.Equal(t, reflect.SliceOf(validatorType), verifyErr.Failures[0].ServiceType)
	})

	t.Run("verify passes healthy element decoratee factories", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient, testutil.NewLengthValidator))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Validator](c, newLazyValidator))

		require.NoError(t, c.Verify())
	})

	t.Run("invalid item", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		err := ioc.RegisterCollectionOf[testutil.Validator](c, ioc.Transient, 42)
		testutil.AssertConfigurationError(t, err, nil)
	})

	t.Run("default lifestyle", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t, ioc.WithDefaultLifestyle(ioc.Singleton))
		require.NoError(t, ioc.RegisterCollectionOf[testutil.Validator](c, nil, testutil.NewLengthValidator))

		first := testutil.RequireResolve[[]testutil.Validator](t, c)
		second := testutil.RequireResolve[[]testutil.Validator](t, c)
		assert.Same(t, first[0], second[0])
	})
}

func TestCollection_Uncontrolled(t *testing.T) {
	t.Run("supplier is called on every resolution", func(t *testing.T) {
		t.Parallel()

		var calls testutil.Counter
		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterUncontrolledCollectionOf[testutil.Validator](c, func() []testutil.Validator {
			calls.Inc()
			return []testutil.Validator{testutil.NewLengthValidator()}
		}))

		testutil.RequireResolve[[]testutil.Validator](t, c)
		testutil.RequireResolve[[]testutil.Validator](t, c)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("static slice", func(t *testing.T) {
		t.Parallel()

		items := []testutil.Validator{testutil.NewNotEmptyValidator()}
		c := testutil.NewContainer(t)
		require.NoError(t, c.RegisterUncontrolledCollection(validatorType, items))

		validators := testutil.RequireResolve[[]testutil.Validator](t, c)
		require.Len(t, validators, 1)
		assert.Same(t, items[0], validators[0])
	})

	t.Run("elements are decorated as transients", func(t *testing.T) {
		t.Parallel()

		element := testutil.NewLengthValidator()
		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterUncontrolledCollectionOf[testutil.Validator](c, func() []testutil.Validator {
			return []testutil.Validator{element}
		}))
		require.NoError(t, ioc.RegisterDecoratorFor[testutil.Validator](c, testutil.NewTracingValidator,
			ioc.WithDecoratorLifestyle(ioc.Singleton),
		))

		first := testutil.RequireResolve[[]testutil.Validator](t, c)
		second := testutil.RequireResolve[[]testutil.Validator](t, c)

		require.Len(t, first, 1)
		tracing, ok := first[0].(*testutil.TracingValidator)
		require.True(t, ok)
		assert.Same(t, element, tracing.Inner)
		assert.NotSame(t, first[0], second[0])
	})

	t.Run("supplier error", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, c.RegisterUncontrolledCollection(validatorType, func() ([]testutil.Validator, error) {
			return nil, testutil.ErrTest
		}))

		_, err := ioc.Resolve[[]testutil.Validator](c)
		assert.ErrorIs(t, err, testutil.ErrTest)
	})

	t.Run("panicking supplier", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterUncontrolledCollectionOf[testutil.Validator](c, func() []testutil.Validator {
			var empty []testutil.Validator
			return []testutil.Validator{empty[3]}
		}))

		var err error
		require.NotPanics(t, func() { err = c.Verify() })
		require.Error(t, err)

		var panicErr *ioc.ConstructorPanicError
		require.True(t, errors.As(err, &panicErr))
		assert.NotEmpty(t, panicErr.Stack)
		assert.True(t, ioc.IsActivationError(err))

		require.NotPanics(t, func() { _, err = ioc.Resolve[[]testutil.Validator](c) })
		assert.ErrorAs(t, err, &panicErr)
	})

	t.Run("nil element", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, ioc.RegisterUncontrolledCollectionOf[testutil.Validator](c, func() []testutil.Validator {
			return []testutil.Validator{testutil.NewLengthValidator(), nil}
		}))

		var nilErr *ioc.CollectionItemNilError
		err := c.Verify()
		require.True(t, errors.As(err, &nilErr))
		assert.Equal(t, validatorType, nilErr.ElementType)
	})

	t.Run("invalid supplier", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		testutil.AssertConfigurationError(t, c.RegisterUncontrolledCollection(validatorType, nil), ioc.ErrInvalidSupplier)
		testutil.AssertConfigurationError(t, c.RegisterUncontrolledCollection(validatorType, func() []int { return nil }), ioc.ErrInvalidSupplier)
		testutil.AssertConfigurationError(t, c.RegisterUncontrolledCollection(validatorType, func(int) []testutil.Validator { return nil }), ioc.ErrInvalidSupplier)
	})
}
