// Package digresolver lets an ioc.Container fall back to a dig container for
// types it has no registration for.
//
//	d := dig.New()
//	d.Provide(NewConfig)
//
//	c := ioc.New()
//	c.OnResolveUnregisteredType(digresolver.Resolver(d))
package digresolver

import (
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/plan"
)

// Resolver returns a handler that resolves unregistered types from d. The
// value is taken from d once and registered as a singleton. Types d cannot
// provide are left unhandled; a failing dig constructor is reported as an
// activation error.
func Resolver(d *dig.Container) ioc.UnregisteredTypeHandler {
	return func(e *ioc.UnregisteredTypeEventArgs) error {
		value, ok, err := Lookup(d, e.ServiceType)
		if err != nil {
			return &ioc.ActivationError{ServiceType: e.ServiceType, Cause: err}
		}
		if !ok {
			return nil
		}

		return e.Register(&registration{serviceType: e.ServiceType, value: value})
	}
}

// Lookup resolves t from d. It reports false if d has no provider for t or
// the provided value is the zero value.
func Lookup(d *dig.Container, t reflect.Type) (any, bool, error) {
	// dig.In with an optional field lets dig report a missing type as a
	// zero value instead of an error.
	params := reflect.StructOf([]reflect.StructField{
		{Name: "In", Type: reflect.TypeOf(dig.In{}), Anonymous: true},
		{Name: "Value", Type: t, Tag: `optional:"true"`},
	})

	var value reflect.Value
	fn := reflect.MakeFunc(reflect.FuncOf([]reflect.Type{params}, nil, false), func(args []reflect.Value) []reflect.Value {
		value = args[0].Field(1)
		return nil
	})

	if err := d.Invoke(fn.Interface()); err != nil {
		return nil, false, err
	}

	if !value.IsValid() || value.IsZero() {
		return nil, false, nil
	}

	return value.Interface(), true, nil
}

// registration serves a value taken from dig.
type registration struct {
	serviceType reflect.Type
	value       any
}

func (r *registration) Lifestyle() ioc.Lifestyle { return ioc.Singleton }

func (r *registration) ImplementationType() reflect.Type { return reflect.TypeOf(r.value) }

func (r *registration) BuildPlan(*ioc.BuildContext) (plan.Plan, error) {
	return plan.NewConstant(r.value), nil
}
