package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/internal/typename"
)

// OpenDecorator is a decorator for a generic service type. Go cannot
// instantiate generic functions at runtime, so an OpenDecorator is built from
// the instantiations that should be available:
//
//	d, err := ioc.NewOpenDecorator(
//	    NewLoggingHandler[CreateUser],
//	    NewLoggingHandler[DeleteUser],
//	)
//
// When a Handler[CreateUser] is built, the instantiation whose type arguments
// match is applied. Services without a matching instantiation are left alone.
type OpenDecorator struct {
	definition string
	closed     map[string]any
	order      []string
}

// NewOpenDecorator creates an OpenDecorator from instantiations of one
// generic decorator.
func NewOpenDecorator(constructors ...any) (*OpenDecorator, error) {
	if len(constructors) == 0 {
		return nil, &ConfigurationError{Operation: "decorate", Cause: ErrEmptyOpenDecorator}
	}

	d := &OpenDecorator{closed: make(map[string]any, len(constructors))}

	for _, ctor := range constructors {
		t := reflect.TypeOf(ctor)
		if t == nil || t.Kind() != reflect.Func || t.NumOut() == 0 {
			return nil, &ConfigurationError{Operation: "decorate", Cause: fmt.Errorf("decorator must be a function, got %T", ctor)}
		}

		definition, args, ok := typename.Generic(t.Out(0))
		if !ok {
			return nil, &ConfigurationError{ServiceType: t.Out(0), Operation: "decorate", Cause: ErrNotGeneric}
		}

		if d.definition == "" {
			d.definition = definition
		} else if d.definition != definition {
			return nil, &ConfigurationError{
				ServiceType: t.Out(0),
				Operation:   "decorate",
				Cause:       fmt.Errorf("%w: %s and %s", ErrMixedOpenDecorator, d.definition, definition),
			}
		}

		if _, exists := d.closed[args]; exists {
			return nil, &ConfigurationError{ServiceType: t.Out(0), Operation: "decorate", Cause: ErrDuplicateClosedDecorator}
		}

		d.closed[args] = ctor
		d.order = append(d.order, args)
	}

	return d, nil
}

// Definition returns the name of the generic decorator type, without type
// arguments.
func (d *OpenDecorator) Definition() string {
	return d.definition
}

// Len returns the number of instantiations.
func (d *OpenDecorator) Len() int {
	return len(d.order)
}

// close picks the instantiation for serviceType. Type arguments are taken
// from the service type first and from the implementation type second.
func (d *OpenDecorator) close(a *reflection.Analyzer, serviceType, implementationType reflect.Type) (*closedDecorator, bool, error) {
	for _, t := range []reflect.Type{serviceType, implementationType} {
		if t == nil {
			continue
		}

		_, args, ok := typename.Generic(t)
		if !ok {
			continue
		}

		ctor, ok := d.closed[args]
		if !ok {
			continue
		}

		cd, err := newClosedDecorator(a, serviceType, ctor)
		if err != nil {
			if isNotApplicable(err) {
				continue
			}
			return nil, false, err
		}

		return cd, true, nil
	}

	return nil, false, nil
}
