package plan

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Factory is a compiled plan.
type Factory func(s Scope) (any, error)

// Scope is the reuse boundary a factory runs in. A nil Scope means that no
// scope is active.
type Scope interface {
	// GetOrCreate returns the value cached under key, calling create once if
	// there is none yet.
	GetOrCreate(key any, create func() (any, error)) (any, error)
}

// argumentScope binds the value read by Argument plans.
type argumentScope struct {
	parent Scope
	value  any
}

// WithArgument returns a scope that delegates to parent and binds value to
// every Argument plan evaluated under it.
func WithArgument(parent Scope, value any) Scope {
	return &argumentScope{parent: parent, value: value}
}

func (a *argumentScope) GetOrCreate(key any, create func() (any, error)) (any, error) {
	if a.parent == nil {
		return nil, ErrNoActiveScope
	}
	return a.parent.GetOrCreate(key, create)
}

// Compile turns a plan into a Factory. Compilation only creates closures;
// nothing is constructed until the factory is called.
func Compile(p Plan) Factory {
	switch n := p.(type) {
	case *Constant:
		value := n.Value
		return func(Scope) (any, error) {
			return value, nil
		}

	case *Invoke:
		if n.Func == nil {
			return failed(fmt.Errorf("plan: invoke %q has no delegate", n.Name))
		}
		return n.Func

	case *Decorate:
		return Compile(n.Outer)

	case *Construct:
		return compileConstruct(n)

	case *Sequence:
		return compileSequence(n)

	case *Argument:
		return func(s Scope) (any, error) {
			if a, ok := s.(*argumentScope); ok {
				return a.value, nil
			}
			return nil, fmt.Errorf("plan: no argument bound for %s", n.String())
		}

	case nil:
		return failed(errors.New("plan: nil plan"))

	default:
		return failed(fmt.Errorf("plan: unsupported plan %T", p))
	}
}

func failed(err error) Factory {
	return func(Scope) (any, error) {
		return nil, err
	}
}

func compileConstruct(c *Construct) Factory {
	args := make([]Factory, len(c.Args))
	for i, arg := range c.Args {
		args[i] = Compile(arg)
	}

	fnType := c.Constructor.Type()

	// Constant and Argument plans bind a value on purpose, so a nil from
	// them is passed through as the zero value.
	bound := make([]bool, len(c.Args))
	for i, arg := range c.Args {
		switch arg.(type) {
		case *Constant, *Argument:
			bound[i] = true
		}
	}

	return func(s Scope) (any, error) {
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := arg(s)
			if err != nil {
				return nil, Annotate(err, c.Type)
			}

			if !bound[i] && IsNil(v) {
				nilErr := &ActivationError{ServiceType: fnType.In(i), Cause: ErrNilInstance}
				return nil, nilErr.WithContext(c.Type)
			}

			in[i], err = argumentValue(v, fnType.In(i))
			if err != nil {
				return nil, &ActivationError{ServiceType: c.Type, Cause: err}
			}
		}

		return invoke(c, in)
	}
}

func invoke(c *Construct, in []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil

			// A decoratee factory called by the constructor reports its
			// failure by panicking with the activation error.
			if activationErr, ok := r.(*ActivationError); ok {
				err = activationErr.WithContext(c.Type)
				return
			}

			err = &ActivationError{
				ServiceType: c.Type,
				Cause: &ConstructorPanicError{
					Constructor: c.Constructor.Type(),
					Panic:       r,
					Stack:       debug.Stack(),
				},
			}
		}
	}()

	out := c.Constructor.Call(in)

	if c.HasError {
		if last := out[len(out)-1]; !last.IsNil() {
			return nil, Annotate(last.Interface().(error), c.Type)
		}
	}

	return out[0].Interface(), nil
}

func compileSequence(s *Sequence) Factory {
	items := make([]Factory, len(s.Items))
	for i, item := range s.Items {
		items[i] = Compile(item)
	}

	sliceType := reflect.SliceOf(s.ElementType)

	return func(scope Scope) (any, error) {
		slice := reflect.MakeSlice(sliceType, 0, len(items))
		for _, item := range items {
			v, err := item(scope)
			if err != nil {
				return nil, Annotate(err, sliceType)
			}

			if IsNil(v) {
				return nil, &ActivationError{
					ServiceType: sliceType,
					Cause:       &CollectionItemNilError{ElementType: s.ElementType},
				}
			}

			rv, err := argumentValue(v, s.ElementType)
			if err != nil {
				return nil, &ActivationError{ServiceType: sliceType, Cause: err}
			}
			slice = reflect.Append(slice, rv)
		}

		return slice.Interface(), nil
	}
}

// argumentValue converts v to a value assignable to target. A nil v becomes
// the zero value of target.
func argumentValue(v any, target reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(target), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}

	return reflect.Value{}, fmt.Errorf("plan: value of type %s is not assignable to %s", rv.Type(), target)
}

// IsNil reports whether v is nil or a typed nil.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
