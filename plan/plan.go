// Package plan describes how a single value is constructed.
//
// A Plan is an inspectable, not yet executed construction recipe. Plans are
// built by registrations, rewritten by interceptors such as decorators and
// finally turned into a Factory by Compile. Plans are immutable once built:
// rewriting a plan always produces a new node that refers to the old one.
package plan

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/typename"
)

// Kind identifies the variant of a Plan.
type Kind int

const (
	// KindConstruct calls a constructor function with argument plans.
	KindConstruct Kind = iota

	// KindConstant returns a fixed value.
	KindConstant

	// KindInvoke calls a delegate.
	KindInvoke

	// KindDecorate wraps an inner plan with a decorator.
	KindDecorate

	// KindSequence builds a slice from element plans.
	KindSequence

	// KindArgument yields the value bound with WithArgument.
	KindArgument
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindConstruct:
		return "Construct"
	case KindConstant:
		return "Constant"
	case KindInvoke:
		return "Invoke"
	case KindDecorate:
		return "Decorate"
	case KindSequence:
		return "Sequence"
	case KindArgument:
		return "Argument"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Plan is a composable description of how to build one value.
type Plan interface {
	// Kind returns the variant of this plan.
	Kind() Kind

	// ImplementationType returns the type this plan produces. For decorated
	// plans this is the outermost decorator.
	ImplementationType() reflect.Type

	// String renders the plan for diagnostics.
	String() string
}

var (
	_ Plan = (*Construct)(nil)
	_ Plan = (*Constant)(nil)
	_ Plan = (*Invoke)(nil)
	_ Plan = (*Decorate)(nil)
	_ Plan = (*Sequence)(nil)
	_ Plan = (*Argument)(nil)
)

// Construct calls Constructor with the values produced by Args.
type Construct struct {
	// Constructor is a function returning T or (T, error).
	Constructor reflect.Value

	// Type is the first return type of Constructor.
	Type reflect.Type

	// Args holds one plan per constructor parameter.
	Args []Plan

	// HasError reports whether Constructor returns a trailing error.
	HasError bool
}

// NewConstruct validates the constructor signature against the argument
// plans and returns a Construct node.
func NewConstruct(constructor reflect.Value, args []Plan) (*Construct, error) {
	if !constructor.IsValid() || constructor.Kind() != reflect.Func || constructor.IsNil() {
		return nil, fmt.Errorf("plan: constructor must be a non-nil function")
	}

	fnType := constructor.Type()
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("plan: variadic constructor %s is not supported", fnType)
	}

	if fnType.NumIn() != len(args) {
		return nil, fmt.Errorf("plan: constructor %s takes %d parameters, got %d argument plans",
			fnType, fnType.NumIn(), len(args))
	}

	hasError := false
	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("plan: second return value of %s must be error", fnType)
		}
		hasError = true
	default:
		return nil, fmt.Errorf("plan: constructor %s must return T or (T, error)", fnType)
	}

	for i, arg := range args {
		if arg == nil {
			return nil, fmt.Errorf("plan: argument plan %d of %s is nil", i, fnType)
		}
	}

	return &Construct{
		Constructor: constructor,
		Type:        fnType.Out(0),
		Args:        args,
		HasError:    hasError,
	}, nil
}

func (c *Construct) Kind() Kind                       { return KindConstruct }
func (c *Construct) ImplementationType() reflect.Type { return c.Type }

func (c *Construct) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("new %s(%s)", typename.Format(c.Type), strings.Join(args, ", "))
}

// Constant always yields Value.
type Constant struct {
	Value any
	Type  reflect.Type
}

// NewConstant returns a Constant of the dynamic type of value.
func NewConstant(value any) *Constant {
	return &Constant{Value: value, Type: reflect.TypeOf(value)}
}

func (c *Constant) Kind() Kind                       { return KindConstant }
func (c *Constant) ImplementationType() reflect.Type { return c.Type }
func (c *Constant) String() string                   { return fmt.Sprintf("const %s", typename.Format(c.Type)) }

// Invoke calls Func. Lifestyle caches, factories and external resolvers are
// expressed as Invoke nodes.
type Invoke struct {
	// Name describes the delegate for diagnostics.
	Name string
	Type reflect.Type
	Func func(s Scope) (any, error)

	// Inner is the plan the delegate evaluates, when there is one.
	Inner Plan
}

func (i *Invoke) Kind() Kind                       { return KindInvoke }
func (i *Invoke) ImplementationType() reflect.Type { return i.Type }

func (i *Invoke) String() string {
	if i.Inner != nil {
		return fmt.Sprintf("%s(%s)", i.Name, i.Inner.String())
	}
	return fmt.Sprintf("%s %s", i.Name, typename.Format(i.Type))
}

// Decorate records that Outer wraps Inner. Evaluating a Decorate evaluates
// Outer; Inner is kept so the decorator chain stays inspectable.
type Decorate struct {
	ServiceType reflect.Type
	Decorator   reflect.Type
	Inner       Plan
	Outer       Plan
}

func (d *Decorate) Kind() Kind { return KindDecorate }

func (d *Decorate) ImplementationType() reflect.Type {
	if t := d.Outer.ImplementationType(); t != nil {
		return t
	}
	return d.Decorator
}

func (d *Decorate) String() string {
	return fmt.Sprintf("decorate %s with %s(%s)",
		typename.Format(d.ServiceType), typename.Format(d.Decorator), d.Inner.String())
}

// Sequence builds a []ElementType from Items.
type Sequence struct {
	ElementType reflect.Type
	Items       []Plan
}

func (s *Sequence) Kind() Kind                       { return KindSequence }
func (s *Sequence) ImplementationType() reflect.Type { return reflect.SliceOf(s.ElementType) }

func (s *Sequence) String() string {
	items := make([]string, len(s.Items))
	for i, item := range s.Items {
		items[i] = item.String()
	}
	return fmt.Sprintf("[]%s{%s}", typename.Format(s.ElementType), strings.Join(items, ", "))
}

// Argument yields the value bound to the evaluation scope with WithArgument.
type Argument struct {
	Type reflect.Type
}

func (a *Argument) Kind() Kind                       { return KindArgument }
func (a *Argument) ImplementationType() reflect.Type { return a.Type }
func (a *Argument) String() string                   { return fmt.Sprintf("arg %s", typename.Format(a.Type)) }

// Decorators returns the decorator types applied to p, innermost first.
func Decorators(p Plan) []reflect.Type {
	var chain []reflect.Type
	for {
		d, ok := p.(*Decorate)
		if !ok {
			break
		}
		chain = append(chain, d.Decorator)
		p = d.Inner
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}

// Undecorated strips every Decorate node from the top of p.
func Undecorated(p Plan) Plan {
	for {
		d, ok := p.(*Decorate)
		if !ok {
			return p
		}
		p = d.Inner
	}
}
