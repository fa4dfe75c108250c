package ioc

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/plan"
)

// RegisterCollection registers a collection of elementType, resolvable as
// []elementType. Each item is either a constructor, built with lifestyle, or
// an instance assignable to elementType. Decorators registered for
// elementType are applied to every element.
//
// Example:
//
//	c.RegisterCollection(reflect.TypeOf((*Validator)(nil)).Elem(), ioc.Singleton,
//	    NewEmailValidator,
//	    NewLengthValidator,
//	)
func (c *Container) RegisterCollection(elementType reflect.Type, lifestyle Lifestyle, items ...any) error {
	if elementType == nil {
		return &ConfigurationError{Operation: "register collection", Cause: ErrServiceTypeNil}
	}

	if lifestyle == nil {
		lifestyle = c.options.DefaultLifestyle
	}

	r := &collectionRegistration{
		container:   c,
		elementType: elementType,
		elements:    make([]*InstanceProducer, 0, len(items)),
	}

	for i, item := range items {
		registration, err := c.collectionItem(elementType, lifestyle, item)
		if err != nil {
			return &ConfigurationError{
				ServiceType: reflect.SliceOf(elementType),
				Operation:   "register collection",
				Cause:       fmt.Errorf("item %d: %w", i, err),
			}
		}

		r.elements = append(r.elements, newInstanceProducer(elementType, registration, c))
	}

	return c.AddRegistration(reflect.SliceOf(elementType), r)
}

func (c *Container) collectionItem(elementType reflect.Type, lifestyle Lifestyle, item any) (Registration, error) {
	if item == nil {
		return newPlanRegistration(c, Singleton, elementType, &plan.Constant{Type: elementType}), nil
	}

	t := reflect.TypeOf(item)
	if t.AssignableTo(elementType) {
		return newPlanRegistration(c, Singleton, elementType, plan.NewConstant(item)), nil
	}

	if t.Kind() == reflect.Func {
		return lifestyle.CreateRegistration(elementType, item, c)
	}

	return nil, fmt.Errorf("%s is neither a constructor nor assignable to %s", formatType(t), formatType(elementType))
}

// collectionRegistration builds all elements of a collection.
type collectionRegistration struct {
	container   *Container
	elementType reflect.Type
	elements    []*InstanceProducer
}

func (r *collectionRegistration) Lifestyle() Lifestyle { return Transient }

func (r *collectionRegistration) ImplementationType() reflect.Type {
	return reflect.SliceOf(r.elementType)
}

func (r *collectionRegistration) BuildPlan(bc *BuildContext) (plan.Plan, error) {
	items := make([]plan.Plan, len(r.elements))
	for i, element := range r.elements {
		p, err := element.buildPlan(bc)
		if err != nil {
			return nil, plan.Annotate(err, r.ImplementationType())
		}
		items[i] = p
	}

	return &plan.Sequence{ElementType: r.elementType, Items: items}, nil
}

func (r *collectionRegistration) elementProducers() []*InstanceProducer {
	return r.elements
}

func (r *collectionRegistration) dependencies() []reflect.Type {
	var deps []reflect.Type
	seen := make(map[reflect.Type]bool)
	for _, element := range r.elements {
		for _, dep := range element.dependencies() {
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

// RegisterUncontrolledCollection registers a collection whose elements are
// supplied from outside the container, resolvable as []elementType. The
// supplier is a []elementType, a func() []elementType or a
// func() ([]elementType, error); functions are called on every resolution.
//
// The container does not own the elements: they are not disposed, and
// decorators for elementType wrap them as transients on every resolution.
func (c *Container) RegisterUncontrolledCollection(elementType reflect.Type, supplier any) error {
	if elementType == nil {
		return &ConfigurationError{Operation: "register collection", Cause: ErrServiceTypeNil}
	}

	sliceType := reflect.SliceOf(elementType)

	fetch, err := collectionSupplier(sliceType, supplier)
	if err != nil {
		return &ConfigurationError{ServiceType: sliceType, Operation: "register collection", Cause: err}
	}

	return c.AddRegistration(sliceType, &uncontrolledCollectionRegistration{
		container:   c,
		elementType: elementType,
		fetch:       fetch,
	})
}

func collectionSupplier(sliceType reflect.Type, supplier any) (func() (reflect.Value, error), error) {
	if supplier == nil {
		return nil, ErrInvalidSupplier
	}

	v := reflect.ValueOf(supplier)
	t := v.Type()

	if t == sliceType {
		return func() (reflect.Value, error) { return v, nil }, nil
	}

	if t.Kind() != reflect.Func || t.NumIn() != 0 || v.IsNil() {
		return nil, ErrInvalidSupplier
	}

	switch {
	case t.NumOut() == 1 && t.Out(0) == sliceType:
		return func() (reflect.Value, error) {
			out, err := callSupplier(v)
			if err != nil {
				return reflect.Value{}, err
			}
			return out[0], nil
		}, nil

	case reflection.FactoryReturnsError(t) && t.Out(0) == sliceType:
		return func() (reflect.Value, error) {
			out, err := callSupplier(v)
			if err != nil {
				return reflect.Value{}, err
			}
			if !out[1].IsNil() {
				return reflect.Value{}, out[1].Interface().(error)
			}
			return out[0], nil
		}, nil

	default:
		return nil, ErrInvalidSupplier
	}
}

// callSupplier calls a supplier function, recovering a panic into a
// ConstructorPanicError.
func callSupplier(v reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ConstructorPanicError{
				Constructor: v.Type(),
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	return v.Call(nil), nil
}

// uncontrolledCollectionRegistration materializes a supplied collection,
// decorating each element.
type uncontrolledCollectionRegistration struct {
	container   *Container
	elementType reflect.Type
	fetch       func() (reflect.Value, error)
}

func (r *uncontrolledCollectionRegistration) Lifestyle() Lifestyle { return Transient }

func (r *uncontrolledCollectionRegistration) ImplementationType() reflect.Type {
	return reflect.SliceOf(r.elementType)
}

func (r *uncontrolledCollectionRegistration) BuildPlan(bc *BuildContext) (plan.Plan, error) {
	sliceType := reflect.SliceOf(r.elementType)

	element, err := r.container.decorateElement(bc, r.elementType, &plan.Argument{Type: r.elementType})
	if err != nil {
		return nil, err
	}

	_, decorated := element.(*plan.Decorate)
	decorate := plan.Compile(element)

	return &plan.Invoke{
		Name:  "uncontrolled collection",
		Type:  sliceType,
		Inner: element,
		Func: func(s plan.Scope) (any, error) {
			items, err := r.fetch()
			if err != nil {
				return nil, plan.Annotate(err, sliceType)
			}

			out := reflect.MakeSlice(sliceType, 0, items.Len())
			for i := 0; i < items.Len(); i++ {
				item := items.Index(i).Interface()
				if plan.IsNil(item) {
					return nil, &ActivationError{
						ServiceType: sliceType,
						Cause:       &CollectionItemNilError{ElementType: r.elementType},
					}
				}

				if decorated {
					item, err = decorate(plan.WithArgument(s, item))
					if err != nil {
						return nil, plan.Annotate(err, sliceType)
					}
				}

				v := reflect.New(r.elementType).Elem()
				v.Set(reflect.ValueOf(item))
				out = reflect.Append(out, v)
			}

			return out.Interface(), nil
		},
	}, nil
}

// decorateElement runs the registered decorators over an uncontrolled
// collection's element plan.
func (c *Container) decorateElement(bc *BuildContext, elementType reflect.Type, element plan.Plan) (plan.Plan, error) {
	c.mu.RLock()
	decorators := c.decorators
	c.mu.RUnlock()

	producer := bc.Producer()

	var err error
	for _, d := range decorators {
		element, err = d.decorateElement(bc, producer, elementType, element)
		if err != nil {
			return nil, err
		}
	}

	return element, nil
}
