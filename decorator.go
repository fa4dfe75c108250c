package ioc

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/plan"
)

// DecoratorOption configures a decorator registration.
type DecoratorOption interface {
	apply(*decoratorOptions)
}

type decoratorOptions struct {
	predicate Predicate
	lifestyle Lifestyle
}

type decoratorOptionFunc func(*decoratorOptions)

func (f decoratorOptionFunc) apply(opts *decoratorOptions) {
	f(opts)
}

// When applies the decorator only where predicate returns true.
func When(predicate Predicate) DecoratorOption {
	return decoratorOptionFunc(func(opts *decoratorOptions) {
		opts.predicate = predicate
	})
}

// WithDecoratorLifestyle sets the decorator's own lifestyle. By default a
// decorator has the lifestyle of the registration it decorates.
func WithDecoratorLifestyle(l Lifestyle) DecoratorOption {
	return decoratorOptionFunc(func(opts *decoratorOptions) {
		opts.lifestyle = l
	})
}

// Keys of the per-build decoration history. All decorators share one history
// per producer; uncontrolled collections keep a separate one.
var (
	decoratorInfoKey             = &struct{ name string }{"decorators"}
	uncontrolledDecoratorInfoKey = &struct{ name string }{"uncontrolled decorators"}
)

// closedDecorator is a decorator constructor bound to one service type.
type closedDecorator struct {
	serviceType reflect.Type
	constructor any
	info        *reflection.ConstructorInfo

	// decoratee is the parameter that receives the decorated instance.
	decoratee reflection.ParameterInfo
	isFactory bool
}

func newClosedDecorator(a *reflection.Analyzer, serviceType reflect.Type, constructor any) (*closedDecorator, error) {
	info, err := a.Analyze(constructor)
	if err != nil {
		return nil, err
	}

	if !info.ReturnType.AssignableTo(serviceType) {
		return nil, fmt.Errorf("%w: %s returns %s", ErrDecoratorNotAssignable, formatType(info.Type), formatType(info.ReturnType))
	}

	params := info.ParametersMatching(func(t reflect.Type) bool {
		return t == serviceType || reflection.IsFactoryOf(t, serviceType)
	})

	switch len(params) {
	case 0:
		return nil, fmt.Errorf("%w: %s must accept %s or func() %s",
			ErrNoDecorateeParameter, formatType(info.Type), formatType(serviceType), formatType(serviceType))
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrMultipleDecorateeParams, formatType(info.Type))
	}

	return &closedDecorator{
		serviceType: serviceType,
		constructor: constructor,
		info:        info,
		decoratee:   params[0],
		isFactory:   params[0].Type != serviceType,
	}, nil
}

// decoratorInterceptor applies one registered decorator to the plans of the
// services it matches.
type decoratorInterceptor struct {
	container *Container

	// Exactly one of closed and open is set.
	closed *closedDecorator
	open   *OpenDecorator

	predicate Predicate
	lifestyle Lifestyle
}

// RegisterDecorator registers decorator for serviceType. A decorator is a
// constructor returning serviceType that takes exactly one parameter of type
// serviceType, or of a factory func() serviceType or func() (serviceType,
// error). Its other parameters are resolved from the container.
//
// Decorators are applied in registration order, so the first registered
// decorator wraps the service directly and the last is outermost.
func (c *Container) RegisterDecorator(serviceType reflect.Type, decorator any, opts ...DecoratorOption) error {
	if serviceType == nil {
		return &ConfigurationError{Operation: "decorate", Cause: ErrServiceTypeNil}
	}

	if decorator == nil {
		return &ConfigurationError{ServiceType: serviceType, Operation: "decorate", Cause: ErrConstructorNil}
	}

	closed, err := newClosedDecorator(c.analyzer, serviceType, decorator)
	if err != nil {
		return &ConfigurationError{ServiceType: serviceType, Operation: "decorate", Cause: err}
	}

	return c.addDecorator(&decoratorInterceptor{container: c, closed: closed}, opts)
}

// RegisterOpenDecorator registers a decorator for every instantiation of a
// generic service type that d has a constructor for.
func (c *Container) RegisterOpenDecorator(d *OpenDecorator, opts ...DecoratorOption) error {
	if d == nil {
		return &ConfigurationError{Operation: "decorate", Cause: ErrConstructorNil}
	}

	return c.addDecorator(&decoratorInterceptor{container: c, open: d}, opts)
}

func (c *Container) addDecorator(d *decoratorInterceptor, opts []DecoratorOption) error {
	options := &decoratorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(options)
		}
	}
	d.predicate = options.predicate
	d.lifestyle = options.lifestyle

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked.Load() {
		return &ConfigurationError{ServiceType: d.serviceType(), Operation: "decorate", Cause: ErrContainerLocked}
	}

	c.decorators = append(c.decorators, d)
	c.expressionBuilt = append(c.expressionBuilt, d.intercept)

	c.logger.Debug("registered decorator",
		zap.String("service", formatType(d.serviceType())),
		zap.Bool("open", d.open != nil),
	)

	return nil
}

func (d *decoratorInterceptor) serviceType() reflect.Type {
	if d.closed != nil {
		return d.closed.serviceType
	}
	return nil
}

// decoratorFor returns the decorator to apply to serviceType, or false if
// the decorator does not apply.
func (d *decoratorInterceptor) decoratorFor(serviceType, implementationType reflect.Type) (*closedDecorator, bool, error) {
	if d.closed != nil {
		return d.closed, d.closed.serviceType == serviceType, nil
	}

	return d.open.close(d.container.analyzer, serviceType, implementationType)
}

// intercept is the ExpressionBuilt handler of the decorator.
func (d *decoratorInterceptor) intercept(bc *BuildContext, e *ExpressionBuiltEventArgs) error {
	implementationType := plan.Undecorated(e.Plan).ImplementationType()

	cd, ok, err := d.decoratorFor(e.RegisteredServiceType, implementationType)
	if err != nil {
		return &ConfigurationError{ServiceType: e.RegisteredServiceType, Operation: "decorate", Cause: err}
	}
	if !ok {
		return nil
	}

	lifestyle := d.lifestyle
	if lifestyle == nil {
		lifestyle = e.Lifestyle
	}
	if lifestyle == nil || lifestyle == Unknown {
		lifestyle = Transient
	}

	decorated, err := d.apply(bc, decoratorInfoKey, cd, e.Producer, e.RegisteredServiceType, e.Plan, e.Lifestyle, lifestyle, true)
	if err != nil {
		return err
	}

	e.Plan = decorated
	return nil
}

// decorateElement applies the decorator to the element plan of an
// uncontrolled collection. Such elements are not owned by the container, so
// the decorator is always transient.
func (d *decoratorInterceptor) decorateElement(bc *BuildContext, producer *InstanceProducer, elementType reflect.Type, current plan.Plan) (plan.Plan, error) {
	cd, ok, err := d.decoratorFor(elementType, elementType)
	if err != nil {
		return nil, &ConfigurationError{ServiceType: elementType, Operation: "decorate", Cause: err}
	}
	if !ok {
		return current, nil
	}

	return d.apply(bc, uncontrolledDecoratorInfoKey, cd, producer, elementType, current, Transient, Transient, false)
}

func (d *decoratorInterceptor) apply(
	bc *BuildContext,
	key any,
	cd *closedDecorator,
	producer *InstanceProducer,
	serviceType reflect.Type,
	current plan.Plan,
	registrationLifestyle Lifestyle,
	decoratorLifestyle Lifestyle,
	verifyFactory bool,
) (plan.Plan, error) {
	history := bc.Item(key, func() any {
		return make(map[*InstanceProducer]*ServiceTypeDecoratorInfo)
	}).(map[*InstanceProducer]*ServiceTypeDecoratorInfo)

	info, ok := history[producer]
	if !ok {
		if registrationLifestyle == nil {
			registrationLifestyle = Unknown
		}
		original := newInstanceProducer(serviceType, registrationLifestyle.CreatePlanRegistration(serviceType, current, d.container), d.container)
		original.raise = false

		info = newServiceTypeDecoratorInfo(serviceType, current.ImplementationType(), original)
		history[producer] = info
	}

	if d.predicate != nil && !d.predicate(newDecoratorPredicateContext(serviceType, current, info)) {
		return current, nil
	}

	override := OverriddenParameter{Index: cd.decoratee.Index, Plan: current}
	if cd.isFactory {
		override.Plan = decorateeFactoryPlan(cd.decoratee.Type, serviceType, current)

		if verifyFactory {
			decoratee := plan.Compile(current)
			bc.AddVerifier(producer, func(s plan.Scope) error {
				_, err := decoratee(s)
				return err
			})
		}
	}

	registration, err := decoratorLifestyle.CreateRegistration(serviceType, cd.constructor, d.container, override)
	if err != nil {
		return nil, err
	}

	outer, err := registration.BuildPlan(bc)
	if err != nil {
		return nil, err
	}

	decorated := &plan.Decorate{
		ServiceType: serviceType,
		Decorator:   cd.info.ReturnType,
		Inner:       current,
		Outer:       outer,
	}

	history[producer] = info.withApplied(DecoratorInfo{DecoratorType: cd.info.ReturnType, Plan: decorated})

	return decorated, nil
}

// decorateeFactoryPlan builds a plan producing a func() T (or
// func() (T, error)) that creates the decoratee within the scope the
// decorator was created in.
func decorateeFactoryPlan(factoryType, serviceType reflect.Type, decoratee plan.Plan) plan.Plan {
	create := plan.Compile(decoratee)
	returnsError := reflection.FactoryReturnsError(factoryType)

	return &plan.Invoke{
		Name:  "decoratee factory",
		Type:  factoryType,
		Inner: decoratee,
		Func: func(s plan.Scope) (any, error) {
			fn := reflect.MakeFunc(factoryType, func([]reflect.Value) []reflect.Value {
				v, err := create(s)

				out := reflect.New(serviceType).Elem()
				if err == nil && v != nil {
					out.Set(reflect.ValueOf(v))
				}

				if returnsError {
					errValue := reflect.New(reflect.TypeOf((*error)(nil)).Elem()).Elem()
					if err != nil {
						errValue.Set(reflect.ValueOf(err))
					}
					return []reflect.Value{out, errValue}
				}

				if err != nil {
					panic(err)
				}
				return []reflect.Value{out}
			})

			return fn.Interface(), nil
		},
	}
}

// isNotApplicable reports whether err means a closed decorator simply does
// not decorate the service type it was matched against.
func isNotApplicable(err error) bool {
	return errors.Is(err, ErrNoDecorateeParameter) || errors.Is(err, ErrDecoratorNotAssignable)
}
