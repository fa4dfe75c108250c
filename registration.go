package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/plan"
)

// Registration knows how to build the construction plan of one service.
// Registrations are created by a Lifestyle and owned by an InstanceProducer.
type Registration interface {
	// Lifestyle returns the reuse policy applied by the registration.
	Lifestyle() Lifestyle

	// ImplementationType returns the concrete type the plan produces.
	ImplementationType() reflect.Type

	// BuildPlan builds the undecorated plan. Dependencies are resolved
	// through bc so the whole graph is built in one context.
	BuildPlan(bc *BuildContext) (plan.Plan, error)
}

// dependencyLister is implemented by registrations that know the service
// types they resolve from the container.
type dependencyLister interface {
	dependencies() []reflect.Type
}

// elementLister is implemented by collection registrations whose elements
// have producers of their own.
type elementLister interface {
	elementProducers() []*InstanceProducer
}

// constructorRegistration builds a service by calling a constructor whose
// parameters are resolved from the container.
type constructorRegistration struct {
	container   *Container
	lifestyle   *lifestyle
	serviceType reflect.Type
	constructor reflect.Value
	params      []reflect.Type
	returnType  reflect.Type
	overrides   map[int]plan.Plan

	// cell holds the singleton instance. It belongs to the registration so
	// that rebuilding the plan never creates a second instance.
	cell *instanceCell
}

func newConstructorRegistration(c *Container, l *lifestyle, serviceType reflect.Type, constructor any, overrides []OverriddenParameter) (*constructorRegistration, error) {
	if serviceType == nil {
		return nil, &ConfigurationError{Operation: "register", Cause: ErrServiceTypeNil}
	}

	if constructor == nil {
		return nil, &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: ErrConstructorNil}
	}

	info, err := c.analyzer.Analyze(constructor)
	if err != nil {
		return nil, &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: err}
	}

	if !info.ReturnType.AssignableTo(serviceType) {
		return nil, &ConfigurationError{
			ServiceType: serviceType,
			Operation:   "register",
			Cause:       fmt.Errorf("constructor returns %s, which is not assignable to %s", formatType(info.ReturnType), formatType(serviceType)),
		}
	}

	r := &constructorRegistration{
		container:   c,
		lifestyle:   l,
		serviceType: serviceType,
		constructor: reflect.ValueOf(constructor),
		returnType:  info.ReturnType,
		overrides:   make(map[int]plan.Plan, len(overrides)),
		cell:        newInstanceCell(c.lifecycle.track),
	}

	r.params = make([]reflect.Type, len(info.Parameters))
	for _, p := range info.Parameters {
		r.params[p.Index] = p.Type
	}

	for _, o := range overrides {
		if o.Index < 0 || o.Index >= len(r.params) {
			return nil, &ConfigurationError{
				ServiceType: serviceType,
				Operation:   "register",
				Cause:       fmt.Errorf("overridden parameter index %d is out of range for %s", o.Index, formatType(info.Type)),
			}
		}

		if o.Plan == nil {
			return nil, &ConfigurationError{
				ServiceType: serviceType,
				Operation:   "register",
				Cause:       fmt.Errorf("overridden parameter %d has no plan", o.Index),
			}
		}

		r.overrides[o.Index] = o.Plan
	}

	return r, nil
}

func (r *constructorRegistration) Lifestyle() Lifestyle             { return r.lifestyle }
func (r *constructorRegistration) ImplementationType() reflect.Type { return r.returnType }

func (r *constructorRegistration) dependencies() []reflect.Type {
	deps := make([]reflect.Type, 0, len(r.params))
	for i, t := range r.params {
		if _, ok := r.overrides[i]; !ok {
			deps = append(deps, t)
		}
	}
	return deps
}

func (r *constructorRegistration) BuildPlan(bc *BuildContext) (plan.Plan, error) {
	args := make([]plan.Plan, len(r.params))

	for i, paramType := range r.params {
		if o, ok := r.overrides[i]; ok {
			args[i] = o
			continue
		}

		dep, err := r.container.producerFor(paramType)
		if err != nil {
			return nil, &ActivationError{ServiceType: r.returnType, Cause: err}
		}

		if err := r.checkLifestyle(dep); err != nil {
			return nil, err
		}

		depPlan, err := dep.buildPlan(bc)
		if err != nil {
			return nil, err
		}

		args[i] = depPlan
	}

	construct, err := plan.NewConstruct(r.constructor, args)
	if err != nil {
		return nil, &ConfigurationError{ServiceType: r.serviceType, Operation: "build", Cause: err}
	}

	if r.lifestyle.policy == reuseContainer {
		if captured := scopedCapture(construct); captured != nil {
			return nil, r.mismatch(captured.Type, Scoped)
		}
	}

	return r.lifestyle.apply(r, construct), nil
}

// scopedCapture returns the first scoped plan that an instance built by p
// would hold on to. Singletons are not entered: they are checked when their
// own plan is built.
func scopedCapture(p plan.Plan) *plan.Invoke {
	switch n := p.(type) {
	case *plan.Invoke:
		switch n.Name {
		case singletonPlanName:
			return nil
		case scopedPlanName:
			return n
		}
		if n.Inner != nil {
			return scopedCapture(n.Inner)
		}

	case *plan.Construct:
		for _, arg := range n.Args {
			if captured := scopedCapture(arg); captured != nil {
				return captured
			}
		}

	case *plan.Decorate:
		return scopedCapture(n.Outer)

	case *plan.Sequence:
		for _, item := range n.Items {
			if captured := scopedCapture(item); captured != nil {
				return captured
			}
		}
	}

	return nil
}

// checkLifestyle rejects singletons that capture scoped dependencies.
func (r *constructorRegistration) checkLifestyle(dep *InstanceProducer) error {
	if r.lifestyle.policy != reuseContainer {
		return nil
	}

	depLifestyle := dep.Lifestyle()
	if depLifestyle == nil || depLifestyle != Scoped {
		return nil
	}

	return r.mismatch(dep.ServiceType(), depLifestyle)
}

func (r *constructorRegistration) mismatch(dependencyType reflect.Type, dependencyLifestyle Lifestyle) error {
	return &ConfigurationError{
		ServiceType: r.serviceType,
		Operation:   "build",
		Cause: &LifestyleMismatchError{
			ServiceType:         r.serviceType,
			ServiceLifestyle:    r.lifestyle,
			DependencyType:      dependencyType,
			DependencyLifestyle: dependencyLifestyle,
		},
	}
}

// planRegistration wraps a plan that was built elsewhere, such as an
// instance or the undecorated state of a decorated service.
type planRegistration struct {
	container   *Container
	lifestyle   Lifestyle
	serviceType reflect.Type
	plan        plan.Plan
}

func newPlanRegistration(c *Container, l Lifestyle, serviceType reflect.Type, p plan.Plan) *planRegistration {
	return &planRegistration{
		container:   c,
		lifestyle:   l,
		serviceType: serviceType,
		plan:        p,
	}
}

func (r *planRegistration) Lifestyle() Lifestyle { return r.lifestyle }

func (r *planRegistration) ImplementationType() reflect.Type {
	if r.plan == nil {
		return r.serviceType
	}
	return r.plan.ImplementationType()
}

func (r *planRegistration) BuildPlan(*BuildContext) (plan.Plan, error) {
	if r.plan == nil {
		return nil, &ConfigurationError{ServiceType: r.serviceType, Operation: "build", Cause: fmt.Errorf("registration has no plan")}
	}
	return r.plan, nil
}

// lifestyleOf infers a lifestyle from the shape of a plan: constants are
// reused forever and constructions are fresh every time.
func lifestyleOf(p plan.Plan) Lifestyle {
	switch p.(type) {
	case *plan.Constant:
		return Singleton
	case *plan.Construct:
		return Transient
	default:
		return Unknown
	}
}
