package ioc

import (
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/plan"
)

// InstanceProducer produces instances of one service type. It builds the
// service's plan once, on first use, runs it through the ExpressionBuilt
// handlers (decorators among them) and compiles it.
//
// An InstanceProducer is safe for concurrent use. Concurrent first calls may
// each build a plan, but only one is published and every caller uses it.
type InstanceProducer struct {
	serviceType  reflect.Type
	registration Registration
	container    *Container

	// raise controls whether ExpressionBuilt handlers see this producer.
	raise bool

	state atomic.Pointer[producerState]
}

// producerState is the published, immutable result of a build.
type producerState struct {
	plan      plan.Plan
	factory   plan.Factory
	verifiers []Verifier
}

func newInstanceProducer(serviceType reflect.Type, registration Registration, c *Container) *InstanceProducer {
	return &InstanceProducer{
		serviceType:  serviceType,
		registration: registration,
		container:    c,
		raise:        true,
	}
}

// ServiceType returns the type the producer is registered for.
func (p *InstanceProducer) ServiceType() reflect.Type { return p.serviceType }

// Registration returns the producer's registration.
func (p *InstanceProducer) Registration() Registration { return p.registration }

// Lifestyle returns the lifestyle of the producer's registration.
func (p *InstanceProducer) Lifestyle() Lifestyle { return p.registration.Lifestyle() }

// ImplementationType returns the type of the produced instances. Once built,
// this is the outermost decorator's type.
func (p *InstanceProducer) ImplementationType() reflect.Type {
	if st := p.state.Load(); st != nil {
		return st.plan.ImplementationType()
	}
	return p.registration.ImplementationType()
}

// IsBuilt reports whether the producer has published its plan.
func (p *InstanceProducer) IsBuilt() bool {
	return p.state.Load() != nil
}

// BuildPlan returns the final plan of the producer, building it if needed.
// The plan is published for good, so the first call locks the container.
func (p *InstanceProducer) BuildPlan() (plan.Plan, error) {
	p.container.lock()

	st, err := p.build(newBuildContext(p.container))
	if err != nil {
		return nil, err
	}
	return st.plan, nil
}

// buildPlan is BuildPlan within an existing build context.
func (p *InstanceProducer) buildPlan(bc *BuildContext) (plan.Plan, error) {
	st, err := p.build(bc)
	if err != nil {
		return nil, err
	}
	return st.plan, nil
}

func (p *InstanceProducer) build(bc *BuildContext) (*producerState, error) {
	if st := p.state.Load(); st != nil {
		return st, nil
	}

	if err := bc.enter(p); err != nil {
		return nil, err
	}
	defer bc.leave(p)

	built, err := p.registration.BuildPlan(bc)
	if err != nil {
		return nil, err
	}

	if p.raise {
		built, err = p.container.raiseExpressionBuilt(bc, p, built)
		if err != nil {
			return nil, err
		}
	}

	st := &producerState{
		plan:      built,
		factory:   plan.Compile(built),
		verifiers: bc.takeVerifiers(p),
	}

	if p.state.CompareAndSwap(nil, st) {
		p.container.logger.Debug("compiled producer",
			zap.String("service", formatType(p.serviceType)),
			zap.String("implementation", formatType(built.ImplementationType())),
			zap.Stringer("plan", built.Kind()),
		)
		return st, nil
	}

	return p.state.Load(), nil
}

// GetInstance returns an instance of the service outside of any scope.
// The first call locks the container.
func (p *InstanceProducer) GetInstance() (any, error) {
	return p.getInstance(nil)
}

func (p *InstanceProducer) getInstance(s plan.Scope) (any, error) {
	st := p.state.Load()
	if st == nil {
		p.container.lock()

		var err error
		st, err = p.build(newBuildContext(p.container))
		if err != nil {
			return nil, p.failure(err)
		}
	}

	v, err := st.factory(s)
	if err != nil {
		return nil, p.failure(err)
	}

	if plan.IsNil(v) {
		return nil, &ActivationError{ServiceType: p.serviceType, Cause: ErrNilInstance}
	}

	return v, nil
}

// verify creates an instance in s and runs the attached verifiers. The
// elements of a collection are verified too, so their verifiers run.
func (p *InstanceProducer) verify(s plan.Scope) error {
	if _, err := p.getInstance(s); err != nil {
		return err
	}

	for _, v := range p.state.Load().verifiers {
		if err := v(s); err != nil {
			return p.failure(err)
		}
	}

	for _, element := range p.elements() {
		if err := element.verify(s); err != nil {
			return p.failure(err)
		}
	}

	return nil
}

// failure attributes err to the producer's service type. Configuration
// errors are returned unchanged.
func (p *InstanceProducer) failure(err error) error {
	if IsConfigurationError(err) {
		return err
	}
	return plan.Annotate(err, p.serviceType)
}

// elements returns the producers of a collection's elements.
func (p *InstanceProducer) elements() []*InstanceProducer {
	if l, ok := p.registration.(elementLister); ok {
		return l.elementProducers()
	}
	return nil
}

func (p *InstanceProducer) dependencies() []reflect.Type {
	if d, ok := p.registration.(dependencyLister); ok {
		return d.dependencies()
	}
	return nil
}

func (p *InstanceProducer) String() string {
	return formatType(p.serviceType) + " (" + p.Lifestyle().Name() + ")"
}
