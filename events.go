package ioc

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/plan"
)

// ExpressionBuiltEventArgs is passed to ExpressionBuilt handlers after a
// producer's plan was built and before it is compiled. Handlers may replace
// Plan; each handler sees the plan left by the previous one.
type ExpressionBuiltEventArgs struct {
	// Producer is the producer whose plan is being built.
	Producer *InstanceProducer

	// RegisteredServiceType is the service type the producer is registered
	// for. For collection elements this is the element type.
	RegisteredServiceType reflect.Type

	// Plan is the current plan. It must not be set to nil.
	Plan plan.Plan

	// Lifestyle is the lifestyle of the producer's registration.
	Lifestyle Lifestyle
}

// ExpressionBuiltHandler intercepts built plans.
type ExpressionBuiltHandler func(bc *BuildContext, e *ExpressionBuiltEventArgs) error

// UnregisteredTypeEventArgs is passed to ResolveUnregisteredType handlers
// when a service type has no registration.
type UnregisteredTypeEventArgs struct {
	ServiceType reflect.Type

	registration Registration
}

// Register supplies the registration for the unregistered type. Only one
// handler may register.
func (e *UnregisteredTypeEventArgs) Register(r Registration) error {
	if r == nil {
		return &ConfigurationError{ServiceType: e.ServiceType, Operation: "resolve unregistered type", Cause: fmt.Errorf("registration cannot be nil")}
	}

	if e.registration != nil {
		return &ConfigurationError{
			ServiceType: e.ServiceType,
			Operation:   "resolve unregistered type",
			Cause:       fmt.Errorf("multiple handlers tried to register %s", formatType(e.ServiceType)),
		}
	}

	e.registration = r
	return nil
}

// Handled reports whether a handler registered the type.
func (e *UnregisteredTypeEventArgs) Handled() bool {
	return e.registration != nil
}

// UnregisteredTypeHandler is called for service types without registration.
// A handler that does not know the type returns nil without registering.
type UnregisteredTypeHandler func(e *UnregisteredTypeEventArgs) error

// OnExpressionBuilt adds a handler that is called for every producer plan.
// Handlers run in the order they were added.
func (c *Container) OnExpressionBuilt(h ExpressionBuiltHandler) error {
	if h == nil {
		return &ConfigurationError{Operation: "add ExpressionBuilt handler", Cause: ErrHandlerNil}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked.Load() {
		return &ConfigurationError{Operation: "add ExpressionBuilt handler", Cause: ErrContainerLocked}
	}

	c.expressionBuilt = append(c.expressionBuilt, h)
	return nil
}

// OnResolveUnregisteredType adds a handler that may supply registrations for
// types that were not registered.
func (c *Container) OnResolveUnregisteredType(h UnregisteredTypeHandler) error {
	if h == nil {
		return &ConfigurationError{Operation: "add ResolveUnregisteredType handler", Cause: ErrHandlerNil}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked.Load() {
		return &ConfigurationError{Operation: "add ResolveUnregisteredType handler", Cause: ErrContainerLocked}
	}

	c.unregisteredHandlers = append(c.unregisteredHandlers, h)
	return nil
}

// raiseExpressionBuilt runs the ExpressionBuilt handlers over built.
func (c *Container) raiseExpressionBuilt(bc *BuildContext, p *InstanceProducer, built plan.Plan) (plan.Plan, error) {
	c.mu.RLock()
	handlers := c.expressionBuilt
	c.mu.RUnlock()

	if len(handlers) == 0 {
		return built, nil
	}

	e := &ExpressionBuiltEventArgs{
		Producer:              p,
		RegisteredServiceType: p.ServiceType(),
		Plan:                  built,
		Lifestyle:             p.Lifestyle(),
	}

	for _, h := range handlers {
		if err := h(bc, e); err != nil {
			return nil, err
		}

		if e.Plan == nil {
			return nil, &ConfigurationError{
				ServiceType: p.ServiceType(),
				Operation:   "build",
				Cause:       fmt.Errorf("an ExpressionBuilt handler set the plan to nil"),
			}
		}
	}

	return e.Plan, nil
}

// resolveUnregistered asks the ResolveUnregisteredType handlers for a
// registration of t.
func (c *Container) resolveUnregistered(t reflect.Type) (Registration, error) {
	c.mu.RLock()
	handlers := c.unregisteredHandlers
	c.mu.RUnlock()

	e := &UnregisteredTypeEventArgs{ServiceType: t}
	for _, h := range handlers {
		if err := h(e); err != nil {
			return nil, err
		}
	}

	if e.registration == nil {
		return nil, &NotRegisteredError{ServiceType: t}
	}

	c.logger.Debug("resolved unregistered type", zap.String("service", formatType(t)))
	return e.registration, nil
}
