package ioc

import (
	"reflect"

	"github.com/junioryono/ioc/plan"
)

// DecoratorInfo records one decorator applied to a service.
type DecoratorInfo struct {
	DecoratorType reflect.Type
	Plan          plan.Plan
}

// ServiceTypeDecoratorInfo is the decoration history of one producer within
// a build. It is immutable: applying a decorator yields a new value.
type ServiceTypeDecoratorInfo struct {
	serviceType        reflect.Type
	implementationType reflect.Type
	originalProducer   *InstanceProducer
	applied            []DecoratorInfo
}

func newServiceTypeDecoratorInfo(serviceType, implementationType reflect.Type, original *InstanceProducer) *ServiceTypeDecoratorInfo {
	return &ServiceTypeDecoratorInfo{
		serviceType:        serviceType,
		implementationType: implementationType,
		originalProducer:   original,
	}
}

// ServiceType returns the decorated service type.
func (i *ServiceTypeDecoratorInfo) ServiceType() reflect.Type { return i.serviceType }

// ImplementationType returns the type of the undecorated service.
func (i *ServiceTypeDecoratorInfo) ImplementationType() reflect.Type { return i.implementationType }

// OriginalProducer returns a producer for the undecorated service.
func (i *ServiceTypeDecoratorInfo) OriginalProducer() *InstanceProducer { return i.originalProducer }

// AppliedDecorators returns the decorators applied so far, innermost first.
func (i *ServiceTypeDecoratorInfo) AppliedDecorators() []DecoratorInfo {
	return append([]DecoratorInfo(nil), i.applied...)
}

func (i *ServiceTypeDecoratorInfo) withApplied(d DecoratorInfo) *ServiceTypeDecoratorInfo {
	applied := make([]DecoratorInfo, len(i.applied), len(i.applied)+1)
	copy(applied, i.applied)

	return &ServiceTypeDecoratorInfo{
		serviceType:        i.serviceType,
		implementationType: i.implementationType,
		originalProducer:   i.originalProducer,
		applied:            append(applied, d),
	}
}

func (i *ServiceTypeDecoratorInfo) decoratorTypes() []reflect.Type {
	types := make([]reflect.Type, len(i.applied))
	for n, d := range i.applied {
		types[n] = d.DecoratorType
	}
	return types
}

// DecoratorPredicateContext is what a decorator predicate sees: the service
// in the state left by the decorators applied before.
type DecoratorPredicateContext struct {
	serviceType        reflect.Type
	implementationType reflect.Type
	plan               plan.Plan
	originalProducer   *InstanceProducer
	appliedDecorators  []reflect.Type
}

func newDecoratorPredicateContext(serviceType reflect.Type, current plan.Plan, info *ServiceTypeDecoratorInfo) DecoratorPredicateContext {
	return DecoratorPredicateContext{
		serviceType:        serviceType,
		implementationType: info.ImplementationType(),
		plan:               current,
		originalProducer:   info.OriginalProducer(),
		appliedDecorators:  info.decoratorTypes(),
	}
}

// ServiceType returns the decorated service type.
func (c DecoratorPredicateContext) ServiceType() reflect.Type { return c.serviceType }

// ImplementationType returns the type of the undecorated service.
func (c DecoratorPredicateContext) ImplementationType() reflect.Type { return c.implementationType }

// Plan returns the current plan, including decorators applied so far.
func (c DecoratorPredicateContext) Plan() plan.Plan { return c.plan }

// OriginalProducer returns a producer for the undecorated service. It is
// not part of the container and never raises ExpressionBuilt.
func (c DecoratorPredicateContext) OriginalProducer() *InstanceProducer { return c.originalProducer }

// AppliedDecorators returns the types of the decorators applied so far,
// innermost first.
func (c DecoratorPredicateContext) AppliedDecorators() []reflect.Type {
	return append([]reflect.Type(nil), c.appliedDecorators...)
}

// Predicate decides whether a decorator applies.
type Predicate func(ctx DecoratorPredicateContext) bool
