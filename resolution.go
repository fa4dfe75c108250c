package ioc

import (
	"errors"
	"fmt"
	"reflect"
)

// Resolver resolves instances. Both *Container and *Scope implement it.
type Resolver interface {
	GetInstance(serviceType reflect.Type) (any, error)
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*Scope)(nil)
)

// ErrResolverNil is returned by the generic helpers for a nil Resolver.
var ErrResolverNil = errors.New("resolver cannot be nil")

// TypeOf returns the reflect.Type of T. It works for interface types too.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Resolve resolves a service of type T.
//
// Example:
//
//	repo, err := ioc.Resolve[Repository](container)
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrResolverNil
	}

	serviceType := TypeOf[T]()
	service, err := r.GetInstance(serviceType)
	if err != nil {
		return zero, err
	}

	result, ok := service.(T)
	if !ok {
		return zero, &ActivationError{
			ServiceType: serviceType,
			Cause:       &NotAssignableError{Type: reflect.TypeOf(service), ServiceType: serviceType},
		}
	}

	return result, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	result, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(TypeOf[T]()), err))
	}
	return result
}

// Register registers constructor for T with lifestyle.
func Register[T any](c *Container, constructor any, lifestyle Lifestyle) error {
	return c.Register(TypeOf[T](), constructor, lifestyle)
}

// RegisterTransient registers constructor for T as Transient.
func RegisterTransient[T any](c *Container, constructor any) error {
	return c.Register(TypeOf[T](), constructor, Transient)
}

// RegisterSingleton registers constructor for T as Singleton.
func RegisterSingleton[T any](c *Container, constructor any) error {
	return c.Register(TypeOf[T](), constructor, Singleton)
}

// RegisterScoped registers constructor for T as Scoped.
func RegisterScoped[T any](c *Container, constructor any) error {
	return c.Register(TypeOf[T](), constructor, Scoped)
}

// RegisterValue registers instance as the singleton T.
func RegisterValue[T any](c *Container, instance T) error {
	return c.RegisterInstance(TypeOf[T](), instance)
}

// RegisterDecoratorFor registers decorator for T.
func RegisterDecoratorFor[T any](c *Container, decorator any, opts ...DecoratorOption) error {
	return c.RegisterDecorator(TypeOf[T](), decorator, opts...)
}

// RegisterCollectionOf registers a collection of T, resolvable as []T.
func RegisterCollectionOf[T any](c *Container, lifestyle Lifestyle, items ...any) error {
	return c.RegisterCollection(TypeOf[T](), lifestyle, items...)
}

// RegisterUncontrolledCollectionOf registers a supplied collection of T.
func RegisterUncontrolledCollectionOf[T any](c *Container, supplier func() []T) error {
	return c.RegisterUncontrolledCollection(TypeOf[T](), supplier)
}
