// Package ioc is a dependency injection container that compiles each
// service's object graph once and runs it through a decoration pipeline.
//
// # Overview
//
// Services are registered with a Lifestyle and a constructor whose
// parameters are resolved from the container. On first use a service's
// InstanceProducer builds a construction plan for the whole graph, lets the
// registered decorators wrap it, compiles it and publishes it. Every later
// resolution runs the compiled plan.
//
//   - Three lifestyles: Transient, Singleton and Scoped
//   - Decorators with predicates, their own lifestyle and lazy decoratees
//   - Open decorators for generic service types
//   - Collections, including collections supplied from outside
//   - Verify, which builds and creates everything up front
//
// # Basic Usage
//
//	c := ioc.New()
//	ioc.RegisterScoped[Repository](c, NewSQLRepository)
//	ioc.RegisterDecoratorFor[Repository](c, NewLoggingRepository)
//
//	if err := c.Verify(); err != nil {
//	    log.Fatal(err)
//	}
//
//	scope := c.BeginScope(ctx)
//	defer scope.Close()
//
//	repo, err := ioc.Resolve[Repository](scope)
//
// # Decorators
//
// A decorator is a constructor that takes the decorated service, or a
// factory for it, and returns the service type:
//
//	func NewLoggingRepository(inner Repository, logger *zap.Logger) Repository
//	func NewRetryingRepository(create func() (Repository, error)) Repository
//
// Decorators apply in registration order: the first wraps the service, the
// last is outermost. A predicate set with When sees which decorators were
// applied before it. A decorator has the lifestyle of the service it wraps
// unless WithDecoratorLifestyle says otherwise.
//
// # Locking
//
// The first GetInstance or Verify locks the container. Later registrations
// fail with a ConfigurationError wrapping ErrContainerLocked.
//
// # Errors
//
// Registration shape problems are reported as *ConfigurationError, as early
// as possible. Failures while creating instances are *ActivationError; the
// innermost cause is kept and the services that led to it are listed in its
// chain. Verify aggregates failures into a *VerificationError.
package ioc
