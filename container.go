package ioc

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/plan"
)

// Container holds registrations and produces instances.
//
// A Container is configured first and used second. The first call to
// GetInstance or Verify locks it; registering anything afterwards fails with
// ErrContainerLocked. Resolving is safe for concurrent use.
type Container struct {
	id        string
	options   *Options
	logger    *zap.Logger
	analyzer  *reflection.Analyzer
	lifecycle *lifecycleManager

	mu     sync.RWMutex
	locked atomic.Bool
	closed atomic.Bool

	producers map[reflect.Type]*InstanceProducer
	order     []reflect.Type

	// resolved holds producers for types supplied by
	// ResolveUnregisteredType handlers.
	resolved      map[reflect.Type]*InstanceProducer
	resolvedOrder []reflect.Type

	expressionBuilt      []ExpressionBuiltHandler
	unregisteredHandlers []UnregisteredTypeHandler
	decorators           []*decoratorInterceptor

	scopesMu sync.Mutex
	scopes   map[*Scope]struct{}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	options := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.DefaultLifestyle == nil {
		options.DefaultLifestyle = Transient
	}

	c := &Container{
		id:        uuid.NewString(),
		options:   options,
		analyzer:  reflection.New(),
		lifecycle: newLifecycleManager("container"),
		producers: make(map[reflect.Type]*InstanceProducer),
		resolved:  make(map[reflect.Type]*InstanceProducer),
		scopes:    make(map[*Scope]struct{}),
	}
	c.logger = options.Logger.Named("ioc").With(zap.String("container", c.id))

	return c
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// IsLocked reports whether the container can no longer be changed.
func (c *Container) IsLocked() bool {
	return c.locked.Load()
}

func (c *Container) lock() {
	if c.locked.Load() {
		return
	}

	c.mu.Lock()
	if !c.locked.Load() {
		c.locked.Store(true)
		c.logger.Debug("container locked", zap.Int("registrations", len(c.producers)))
	}
	c.mu.Unlock()
}

// Register registers constructor for serviceType with lifestyle. A nil
// lifestyle means Options.DefaultLifestyle. The constructor must return a
// value assignable to serviceType, optionally followed by an error; its
// parameters are resolved from the container.
func (c *Container) Register(serviceType reflect.Type, constructor any, lifestyle Lifestyle) error {
	if lifestyle == nil {
		lifestyle = c.options.DefaultLifestyle
	}

	registration, err := lifestyle.CreateRegistration(serviceType, constructor, c)
	if err != nil {
		return err
	}

	return c.AddRegistration(serviceType, registration)
}

// RegisterInstance registers a singleton instance for serviceType.
func (c *Container) RegisterInstance(serviceType reflect.Type, instance any) error {
	if serviceType == nil {
		return &ConfigurationError{Operation: "register", Cause: ErrServiceTypeNil}
	}

	if plan.IsNil(instance) {
		return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: ErrNilInstance}
	}

	if t := reflect.TypeOf(instance); !t.AssignableTo(serviceType) {
		return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: &NotAssignableError{Type: t, ServiceType: serviceType}}
	}

	return c.AddRegistration(serviceType, newPlanRegistration(c, Singleton, serviceType, plan.NewConstant(instance)))
}

// RegisterPlan registers a prebuilt plan for serviceType. Constants are
// reported as singletons and constructions as transients.
func (c *Container) RegisterPlan(serviceType reflect.Type, p plan.Plan) error {
	if p == nil {
		return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: ErrConstructorNil}
	}

	return c.AddRegistration(serviceType, newPlanRegistration(c, lifestyleOf(p), serviceType, p))
}

// AddRegistration registers r for serviceType.
func (c *Container) AddRegistration(serviceType reflect.Type, r Registration) error {
	if serviceType == nil {
		return &ConfigurationError{Operation: "register", Cause: ErrServiceTypeNil}
	}

	if r == nil {
		return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: ErrConstructorNil}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked.Load() {
		return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: ErrContainerLocked}
	}

	if _, exists := c.producers[serviceType]; exists {
		if !c.options.AllowOverriding {
			return &ConfigurationError{ServiceType: serviceType, Operation: "register", Cause: &AlreadyRegisteredError{ServiceType: serviceType}}
		}
	} else {
		c.order = append(c.order, serviceType)
	}

	c.producers[serviceType] = newInstanceProducer(serviceType, r, c)

	c.logger.Debug("registered service",
		zap.String("service", formatType(serviceType)),
		zap.String("implementation", formatType(r.ImplementationType())),
		zap.String("lifestyle", r.Lifestyle().Name()),
	)

	return nil
}

// IsRegistered reports whether serviceType has an explicit registration.
func (c *Container) IsRegistered(serviceType reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.producers[serviceType]
	return ok
}

// producerFor returns the producer for t, asking the
// ResolveUnregisteredType handlers when t was not registered.
func (c *Container) producerFor(t reflect.Type) (*InstanceProducer, error) {
	c.mu.RLock()
	p, ok := c.producers[t]
	if !ok {
		p, ok = c.resolved[t]
	}
	c.mu.RUnlock()

	if ok {
		return p, nil
	}

	r, err := c.resolveUnregistered(t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.resolved[t]; ok {
		return existing, nil
	}

	p = newInstanceProducer(t, r, c)
	c.resolved[t] = p
	c.resolvedOrder = append(c.resolvedOrder, t)
	return p, nil
}

// GetProducer returns the producer for serviceType.
func (c *Container) GetProducer(serviceType reflect.Type) (*InstanceProducer, error) {
	if serviceType == nil {
		return nil, &ConfigurationError{Operation: "get producer", Cause: ErrServiceTypeNil}
	}
	return c.producerFor(serviceType)
}

// Producers returns the producers of all registered services in
// registration order, followed by those supplied for unregistered types.
func (c *Container) Producers() []*InstanceProducer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	producers := make([]*InstanceProducer, 0, len(c.order)+len(c.resolved))
	for _, t := range c.order {
		producers = append(producers, c.producers[t])
	}
	for _, t := range c.resolvedOrder {
		producers = append(producers, c.resolved[t])
	}

	return producers
}

// GetInstance returns an instance of serviceType outside of any scope.
// Scoped services cannot be resolved this way; use a Scope.
func (c *Container) GetInstance(serviceType reflect.Type) (any, error) {
	return c.resolve(nil, serviceType)
}

func (c *Container) resolve(s *Scope, serviceType reflect.Type) (any, error) {
	if serviceType == nil {
		return nil, &ActivationError{Cause: ErrServiceTypeNil}
	}

	if c.closed.Load() {
		return nil, &ActivationError{ServiceType: serviceType, Cause: ErrContainerClosed}
	}

	c.lock()
	start := time.Now()

	p, err := c.producerFor(serviceType)
	if err != nil {
		return nil, c.resolveFailed(serviceType, &ActivationError{ServiceType: serviceType, Cause: err})
	}

	var scope plan.Scope
	if s != nil {
		scope = s
	}

	instance, err := p.getInstance(scope)
	if err != nil {
		return nil, c.resolveFailed(serviceType, err)
	}

	if c.options.OnResolved != nil {
		c.options.OnResolved(serviceType, instance, time.Since(start))
	}

	return instance, nil
}

func (c *Container) resolveFailed(serviceType reflect.Type, err error) error {
	c.logger.Debug("resolution failed", zap.String("service", formatType(serviceType)), zap.Error(err))

	if c.options.OnError != nil {
		c.options.OnError(serviceType, err)
	}

	return err
}

// BeginScope starts a scope. The scope is closed when ctx is done or when
// Close is called, whichever comes first.
func (c *Container) BeginScope(ctx context.Context) *Scope {
	s := newScope(c, ctx)

	c.scopesMu.Lock()
	c.scopes[s] = struct{}{}
	c.scopesMu.Unlock()

	return s
}

func (c *Container) removeScope(s *Scope) {
	c.scopesMu.Lock()
	delete(c.scopes, s)
	c.scopesMu.Unlock()
}

// Close closes every open scope and then disposes the singletons, in reverse
// creation order.
func (c *Container) Close() error {
	return c.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext
// instances.
func (c *Container) CloseContext(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.scopesMu.Lock()
	scopes := make([]*Scope, 0, len(c.scopes))
	for s := range c.scopes {
		scopes = append(scopes, s)
	}
	c.scopesMu.Unlock()

	var errs []error
	for _, s := range scopes {
		if err := s.CloseContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	disposables := c.lifecycle.count()
	if err := c.lifecycle.dispose(ctx); err != nil {
		errs = append(errs, err)
	}

	c.logger.Debug("container closed", zap.Int("disposed", disposables), zap.Int("errors", len(errs)))

	if len(errs) > 0 {
		return &DisposalError{Context: "container", Errors: errs}
	}

	return nil
}
