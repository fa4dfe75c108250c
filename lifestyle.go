package ioc

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/junioryono/ioc/plan"
)

// Lifestyle is a policy describing how long a constructed instance is reused.
// A Lifestyle turns a constructor into a Registration that applies that
// policy to the construction plan.
type Lifestyle interface {
	// Name returns the lifestyle name, e.g. "Singleton".
	Name() string

	// CreateRegistration creates a registration that builds serviceType with
	// constructor. Parameters listed in overrides are bound to the given plan
	// instead of being resolved from the container; they are matched by
	// position, so a constructor may take several parameters of the same type.
	CreateRegistration(serviceType reflect.Type, constructor any, c *Container, overrides ...OverriddenParameter) (Registration, error)

	// CreatePlanRegistration wraps an already built plan.
	CreatePlanRegistration(serviceType reflect.Type, p plan.Plan, c *Container) Registration
}

// OverriddenParameter binds the constructor parameter at Index to Plan.
type OverriddenParameter struct {
	Index int
	Plan  plan.Plan
}

type reusePolicy int

const (
	reuseNone reusePolicy = iota
	reuseContainer
	reuseScope
	reuseUnknown
)

// lifestyle is the built-in Lifestyle implementation.
type lifestyle struct {
	name   string
	policy reusePolicy
}

var (
	// Transient creates a new instance every time the service is requested.
	Transient Lifestyle = &lifestyle{name: "Transient", policy: reuseNone}

	// Singleton creates one instance per container. The instance is created
	// on first request; a failed creation is retried on the next request.
	Singleton Lifestyle = &lifestyle{name: "Singleton", policy: reuseContainer}

	// Scoped creates one instance per Scope. Requesting a scoped service
	// outside of a scope fails with ErrNoActiveScope.
	Scoped Lifestyle = &lifestyle{name: "Scoped", policy: reuseScope}

	// Unknown marks registrations whose reuse policy is decided by the plan
	// they wrap.
	Unknown Lifestyle = &lifestyle{name: "Unknown", policy: reuseUnknown}
)

func (l *lifestyle) Name() string   { return l.name }
func (l *lifestyle) String() string { return l.name }

func (l *lifestyle) CreateRegistration(serviceType reflect.Type, constructor any, c *Container, overrides ...OverriddenParameter) (Registration, error) {
	if c == nil {
		return nil, &ConfigurationError{ServiceType: serviceType, Operation: "create registration", Cause: fmt.Errorf("container cannot be nil")}
	}

	return newConstructorRegistration(c, l, serviceType, constructor, overrides)
}

func (l *lifestyle) CreatePlanRegistration(serviceType reflect.Type, p plan.Plan, c *Container) Registration {
	return newPlanRegistration(c, l, serviceType, p)
}

// apply wraps the construction plan of r in the reuse policy.
// Names of the Invoke plans that enforce reuse.
const (
	singletonPlanName = "singleton"
	scopedPlanName    = "scoped"
)

func (l *lifestyle) apply(r *constructorRegistration, inner plan.Plan) plan.Plan {
	switch l.policy {
	case reuseContainer:
		factory := plan.Compile(inner)
		return &plan.Invoke{
			Name:  singletonPlanName,
			Type:  inner.ImplementationType(),
			Inner: inner,
			Func: func(s plan.Scope) (any, error) {
				return r.cell.get(func() (any, error) {
					return factory(s)
				})
			},
		}

	case reuseScope:
		factory := plan.Compile(inner)
		implType := inner.ImplementationType()
		return &plan.Invoke{
			Name:  scopedPlanName,
			Type:  implType,
			Inner: inner,
			Func: func(s plan.Scope) (any, error) {
				if s == nil {
					return nil, &ActivationError{ServiceType: implType, Cause: ErrNoActiveScope}
				}

				v, err := s.GetOrCreate(r, func() (any, error) {
					return factory(s)
				})
				if err == ErrNoActiveScope {
					return nil, &ActivationError{ServiceType: implType, Cause: err}
				}
				return v, err
			},
		}

	default:
		return inner
	}
}

// LifestyleByName returns the built-in lifestyle with the given name.
// Matching is case-insensitive.
func LifestyleByName(name string) (Lifestyle, error) {
	switch strings.ToLower(name) {
	case "transient":
		return Transient, nil
	case "singleton":
		return Singleton, nil
	case "scoped":
		return Scoped, nil
	case "unknown":
		return Unknown, nil
	default:
		return nil, &ConfigurationError{Operation: "parse lifestyle", Cause: fmt.Errorf("unknown lifestyle %q", name)}
	}
}

// LifestyleName is a Lifestyle that marshals by name, for configuration files.
type LifestyleName struct {
	Lifestyle
}

// MarshalText implements encoding.TextMarshaler.
func (n LifestyleName) MarshalText() ([]byte, error) {
	if n.Lifestyle == nil {
		return []byte(""), nil
	}
	return []byte(n.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *LifestyleName) UnmarshalText(text []byte) error {
	l, err := LifestyleByName(string(text))
	if err != nil {
		return err
	}

	n.Lifestyle = l
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n LifestyleName) MarshalJSON() ([]byte, error) {
	text, _ := n.MarshalText()
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *LifestyleName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return n.UnmarshalText([]byte(s))
}

// instanceCell holds at most one instance. Creation runs under the cell's
// own mutex, so creating different cells recursively never deadlocks.
type instanceCell struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
	track func(any)
}

func newInstanceCell(track func(any)) *instanceCell {
	return &instanceCell{track: track}
}

func (c *instanceCell) get(create func() (any, error)) (any, error) {
	if c.done.Load() {
		return c.value, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done.Load() {
		return c.value, nil
	}

	v, err := create()
	if err != nil {
		return nil, err
	}

	// nil is reported by the producer; it must not be cached.
	if plan.IsNil(v) {
		return v, nil
	}

	c.value = v
	c.done.Store(true)

	if c.track != nil {
		c.track(v)
	}

	return v, nil
}
