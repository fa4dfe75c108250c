package ioc

import (
	"reflect"

	"github.com/junioryono/ioc/plan"
)

// Verifier performs an extra check on a producer during Verify, after the
// producer's own instance was created. Decorators that receive a factory of
// their decoratee register one, because that factory is otherwise only
// called later.
type Verifier func(s plan.Scope) error

// BuildContext carries state across the building of one object graph. Each
// top-level build gets its own context, so builds running concurrently on
// different goroutines never observe each other's state.
//
// A BuildContext must not be shared between goroutines.
type BuildContext struct {
	container *Container
	items     map[any]any
	stack     []*InstanceProducer
	verifiers map[*InstanceProducer][]Verifier
}

func newBuildContext(c *Container) *BuildContext {
	return &BuildContext{
		container: c,
		items:     make(map[any]any),
		verifiers: make(map[*InstanceProducer][]Verifier),
	}
}

// Container returns the container the graph is built for.
func (bc *BuildContext) Container() *Container {
	return bc.container
}

// Item returns the value stored under key, storing the result of create
// first if there is none. Keys should be unexported pointer values to avoid
// collisions.
func (bc *BuildContext) Item(key any, create func() any) any {
	if v, ok := bc.items[key]; ok {
		return v
	}

	v := create()
	bc.items[key] = v
	return v
}

// Producer returns the producer currently being built, or nil.
func (bc *BuildContext) Producer() *InstanceProducer {
	if len(bc.stack) == 0 {
		return nil
	}
	return bc.stack[len(bc.stack)-1]
}

// AddVerifier attaches v to p. Verifiers are only kept if the build they
// were added in is the one p publishes.
func (bc *BuildContext) AddVerifier(p *InstanceProducer, v Verifier) {
	if p == nil || v == nil {
		return
	}
	bc.verifiers[p] = append(bc.verifiers[p], v)
}

func (bc *BuildContext) takeVerifiers(p *InstanceProducer) []Verifier {
	v := bc.verifiers[p]
	delete(bc.verifiers, p)
	return v
}

// enter pushes p, failing if p is already being built in this context.
func (bc *BuildContext) enter(p *InstanceProducer) error {
	for i, q := range bc.stack {
		if q != p {
			continue
		}

		path := make([]reflect.Type, 0, len(bc.stack)-i)
		for _, s := range bc.stack[i:] {
			path = append(path, s.ServiceType())
		}

		return &ConfigurationError{
			ServiceType: p.ServiceType(),
			Operation:   "build",
			Cause:       &CircularDependencyError{Node: p.ServiceType(), Path: path},
		}
	}

	bc.stack = append(bc.stack, p)
	return nil
}

func (bc *BuildContext) leave(p *InstanceProducer) {
	if n := len(bc.stack); n > 0 && bc.stack[n-1] == p {
		bc.stack = bc.stack[:n-1]
	}
}
