package ioc

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/graph"
)

// Verify locks the container and creates every registered service once, in
// dependency order, inside a throwaway scope. Verifiers attached during the
// build, such as those of decorators taking a factory of their decoratee,
// run after their producer's instance was created.
//
// Verify returns a *VerificationError listing every broken producer, or nil.
// Singletons created by Verify are kept.
func (c *Container) Verify() error {
	if c.closed.Load() {
		return &ActivationError{Cause: ErrContainerClosed}
	}

	c.lock()

	producers := c.Producers()
	byType := make(map[reflect.Type]*InstanceProducer, len(producers))

	g := graph.NewDependencyGraph()
	for _, p := range producers {
		byType[p.ServiceType()] = p
		g.AddNode(p.ServiceType(), p.dependencies())
	}

	order, err := g.TopologicalSort()
	if err != nil {
		// The cycle is reported by the producers on it.
		c.logger.Debug("dependency graph has a cycle", zap.Error(err))
		order = make([]reflect.Type, len(producers))
		for i, p := range producers {
			order[i] = p.ServiceType()
		}
	}

	scope := c.BeginScope(context.Background())
	defer func() {
		if err := scope.Close(); err != nil {
			c.logger.Warn("closing verification scope failed", zap.Error(err))
		}
	}()

	var failures []VerificationFailure
	for _, t := range order {
		p, ok := byType[t]
		if !ok {
			continue
		}

		if err := p.verify(scope); err != nil {
			c.logger.Debug("verification failed", zap.String("service", formatType(t)), zap.Error(err))
			failures = append(failures, VerificationFailure{ServiceType: t, Err: err})
		}
	}

	if len(failures) > 0 {
		return &VerificationError{Failures: failures}
	}

	c.logger.Debug("container verified", zap.Int("producers", len(producers)), zap.Int("services", g.Size()))
	return nil
}
