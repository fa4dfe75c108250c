package ioc

import (
	"context"
	"fmt"
	"sync"
)

// lifecycleManager tracks disposable instances owned by a container or scope.
type lifecycleManager struct {
	owner       string
	disposables []any
	mu          sync.Mutex
}

func newLifecycleManager(owner string) *lifecycleManager {
	return &lifecycleManager{owner: owner}
}

// track records instance if it can be disposed.
func (m *lifecycleManager) track(instance any) {
	switch instance.(type) {
	case Disposable, DisposableWithContext:
		m.mu.Lock()
		m.disposables = append(m.disposables, instance)
		m.mu.Unlock()
	}
}

// count returns the number of tracked instances.
func (m *lifecycleManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disposables)
}

// dispose closes all tracked instances in reverse order and forgets them.
func (m *lifecycleManager) dispose(ctx context.Context) error {
	m.mu.Lock()
	disposables := m.disposables
	m.disposables = nil
	m.mu.Unlock()

	var errs []error

	// LIFO
	for i := len(disposables) - 1; i >= 0; i-- {
		var err error
		switch d := disposables[i].(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("closing %T: %w", disposables[i], err))
		}
	}

	if len(errs) > 0 {
		return &DisposalError{Context: m.owner, Errors: errs}
	}

	return nil
}
