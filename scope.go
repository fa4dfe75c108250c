package ioc

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope is a reuse boundary for Scoped services, such as one request. Each
// scoped service is created at most once per scope and disposed when the
// scope closes.
//
// Example:
//
//	scope := container.BeginScope(ctx)
//	defer scope.Close()
//
//	repo, err := ioc.Resolve[Repository](scope)
type Scope struct {
	id        string
	container *Container
	ctx       context.Context
	cancel    context.CancelFunc
	lifecycle *lifecycleManager

	mu     sync.Mutex
	cells  map[any]*instanceCell
	closed atomic.Bool
}

type scopeContextKey struct{}

func newScope(c *Container, ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Scope{
		id:        uuid.NewString(),
		container: c,
		lifecycle: newLifecycleManager("scope"),
		cells:     make(map[any]*instanceCell),
	}

	s.ctx, s.cancel = context.WithCancel(context.WithValue(ctx, scopeContextKey{}, s))

	go func() {
		<-s.ctx.Done()
		if err := s.Close(); err != nil {
			c.logger.Warn("closing scope on context cancellation failed", zap.String("scope", s.id), zap.Error(err))
		}
	}()

	return s
}

// ScopeFromContext returns the scope stored in ctx by BeginScope.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	if !ok || s == nil || s.IsClosed() {
		return nil, false
	}
	return s, true
}

// ID returns the unique identifier of the scope.
func (s *Scope) ID() string {
	return s.id
}

// Context returns the scope's context. It carries the scope and is
// cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Container returns the container the scope belongs to.
func (s *Scope) Container() *Container {
	return s.container
}

// IsClosed reports whether the scope was closed.
func (s *Scope) IsClosed() bool {
	return s.closed.Load()
}

// GetInstance returns an instance of serviceType within the scope.
func (s *Scope) GetInstance(serviceType reflect.Type) (any, error) {
	if s.closed.Load() {
		return nil, &ActivationError{ServiceType: serviceType, Cause: ErrScopeClosed}
	}
	return s.container.resolve(s, serviceType)
}

// GetOrCreate returns the instance cached under key, creating it with create
// if there is none. Creation holds only the lock of key's own cell, so
// creating one scoped service may resolve others.
func (s *Scope) GetOrCreate(key any, create func() (any, error)) (any, error) {
	if s.closed.Load() {
		return nil, ErrScopeClosed
	}

	s.mu.Lock()
	if s.cells == nil {
		s.mu.Unlock()
		return nil, ErrScopeClosed
	}
	cell, ok := s.cells[key]
	if !ok {
		cell = newInstanceCell(s.lifecycle.track)
		s.cells[key] = cell
	}
	s.mu.Unlock()

	return cell.get(create)
}

// Close disposes the scoped instances in reverse creation order.
func (s *Scope) Close() error {
	return s.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext
// instances.
func (s *Scope) CloseContext(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()
	s.container.removeScope(s)

	disposables := s.lifecycle.count()
	err := s.lifecycle.dispose(ctx)

	s.mu.Lock()
	s.cells = nil
	s.mu.Unlock()

	s.container.logger.Debug("scope closed",
		zap.String("scope", s.id),
		zap.Int("disposed", disposables),
		zap.Error(err),
	)

	return err
}
