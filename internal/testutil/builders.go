package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/junioryono/ioc"
)

// ContainerBuilder provides a fluent interface for building test containers.
type ContainerBuilder struct {
	t         *testing.T
	container *ioc.Container
}

// NewContainer creates a container that logs warnings to the test log. The
// container is closed when the test ends.
func NewContainer(t *testing.T, opts ...ioc.Option) *ioc.Container {
	t.Helper()

	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	opts = append([]ioc.Option{ioc.WithLogger(logger)}, opts...)
	c := ioc.New(opts...)

	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	return c
}

// NewContainerBuilder creates a new ContainerBuilder.
func NewContainerBuilder(t *testing.T, opts ...ioc.Option) *ContainerBuilder {
	return &ContainerBuilder{t: t, container: NewContainer(t, opts...)}
}

// WithTransient registers constructor for T as Transient.
func WithTransient[T any](b *ContainerBuilder, constructor any) *ContainerBuilder {
	require.NoError(b.t, ioc.RegisterTransient[T](b.container, constructor))
	return b
}

// WithSingleton registers constructor for T as Singleton.
func WithSingleton[T any](b *ContainerBuilder, constructor any) *ContainerBuilder {
	require.NoError(b.t, ioc.RegisterSingleton[T](b.container, constructor))
	return b
}

// WithScoped registers constructor for T as Scoped.
func WithScoped[T any](b *ContainerBuilder, constructor any) *ContainerBuilder {
	require.NoError(b.t, ioc.RegisterScoped[T](b.container, constructor))
	return b
}

// WithDecorator registers decorator for T.
func WithDecorator[T any](b *ContainerBuilder, decorator any, opts ...ioc.DecoratorOption) *ContainerBuilder {
	require.NoError(b.t, ioc.RegisterDecoratorFor[T](b.container, decorator, opts...))
	return b
}

// WithModule installs module.
func (b *ContainerBuilder) WithModule(module ioc.Module) *ContainerBuilder {
	require.NoError(b.t, b.container.Install(module))
	return b
}

// Build returns the container.
func (b *ContainerBuilder) Build() *ioc.Container {
	return b.container
}

// RepositoryContainer returns a container with a Recorder singleton and a
// Repository registered with lifestyle.
func RepositoryContainer(t *testing.T, lifestyle ioc.Lifestyle) *ioc.Container {
	t.Helper()

	c := NewContainer(t)
	require.NoError(t, ioc.RegisterSingleton[*Recorder](c, NewRecorder))
	require.NoError(t, ioc.Register[Repository](c, NewSQLRepository, lifestyle))
	return c
}
