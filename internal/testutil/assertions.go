package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// RequireResolve resolves T and fails the test on error.
func RequireResolve[T any](t *testing.T, r ioc.Resolver) T {
	t.Helper()
	service, err := ioc.Resolve[T](r)
	require.NoError(t, err, "failed to resolve %s", ioc.TypeOf[T]())
	return service
}

// RequireActivationError resolves T and returns the ActivationError it fails with.
func RequireActivationError[T any](t *testing.T, r ioc.Resolver) *ioc.ActivationError {
	t.Helper()
	_, err := ioc.Resolve[T](r)
	require.Error(t, err)

	var activationErr *ioc.ActivationError
	require.True(t, errors.As(err, &activationErr), "expected ActivationError, got %T: %v", err, err)
	return activationErr
}

// AssertConfigurationError checks that err is a ConfigurationError wrapping target.
func AssertConfigurationError(t *testing.T, err error, target error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, ioc.IsConfigurationError(err), "expected ConfigurationError, got %T: %v", err, err)
	if target != nil {
		assert.ErrorIs(t, err, target)
	}
}
