package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/junioryono/ioc/internal/typename"
	"github.com/junioryono/ioc/plan"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.

var (
	// Configuration errors.
	ErrContainerLocked          = errors.New("the container can't be changed after the first call to GetInstance or Verify")
	ErrConstructorNil           = errors.New("constructor cannot be nil")
	ErrServiceTypeNil           = errors.New("service type cannot be nil")
	ErrLifestyleNil             = errors.New("lifestyle cannot be nil")
	ErrHandlerNil               = errors.New("handler cannot be nil")
	ErrNoDecorateeParameter     = errors.New("decorator has no parameter of the decorated service type or a factory of it")
	ErrMultipleDecorateeParams  = errors.New("decorator has more than one parameter of the decorated service type or a factory of it")
	ErrEmptyOpenDecorator       = errors.New("open decorator needs at least one closed constructor")
	ErrMixedOpenDecorator       = errors.New("open decorator constructors must instantiate the same generic type")
	ErrNotGeneric               = errors.New("type is not an instantiated generic type")
	ErrDuplicateClosedDecorator = errors.New("open decorator already has a constructor for these type arguments")
	ErrDecoratorNotAssignable   = errors.New("decorator result is not assignable to the decorated service type")
	ErrInvalidSupplier          = errors.New("collection supplier must be a func returning a slice of the element type")

	// Activation errors.
	ErrNilInstance   = plan.ErrNilInstance
	ErrNoActiveScope = plan.ErrNoActiveScope

	// Lifecycle errors.
	ErrScopeClosed     = errors.New("scope has been closed")
	ErrContainerClosed = errors.New("container has been closed")
)

var (
	_ error = (*ConfigurationError)(nil)
	_ error = (*ActivationError)(nil)
	_ error = (*VerificationError)(nil)
	_ error = (*AlreadyRegisteredError)(nil)
	_ error = (*NotRegisteredError)(nil)
	_ error = (*NotAssignableError)(nil)
	_ error = (*LifestyleMismatchError)(nil)
	_ error = (*CircularDependencyError)(nil)
	_ error = (*DisposalError)(nil)
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ActivationError reports that an instance could not be created: a
// constructor failed or panicked, a factory returned nil, or a dependency
// could not be resolved. The innermost cause is preserved; outer services
// are recorded in Chain.
type ActivationError = plan.ActivationError

// ConstructorPanicError indicates a constructor panicked during invocation.
type ConstructorPanicError = plan.ConstructorPanicError

// CollectionItemNilError reports a nil element in a collection.
type CollectionItemNilError = plan.CollectionItemNilError

// CircularDependencyError represents a circular dependency between services.
type CircularDependencyError = graph.CircularDependencyError

// ConfigurationError reports an invalid registration shape. It is raised as
// early as possible, since the affected graph can never succeed.
type ConfigurationError struct {
	ServiceType reflect.Type
	Operation   string // "register", "decorate", "build", ...
	Cause       error
}

func (e *ConfigurationError) Error() string {
	if e.ServiceType == nil {
		return fmt.Sprintf("configuration error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("configuration error during %s of %s: %v", e.Operation, formatType(e.ServiceType), e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// VerificationFailure is a single broken producer found by Verify.
type VerificationFailure struct {
	ServiceType reflect.Type
	Err         error
}

// VerificationError aggregates every failure found by Verify.
type VerificationError struct {
	Failures []VerificationFailure
}

func (e *VerificationError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("verification failed for %s: %v", formatType(f.ServiceType), f.Err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("verification failed with %d errors:", len(e.Failures)))
	for i, f := range e.Failures {
		sb.WriteString(fmt.Sprintf("\n  %d. %s: %v", i+1, formatType(f.ServiceType), f.Err))
	}
	return sb.String()
}

func (e *VerificationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// AlreadyRegisteredError indicates a service type is already registered.
type AlreadyRegisteredError struct {
	ServiceType reflect.Type
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("service %s already registered (use AllowOverriding to replace registrations)",
		formatType(e.ServiceType))
}

// NotAssignableError indicates a value cannot serve as the service type.
type NotAssignableError struct {
	Type        reflect.Type
	ServiceType reflect.Type
}

func (e *NotAssignableError) Error() string {
	return fmt.Sprintf("%s is not assignable to %s", formatType(e.Type), formatType(e.ServiceType))
}

// NotRegisteredError indicates no registration could be found or supplied
// for a service type.
type NotRegisteredError struct {
	ServiceType reflect.Type
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no registration for type %s could be found", formatType(e.ServiceType))
}

// LifestyleMismatchError indicates a service depends on a service with a
// shorter lifestyle.
type LifestyleMismatchError struct {
	ServiceType         reflect.Type
	ServiceLifestyle    Lifestyle
	DependencyType      reflect.Type
	DependencyLifestyle Lifestyle
}

func (e *LifestyleMismatchError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("lifestyle mismatch: %s (%s) cannot depend on %s (%s)\n\n",
		formatType(e.ServiceType), e.ServiceLifestyle.Name(),
		formatType(e.DependencyType), e.DependencyLifestyle.Name()))

	b.WriteString("A singleton depending on a scoped service would capture a single scope's value.\n\n")
	b.WriteString("To resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Change %s to Scoped\n", formatType(e.ServiceType)))
	b.WriteString(fmt.Sprintf("  • Change %s to Singleton\n", formatType(e.DependencyType)))

	return b.String()
}

// DisposalError aggregates disposal errors
type DisposalError struct {
	Context string // "container", "scope"
	Errors  []error
}

func (e *DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e *DisposalError) Unwrap() []error {
	return e.Errors
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsActivationError reports whether err is or wraps an ActivationError.
func IsActivationError(err error) bool {
	var target *ActivationError
	return errors.As(err, &target)
}

// IsNotRegistered reports whether err is or wraps a NotRegisteredError.
func IsNotRegistered(err error) bool {
	var target *NotRegisteredError
	return errors.As(err, &target)
}

// IsLocked reports whether err was caused by mutating a locked container.
func IsLocked(err error) bool {
	return errors.Is(err, ErrContainerLocked)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	return typename.Format(t)
}
