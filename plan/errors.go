package plan

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/typename"
)

var (
	// ErrNilInstance is the cause of an ActivationError raised when a
	// factory produced nil.
	ErrNilInstance = errors.New("delegate returned nil")

	// ErrNoActiveScope is returned when a scoped value is requested
	// without an active scope.
	ErrNoActiveScope = errors.New("no active scope")
)

var (
	_ error = (*ActivationError)(nil)
	_ error = (*ConstructorPanicError)(nil)
	_ error = (*CollectionItemNilError)(nil)
)

// ActivationError reports that a value could not be constructed.
//
// The innermost failure is kept as Cause. When the failure surfaces through
// other services, those are appended to Chain instead of wrapping the error
// again, so the root cause is never buried.
type ActivationError struct {
	ServiceType reflect.Type

	// Chain lists the services whose resolution led to ServiceType,
	// innermost first.
	Chain []reflect.Type

	Cause error
}

func (e *ActivationError) Error() string {
	var b strings.Builder

	if errors.Is(e.Cause, ErrNilInstance) {
		b.WriteString(fmt.Sprintf("the delegate for type %s returned nil", typename.Format(e.ServiceType)))
	} else {
		b.WriteString(fmt.Sprintf("activation of %s failed: %v", typename.Format(e.ServiceType), e.Cause))
	}

	for _, t := range e.Chain {
		b.WriteString(fmt.Sprintf("\n  as part of resolving %s", typename.Format(t)))
	}

	return b.String()
}

func (e *ActivationError) Unwrap() error {
	return e.Cause
}

// WithContext returns a copy of e that records serviceType as the next
// outer service in the chain.
func (e *ActivationError) WithContext(serviceType reflect.Type) *ActivationError {
	if serviceType == nil || serviceType == e.ServiceType {
		return e
	}

	if n := len(e.Chain); n > 0 && e.Chain[n-1] == serviceType {
		return e
	}

	chain := make([]reflect.Type, len(e.Chain), len(e.Chain)+1)
	copy(chain, e.Chain)

	return &ActivationError{
		ServiceType: e.ServiceType,
		Chain:       append(chain, serviceType),
		Cause:       e.Cause,
	}
}

// Annotate attaches serviceType to err. An existing ActivationError gets
// serviceType appended to its chain; any other error is wrapped.
func Annotate(err error, serviceType reflect.Type) error {
	if err == nil {
		return nil
	}

	var activationErr *ActivationError
	if errors.As(err, &activationErr) {
		return activationErr.WithContext(serviceType)
	}

	return &ActivationError{ServiceType: serviceType, Cause: err}
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e *ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v", typename.Format(e.Constructor), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// CollectionItemNilError reports a nil element in a collection.
type CollectionItemNilError struct {
	ElementType reflect.Type
}

func (e *CollectionItemNilError) Error() string {
	return fmt.Sprintf("one of the items in the collection for type %s is a nil reference",
		typename.Format(e.ElementType))
}
