package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// Repository is the service most decorator tests decorate.
type Repository interface {
	Find(id string) string
}

// SQLRepository is the undecorated Repository.
type SQLRepository struct {
	ID string
}

func NewSQLRepository() *SQLRepository {
	return &SQLRepository{ID: uuid.NewString()}
}

func (r *SQLRepository) Find(id string) string {
	return "sql:" + id
}

// LoggingRepository decorates a Repository and records calls.
type LoggingRepository struct {
	Inner Repository
	Log   *Recorder
}

func NewLoggingRepository(inner Repository, log *Recorder) *LoggingRepository {
	return &LoggingRepository{Inner: inner, Log: log}
}

func (r *LoggingRepository) Find(id string) string {
	r.Log.Record("find " + id)
	return "log(" + r.Inner.Find(id) + ")"
}

// CachingRepository decorates a Repository without other dependencies.
type CachingRepository struct {
	Inner Repository
}

func NewCachingRepository(inner Repository) *CachingRepository {
	return &CachingRepository{Inner: inner}
}

func (r *CachingRepository) Find(id string) string {
	return "cache(" + r.Inner.Find(id) + ")"
}

// LazyRepository receives a factory of its decoratee.
type LazyRepository struct {
	Create func() (Repository, error)
}

func NewLazyRepository(create func() (Repository, error)) *LazyRepository {
	return &LazyRepository{Create: create}
}

func (r *LazyRepository) Find(id string) string {
	inner, err := r.Create()
	if err != nil {
		return "error: " + err.Error()
	}
	return "lazy(" + inner.Find(id) + ")"
}

// Recorder collects messages from concurrent goroutines.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Counter counts constructor calls.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64  { return c.n.Add(1) }
func (c *Counter) Load() int64 { return c.n.Load() }

// Validator is an element type for collection tests.
type Validator interface {
	Validate(s string) error
}

// LengthValidator rejects strings longer than Max.
type LengthValidator struct {
	Max int
}

func NewLengthValidator() *LengthValidator {
	return &LengthValidator{Max: 8}
}

func (v *LengthValidator) Validate(s string) error {
	if len(s) > v.Max {
		return fmt.Errorf("%q is longer than %d", s, v.Max)
	}
	return nil
}

// NotEmptyValidator rejects empty strings.
type NotEmptyValidator struct{}

func NewNotEmptyValidator() *NotEmptyValidator {
	return &NotEmptyValidator{}
}

func (NotEmptyValidator) Validate(s string) error {
	if s == "" {
		return errors.New("empty")
	}
	return nil
}

// TracingValidator decorates a Validator.
type TracingValidator struct {
	Inner Validator
}

func NewTracingValidator(inner Validator) *TracingValidator {
	return &TracingValidator{Inner: inner}
}

func (v *TracingValidator) Validate(s string) error {
	return v.Inner.Validate(s)
}

// Handler is a generic service type for open decorator tests.
type Handler[T any] interface {
	Handle(cmd T) string
}

type CreateUser struct{ Name string }
type DeleteUser struct{ ID int }
type RenameUser struct{ Name string }

// CreateUserHandler handles CreateUser.
type CreateUserHandler struct{}

func NewCreateUserHandler() *CreateUserHandler { return &CreateUserHandler{} }

func (CreateUserHandler) Handle(cmd CreateUser) string { return "created " + cmd.Name }

// DeleteUserHandler handles DeleteUser.
type DeleteUserHandler struct{}

func NewDeleteUserHandler() *DeleteUserHandler { return &DeleteUserHandler{} }

func (DeleteUserHandler) Handle(cmd DeleteUser) string { return fmt.Sprintf("deleted %d", cmd.ID) }

// RenameUserHandler handles RenameUser.
type RenameUserHandler struct{}

func NewRenameUserHandler() *RenameUserHandler { return &RenameUserHandler{} }

func (RenameUserHandler) Handle(cmd RenameUser) string { return "renamed " + cmd.Name }

// LoggingHandler is a generic decorator.
type LoggingHandler[T any] struct {
	Inner Handler[T]
}

func NewLoggingHandler[T any](inner Handler[T]) *LoggingHandler[T] {
	return &LoggingHandler[T]{Inner: inner}
}

func (h *LoggingHandler[T]) Handle(cmd T) string {
	return "log(" + h.Inner.Handle(cmd) + ")"
}

// Closer is a disposable service that records its closing order.
type Closer struct {
	Name   string
	Order  *Recorder
	Err    error
	closed atomic.Bool
}

func (c *Closer) Close() error {
	c.closed.Store(true)
	if c.Order != nil {
		c.Order.Record(c.Name)
	}
	return c.Err
}

func (c *Closer) Closed() bool {
	return c.closed.Load()
}
