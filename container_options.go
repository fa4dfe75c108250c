package ioc

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Options configures a Container.
type Options struct {
	// DefaultLifestyle is used when a registration does not name one.
	// Defaults to Transient.
	DefaultLifestyle Lifestyle

	// AllowOverriding lets a later registration replace an earlier one for
	// the same service type instead of failing with AlreadyRegisteredError.
	AllowOverriding bool

	// Logger receives debug output about registrations and compiled
	// producers. Defaults to a no-op logger.
	Logger *zap.Logger

	// OnResolved is called after a service was resolved through the
	// container or a scope.
	OnResolved func(serviceType reflect.Type, instance any, duration time.Duration)

	// OnError is called when resolving a service fails.
	OnError func(serviceType reflect.Type, err error)
}

// DefaultOptions returns the options used by New.
func DefaultOptions() *Options {
	return &Options{
		DefaultLifestyle: Transient,
		Logger:           zap.NewNop(),
	}
}

// Option modifies Options.
type Option func(*Options)

// WithLogger sets the container's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDefaultLifestyle sets the lifestyle used when none is given.
func WithDefaultLifestyle(l Lifestyle) Option {
	return func(o *Options) {
		o.DefaultLifestyle = l
	}
}

// WithOverriding allows registrations to replace earlier ones.
func WithOverriding() Option {
	return func(o *Options) {
		o.AllowOverriding = true
	}
}

// WithResolvedCallback sets Options.OnResolved.
func WithResolvedCallback(fn func(serviceType reflect.Type, instance any, duration time.Duration)) Option {
	return func(o *Options) {
		o.OnResolved = fn
	}
}

// WithErrorCallback sets Options.OnError.
func WithErrorCallback(fn func(serviceType reflect.Type, err error)) Option {
	return func(o *Options) {
		o.OnError = fn
	}
}

// WithOptions copies every set field of opts.
func WithOptions(opts *Options) Option {
	return func(o *Options) {
		if opts == nil {
			return
		}
		if opts.DefaultLifestyle != nil {
			o.DefaultLifestyle = opts.DefaultLifestyle
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
		if opts.OnResolved != nil {
			o.OnResolved = opts.OnResolved
		}
		if opts.OnError != nil {
			o.OnError = opts.OnError
		}
		o.AllowOverriding = o.AllowOverriding || opts.AllowOverriding
	}
}

// optionsFile is the YAML form of Options.
type optionsFile struct {
	DefaultLifestyle LifestyleName `yaml:"default_lifestyle"`
	AllowOverriding  bool          `yaml:"allow_overriding"`
	LogLevel         string        `yaml:"log_level"`
}

// LoadOptions reads Options from YAML:
//
//	default_lifestyle: scoped
//	allow_overriding: false
//	log_level: debug
//
// When log_level is set, a production zap logger at that level is created.
func LoadOptions(r io.Reader) (*Options, error) {
	var file optionsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, &ConfigurationError{Operation: "load options", Cause: err}
	}

	opts := DefaultOptions()
	opts.AllowOverriding = file.AllowOverriding

	if file.DefaultLifestyle.Lifestyle != nil {
		opts.DefaultLifestyle = file.DefaultLifestyle.Lifestyle
	}

	if file.LogLevel != "" {
		level, err := zapcore.ParseLevel(file.LogLevel)
		if err != nil {
			return nil, &ConfigurationError{Operation: "load options", Cause: err}
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)

		logger, err := cfg.Build()
		if err != nil {
			return nil, &ConfigurationError{Operation: "load options", Cause: fmt.Errorf("building logger: %w", err)}
		}
		opts.Logger = logger
	}

	return opts, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *LifestyleName) UnmarshalYAML(value *yaml.Node) error {
	return n.UnmarshalText([]byte(value.Value))
}

// MarshalYAML implements yaml.Marshaler.
func (n LifestyleName) MarshalYAML() (any, error) {
	text, err := n.MarshalText()
	return string(text), err
}
