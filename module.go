package ioc

import "fmt"

// Module groups related registrations.
type Module func(c *Container) error

// NewModule creates a module that applies modules in order. Errors are
// wrapped in a ModuleError carrying name.
//
// Example:
//
//	var DataModule = ioc.NewModule("data",
//	    ioc.Provide[Repository](NewSQLRepository, ioc.Scoped),
//	    ioc.Decorate[Repository](NewLoggingRepository),
//	)
//
//	err := container.Install(DataModule)
func NewModule(name string, modules ...Module) Module {
	return func(c *Container) error {
		for _, m := range modules {
			if m == nil {
				continue
			}

			if err := m(c); err != nil {
				return &ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Install applies modules to the container.
func (c *Container) Install(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			continue
		}

		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}

// Provide registers constructor for T with lifestyle.
func Provide[T any](constructor any, lifestyle Lifestyle) Module {
	return func(c *Container) error {
		return Register[T](c, constructor, lifestyle)
	}
}

// Value registers instance as the singleton T.
func Value[T any](instance T) Module {
	return func(c *Container) error {
		return RegisterValue[T](c, instance)
	}
}

// Decorate registers decorator for T.
func Decorate[T any](decorator any, opts ...DecoratorOption) Module {
	return func(c *Container) error {
		return RegisterDecoratorFor[T](c, decorator, opts...)
	}
}

// DecorateOpen registers an open decorator.
func DecorateOpen(d *OpenDecorator, opts ...DecoratorOption) Module {
	return func(c *Container) error {
		return c.RegisterOpenDecorator(d, opts...)
	}
}

// Collection registers a collection of T.
func Collection[T any](lifestyle Lifestyle, items ...any) Module {
	return func(c *Container) error {
		return RegisterCollectionOf[T](c, lifestyle, items...)
	}
}

// ModuleError wraps an error raised while installing a module.
type ModuleError struct {
	Module string
	Cause  error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e *ModuleError) Unwrap() error {
	return e.Cause
}
