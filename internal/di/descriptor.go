package di

import (
	"fmt"
	"reflect"
)

// Lifetime controls how long a resolved service lives.
type Lifetime int

const (
	// Singleton services are built once per root provider.
	Singleton Lifetime = iota
	// Scoped services are built once per scope.
	Scoped
	// Transient services are built on every resolution.
	Transient
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Factory builds a service from the provider it is resolved from.
type Factory func(p *Provider) (any, error)

// Descriptor describes one registration.
type Descriptor struct {
	// ServiceType is the type callers resolve.
	ServiceType reflect.Type

	// ImplementationType is the concrete type produced. For instance
	// descriptors it is the dynamic type of Instance.
	ImplementationType reflect.Type

	// Instance is a ready value. Instance descriptors are always singletons.
	Instance any

	// Factory builds the value when Instance is nil.
	Factory Factory

	Lifetime Lifetime

	// Key is the identity used by TryAddEnumerable. When nil the
	// implementation type is used. Keys must be comparable.
	Key any
}

// TypeOf returns the reflect.Type for T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// NewSingleton describes a T built once per root provider.
func NewSingleton[T any](factory func(p *Provider) (T, error)) *Descriptor {
	return newFactoryDescriptor(Singleton, factory)
}

// NewScoped describes a T built once per scope.
func NewScoped[T any](factory func(p *Provider) (T, error)) *Descriptor {
	return newFactoryDescriptor(Scoped, factory)
}

// NewTransient describes a T built on every resolution.
func NewTransient[T any](factory func(p *Provider) (T, error)) *Descriptor {
	return newFactoryDescriptor(Transient, factory)
}

// NewInstance describes a singleton T backed by value.
func NewInstance[T any](value T) *Descriptor {
	impl := reflect.TypeOf(value)
	if impl == nil {
		impl = TypeOf[T]()
	}
	return &Descriptor{
		ServiceType:        TypeOf[T](),
		ImplementationType: impl,
		Instance:           value,
		Lifetime:           Singleton,
	}
}

func newFactoryDescriptor[T any](lifetime Lifetime, factory func(p *Provider) (T, error)) *Descriptor {
	d := &Descriptor{
		ServiceType:        TypeOf[T](),
		ImplementationType: TypeOf[T](),
		Lifetime:           lifetime,
	}
	if factory != nil {
		d.Factory = func(p *Provider) (any, error) {
			return factory(p)
		}
	}
	return d
}

// WithKey sets the enumerable identity and returns d.
func (d *Descriptor) WithKey(key any) *Descriptor {
	d.Key = key
	return d
}

// identity is the value TryAddEnumerable compares.
func (d *Descriptor) identity() any {
	if d.Key != nil {
		return d.Key
	}
	if d.ImplementationType != nil {
		return d.ImplementationType
	}
	return d.ServiceType
}

func (d *Descriptor) validate() error {
	if d.ServiceType == nil {
		return fmt.Errorf("%w: missing service type", ErrInvalidDescriptor)
	}
	if d.Instance == nil && d.Factory == nil {
		return fmt.Errorf("%w: %s has neither instance nor factory", ErrInvalidDescriptor, d.ServiceType)
	}
	if d.Instance != nil && d.Lifetime != Singleton {
		return fmt.Errorf("%w: instance for %s must be a singleton, got %s", ErrInvalidDescriptor, d.ServiceType, d.Lifetime)
	}
	return nil
}

// String describes the registration, e.g. "*maintenance.Job (transient)".
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", typeName(d.ServiceType), d.Lifetime)
}
