package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Provider resolves services registered in a Collection.
//
// The provider returned by Collection.Build is the root: it owns singletons
// and acts as its own scope. NewScope returns child providers that share the
// root's singletons and keep their own scoped instances.
type Provider struct {
	root   *Provider
	byType map[reflect.Type][]*Descriptor

	mu        sync.Mutex
	instances map[*Descriptor]*lazyInstance
	closed    bool
}

type lazyInstance struct {
	mu    sync.Mutex
	built bool
	value any
}

func newRootProvider(byType map[reflect.Type][]*Descriptor) *Provider {
	p := &Provider{
		byType:    byType,
		instances: make(map[*Descriptor]*lazyInstance),
	}
	p.root = p
	return p
}

// NewScope returns a child provider. Scoped services resolved from it are
// released when it is closed.
func (p *Provider) NewScope() *Provider {
	return &Provider{
		root:      p.root,
		byType:    p.byType,
		instances: make(map[*Descriptor]*lazyInstance),
	}
}

// Close releases the instances cached by p. Closing the root also releases
// singletons. Resolving from a closed provider fails with ErrProviderClosed.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.instances = nil
}

// Resolve returns the last registered service for t.
func (p *Provider) Resolve(t reflect.Type) (any, error) {
	descriptors := p.byType[t]
	if len(descriptors) == 0 {
		return nil, ServiceNotFoundError{Type: t}
	}
	return p.get(descriptors[len(descriptors)-1])
}

// ResolveAll returns every service registered for t, in registration order.
// It returns an empty slice when nothing is registered.
func (p *Provider) ResolveAll(t reflect.Type) ([]any, error) {
	descriptors := p.byType[t]
	out := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		v, err := p.get(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// IsRegistered reports whether t can be resolved.
func (p *Provider) IsRegistered(t reflect.Type) bool {
	return len(p.byType[t]) > 0
}

func (p *Provider) get(d *Descriptor) (any, error) {
	if p.isClosed() {
		return nil, ErrProviderClosed
	}
	if d.Instance != nil {
		return d.Instance, nil
	}
	switch d.Lifetime {
	case Transient:
		return p.build(d)
	case Singleton:
		return p.root.cached(d)
	default:
		return p.cached(d)
	}
}

func (p *Provider) cached(d *Descriptor) (any, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrProviderClosed
	}
	li, ok := p.instances[d]
	if !ok {
		li = &lazyInstance{}
		p.instances[d] = li
	}
	p.mu.Unlock()

	li.mu.Lock()
	defer li.mu.Unlock()
	if li.built {
		return li.value, nil
	}
	v, err := p.build(d)
	if err != nil {
		return nil, err
	}
	li.value, li.built = v, true
	return v, nil
}

func (p *Provider) build(d *Descriptor) (any, error) {
	v, err := d.Factory(p)
	if err != nil {
		return nil, fmt.Errorf("di: building %s: %w", d, err)
	}
	return v, nil
}

func (p *Provider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Resolve returns the last registered T from p.
func Resolve[T any](p *Provider) (T, error) {
	var zero T
	if p == nil {
		return zero, ArgumentNilError{Param: "provider"}
	}
	v, err := p.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return assertType[T](v)
}

// ResolveOptional is Resolve that reports false instead of failing when T is
// not registered. Other errors are still returned.
func ResolveOptional[T any](p *Provider) (T, bool, error) {
	var zero T
	if p == nil {
		return zero, false, ArgumentNilError{Param: "provider"}
	}
	if !p.IsRegistered(TypeOf[T]()) {
		return zero, false, nil
	}
	v, err := Resolve[T](p)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// ResolveAll returns every registered T from p, in registration order.
func ResolveAll[T any](p *Provider) ([]T, error) {
	if p == nil {
		return nil, ArgumentNilError{Param: "provider"}
	}
	values, err := p.ResolveAll(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(values))
	for _, v := range values {
		t, err := assertType[T](v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func assertType[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, WrongTypeError{Type: TypeOf[T](), GotType: fmt.Sprintf("%T", v)}
	}
	return t, nil
}
