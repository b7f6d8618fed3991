package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Collection is an ordered, concurrency-safe list of service descriptors.
type Collection struct {
	mu          sync.RWMutex
	descriptors []*Descriptor
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends d unconditionally and returns c for chaining.
// It panics if c or d is nil.
func (c *Collection) Add(d *Descriptor) *Collection {
	mustCollection(c)
	mustDescriptor(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors = append(c.descriptors, d)
	return c
}

// TryAdd appends d unless a descriptor with the same service type exists.
// It reports whether d was added.
func (c *Collection) TryAdd(d *Descriptor) bool {
	mustCollection(c)
	mustDescriptor(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.descriptors {
		if existing.ServiceType == d.ServiceType {
			return false
		}
	}
	c.descriptors = append(c.descriptors, d)
	return true
}

// TryAddEnumerable appends d unless a descriptor with the same service type
// and identity exists. The identity is d.Key when set, otherwise the
// implementation type. It reports whether d was added.
func (c *Collection) TryAddEnumerable(d *Descriptor) bool {
	mustCollection(c)
	mustDescriptor(d)
	id := d.identity()
	if id != nil && !reflect.TypeOf(id).Comparable() {
		panic(fmt.Sprintf("di: enumerable key of type %T is not comparable", id))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.descriptors {
		if existing.ServiceType == d.ServiceType && existing.identity() == id {
			return false
		}
	}
	c.descriptors = append(c.descriptors, d)
	return true
}

// Descriptors returns a copy of the registered descriptors in order.
func (c *Collection) Descriptors() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Len returns the number of descriptors.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

// Where returns the descriptors matching pred, in registration order.
func (c *Collection) Where(pred func(*Descriptor) bool) []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Descriptor
	for _, d := range c.descriptors {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether any descriptor is registered for t.
func (c *Collection) Contains(t reflect.Type) bool {
	return len(c.Where(func(d *Descriptor) bool { return d.ServiceType == t })) > 0
}

// Build validates every descriptor and returns a root provider over a
// snapshot of the collection. Later registrations do not affect it.
func (c *Collection) Build() (*Provider, error) {
	descriptors := c.Descriptors()
	byType := make(map[reflect.Type][]*Descriptor, len(descriptors))
	for i, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		byType[d.ServiceType] = append(byType[d.ServiceType], d)
	}
	return newRootProvider(byType), nil
}

func mustCollection(c *Collection) {
	if c == nil {
		panic("di: nil collection")
	}
}

func mustDescriptor(d *Descriptor) {
	if d == nil {
		panic("di: nil descriptor")
	}
}
