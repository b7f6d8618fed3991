package di

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

// TestNewInstance_Types verifies instance descriptors carry the service and dynamic types.
func TestNewInstance_Types(t *testing.T) {
	t.Parallel()

	d := NewInstance[greeter](englishGreeter{})
	assert.Equal(t, TypeOf[greeter](), d.ServiceType)
	assert.Equal(t, TypeOf[englishGreeter](), d.ImplementationType)
	assert.Equal(t, Singleton, d.Lifetime)
	assert.NotNil(t, d.Instance)
}

// TestNewTransient_Types verifies factory descriptors use T for both types.
func TestNewTransient_Types(t *testing.T) {
	t.Parallel()

	d := NewTransient(func(*Provider) (*widget, error) { return &widget{}, nil })
	assert.Equal(t, TypeOf[*widget](), d.ServiceType)
	assert.Equal(t, TypeOf[*widget](), d.ImplementationType)
	assert.Equal(t, Transient, d.Lifetime)
	assert.Nil(t, d.Instance)
	assert.NotNil(t, d.Factory)
}

func TestLifetime_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "singleton", Singleton.String())
	assert.Equal(t, "scoped", Scoped.String())
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "lifetime(9)", Lifetime(9).String())
}

// TestCollection_AddAppends verifies Add never de-duplicates.
func TestCollection_AddAppends(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	ret := c.Add(NewInstance(&widget{name: "a"})).Add(NewInstance(&widget{name: "b"}))
	require.Same(t, c, ret)
	assert.Equal(t, 2, c.Len())
}

// TestCollection_TryAdd verifies TryAdd keeps the first registration per service type.
func TestCollection_TryAdd(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.True(t, c.TryAdd(NewInstance(&widget{name: "first"})))
	assert.False(t, c.TryAdd(NewInstance(&widget{name: "second"})))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "first", c.Descriptors()[0].Instance.(*widget).name)
}

// TestCollection_TryAddEnumerable_ByImplementation verifies the implementation type is the default identity.
func TestCollection_TryAddEnumerable_ByImplementation(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.True(t, c.TryAddEnumerable(NewInstance[greeter](englishGreeter{})))
	assert.True(t, c.TryAddEnumerable(NewInstance[greeter](frenchGreeter{})))
	assert.False(t, c.TryAddEnumerable(NewInstance[greeter](englishGreeter{})))

	assert.Equal(t, 2, c.Len())
}

// TestCollection_TryAddEnumerable_ByKey verifies explicit keys override the implementation identity.
func TestCollection_TryAddEnumerable_ByKey(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.True(t, c.TryAddEnumerable(NewInstance(&widget{name: "a"}).WithKey("a")))
	assert.True(t, c.TryAddEnumerable(NewInstance(&widget{name: "b"}).WithKey("b")))
	assert.False(t, c.TryAddEnumerable(NewInstance(&widget{name: "a2"}).WithKey("a")))

	got := c.Where(func(d *Descriptor) bool { return d.ServiceType == TypeOf[*widget]() })
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Instance.(*widget).name)
	assert.Equal(t, "b", got[1].Instance.(*widget).name)
}

func TestCollection_TryAddEnumerable_PanicsOnUncomparableKey(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.Panics(t, func() {
		c.TryAddEnumerable(NewInstance(&widget{}).WithKey([]string{"x"}))
	})
}

func TestCollection_AddNilPanics(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.PanicsWithValue(t, "di: nil descriptor", func() { c.Add(nil) })
	assert.Panics(t, func() { c.TryAdd(nil) })
	assert.Panics(t, func() { c.TryAddEnumerable(nil) })
}

func TestCollection_NilCollectionPanics(t *testing.T) {
	t.Parallel()

	var c *Collection
	d := NewInstance(&widget{})
	assert.PanicsWithValue(t, "di: nil collection", func() { c.Add(d) })
	assert.PanicsWithValue(t, "di: nil collection", func() { c.TryAdd(d) })
	assert.PanicsWithValue(t, "di: nil collection", func() { c.TryAddEnumerable(d) })
}

// TestCollection_DescriptorsIsACopy verifies callers cannot mutate the collection through Descriptors.
func TestCollection_DescriptorsIsACopy(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	c.Add(NewInstance(&widget{}))
	got := c.Descriptors()
	got[0] = nil

	assert.NotNil(t, c.Descriptors()[0])
}

func TestCollection_Contains(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.False(t, c.Contains(TypeOf[*widget]()))
	c.Add(NewInstance(&widget{}))
	assert.True(t, c.Contains(TypeOf[*widget]()))
}

// TestCollection_BuildRejectsInvalidDescriptors verifies Build validates every descriptor.
func TestCollection_BuildRejectsInvalidDescriptors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    *Descriptor
	}{
		{"missing service type", &Descriptor{Instance: 1}},
		{"no instance or factory", &Descriptor{ServiceType: TypeOf[*widget]()}},
		{"transient instance", &Descriptor{ServiceType: TypeOf[*widget](), Instance: &widget{}, Lifetime: Transient}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollection().Add(tt.d)
			p, err := c.Build()
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ErrInvalidDescriptor))
		})
	}
}
