package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retryOptions struct {
	Attempts int
	Label    string
}

func defaultRetryOptions() retryOptions {
	return retryOptions{Attempts: 3, Label: "default"}
}

// TestAddOptions_AppliesConfiguratorsInOrder verifies defaults are overridden by each configurator in turn.
func TestAddOptions_AppliesConfiguratorsInOrder(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.True(t, AddOptions(c, defaultRetryOptions))
	Configure(c, func(o *retryOptions) { o.Attempts = 5 })
	Configure(c, func(o *retryOptions) { o.Attempts++; o.Label = "custom" })

	p, err := c.Build()
	require.NoError(t, err)

	opts, err := Resolve[*retryOptions](p)
	require.NoError(t, err)
	assert.Equal(t, 6, opts.Attempts)
	assert.Equal(t, "custom", opts.Label)
}

func TestAddOptions_RegistersOnce(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	assert.True(t, AddOptions(c, defaultRetryOptions))
	assert.False(t, AddOptions(c, defaultRetryOptions))
	assert.Equal(t, 1, c.Len())
}

func TestAddOptions_NilDefaults(t *testing.T) {
	t.Parallel()

	c := NewCollection()
	AddOptions[retryOptions](c, nil)

	p, err := c.Build()
	require.NoError(t, err)

	opts, err := Resolve[*retryOptions](p)
	require.NoError(t, err)
	assert.Equal(t, retryOptions{}, *opts)
}

func TestConfigure_NilPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "di: nil configurator", func() {
		Configure[retryOptions](NewCollection(), nil)
	})
}

func TestOptions_NilCollectionPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "di: nil collection", func() {
		Configure(nil, func(o *retryOptions) { o.Attempts = 1 })
	})
	assert.PanicsWithValue(t, "di: nil collection", func() {
		AddOptions[retryOptions](nil, nil)
	})
}
