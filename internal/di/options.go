package di

// Configurator mutates options of type T. Every configurator registered with
// Configure[T] is applied, in order, when the options are first resolved.
type Configurator[T any] func(*T)

// Configure registers fn as a configurator for T. Each call adds a new
// configurator. It panics if c or fn is nil.
func Configure[T any](c *Collection, fn func(*T)) {
	mustCollection(c)
	if fn == nil {
		panic("di: nil configurator")
	}
	c.Add(NewInstance(Configurator[T](fn)))
}

// AddOptions registers, once, a singleton *T built from defaults and then
// every Configurator[T] in registration order. A nil defaults starts from
// the zero value. It panics if c is nil.
func AddOptions[T any](c *Collection, defaults func() T) bool {
	mustCollection(c)
	return c.TryAdd(NewSingleton(func(p *Provider) (*T, error) {
		var opts T
		if defaults != nil {
			opts = defaults()
		}
		configurators, err := ResolveAll[Configurator[T]](p)
		if err != nil {
			return nil, err
		}
		for _, configure := range configurators {
			configure(&opts)
		}
		return &opts, nil
	}))
}
