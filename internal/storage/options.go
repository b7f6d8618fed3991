package storage

import "github.com/jonboulle/clockwork"

// StoreOption customizes a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	clock clockwork.Clock
}

// WithClock sets the clock used to decide token expiry during pruning.
func WithClock(c clockwork.Clock) StoreOption {
	return func(o *storeOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func newStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
