package core

import (
	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
)

// ManagerOption customizes a manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	clock  clockwork.Clock
	logger hclog.Logger
}

// WithClock sets the clock used for creation, redemption and expiry checks.
func WithClock(c clockwork.Clock) ManagerOption {
	return func(o *managerOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(l hclog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func newManagerOptions(name string, opts []ManagerOption) managerOptions {
	o := managerOptions{
		clock:  clockwork.NewRealClock(),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named(name)
	return o
}
