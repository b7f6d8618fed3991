package scheduler

import (
	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"tokenvault/internal/di"
)

// AddScheduler registers the scheduler options, a provider backed
// JobFactory, the *Scheduler and its *Host as singletons. Calling it again
// leaves the collection unchanged.
func AddScheduler(services *di.Collection) error {
	if services == nil {
		return di.ArgumentNilError{Param: "services"}
	}

	di.AddOptions(services, DefaultOptions)

	services.TryAdd(di.NewSingleton(func(p *di.Provider) (JobFactory, error) {
		return NewProviderJobFactory(p)
	}))

	services.TryAdd(di.NewSingleton(func(p *di.Provider) (*Scheduler, error) {
		opts, err := di.Resolve[*Options](p)
		if err != nil {
			return nil, err
		}
		factory, err := di.Resolve[JobFactory](p)
		if err != nil {
			return nil, err
		}
		logger, err := resolveLogger(p)
		if err != nil {
			return nil, err
		}
		clock, ok, err := di.ResolveOptional[clockwork.Clock](p)
		if err != nil {
			return nil, err
		}
		var options []Option
		if ok {
			options = append(options, WithClock(clock))
		}
		return New(factory, *opts, logger.Named("scheduler"), options...)
	}))

	services.TryAdd(di.NewSingleton(func(p *di.Provider) (*Host, error) {
		s, err := di.Resolve[*Scheduler](p)
		if err != nil {
			return nil, err
		}
		logger, err := resolveLogger(p)
		if err != nil {
			return nil, err
		}
		return NewHost(s, p, logger.Named("scheduler"))
	}))
	return nil
}

func resolveLogger(p *di.Provider) (hclog.Logger, error) {
	logger, ok, err := di.ResolveOptional[hclog.Logger](p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return hclog.NewNullLogger(), nil
	}
	return logger, nil
}
