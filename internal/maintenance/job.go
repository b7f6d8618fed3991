package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"tokenvault/internal/core"
	"tokenvault/internal/di"
	"tokenvault/internal/metrics"
	"tokenvault/internal/scheduler"
)

var (
	// ErrPruningDisabled is returned when both token and authorization
	// pruning are disabled. The job unschedules itself.
	ErrPruningDisabled = errors.New("maintenance: token and authorization pruning are both disabled")

	// ErrManagerNotRegistered is returned when a manager needed for pruning
	// is missing from the provider. The job unschedules itself.
	ErrManagerNotRegistered = errors.New("maintenance: manager not registered")
)

// Job prunes tokens, then authorizations. It resolves its options, clock and
// managers from the provider it was created with.
type Job struct {
	provider *di.Provider
}

var _ scheduler.Job = (*Job)(nil)

// NewJob returns a job resolving its dependencies from provider.
func NewJob(provider *di.Provider) (*Job, error) {
	if provider == nil {
		return nil, di.ArgumentNilError{Param: "provider"}
	}
	return &Job{provider: provider}, nil
}

// Execute implements scheduler.Job.
func (j *Job) Execute(ctx context.Context, jc *scheduler.JobContext) error {
	if jc == nil {
		jc = &scheduler.JobContext{}
	}
	opts, err := di.Resolve[*Options](j.provider)
	if err != nil {
		return unscheduleAll(err)
	}
	if err := opts.Validate(); err != nil {
		return unscheduleAll(err)
	}
	if opts.DisableAuthorizationPruning && opts.DisableTokenPruning {
		return unscheduleAll(ErrPruningDisabled)
	}

	clock, err := j.clock()
	if err != nil {
		return unscheduleAll(err)
	}
	logger, err := j.logger()
	if err != nil {
		return unscheduleAll(err)
	}

	if !opts.DisableTokenPruning {
		manager, ok, err := di.ResolveOptional[*core.TokenManager](j.provider)
		switch {
		case err != nil:
			return refire(jc, opts, err)
		case !ok:
			return unscheduleAll(fmt.Errorf("%w: token manager", ErrManagerNotRegistered))
		}

		n, err := manager.Prune(ctx, clock.Now().Add(-opts.MinimumTokenLifespan))
		metrics.TokensPruned.Add(float64(n))
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("token pruning interrupted")
				return nil
			}
			return refire(jc, opts, err)
		}
		logger.Debug("tokens pruned", "count", n)
	}

	if !opts.DisableAuthorizationPruning {
		manager, ok, err := di.ResolveOptional[*core.AuthorizationManager](j.provider)
		switch {
		case err != nil:
			return refire(jc, opts, err)
		case !ok:
			return unscheduleAll(fmt.Errorf("%w: authorization manager", ErrManagerNotRegistered))
		}

		n, err := manager.Prune(ctx, clock.Now().Add(-opts.MinimumAuthorizationLifespan))
		metrics.AuthorizationsPruned.Add(float64(n))
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("authorization pruning interrupted")
				return nil
			}
			return refire(jc, opts, err)
		}
		logger.Debug("authorizations pruned", "count", n)
	}
	return nil
}

func (j *Job) clock() (clockwork.Clock, error) {
	clock, ok, err := di.ResolveOptional[clockwork.Clock](j.provider)
	if err != nil || ok {
		return clock, err
	}
	return clockwork.NewRealClock(), nil
}

func (j *Job) logger() (hclog.Logger, error) {
	logger, ok, err := di.ResolveOptional[hclog.Logger](j.provider)
	if err != nil {
		return nil, err
	}
	if !ok {
		return hclog.NewNullLogger(), nil
	}
	return logger.Named("maintenance"), nil
}

func unscheduleAll(err error) error {
	return &scheduler.JobExecutionError{
		Err:                     err,
		UnscheduleFiringTrigger: true,
		UnscheduleAllTriggers:   true,
	}
}

// refire asks for an immediate re-execution while the refire budget lasts.
func refire(jc *scheduler.JobContext, opts *Options, err error) error {
	return &scheduler.JobExecutionError{
		Err:               err,
		RefireImmediately: jc.RefireCount < opts.MaximumRefireCount,
	}
}
