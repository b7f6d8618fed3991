package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"tokenvault/internal/di"
	"tokenvault/internal/logging"
)

// Host schedules the jobs and triggers registered in a provider and owns
// the scheduler lifecycle.
type Host struct {
	scheduler *Scheduler
	provider  *di.Provider
	logger    hclog.Logger

	mu      sync.Mutex
	started bool
}

// NewHost returns a host for scheduler over provider.
func NewHost(scheduler *Scheduler, provider *di.Provider, logger hclog.Logger) (*Host, error) {
	if scheduler == nil {
		return nil, di.ArgumentNilError{Param: "scheduler"}
	}
	if provider == nil {
		return nil, di.ArgumentNilError{Param: "provider"}
	}
	return &Host{scheduler: scheduler, provider: provider, logger: logging.OrNull(logger)}, nil
}

// Scheduler returns the hosted scheduler.
func (h *Host) Scheduler() *Scheduler {
	return h.scheduler
}

// Start adds every registered *JobDetail, schedules every registered
// *Trigger and starts the scheduler. Calling Start again is a no-op.
func (h *Host) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	details, err := di.ResolveAll[*JobDetail](h.provider)
	if err != nil {
		return fmt.Errorf("resolving job details: %w", err)
	}
	triggers, err := di.ResolveAll[*Trigger](h.provider)
	if err != nil {
		return fmt.Errorf("resolving triggers: %w", err)
	}

	for _, detail := range details {
		if err := h.scheduler.AddJob(detail, true); err != nil {
			return fmt.Errorf("adding job: %w", err)
		}
	}
	for _, trigger := range triggers {
		if err := h.scheduler.ScheduleTrigger(trigger); err != nil {
			return fmt.Errorf("scheduling trigger: %w", err)
		}
	}

	if err := h.scheduler.Start(); err != nil {
		return err
	}
	h.started = true
	h.logger.Info("scheduler host started", "jobs", len(details), "triggers", len(triggers))
	return nil
}

// Stop stops the scheduler, waiting for running jobs until ctx is done.
func (h *Host) Stop(ctx context.Context) error {
	return h.scheduler.Stop(ctx)
}
