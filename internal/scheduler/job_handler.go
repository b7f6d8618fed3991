package scheduler

import (
	"context"
	"errors"
	"fmt"

	"tokenvault/internal/metrics"
)

// JobTask wraps one firing to implement the worker.Task interface
type JobTask struct {
	scheduler  *Scheduler
	state      *jobState
	detail     *JobDetail
	triggerKey TriggerKey
	manual     bool
}

// Process implements the worker.Task interface. It runs the job, refiring
// it while it asks to, and applies the unschedule instructions of the last
// failure.
func (t *JobTask) Process() error {
	s := t.scheduler
	defer s.finished(t.state)

	ctx := s.ctx
	label := t.detail.Key.String()
	logger := s.logger.With("job", label, "trigger", t.triggerKey.String())

	if err := ctx.Err(); err != nil {
		logger.Debug("scheduler stopping, firing discarded")
		return err
	}

	job, release, err := s.factory.NewJob(t.detail)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(label).Inc()
		logger.Error("failed to create job", "error", err)
		return err
	}
	defer release()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	jc := &JobContext{
		JobDetail:  t.detail,
		TriggerKey: t.triggerKey,
		FireTime:   s.clock.Now(),
		Manual:     t.manual,
	}

	for {
		start := s.clock.Now()
		err := safeExecute(ctx, job, jc)
		elapsed := s.clock.Since(start)
		metrics.JobDuration.WithLabelValues(label).Observe(elapsed.Seconds())

		if err == nil {
			metrics.JobsCompleted.WithLabelValues(label).Inc()
			logger.Debug("job completed", "refire_count", jc.RefireCount, "duration", elapsed)
			return nil
		}

		var execErr *JobExecutionError
		if !errors.As(err, &execErr) {
			metrics.JobsFailed.WithLabelValues(label).Inc()
			logger.Error("job failed", "error", err)
			return err
		}

		if execErr.RefireImmediately && ctx.Err() == nil {
			metrics.JobRefires.WithLabelValues(label).Inc()
			jc.RefireCount++
			logger.Warn("job failed, refiring", "error", execErr.Err, "refire_count", jc.RefireCount)
			continue
		}

		metrics.JobsFailed.WithLabelValues(label).Inc()
		logger.Error("job failed", "error", execErr.Err, "refire_count", jc.RefireCount)
		switch {
		case execErr.UnscheduleAllTriggers:
			n := s.UnscheduleAll(t.detail.Key)
			logger.Warn("job asked to unschedule all its triggers", "removed", n)
		case execErr.UnscheduleFiringTrigger && !t.manual:
			s.UnscheduleTrigger(t.triggerKey)
		}
		return err
	}
}

func safeExecute(ctx context.Context, job Job, jc *JobContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx, jc)
}
