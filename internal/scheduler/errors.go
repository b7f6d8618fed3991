package scheduler

import "errors"

var (
	ErrJobNotFound      = errors.New("scheduler: job not found")
	ErrJobExists        = errors.New("scheduler: job already exists")
	ErrTriggerNotFound  = errors.New("scheduler: trigger not found")
	ErrTriggerExists    = errors.New("scheduler: trigger already exists")
	ErrInvalidJob       = errors.New("scheduler: invalid job")
	ErrInvalidTrigger   = errors.New("scheduler: invalid trigger")
	ErrJobRunning       = errors.New("scheduler: job is already running")
	ErrQueueFull        = errors.New("scheduler: worker queue is full")
	ErrSchedulerStopped = errors.New("scheduler: stopped")
)

// JobExecutionError is returned by a Job to tell the scheduler what to do
// after a failed execution.
type JobExecutionError struct {
	Err error

	// RefireImmediately re-executes the job at once, in the same firing,
	// with JobContext.RefireCount incremented.
	RefireImmediately bool

	// UnscheduleFiringTrigger removes the trigger that fired the job.
	UnscheduleFiringTrigger bool

	// UnscheduleAllTriggers removes every trigger of the job.
	UnscheduleAllTriggers bool
}

// Error implements the error interface.
func (e *JobExecutionError) Error() string {
	if e.Err == nil {
		return "job execution failed"
	}
	return "job execution failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *JobExecutionError) Unwrap() error { return e.Err }
