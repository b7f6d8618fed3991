package scheduler

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"tokenvault/internal/di"
)

// Job is a unit of work run by the scheduler. A new instance is obtained
// from the JobFactory for every firing.
type Job interface {
	Execute(ctx context.Context, jc *JobContext) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context, jc *JobContext) error

// Execute implements Job.
func (f JobFunc) Execute(ctx context.Context, jc *JobContext) error { return f(ctx, jc) }

// JobContext describes the firing being executed.
type JobContext struct {
	JobDetail  *JobDetail
	TriggerKey TriggerKey
	FireTime   time.Time

	// RefireCount is the number of immediate re-executions that preceded
	// this one.
	RefireCount int

	// Manual is set when the firing was requested through TriggerJob.
	Manual bool
}

// JobDetail describes a job known to the scheduler.
type JobDetail struct {
	Key         JobKey
	JobType     reflect.Type
	Description string

	// Durable jobs stay registered when their last trigger is removed.
	Durable bool

	// DisallowConcurrentExecution skips firings while a previous firing of
	// the same job is queued or running.
	DisallowConcurrentExecution bool

	// RequestsRecovery marks jobs that should be re-executed after an
	// unclean shutdown. It is informational: job state is not persisted.
	RequestsRecovery bool
}

// NewJobDetail returns a detail for the job type T.
func NewJobDetail[T Job](key JobKey) *JobDetail {
	return &JobDetail{Key: key, JobType: di.TypeOf[T]()}
}

func (d *JobDetail) validate() error {
	if d == nil {
		return di.ArgumentNilError{Param: "detail"}
	}
	if d.Key.IsZero() {
		return fmt.Errorf("%w: job key has no name", ErrInvalidJob)
	}
	if d.JobType == nil {
		return fmt.Errorf("%w: job %s has no type", ErrInvalidJob, d.Key)
	}
	return nil
}

// JobFactory creates the job instance for one firing. The returned release
// function is called once the firing, refires included, has finished.
type JobFactory interface {
	NewJob(detail *JobDetail) (job Job, release func(), err error)
}

// JobFactoryFunc adapts a function to the JobFactory interface.
type JobFactoryFunc func(detail *JobDetail) (Job, func(), error)

// NewJob implements JobFactory.
func (f JobFactoryFunc) NewJob(detail *JobDetail) (Job, func(), error) { return f(detail) }

// ProviderJobFactory resolves jobs from a new provider scope per firing.
// The scope is closed on release.
type ProviderJobFactory struct {
	provider *di.Provider
}

// NewProviderJobFactory returns a factory over provider.
func NewProviderJobFactory(provider *di.Provider) (*ProviderJobFactory, error) {
	if provider == nil {
		return nil, di.ArgumentNilError{Param: "provider"}
	}
	return &ProviderJobFactory{provider: provider}, nil
}

// NewJob implements JobFactory.
func (f *ProviderJobFactory) NewJob(detail *JobDetail) (Job, func(), error) {
	scope := f.provider.NewScope()
	v, err := scope.Resolve(detail.JobType)
	if err != nil {
		scope.Close()
		return nil, nil, fmt.Errorf("resolving job %s: %w", detail.Key, err)
	}
	job, ok := v.(Job)
	if !ok {
		scope.Close()
		return nil, nil, fmt.Errorf("%w: %s resolved to %T, which is not a Job", ErrInvalidJob, detail.Key, v)
	}
	return job, scope.Close, nil
}
