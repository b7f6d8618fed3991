package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"tokenvault/internal/di"
	"tokenvault/internal/logging"
	"tokenvault/internal/metrics"
	"tokenvault/internal/worker"
)

// ManualTriggerKey is reported in the JobContext of firings requested
// through TriggerJob.
var ManualTriggerKey = NewTriggerKey("manual", "MANUAL")

// Options configures the scheduler.
type Options struct {
	// Workers is the number of goroutines executing jobs.
	Workers int
	// QueueSize bounds the firings waiting for a worker. Firings beyond it
	// are dropped.
	QueueSize int
}

// DefaultOptions returns the default scheduler options.
func DefaultOptions() Options {
	return Options{Workers: 4, QueueSize: 32}
}

// Scheduler fires jobs from triggers evaluated by robfig/cron and runs them
// on a worker pool.
type Scheduler struct {
	cron    *cron.Cron
	pool    *worker.Pool
	factory JobFactory
	logger  hclog.Logger
	clock   clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	jobs     map[JobKey]*jobState
	triggers map[TriggerKey]*triggerState
	started  bool
	stopped  bool
}

type jobState struct {
	detail   *JobDetail
	triggers map[TriggerKey]struct{}
	// running counts queued and executing firings.
	running int
}

type triggerState struct {
	trigger *Trigger
	entryID cron.EntryID
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for fire times and job durations. Trigger
// evaluation stays on robfig/cron's wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// New returns a stopped scheduler that obtains job instances from factory.
func New(factory JobFactory, opts Options, logger hclog.Logger, options ...Option) (*Scheduler, error) {
	if factory == nil {
		return nil, di.ArgumentNilError{Param: "factory"}
	}
	logger = logging.OrNull(logger)
	cronLogger := logging.CronLogger(logger.Named("cron"))
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		pool:     worker.NewPool(opts.Workers, opts.QueueSize),
		factory:  factory,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[JobKey]*jobState),
		triggers: make(map[TriggerKey]*triggerState),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AddJob registers detail. An existing job with the same key is an error
// unless replace is set, in which case its triggers are kept.
func (s *Scheduler) AddJob(detail *JobDetail, replace bool) error {
	if err := detail.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.jobs[detail.Key]; ok {
		if !replace {
			return fmt.Errorf("%w: %s", ErrJobExists, detail.Key)
		}
		state.detail = detail
		return nil
	}
	s.jobs[detail.Key] = &jobState{detail: detail, triggers: make(map[TriggerKey]struct{})}
	s.logger.Debug("job added", "job", detail.Key.String())
	return nil
}

// ScheduleJob adds detail and schedules trigger for it. A trigger without a
// job key is bound to detail.
func (s *Scheduler) ScheduleJob(detail *JobDetail, trigger *Trigger) error {
	if err := detail.validate(); err != nil {
		return err
	}
	if trigger != nil && trigger.JobKey.IsZero() {
		trigger.JobKey = detail.Key
	}
	if err := trigger.validate(); err != nil {
		return err
	}
	if trigger.JobKey != detail.Key {
		return fmt.Errorf("%w: trigger %s targets %s, not %s", ErrInvalidTrigger, trigger.Key, trigger.JobKey, detail.Key)
	}
	if err := s.AddJob(detail, false); err != nil {
		return err
	}
	return s.ScheduleTrigger(trigger)
}

// ScheduleTrigger schedules trigger for an existing job.
func (s *Scheduler) ScheduleTrigger(trigger *Trigger) error {
	if err := trigger.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.jobs[trigger.JobKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, trigger.JobKey)
	}
	if _, exists := s.triggers[trigger.Key]; exists {
		return fmt.Errorf("%w: %s", ErrTriggerExists, trigger.Key)
	}

	schedule := trigger.Schedule
	if trigger.StartDelay > 0 {
		schedule = delayedSchedule{start: time.Now().Add(trigger.StartDelay), next: schedule}
	}
	jobKey, triggerKey := trigger.JobKey, trigger.Key
	id := s.cron.Schedule(schedule, cron.FuncJob(func() {
		if err := s.fire(jobKey, triggerKey, false); err != nil {
			s.logger.Debug("firing skipped", "job", jobKey.String(), "trigger", triggerKey.String(), "reason", err)
		}
	}))

	s.triggers[trigger.Key] = &triggerState{trigger: trigger, entryID: id}
	state.triggers[trigger.Key] = struct{}{}
	metrics.JobsScheduled.WithLabelValues(jobKey.String()).Inc()
	s.logger.Info("trigger scheduled", "job", jobKey.String(), "trigger", triggerKey.String(), "start_delay", trigger.StartDelay)
	return nil
}

// UnscheduleTrigger removes a trigger. A non-durable job is deleted with its
// last trigger. It reports whether the trigger existed.
func (s *Scheduler) UnscheduleTrigger(key TriggerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unscheduleLocked(key)
}

func (s *Scheduler) unscheduleLocked(key TriggerKey) bool {
	ts, ok := s.triggers[key]
	if !ok {
		return false
	}
	s.cron.Remove(ts.entryID)
	delete(s.triggers, key)

	jobKey := ts.trigger.JobKey
	if state, ok := s.jobs[jobKey]; ok {
		delete(state.triggers, key)
		if len(state.triggers) == 0 && !state.detail.Durable {
			delete(s.jobs, jobKey)
			s.logger.Debug("non-durable job removed with its last trigger", "job", jobKey.String())
		}
	}
	s.logger.Info("trigger unscheduled", "job", jobKey.String(), "trigger", key.String())
	return true
}

// UnscheduleAll removes every trigger of a job and returns how many were
// removed.
func (s *Scheduler) UnscheduleAll(jobKey JobKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[jobKey]
	if !ok {
		return 0
	}
	keys := make([]TriggerKey, 0, len(state.triggers))
	for key := range state.triggers {
		keys = append(keys, key)
	}
	n := 0
	for _, key := range keys {
		if s.unscheduleLocked(key) {
			n++
		}
	}
	return n
}

// DeleteJob removes a job and its triggers. It reports whether the job existed.
func (s *Scheduler) DeleteJob(jobKey JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[jobKey]
	if !ok {
		return false
	}
	for key := range state.triggers {
		if ts, ok := s.triggers[key]; ok {
			s.cron.Remove(ts.entryID)
			delete(s.triggers, key)
		}
	}
	delete(s.jobs, jobKey)
	s.logger.Info("job deleted", "job", jobKey.String())
	return true
}

// TriggerJob fires a job now, outside its schedule.
func (s *Scheduler) TriggerJob(jobKey JobKey) error {
	return s.fire(jobKey, ManualTriggerKey, true)
}

// HasJob reports whether a job is registered.
func (s *Scheduler) HasJob(jobKey JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobKey]
	return ok
}

// JobSummary describes a registered job and its triggers.
type JobSummary struct {
	Key         JobKey           `json:"key"`
	Description string           `json:"description,omitempty"`
	Durable     bool             `json:"durable"`
	Running     bool             `json:"running"`
	Triggers    []TriggerSummary `json:"triggers"`
}

// TriggerSummary describes a scheduled trigger.
type TriggerSummary struct {
	Key      TriggerKey `json:"key"`
	Next     time.Time  `json:"next,omitempty"`
	Previous time.Time  `json:"previous,omitempty"`
}

// Jobs returns the registered jobs ordered by key.
func (s *Scheduler) Jobs() []JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobSummary, 0, len(s.jobs))
	for key, state := range s.jobs {
		summary := JobSummary{
			Key:         key,
			Description: state.detail.Description,
			Durable:     state.detail.Durable,
			Running:     state.running > 0,
			Triggers:    []TriggerSummary{},
		}
		for tk := range state.triggers {
			entry := s.cron.Entry(s.triggers[tk].entryID)
			summary.Triggers = append(summary.Triggers, TriggerSummary{Key: tk, Next: entry.Next, Previous: entry.Prev})
		}
		sort.Slice(summary.Triggers, func(i, j int) bool {
			return summary.Triggers[i].Key.String() < summary.Triggers[j].Key.String()
		})
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Start starts trigger evaluation and the workers.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	s.pool.Start()
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "triggers", len(s.triggers), "workers", s.pool.Workers())
	return nil
}

// Stop stops firing triggers, cancels the context of running jobs and waits
// for the workers until ctx is done. A stopped scheduler cannot be restarted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// Stats returns the worker pool statistics.
func (s *Scheduler) Stats() worker.PoolStats {
	return s.pool.Stats()
}

// fire queues one execution of a job.
func (s *Scheduler) fire(jobKey JobKey, triggerKey TriggerKey, manual bool) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	state, ok := s.jobs[jobKey]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey)
	}
	if state.detail.DisallowConcurrentExecution && state.running > 0 {
		s.mu.Unlock()
		metrics.JobsSkipped.WithLabelValues(jobKey.String(), "running").Inc()
		return fmt.Errorf("%w: %s", ErrJobRunning, jobKey)
	}
	state.running++
	detail := state.detail
	s.mu.Unlock()

	task := &JobTask{
		scheduler:  s,
		state:      state,
		detail:     detail,
		triggerKey: triggerKey,
		manual:     manual,
	}
	if !s.pool.Submit(task) {
		s.finished(state)
		metrics.JobsSkipped.WithLabelValues(jobKey.String(), "queue_full").Inc()
		s.logger.Warn("worker queue full, firing dropped", "job", jobKey.String(), "trigger", triggerKey.String())
		return fmt.Errorf("%w: %s", ErrQueueFull, jobKey)
	}
	return nil
}

func (s *Scheduler) finished(state *jobState) {
	s.mu.Lock()
	state.running--
	s.mu.Unlock()
}
