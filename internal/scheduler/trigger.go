package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tokenvault/internal/di"
)

// Trigger fires a job on a schedule.
type Trigger struct {
	Key         TriggerKey
	JobKey      JobKey
	Description string

	// StartDelay postpones the first firing. Until then the schedule is not
	// consulted.
	StartDelay time.Duration

	Schedule cron.Schedule
}

// Every returns a schedule firing at a fixed interval, rounded to seconds
// with a minimum of one second.
func Every(d time.Duration) cron.Schedule {
	return cron.Every(d)
}

// CronSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly".
func CronSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}
	return s, nil
}

func (t *Trigger) validate() error {
	if t == nil {
		return di.ArgumentNilError{Param: "trigger"}
	}
	if t.Key.IsZero() {
		return fmt.Errorf("%w: trigger key has no name", ErrInvalidTrigger)
	}
	if t.JobKey.IsZero() {
		return fmt.Errorf("%w: trigger %s has no job key", ErrInvalidTrigger, t.Key)
	}
	if t.Schedule == nil {
		return fmt.Errorf("%w: trigger %s has no schedule", ErrInvalidTrigger, t.Key)
	}
	if t.StartDelay < 0 {
		return fmt.Errorf("%w: trigger %s has a negative start delay", ErrInvalidTrigger, t.Key)
	}
	return nil
}

// delayedSchedule returns start until it has passed, then defers to next.
type delayedSchedule struct {
	start time.Time
	next  cron.Schedule
}

func (s delayedSchedule) Next(t time.Time) time.Time {
	if t.Before(s.start) {
		return s.start
	}
	return s.next.Next(t)
}
