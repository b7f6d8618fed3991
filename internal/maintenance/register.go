package maintenance

import (
	"math/rand/v2"
	"time"

	"tokenvault/internal/core"
	"tokenvault/internal/di"
	"tokenvault/internal/scheduler"
)

var (
	// JobIdentity is the key of the maintenance job.
	JobIdentity = scheduler.NewJobKey("pruning", "tokenvault.maintenance")

	// TriggerIdentity is the key of the hourly maintenance trigger.
	TriggerIdentity = scheduler.NewTriggerKey("pruning", "tokenvault.maintenance")
)

// Interval between two maintenance runs.
const Interval = time.Hour

// Register adds the maintenance job, its detail and its trigger to the
// builder's services and returns a Builder to configure it.
func Register(builder *core.Builder) (*Builder, error) {
	if builder == nil {
		return nil, di.ArgumentNilError{Param: "builder"}
	}
	return register(builder)
}

// RegisterWith is Register followed by configuration. It returns the core
// builder so calls can be chained.
func RegisterWith(builder *core.Builder, configuration func(*Builder)) (*core.Builder, error) {
	if builder == nil {
		return nil, di.ArgumentNilError{Param: "builder"}
	}
	if configuration == nil {
		return nil, di.ArgumentNilError{Param: "configuration"}
	}
	b, err := register(builder)
	if err != nil {
		return nil, err
	}
	configuration(b)
	return builder, nil
}

func register(builder *core.Builder) (*Builder, error) {
	services := builder.Services()
	if err := scheduler.AddScheduler(services); err != nil {
		return nil, err
	}
	di.AddOptions(services, DefaultOptions)

	services.TryAdd(di.NewTransient(func(p *di.Provider) (*Job, error) {
		return NewJob(p)
	}))
	services.TryAddEnumerable(di.NewInstance(newJobDetail()).WithKey(JobIdentity))
	services.TryAddEnumerable(di.NewInstance(newTrigger()).WithKey(TriggerIdentity))

	return &Builder{services: services}, nil
}

func newJobDetail() *scheduler.JobDetail {
	detail := scheduler.NewJobDetail[*Job](JobIdentity)
	detail.Description = "Removes orphaned tokens and authorizations."
	detail.Durable = true
	detail.DisallowConcurrentExecution = true
	detail.RequestsRecovery = true
	return detail
}

// newTrigger fires every Interval, the first time after a random delay of
// one to ten minutes.
func newTrigger() *scheduler.Trigger {
	return &scheduler.Trigger{
		Key:         TriggerIdentity,
		JobKey:      JobIdentity,
		Description: "Starts the periodic token and authorization pruning.",
		StartDelay:  time.Minute + rand.N(9*time.Minute),
		Schedule:    scheduler.Every(Interval),
	}
}
