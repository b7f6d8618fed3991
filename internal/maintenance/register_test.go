package maintenance_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenvault/internal/core"
	"tokenvault/internal/di"
	"tokenvault/internal/maintenance"
	"tokenvault/internal/scheduler"
)

func newCoreBuilder(t *testing.T) (*core.Builder, *di.Collection) {
	t.Helper()
	services := di.NewCollection()
	builder, err := core.NewBuilder(services)
	require.NoError(t, err)
	return builder, services
}

func isMaintenanceJobDetail(d *di.Descriptor) bool {
	detail, ok := d.Instance.(*scheduler.JobDetail)
	return d.ServiceType == di.TypeOf[*scheduler.JobDetail]() && ok && detail.Key == maintenance.JobIdentity
}

func isMaintenanceTrigger(d *di.Descriptor) bool {
	trigger, ok := d.Instance.(*scheduler.Trigger)
	return d.ServiceType == di.TypeOf[*scheduler.Trigger]() && ok && trigger.JobKey == maintenance.JobIdentity
}

func TestRegister_NilBuilder(t *testing.T) {
	_, err := maintenance.Register(nil)

	var argErr di.ArgumentNilError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "builder", argErr.Param)
}

func TestRegisterWith_NilConfiguration(t *testing.T) {
	builder, _ := newCoreBuilder(t)

	_, err := maintenance.RegisterWith(builder, nil)

	var argErr di.ArgumentNilError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "configuration", argErr.Param)
}

func TestRegisterWith_NilBuilder(t *testing.T) {
	_, err := maintenance.RegisterWith(nil, func(*maintenance.Builder) {})

	var argErr di.ArgumentNilError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "builder", argErr.Param)
}

func TestRegister_RegistersJobService(t *testing.T) {
	builder, services := newCoreBuilder(t)

	_, err := maintenance.Register(builder)
	require.NoError(t, err)

	jobs := services.Where(func(d *di.Descriptor) bool {
		return d.ServiceType == di.TypeOf[*maintenance.Job]() &&
			d.ImplementationType == di.TypeOf[*maintenance.Job]() &&
			d.Lifetime == di.Transient
	})
	assert.Len(t, jobs, 1)
}

func TestRegister_RegistersJobDetails(t *testing.T) {
	builder, services := newCoreBuilder(t)

	_, err := maintenance.Register(builder)
	require.NoError(t, err)

	details := services.Where(isMaintenanceJobDetail)
	require.Len(t, details, 1)

	detail := details[0].Instance.(*scheduler.JobDetail)
	assert.Equal(t, di.TypeOf[*maintenance.Job](), detail.JobType)
	assert.True(t, detail.Durable)
	assert.True(t, detail.DisallowConcurrentExecution)
	assert.True(t, detail.RequestsRecovery)
}

func TestRegister_RegistersTriggerDetails(t *testing.T) {
	builder, services := newCoreBuilder(t)

	_, err := maintenance.Register(builder)
	require.NoError(t, err)

	triggers := services.Where(isMaintenanceTrigger)
	require.Len(t, triggers, 1)

	trigger := triggers[0].Instance.(*scheduler.Trigger)
	assert.Equal(t, maintenance.TriggerIdentity, trigger.Key)
	assert.GreaterOrEqual(t, trigger.StartDelay, time.Minute)
	assert.Less(t, trigger.StartDelay, 10*time.Minute)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(maintenance.Interval), trigger.Schedule.Next(now))
}

// Test: repeated registration leaves one job detail and one trigger
func TestRegister_CanBeSafelyInvokedMultipleTimes(t *testing.T) {
	for _, times := range []int{2, 3} {
		t.Run(fmt.Sprintf("%dx", times), func(t *testing.T) {
			builder, services := newCoreBuilder(t)

			for i := 0; i < times; i++ {
				_, err := maintenance.Register(builder)
				require.NoError(t, err)
			}

			assert.Len(t, services.Where(isMaintenanceJobDetail), 1)
			assert.Len(t, services.Where(isMaintenanceTrigger), 1)
			assert.Len(t, services.Where(func(d *di.Descriptor) bool {
				return d.ServiceType == di.TypeOf[*maintenance.Job]()
			}), 1)
		})
	}
}

func TestRegisterWith_AppliesConfiguration(t *testing.T) {
	builder, services := newCoreBuilder(t)

	returned, err := maintenance.RegisterWith(builder, func(b *maintenance.Builder) {
		b.DisableAuthorizationPruning().
			SetMaximumRefireCount(5).
			SetMinimumTokenLifespan(time.Hour).
			SetMinimumAuthorizationLifespan(2 * time.Hour)
	})
	require.NoError(t, err)
	assert.Same(t, builder, returned)

	p, err := services.Build()
	require.NoError(t, err)
	opts, err := di.Resolve[*maintenance.Options](p)
	require.NoError(t, err)

	assert.True(t, opts.DisableAuthorizationPruning)
	assert.False(t, opts.DisableTokenPruning)
	assert.Equal(t, 5, opts.MaximumRefireCount)
	assert.Equal(t, time.Hour, opts.MinimumTokenLifespan)
	assert.Equal(t, 2*time.Hour, opts.MinimumAuthorizationLifespan)
}

func TestRegister_DefaultOptions(t *testing.T) {
	builder, services := newCoreBuilder(t)
	b, err := maintenance.Register(builder)
	require.NoError(t, err)
	assert.Same(t, services, b.Services())

	p, err := services.Build()
	require.NoError(t, err)
	opts, err := di.Resolve[*maintenance.Options](p)
	require.NoError(t, err)
	assert.Equal(t, maintenance.DefaultOptions(), *opts)
	assert.NoError(t, opts.Validate())
}
