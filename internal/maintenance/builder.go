package maintenance

import (
	"time"

	"tokenvault/internal/di"
)

// Builder configures the maintenance job registered by Register.
type Builder struct {
	services *di.Collection
}

// Services returns the underlying service collection.
func (b *Builder) Services() *di.Collection {
	return b.services
}

// Configure adds fn to the configurators applied to Options.
func (b *Builder) Configure(fn func(*Options)) *Builder {
	di.Configure(b.services, fn)
	return b
}

// DisableAuthorizationPruning stops the job from pruning authorizations.
func (b *Builder) DisableAuthorizationPruning() *Builder {
	return b.Configure(func(o *Options) { o.DisableAuthorizationPruning = true })
}

// DisableTokenPruning stops the job from pruning tokens.
func (b *Builder) DisableTokenPruning() *Builder {
	return b.Configure(func(o *Options) { o.DisableTokenPruning = true })
}

// SetMaximumRefireCount sets how many times a failed run is refired.
func (b *Builder) SetMaximumRefireCount(count int) *Builder {
	return b.Configure(func(o *Options) { o.MaximumRefireCount = count })
}

// SetMinimumAuthorizationLifespan sets the age below which authorizations
// are never pruned.
func (b *Builder) SetMinimumAuthorizationLifespan(lifespan time.Duration) *Builder {
	return b.Configure(func(o *Options) { o.MinimumAuthorizationLifespan = lifespan })
}

// SetMinimumTokenLifespan sets the age below which tokens are never pruned.
func (b *Builder) SetMinimumTokenLifespan(lifespan time.Duration) *Builder {
	return b.Configure(func(o *Options) { o.MinimumTokenLifespan = lifespan })
}
