package maintenance

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options configures the maintenance job.
type Options struct {
	// DisableAuthorizationPruning skips authorization pruning.
	DisableAuthorizationPruning bool `json:"disable_authorization_pruning"`

	// DisableTokenPruning skips token pruning.
	DisableTokenPruning bool `json:"disable_token_pruning"`

	// MaximumRefireCount is how many times a failed run is re-executed at once.
	MaximumRefireCount int `json:"maximum_refire_count" validate:"gte=0"`

	// MinimumAuthorizationLifespan protects authorizations younger than it.
	MinimumAuthorizationLifespan time.Duration `json:"minimum_authorization_lifespan" validate:"gte=0"`

	// MinimumTokenLifespan protects tokens younger than it.
	MinimumTokenLifespan time.Duration `json:"minimum_token_lifespan" validate:"gte=0"`
}

// DefaultOptions returns the default job options.
func DefaultOptions() Options {
	return Options{
		MaximumRefireCount:           2,
		MinimumAuthorizationLifespan: 14 * 24 * time.Hour,
		MinimumTokenLifespan:         14 * 24 * time.Hour,
	}
}

var validate = validator.New()

// Validate checks that counts and lifespans are not negative.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid maintenance options: %w", err)
	}
	return nil
}
