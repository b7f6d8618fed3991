package core

import (
	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"tokenvault/internal/di"
)

// Builder exposes the service collection that extensions such as stores
// and the maintenance job register into.
type Builder struct {
	services *di.Collection
}

// NewBuilder wraps services.
func NewBuilder(services *di.Collection) (*Builder, error) {
	if services == nil {
		return nil, di.ArgumentNilError{Param: "services"}
	}
	return &Builder{services: services}, nil
}

// Services returns the wrapped collection.
func (b *Builder) Services() *di.Collection {
	return b.services
}

// AddCore registers the token and authorization managers as scoped services
// and returns the builder. Calling it again does not add duplicates.
//
// The managers resolve their store from the provider, and use a registered
// clockwork.Clock and hclog.Logger when present.
func AddCore(services *di.Collection) (*Builder, error) {
	b, err := NewBuilder(services)
	if err != nil {
		return nil, err
	}

	services.TryAdd(di.NewScoped(func(p *di.Provider) (*TokenManager, error) {
		store, err := di.Resolve[TokenStore](p)
		if err != nil {
			return nil, err
		}
		opts, err := resolveManagerOptions(p)
		if err != nil {
			return nil, err
		}
		return NewTokenManager(store, opts...)
	}))
	services.TryAdd(di.NewScoped(func(p *di.Provider) (*AuthorizationManager, error) {
		store, err := di.Resolve[AuthorizationStore](p)
		if err != nil {
			return nil, err
		}
		opts, err := resolveManagerOptions(p)
		if err != nil {
			return nil, err
		}
		return NewAuthorizationManager(store, opts...)
	}))
	return b, nil
}

func resolveManagerOptions(p *di.Provider) ([]ManagerOption, error) {
	var opts []ManagerOption
	clock, ok, err := di.ResolveOptional[clockwork.Clock](p)
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, WithClock(clock))
	}
	logger, ok, err := di.ResolveOptional[hclog.Logger](p)
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, WithLogger(logger))
	}
	return opts, nil
}
