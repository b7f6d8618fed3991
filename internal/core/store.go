package core

import (
	"context"
	"time"
)

// TokenStore persists tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, token *Token) error
	FindTokenByID(ctx context.Context, id string) (*Token, error)
	FindTokensBySubject(ctx context.Context, subject string) ([]*Token, error)
	UpdateToken(ctx context.Context, token *Token) error
	CountTokens(ctx context.Context) (int64, error)

	// PruneTokens removes tokens created before threshold that are no longer
	// usable: not valid or inactive, expired, or attached to an authorization
	// that is not valid. It returns the number of removed tokens.
	PruneTokens(ctx context.Context, threshold time.Time) (int64, error)
}

// AuthorizationStore persists authorizations.
type AuthorizationStore interface {
	CreateAuthorization(ctx context.Context, authorization *Authorization) error
	FindAuthorizationByID(ctx context.Context, id string) (*Authorization, error)
	UpdateAuthorization(ctx context.Context, authorization *Authorization) error
	CountAuthorizations(ctx context.Context) (int64, error)

	// PruneAuthorizations removes authorizations created before threshold
	// that are not valid, or that are ad-hoc with no tokens left. Tokens of
	// removed authorizations are removed with them.
	PruneAuthorizations(ctx context.Context, threshold time.Time) (int64, error)
}
