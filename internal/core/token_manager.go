package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"tokenvault/internal/di"
)

// TokenManager implements the token lifecycle on top of a TokenStore.
type TokenManager struct {
	store  TokenStore
	clock  clockwork.Clock
	logger hclog.Logger
}

// NewTokenManager returns a manager over store.
func NewTokenManager(store TokenStore, opts ...ManagerOption) (*TokenManager, error) {
	if store == nil {
		return nil, di.ArgumentNilError{Param: "store"}
	}
	o := newManagerOptions("tokens", opts)
	return &TokenManager{store: store, clock: o.clock, logger: o.logger}, nil
}

// Create validates d and persists a new token. Status defaults to valid.
func (m *TokenManager) Create(ctx context.Context, d TokenDescriptor) (*Token, error) {
	if err := validateDescriptor(d); err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = TokenStatusValid
	}
	token := &Token{
		ID:              uuid.NewString(),
		ApplicationID:   d.ApplicationID,
		AuthorizationID: d.AuthorizationID,
		Subject:         d.Subject,
		Type:            d.Type,
		Status:          status,
		Payload:         d.Payload,
		CreationDate:    m.clock.Now().UTC(),
	}
	if d.ExpirationDate != nil {
		exp := d.ExpirationDate.UTC()
		token.ExpirationDate = &exp
	}
	if err := m.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("creating token: %w", err)
	}
	m.logger.Debug("token created", "id", token.ID, "type", token.Type, "subject", token.Subject)
	return token, nil
}

// FindByID returns the token with the given ID or ErrNotFound.
func (m *TokenManager) FindByID(ctx context.Context, id string) (*Token, error) {
	return m.store.FindTokenByID(ctx, id)
}

// FindBySubject returns every token issued to subject.
func (m *TokenManager) FindBySubject(ctx context.Context, subject string) ([]*Token, error) {
	return m.store.FindTokensBySubject(ctx, subject)
}

// Revoke marks the token revoked. Revoking a revoked token is a no-op.
func (m *TokenManager) Revoke(ctx context.Context, id string) (*Token, error) {
	token, err := m.store.FindTokenByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if token.Status == TokenStatusRevoked {
		return token, nil
	}
	token.Status = TokenStatusRevoked
	if err := m.store.UpdateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("revoking token %s: %w", id, err)
	}
	m.logger.Info("token revoked", "id", id)
	return token, nil
}

// Redeem marks a valid, unexpired token redeemed.
func (m *TokenManager) Redeem(ctx context.Context, id string) (*Token, error) {
	token, err := m.store.FindTokenByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now().UTC()
	if token.Status != TokenStatusValid {
		return nil, fmt.Errorf("%w: token %s is %s", ErrInvalidStatus, id, token.Status)
	}
	if token.IsExpired(now) {
		return nil, fmt.Errorf("%w: token %s expired at %s", ErrInvalidStatus, id, token.ExpirationDate.Format(time.RFC3339))
	}
	token.Status = TokenStatusRedeemed
	token.RedemptionDate = &now
	if err := m.store.UpdateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("redeeming token %s: %w", id, err)
	}
	return token, nil
}

// Count returns the number of stored tokens.
func (m *TokenManager) Count(ctx context.Context) (int64, error) {
	return m.store.CountTokens(ctx)
}

// Prune removes unusable tokens created before threshold.
func (m *TokenManager) Prune(ctx context.Context, threshold time.Time) (int64, error) {
	n, err := m.store.PruneTokens(ctx, threshold.UTC())
	if err != nil {
		return n, fmt.Errorf("pruning tokens: %w", err)
	}
	m.logger.Info("tokens pruned", "count", n, "threshold", threshold.UTC().Format(time.RFC3339))
	return n, nil
}
