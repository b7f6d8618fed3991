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

// AuthorizationManager implements the authorization lifecycle on top of an
// AuthorizationStore.
type AuthorizationManager struct {
	store  AuthorizationStore
	clock  clockwork.Clock
	logger hclog.Logger
}

// NewAuthorizationManager returns a manager over store.
func NewAuthorizationManager(store AuthorizationStore, opts ...ManagerOption) (*AuthorizationManager, error) {
	if store == nil {
		return nil, di.ArgumentNilError{Param: "store"}
	}
	o := newManagerOptions("authorizations", opts)
	return &AuthorizationManager{store: store, clock: o.clock, logger: o.logger}, nil
}

// Create validates d and persists a new authorization. Status defaults to valid.
func (m *AuthorizationManager) Create(ctx context.Context, d AuthorizationDescriptor) (*Authorization, error) {
	if err := validateDescriptor(d); err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = AuthorizationStatusValid
	}
	authorization := &Authorization{
		ID:            uuid.NewString(),
		ApplicationID: d.ApplicationID,
		Subject:       d.Subject,
		Type:          d.Type,
		Status:        status,
		Scopes:        append([]string(nil), d.Scopes...),
		CreationDate:  m.clock.Now().UTC(),
	}
	if err := m.store.CreateAuthorization(ctx, authorization); err != nil {
		return nil, fmt.Errorf("creating authorization: %w", err)
	}
	m.logger.Debug("authorization created", "id", authorization.ID, "subject", authorization.Subject)
	return authorization, nil
}

// FindByID returns the authorization with the given ID or ErrNotFound.
func (m *AuthorizationManager) FindByID(ctx context.Context, id string) (*Authorization, error) {
	return m.store.FindAuthorizationByID(ctx, id)
}

// Revoke marks the authorization revoked. Revoking twice is a no-op.
func (m *AuthorizationManager) Revoke(ctx context.Context, id string) (*Authorization, error) {
	authorization, err := m.store.FindAuthorizationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if authorization.Status == AuthorizationStatusRevoked {
		return authorization, nil
	}
	authorization.Status = AuthorizationStatusRevoked
	if err := m.store.UpdateAuthorization(ctx, authorization); err != nil {
		return nil, fmt.Errorf("revoking authorization %s: %w", id, err)
	}
	m.logger.Info("authorization revoked", "id", id)
	return authorization, nil
}

// Count returns the number of stored authorizations.
func (m *AuthorizationManager) Count(ctx context.Context) (int64, error) {
	return m.store.CountAuthorizations(ctx)
}

// Prune removes orphaned or revoked authorizations created before threshold.
func (m *AuthorizationManager) Prune(ctx context.Context, threshold time.Time) (int64, error) {
	n, err := m.store.PruneAuthorizations(ctx, threshold.UTC())
	if err != nil {
		return n, fmt.Errorf("pruning authorizations: %w", err)
	}
	m.logger.Info("authorizations pruned", "count", n, "threshold", threshold.UTC().Format(time.RFC3339))
	return n, nil
}
