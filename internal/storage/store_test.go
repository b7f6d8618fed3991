package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenvault/internal/core"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type combinedStoreFactory func(t *testing.T, clock clockwork.Clock) combinedStore

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func storeFactories() map[string]combinedStoreFactory {
	return map[string]combinedStoreFactory{
		"sqlite": func(t *testing.T, clock clockwork.Clock) combinedStore {
			store, err := NewSQLiteStore(newTestDB(t), testKey, WithClock(clock))
			require.NoError(t, err)
			return store
		},
		"memory": func(t *testing.T, clock clockwork.Clock) combinedStore {
			return NewMemoryStore(WithClock(clock))
		},
	}
}

func ptr(t time.Time) *time.Time { return &t }

func mustCreateToken(t *testing.T, s combinedStore, token core.Token) {
	t.Helper()
	if token.Subject == "" {
		token.Subject = "alice"
	}
	if token.Type == "" {
		token.Type = core.TokenTypeAccess
	}
	require.NoError(t, s.CreateToken(context.Background(), &token))
}

func mustCreateAuthorization(t *testing.T, s combinedStore, a core.Authorization) {
	t.Helper()
	if a.ApplicationID == "" {
		a.ApplicationID = "app"
	}
	if a.Subject == "" {
		a.Subject = "alice"
	}
	require.NoError(t, s.CreateAuthorization(context.Background(), &a))
}

// Test: tokens round-trip through both stores, payload included
func TestStore_TokenRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClockAt(epoch))

			in := &core.Token{
				ID:              "t1",
				ApplicationID:   "app",
				AuthorizationID: "a1",
				Subject:         "alice",
				Type:            core.TokenTypeRefresh,
				Status:          core.TokenStatusValid,
				Payload:         []byte("secret-refresh-token"),
				CreationDate:    epoch,
				ExpirationDate:  ptr(epoch.Add(time.Hour)),
			}
			require.NoError(t, s.CreateToken(ctx, in))

			got, err := s.FindTokenByID(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, in.Subject, got.Subject)
			assert.Equal(t, in.AuthorizationID, got.AuthorizationID)
			assert.Equal(t, in.Payload, got.Payload)
			assert.True(t, in.CreationDate.Equal(got.CreationDate))
			require.NotNil(t, got.ExpirationDate)
			assert.True(t, in.ExpirationDate.Equal(*got.ExpirationDate))
			assert.Nil(t, got.RedemptionDate)

			got.Status = core.TokenStatusRedeemed
			got.RedemptionDate = ptr(epoch.Add(time.Minute))
			require.NoError(t, s.UpdateToken(ctx, got))

			again, err := s.FindTokenByID(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, core.TokenStatusRedeemed, again.Status)
			require.NotNil(t, again.RedemptionDate)

			n, err := s.CountTokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestStore_TokenNotFound(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClock())

			_, err := s.FindTokenByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.UpdateToken(ctx, &core.Token{ID: "missing", Subject: "alice", Status: core.TokenStatusRevoked})
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.FindAuthorizationByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_InvalidInput(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClock())

			assert.ErrorIs(t, s.CreateToken(ctx, nil), ErrInvalidInput)
			assert.ErrorIs(t, s.CreateToken(ctx, &core.Token{ID: "x", Status: core.TokenStatusValid}), ErrInvalidInput)
			assert.ErrorIs(t, s.CreateAuthorization(ctx, &core.Authorization{Status: core.AuthorizationStatusValid}), ErrInvalidInput)
		})
	}
}

func TestStore_FindTokensBySubject(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClock())

			mustCreateToken(t, s, core.Token{ID: "b", Status: core.TokenStatusValid, CreationDate: epoch.Add(time.Minute)})
			mustCreateToken(t, s, core.Token{ID: "a", Status: core.TokenStatusValid, CreationDate: epoch})
			mustCreateToken(t, s, core.Token{ID: "c", Subject: "bob", Status: core.TokenStatusValid, CreationDate: epoch})

			tokens, err := s.FindTokensBySubject(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, "a", tokens[0].ID)
			assert.Equal(t, "b", tokens[1].ID)
		})
	}
}

func TestStore_AuthorizationRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClock())

			mustCreateAuthorization(t, s, core.Authorization{
				ID:           "a1",
				Type:         core.AuthorizationTypePermanent,
				Status:       core.AuthorizationStatusValid,
				Scopes:       []string{"openid", "offline_access"},
				CreationDate: epoch,
			})

			got, err := s.FindAuthorizationByID(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, []string{"openid", "offline_access"}, got.Scopes)
			assert.True(t, epoch.Equal(got.CreationDate))

			got.Status = core.AuthorizationStatusRevoked
			require.NoError(t, s.UpdateAuthorization(ctx, got))

			again, err := s.FindAuthorizationByID(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, core.AuthorizationStatusRevoked, again.Status)

			n, err := s.CountAuthorizations(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

// Test: only unusable tokens older than the threshold are pruned
func TestStore_PruneTokens(t *testing.T) {
	now := epoch.Add(30 * 24 * time.Hour)
	threshold := now.Add(-14 * 24 * time.Hour)

	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClockAt(now))

			mustCreateAuthorization(t, s, core.Authorization{ID: "revoked", Type: core.AuthorizationTypePermanent, Status: core.AuthorizationStatusRevoked, CreationDate: now})

			mustCreateToken(t, s, core.Token{ID: "valid", Status: core.TokenStatusValid, CreationDate: epoch})
			mustCreateToken(t, s, core.Token{ID: "inactive", Status: core.TokenStatusInactive, CreationDate: epoch})
			mustCreateToken(t, s, core.Token{ID: "revoked", Status: core.TokenStatusRevoked, CreationDate: epoch})
			mustCreateToken(t, s, core.Token{ID: "expired", Status: core.TokenStatusValid, CreationDate: epoch, ExpirationDate: ptr(epoch.Add(24 * time.Hour))})
			mustCreateToken(t, s, core.Token{ID: "orphaned", AuthorizationID: "revoked", Status: core.TokenStatusValid, CreationDate: epoch})
			mustCreateToken(t, s, core.Token{ID: "recent", Status: core.TokenStatusRedeemed, CreationDate: now})

			n, err := s.PruneTokens(ctx, threshold)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			for _, id := range []string{"valid", "inactive", "recent"} {
				_, err := s.FindTokenByID(ctx, id)
				assert.NoError(t, err, id)
			}
			for _, id := range []string{"revoked", "expired", "orphaned"} {
				_, err := s.FindTokenByID(ctx, id)
				assert.ErrorIs(t, err, ErrNotFound, id)
			}
		})
	}
}

// Test: revoked and empty ad-hoc authorizations are pruned with their tokens
func TestStore_PruneAuthorizations(t *testing.T) {
	now := epoch.Add(30 * 24 * time.Hour)
	threshold := now.Add(-14 * 24 * time.Hour)

	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, clockwork.NewFakeClockAt(now))

			mustCreateAuthorization(t, s, core.Authorization{ID: "permanent", Type: core.AuthorizationTypePermanent, Status: core.AuthorizationStatusValid, CreationDate: epoch})
			mustCreateAuthorization(t, s, core.Authorization{ID: "revoked", Type: core.AuthorizationTypePermanent, Status: core.AuthorizationStatusRevoked, CreationDate: epoch})
			mustCreateAuthorization(t, s, core.Authorization{ID: "adhoc-empty", Type: core.AuthorizationTypeAdHoc, Status: core.AuthorizationStatusValid, CreationDate: epoch})
			mustCreateAuthorization(t, s, core.Authorization{ID: "adhoc-used", Type: core.AuthorizationTypeAdHoc, Status: core.AuthorizationStatusValid, CreationDate: epoch})
			mustCreateAuthorization(t, s, core.Authorization{ID: "revoked-recent", Type: core.AuthorizationTypePermanent, Status: core.AuthorizationStatusRevoked, CreationDate: now})

			mustCreateToken(t, s, core.Token{ID: "of-revoked", AuthorizationID: "revoked", Status: core.TokenStatusValid, CreationDate: now})
			mustCreateToken(t, s, core.Token{ID: "of-adhoc", AuthorizationID: "adhoc-used", Status: core.TokenStatusValid, CreationDate: now})

			n, err := s.PruneAuthorizations(ctx, threshold)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			for _, id := range []string{"permanent", "adhoc-used", "revoked-recent"} {
				_, err := s.FindAuthorizationByID(ctx, id)
				assert.NoError(t, err, id)
			}
			for _, id := range []string{"revoked", "adhoc-empty"} {
				_, err := s.FindAuthorizationByID(ctx, id)
				assert.ErrorIs(t, err, ErrNotFound, id)
			}

			_, err = s.FindTokenByID(ctx, "of-revoked")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.FindTokenByID(ctx, "of-adhoc")
			assert.NoError(t, err)
		})
	}
}
