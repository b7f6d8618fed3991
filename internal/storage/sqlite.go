package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"tokenvault/internal/core"
)

// SQLiteStore persists tokens and authorizations in SQLite. Token payloads
// are encrypted at rest.
type SQLiteStore struct {
	db     *sql.DB
	cipher *payloadCipher
	clock  clockwork.Clock
}

var (
	_ core.TokenStore         = (*SQLiteStore)(nil)
	_ core.AuthorizationStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore returns a store over a migrated db. key must be KeySize bytes.
func NewSQLiteStore(db *sql.DB, key []byte, opts ...StoreOption) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database cannot be nil", ErrInvalidInput)
	}
	c, err := newPayloadCipher(key)
	if err != nil {
		return nil, err
	}
	o := newStoreOptions(opts)
	return &SQLiteStore{db: db, cipher: c, clock: o.clock}, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// validateToken checks if the token fields are valid
func validateToken(token *core.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", ErrInvalidInput)
	}
	if token.ID == "" {
		return fmt.Errorf("%w: token ID cannot be empty", ErrInvalidInput)
	}
	if token.Subject == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidInput)
	}
	if token.Status == "" {
		return fmt.Errorf("%w: status cannot be empty", ErrInvalidInput)
	}
	return nil
}

// validateAuthorization checks if the authorization fields are valid
func validateAuthorization(authorization *core.Authorization) error {
	if authorization == nil {
		return fmt.Errorf("%w: authorization cannot be nil", ErrInvalidInput)
	}
	if authorization.ID == "" {
		return fmt.Errorf("%w: authorization ID cannot be empty", ErrInvalidInput)
	}
	if authorization.Status == "" {
		return fmt.Errorf("%w: status cannot be empty", ErrInvalidInput)
	}
	return nil
}

const tokenColumns = `id, application_id, authorization_id, subject, type, status, payload, nonce, creation_date, expiration_date, redemption_date`

// CreateToken inserts a new token.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *core.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}
	payload, nonce, err := s.sealPayload(token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID, token.ApplicationID, nullString(token.AuthorizationID), token.Subject, token.Type, token.Status,
		payload, nonce, token.CreationDate.UnixNano(), nullTime(token.ExpirationDate), nullTime(token.RedemptionDate))
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// FindTokenByID retrieves a token by ID.
func (s *SQLiteStore) FindTokenByID(ctx context.Context, id string) (*core.Token, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: token ID cannot be empty", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id)
	token, err := s.scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return token, nil
}

// FindTokensBySubject retrieves every token issued to subject, oldest first.
func (s *SQLiteStore) FindTokensBySubject(ctx context.Context, subject string) ([]*core.Token, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: subject cannot be empty", ErrInvalidInput)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE subject = ? ORDER BY creation_date, id`, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*core.Token
	for rows.Next() {
		token, err := s.scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return tokens, nil
}

// UpdateToken stores the mutable fields of token.
func (s *SQLiteStore) UpdateToken(ctx context.Context, token *core.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}
	payload, nonce, err := s.sealPayload(token)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE tokens SET status = ?, payload = ?, nonce = ?, expiration_date = ?, redemption_date = ? WHERE id = ?`,
		token.Status, payload, nonce, nullTime(token.ExpirationDate), nullTime(token.RedemptionDate), token.ID)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return requireAffected(result, "token", token.ID)
}

// CountTokens returns the number of tokens.
func (s *SQLiteStore) CountTokens(ctx context.Context) (int64, error) {
	return s.count(ctx, "tokens")
}

// PruneTokens implements core.TokenStore.
func (s *SQLiteStore) PruneTokens(ctx context.Context, threshold time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE creation_date < ?
		AND (
			status NOT IN (?, ?)
			OR (expiration_date IS NOT NULL AND expiration_date < ?)
			OR authorization_id IN (SELECT id FROM authorizations WHERE status <> ?)
		)`,
		threshold.UnixNano(),
		core.TokenStatusInactive, core.TokenStatusValid,
		s.clock.Now().UnixNano(),
		core.AuthorizationStatusValid)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tokens: %w", err)
	}
	return result.RowsAffected()
}

// CreateAuthorization inserts a new authorization.
func (s *SQLiteStore) CreateAuthorization(ctx context.Context, authorization *core.Authorization) error {
	if err := validateAuthorization(authorization); err != nil {
		return err
	}
	scopes, err := encodeScopes(authorization.Scopes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO authorizations (id, application_id, subject, type, status, scopes, creation_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		authorization.ID, authorization.ApplicationID, authorization.Subject, authorization.Type,
		authorization.Status, scopes, authorization.CreationDate.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create authorization: %w", err)
	}
	return nil
}

// FindAuthorizationByID retrieves an authorization by ID.
func (s *SQLiteStore) FindAuthorizationByID(ctx context.Context, id string) (*core.Authorization, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: authorization ID cannot be empty", ErrInvalidInput)
	}
	var (
		a       core.Authorization
		scopes  string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, application_id, subject, type, status, scopes, creation_date FROM authorizations WHERE id = ?`, id).
		Scan(&a.ID, &a.ApplicationID, &a.Subject, &a.Type, &a.Status, &scopes, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: authorization %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get authorization: %w", err)
	}
	if err := json.Unmarshal([]byte(scopes), &a.Scopes); err != nil {
		return nil, fmt.Errorf("failed to decode scopes: %w", err)
	}
	a.CreationDate = time.Unix(0, created).UTC()
	return &a, nil
}

// UpdateAuthorization stores the mutable fields of authorization.
func (s *SQLiteStore) UpdateAuthorization(ctx context.Context, authorization *core.Authorization) error {
	if err := validateAuthorization(authorization); err != nil {
		return err
	}
	scopes, err := encodeScopes(authorization.Scopes)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE authorizations SET status = ?, scopes = ? WHERE id = ?`,
		authorization.Status, scopes, authorization.ID)
	if err != nil {
		return fmt.Errorf("failed to update authorization: %w", err)
	}
	return requireAffected(result, "authorization", authorization.ID)
}

// CountAuthorizations returns the number of authorizations.
func (s *SQLiteStore) CountAuthorizations(ctx context.Context) (int64, error) {
	return s.count(ctx, "authorizations")
}

const prunableAuthorizations = `
	SELECT a.id FROM authorizations a
	WHERE a.creation_date < ?
	AND (
		a.status <> ?
		OR (a.type = ? AND NOT EXISTS (SELECT 1 FROM tokens t WHERE t.authorization_id = a.id))
	)`

// PruneAuthorizations implements core.AuthorizationStore.
func (s *SQLiteStore) PruneAuthorizations(ctx context.Context, threshold time.Time) (int64, error) {
	args := []interface{}{threshold.UnixNano(), core.AuthorizationStatusValid, core.AuthorizationTypeAdHoc}

	var n int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		// Delete tokens first so no token is left pointing at a removed authorization.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tokens WHERE authorization_id IN (`+prunableAuthorizations+`)`, args...); err != nil {
			return fmt.Errorf("failed to prune authorization tokens: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM authorizations WHERE id IN (`+prunableAuthorizations+`)`, args...)
		if err != nil {
			return fmt.Errorf("failed to prune authorizations: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLiteStore) sealPayload(token *core.Token) (payload, nonce []byte, err error) {
	if len(token.Payload) == 0 {
		return nil, nil, nil
	}
	payload, nonce, err = s.cipher.seal(token.ID, token.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt token payload: %w", err)
	}
	return payload, nonce, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanToken(row rowScanner) (*core.Token, error) {
	var (
		t               core.Token
		authorizationID sql.NullString
		payload, nonce  []byte
		created         int64
		expiration      sql.NullInt64
		redemption      sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.ApplicationID, &authorizationID, &t.Subject, &t.Type, &t.Status,
		&payload, &nonce, &created, &expiration, &redemption); err != nil {
		return nil, err
	}
	t.AuthorizationID = authorizationID.String
	t.CreationDate = time.Unix(0, created).UTC()
	t.ExpirationDate = timePtr(expiration)
	t.RedemptionDate = timePtr(redemption)
	if len(payload) > 0 {
		plaintext, err := s.cipher.open(t.ID, payload, nonce)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", t.ID, err)
		}
		t.Payload = plaintext
	}
	return &t, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}

func encodeScopes(scopes []string) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}
	b, err := json.Marshal(scopes)
	if err != nil {
		return "", fmt.Errorf("failed to encode scopes: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
