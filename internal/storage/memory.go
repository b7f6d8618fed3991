package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tokenvault/internal/core"
)

// MemoryStore keeps tokens and authorizations in memory. It applies the
// same pruning rules as SQLiteStore.
type MemoryStore struct {
	mu             sync.RWMutex
	tokens         map[string]*core.Token
	authorizations map[string]*core.Authorization
	clock          clockwork.Clock
}

var (
	_ core.TokenStore         = (*MemoryStore)(nil)
	_ core.AuthorizationStore = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	o := newStoreOptions(opts)
	return &MemoryStore{
		tokens:         make(map[string]*core.Token),
		authorizations: make(map[string]*core.Authorization),
		clock:          o.clock,
	}
}

func (s *MemoryStore) CreateToken(ctx context.Context, token *core.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.ID]; exists {
		return fmt.Errorf("%w: token %s already exists", ErrInvalidInput, token.ID)
	}
	s.tokens[token.ID] = token.Clone()
	return nil
}

func (s *MemoryStore) FindTokenByID(ctx context.Context, id string) (*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, id)
	}
	return token.Clone(), nil
}

func (s *MemoryStore) FindTokensBySubject(ctx context.Context, subject string) ([]*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Token
	for _, token := range s.tokens {
		if token.Subject == subject {
			out = append(out, token.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreationDate.Equal(out[j].CreationDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreationDate.Before(out[j].CreationDate)
	})
	return out, nil
}

func (s *MemoryStore) UpdateToken(ctx context.Context, token *core.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token.ID]; !ok {
		return fmt.Errorf("%w: token %s", ErrNotFound, token.ID)
	}
	s.tokens[token.ID] = token.Clone()
	return nil
}

func (s *MemoryStore) CountTokens(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tokens)), nil
}

func (s *MemoryStore) PruneTokens(ctx context.Context, threshold time.Time) (int64, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, token := range s.tokens {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if !token.CreationDate.Before(threshold) {
			continue
		}
		if token.Status != core.TokenStatusInactive && token.Status != core.TokenStatusValid ||
			token.ExpirationDate != nil && token.ExpirationDate.Before(now) ||
			s.authorizationRevokedLocked(token.AuthorizationID) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) authorizationRevokedLocked(id string) bool {
	if id == "" {
		return false
	}
	a, ok := s.authorizations[id]
	return ok && a.Status != core.AuthorizationStatusValid
}

func (s *MemoryStore) CreateAuthorization(ctx context.Context, authorization *core.Authorization) error {
	if err := validateAuthorization(authorization); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.authorizations[authorization.ID]; exists {
		return fmt.Errorf("%w: authorization %s already exists", ErrInvalidInput, authorization.ID)
	}
	s.authorizations[authorization.ID] = authorization.Clone()
	return nil
}

func (s *MemoryStore) FindAuthorizationByID(ctx context.Context, id string) (*core.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authorizations[id]
	if !ok {
		return nil, fmt.Errorf("%w: authorization %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) UpdateAuthorization(ctx context.Context, authorization *core.Authorization) error {
	if err := validateAuthorization(authorization); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorizations[authorization.ID]; !ok {
		return fmt.Errorf("%w: authorization %s", ErrNotFound, authorization.ID)
	}
	s.authorizations[authorization.ID] = authorization.Clone()
	return nil
}

func (s *MemoryStore) CountAuthorizations(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.authorizations)), nil
}

func (s *MemoryStore) PruneAuthorizations(ctx context.Context, threshold time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCount := make(map[string]int)
	for _, token := range s.tokens {
		if token.AuthorizationID != "" {
			tokenCount[token.AuthorizationID]++
		}
	}

	pruned := make(map[string]struct{})
	for id, a := range s.authorizations {
		if !a.CreationDate.Before(threshold) {
			continue
		}
		if a.Status != core.AuthorizationStatusValid ||
			a.Type == core.AuthorizationTypeAdHoc && tokenCount[id] == 0 {
			pruned[id] = struct{}{}
		}
	}

	for id, token := range s.tokens {
		if _, ok := pruned[token.AuthorizationID]; ok {
			delete(s.tokens, id)
		}
	}
	for id := range pruned {
		delete(s.authorizations, id)
	}
	return int64(len(pruned)), nil
}
