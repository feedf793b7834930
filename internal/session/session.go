// Package session maps opaque bearer tokens to directory identities.
//
// A session never carries a role. Callers resolve the user ID back through
// the directory on every request, so a role change takes effect immediately.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the session lifetime when none is configured
const DefaultTTL = 24 * time.Hour

// ErrSessionNotFound is returned for unknown, revoked or expired tokens
var ErrSessionNotFound = errors.New("session not found")

// Store issues, resolves and revokes session tokens
type Store interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

func newToken() string {
	return uuid.NewString()
}

type entry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a token for userID
func (s *MemoryStore) Create(ctx context.Context, userID string) (string, error) {
	token := newToken()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	s.sessions[token] = entry{userID: userID, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

// Resolve returns the user ID bound to token
func (s *MemoryStore) Resolve(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, token)
		return "", ErrSessionNotFound
	}
	return e.userID, nil
}

// Revoke ends a session. Revoking an unknown token is not an error.
func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	return len(s.sessions)
}

func (s *MemoryStore) purgeLocked() {
	now := s.now()
	for token, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, token)
		}
	}
}
