// Package session adapts the relational session table to the get/set/destroy
// contract web session middleware expects.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
)

// DefaultTTL is the lifetime applied when Set receives no expiry.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists opaque session payloads with absolute expiry.
type Store struct {
	sessions storage.SessionStore
	clock    clock.Clock
	ttl      time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used for expiry checks.
func WithClock(clk clock.Clock) Option {
	return func(s *Store) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore builds a session store over sessions.
func NewStore(sessions storage.SessionStore, opts ...Option) *Store {
	store := &Store{
		sessions: sessions,
		clock:    clock.WallClock,
		ttl:      DefaultTTL,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns the payload of a live session. Expired and missing sessions
// both report ok=false with a nil error; expired rows are left for the
// Reaper.
func (s *Store) Get(ctx context.Context, sessionID string) ([]byte, bool, error) {
	if err := s.check(sessionID); err != nil {
		return nil, false, err
	}
	session, err := s.sessions.GetSession(ctx, sessionID, s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get session: %w", err)
	}
	return session.Payload, true, nil
}

// Set stores payload until expiresAt, or for the configured TTL when
// expiresAt is zero.
func (s *Store) Set(ctx context.Context, sessionID string, payload []byte, expiresAt time.Time) error {
	if err := s.check(sessionID); err != nil {
		return err
	}
	if expiresAt.IsZero() {
		expiresAt = s.clock.Now().UTC().Add(s.ttl)
	}
	if err := s.sessions.PutSession(ctx, storage.Session{
		ID:        sessionID,
		Payload:   payload,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy removes a session. Destroying an unknown session succeeds.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := s.check(sessionID); err != nil {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *Store) check(sessionID string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session store is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}
