package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
)

// PutSession inserts or replaces a session row.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	sessionID, err := required("session id", session.ID)
	if err != nil {
		return err
	}
	if session.ExpiresAt.IsZero() {
		return apperrors.New(apperrors.CodeInvalidArgument, "session expiry is required")
	}
	payload := session.Payload
	if payload == nil {
		payload = []byte{}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (sid, payload, expires_at)
VALUES (?, ?, ?)
ON CONFLICT(sid) DO UPDATE SET
	payload = excluded.payload,
	expires_at = excluded.expires_at
`, sessionID, payload, toMillis(session.ExpiresAt))
	return classify("put session", err)
}

// GetSession returns a live session. Rows whose expiry is at or before now
// are reported as storage.ErrNotFound even if they have not been reaped.
func (s *Store) GetSession(ctx context.Context, sessionID string, now time.Time) (storage.Session, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Session{}, err
	}
	sessionID, err := required("session id", sessionID)
	if err != nil {
		return storage.Session{}, err
	}

	var (
		session   storage.Session
		expiresAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT sid, payload, expires_at
FROM sessions
WHERE sid = ? AND expires_at > ?
`, sessionID, toMillis(now))
	if err := row.Scan(&session.ID, &session.Payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, classify("get session", err)
	}
	session.ExpiresAt = fromMillis(expiresAt)
	return session, nil
}

// DeleteSession removes a session row. Missing rows are not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	sessionID, err := required("session id", sessionID)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, sessionID)
	return classify("delete session", err)
}

// DeleteExpiredSessions removes every session whose expiry is at or before
// now and reports how many rows were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, classify("delete expired sessions", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, classify("delete expired sessions", err)
	}
	return removed, nil
}
