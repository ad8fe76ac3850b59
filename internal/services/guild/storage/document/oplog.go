package document

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"go.uber.org/zap"
)

const (
	// MaxLogEntries caps logs.json.
	MaxLogEntries = 1000
	// DefaultLogLimit is the window GetLogs returns when given no limit.
	DefaultLogLimit = 100
	// TimestampLayout is the UTC millisecond timestamp stamped on entries.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// LogEntry is one operational log entry.
type LogEntry struct {
	Action    string `json:"action"`
	User      string `json:"user"`
	Details   string `json:"details"`
	GuildID   string `json:"guild_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// GetLogs returns the most recent limit decodable entries, oldest first. A
// non-positive limit uses DefaultLogLimit. Entries that cannot be decoded
// are logged and skipped.
func (s *Store) GetLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	data, err := s.load(s.logs)
	if err != nil {
		return nil, err
	}
	raw := s.decodeLogs(data)

	window := make([]LogEntry, 0, min(limit, len(raw)))
	for i := len(raw) - 1; i >= 0 && len(window) < limit; i-- {
		var entry LogEntry
		if err := json.Unmarshal(raw[i], &entry); err != nil {
			s.logger.Warn("skipping undecodable log entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		window = append(window, entry)
	}
	slices.Reverse(window)
	return window, nil
}

// AddLog appends entry, stamping Timestamp when empty. Once the list is
// over MaxLogEntries the single oldest entry is dropped.
func (s *Store) AddLog(ctx context.Context, entry LogEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = s.now().Format(TimestampLayout)
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerializationFailure, "encode log entry", err)
	}

	return s.mutate(ctx, s.logs, func(current []byte) ([]byte, error) {
		entries := append(s.decodeLogs(current), encoded)
		if len(entries) > MaxLogEntries {
			entries = entries[1:]
		}
		return encode(entries)
	})
}

// ClearLogs empties the log list.
func (s *Store) ClearLogs(ctx context.Context) error {
	return s.mutate(ctx, s.logs, func([]byte) ([]byte, error) {
		return []byte(`[]`), nil
	})
}

func (s *Store) decodeLogs(data []byte) []json.RawMessage {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("corrupt document, using empty default",
			zap.String("file", s.logs.name()),
			zap.Error(err),
		)
		return nil
	}
	return entries
}
