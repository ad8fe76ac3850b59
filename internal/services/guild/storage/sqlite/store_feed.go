package sqlite

import (
	"context"
	"strings"

	"github.com/louisbranch/guildboard/internal/services/guild/storage"
)

// CreateAnnouncement appends an announcement and returns its id.
func (s *Store) CreateAnnouncement(ctx context.Context, guildID, title, message, postedBy string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return 0, err
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO announcements (guild_id, title, message, posted_by, posted_at)
VALUES (?, ?, ?, ?, ?)
`, guildID, strings.TrimSpace(title), message, strings.TrimSpace(postedBy), toMillis(s.now()))
	if err != nil {
		return 0, classify("create announcement", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("create announcement", err)
	}
	return id, nil
}

// GetAnnouncements lists a guild's announcements, newest first. A
// non-positive limit uses storage.DefaultAnnouncementLimit.
func (s *Store) GetAnnouncements(ctx context.Context, guildID string, limit int) ([]storage.Announcement, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = storage.DefaultAnnouncementLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, guild_id, title, message, posted_by, posted_at
FROM announcements
WHERE guild_id = ?
ORDER BY posted_at DESC, id DESC
LIMIT ?
`, guildID, limit)
	if err != nil {
		return nil, classify("list announcements", err)
	}
	defer rows.Close()

	announcements := make([]storage.Announcement, 0)
	for rows.Next() {
		var (
			announcement storage.Announcement
			postedAt     int64
		)
		if err := rows.Scan(
			&announcement.ID,
			&announcement.GuildID,
			&announcement.Title,
			&announcement.Message,
			&announcement.PostedBy,
			&postedAt,
		); err != nil {
			return nil, classify("scan announcement", err)
		}
		announcement.PostedAt = fromMillis(postedAt)
		announcements = append(announcements, announcement)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate announcements", err)
	}
	return announcements, nil
}

// AddLog appends a guild action log row.
func (s *Store) AddLog(ctx context.Context, guildID, action, actor, details string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	action, err = required("action", action)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO logs (guild_id, action, actor, details, created_at)
VALUES (?, ?, ?, ?, ?)
`, guildID, action, strings.TrimSpace(actor), details, toMillis(s.now()))
	return classify("add log", err)
}

// GetLogs lists a guild's log rows, newest first. A non-positive limit uses
// storage.DefaultLogLimit.
func (s *Store) GetLogs(ctx context.Context, guildID string, limit int) ([]storage.LogEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = storage.DefaultLogLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, guild_id, action, actor, details, created_at
FROM logs
WHERE guild_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, guildID, limit)
	if err != nil {
		return nil, classify("list logs", err)
	}
	defer rows.Close()

	entries := make([]storage.LogEntry, 0)
	for rows.Next() {
		var (
			entry     storage.LogEntry
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.Action, &entry.Actor, &entry.Details, &createdAt); err != nil {
			return nil, classify("scan log", err)
		}
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate logs", err)
	}
	return entries, nil
}
