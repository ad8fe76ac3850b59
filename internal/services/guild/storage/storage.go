package storage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

const (
	// DefaultRoleColor is stored for auto-roles created without a color.
	DefaultRoleColor = "#000000"
	// DefaultMaxPlayers is stored for rooms created without a capacity.
	DefaultMaxPlayers = 999
	// DefaultAnnouncementLimit bounds announcement listings when the caller
	// passes no limit.
	DefaultAnnouncementLimit = 50
	// DefaultLogLimit bounds log listings when the caller passes no limit.
	DefaultLogLimit = 100
)

// GuildConfig is the per-guild dashboard configuration row.
type GuildConfig struct {
	GuildID           string                     `json:"guild_id"`
	GuildName         string                     `json:"guild_name"`
	GuildIcon         string                     `json:"guild_icon"`
	LogChannelID      string                     `json:"log_channel_id"`
	AnnounceChannelID string                     `json:"announce_channel_id"`
	Features          map[string]json.RawMessage `json:"features"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// GuildConfigInput carries the mutable guild configuration fields.
//
// Empty strings are stored as empty strings, never NULL; a nil Features map
// is stored as an empty JSON object.
type GuildConfigInput struct {
	GuildName         string                     `json:"guild_name"`
	GuildIcon         string                     `json:"guild_icon"`
	LogChannelID      string                     `json:"log_channel_id"`
	AnnounceChannelID string                     `json:"announce_channel_id"`
	Features          map[string]json.RawMessage `json:"features"`
}

// AutoRole binds a role to new members of a guild.
type AutoRole struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	RoleID    string    `json:"role_id"`
	RoleName  string    `json:"role_name"`
	RoleColor string    `json:"role_color"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a structured, time-boxed activity session owned by a guild.
type Room struct {
	RoomID      string    `json:"room_id"`
	GuildID     string    `json:"guild_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OpenTime    string    `json:"open_time"`
	CloseTime   string    `json:"close_time"`
	MaxPlayers  int       `json:"max_players"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoomPlayer is one player's membership in a room.
type RoomPlayer struct {
	RoomID     string    `json:"room_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Announcement is an append-only message posted from the dashboard.
type Announcement struct {
	ID       int64     `json:"id"`
	GuildID  string    `json:"guild_id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	PostedBy string    `json:"posted_by"`
	PostedAt time.Time `json:"posted_at"`
}

// LogEntry is an append-only guild action log row.
type LogEntry struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"user"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"timestamp"`
}

// Session is one persisted web session.
type Session struct {
	ID        string
	Payload   []byte
	ExpiresAt time.Time
}

// GuildConfigStore persists guild configuration rows.
type GuildConfigStore interface {
	GetGuildConfig(ctx context.Context, guildID string) (GuildConfig, error)
	SaveGuildConfig(ctx context.Context, guildID string, input GuildConfigInput) error
	ListGuildConfigs(ctx context.Context) ([]GuildConfig, error)
}

// AutoRoleStore persists auto-role bindings.
type AutoRoleStore interface {
	AddAutoRole(ctx context.Context, guildID, roleID, roleName, roleColor string) error
	RemoveAutoRole(ctx context.Context, guildID, roleID string) error
	RemoveAutoRoleByID(ctx context.Context, roleID string) error
	GetAutoRoles(ctx context.Context, guildID string) ([]AutoRole, error)
}

// RoomStore persists structured rooms and their rosters.
type RoomStore interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, roomID string) (Room, error)
	ListRooms(ctx context.Context, guildID string) ([]Room, error)
	SetRoomActive(ctx context.Context, roomID string, active bool) error
	DeleteRoom(ctx context.Context, roomID string) error
	GetRoomPlayers(ctx context.Context, roomID string) ([]RoomPlayer, error)
	AddPlayerToRoom(ctx context.Context, roomID, playerID, playerName string) error
	RemovePlayerFromRoom(ctx context.Context, roomID, playerID string) error
}

// FeedStore persists announcements and guild action logs.
type FeedStore interface {
	CreateAnnouncement(ctx context.Context, guildID, title, message, postedBy string) (int64, error)
	GetAnnouncements(ctx context.Context, guildID string, limit int) ([]Announcement, error)
	AddLog(ctx context.Context, guildID, action, actor, details string) error
	GetLogs(ctx context.Context, guildID string, limit int) ([]LogEntry, error)
}

// SessionStore persists web sessions with absolute expiry.
type SessionStore interface {
	PutSession(ctx context.Context, session Session) error
	// GetSession returns ErrNotFound for missing rows and for rows whose
	// expiry is at or before now.
	GetSession(ctx context.Context, sessionID string, now time.Time) (Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// RelationalStore is the full relational contract.
type RelationalStore interface {
	GuildConfigStore
	AutoRoleStore
	RoomStore
	FeedStore
	SessionStore
	Close() error
}
