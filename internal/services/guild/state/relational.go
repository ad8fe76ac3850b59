package state

import (
	"context"

	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"go.uber.org/zap"
)

// GuildConfig returns a guild's configuration and whether it was found.
func (s *State) GuildConfig(ctx context.Context, guildID string) (storage.GuildConfig, bool) {
	var config storage.GuildConfig
	ok := s.run(ctx, storeRelational, "get_guild_config", func(ctx context.Context) error {
		var err error
		config, err = s.relational.GetGuildConfig(ctx, guildID)
		return err
	}, guildField(guildID))
	return config, ok
}

// SaveGuildConfig upserts a guild's configuration.
func (s *State) SaveGuildConfig(ctx context.Context, guildID string, input storage.GuildConfigInput) bool {
	return s.run(ctx, storeRelational, "save_guild_config", func(ctx context.Context) error {
		return s.relational.SaveGuildConfig(ctx, guildID, input)
	}, guildField(guildID))
}

// GuildConfigs lists every configured guild.
func (s *State) GuildConfigs(ctx context.Context) []storage.GuildConfig {
	configs := []storage.GuildConfig{}
	s.run(ctx, storeRelational, "list_guild_configs", func(ctx context.Context) error {
		listed, err := s.relational.ListGuildConfigs(ctx)
		if err == nil {
			configs = listed
		}
		return err
	})
	return configs
}

// AddAutoRole binds a role to a guild's new members.
func (s *State) AddAutoRole(ctx context.Context, guildID, roleID, roleName, roleColor string) bool {
	return s.run(ctx, storeRelational, "add_auto_role", func(ctx context.Context) error {
		return s.relational.AddAutoRole(ctx, guildID, roleID, roleName, roleColor)
	}, guildField(guildID))
}

// RemoveAutoRole unbinds a role from one guild.
func (s *State) RemoveAutoRole(ctx context.Context, guildID, roleID string) bool {
	return s.run(ctx, storeRelational, "remove_auto_role", func(ctx context.Context) error {
		return s.relational.RemoveAutoRole(ctx, guildID, roleID)
	}, guildField(guildID))
}

// RemoveAutoRoleByID unbinds a role wherever it is bound.
func (s *State) RemoveAutoRoleByID(ctx context.Context, roleID string) bool {
	return s.run(ctx, storeRelational, "remove_auto_role_by_id", func(ctx context.Context) error {
		return s.relational.RemoveAutoRoleByID(ctx, roleID)
	})
}

// AutoRoles lists a guild's auto-roles, newest first.
func (s *State) AutoRoles(ctx context.Context, guildID string) []storage.AutoRole {
	roles := []storage.AutoRole{}
	s.run(ctx, storeRelational, "get_auto_roles", func(ctx context.Context) error {
		listed, err := s.relational.GetAutoRoles(ctx, guildID)
		if err == nil {
			roles = listed
		}
		return err
	}, guildField(guildID))
	return roles
}

// CreateRoom inserts a structured room.
func (s *State) CreateRoom(ctx context.Context, room storage.Room) bool {
	return s.run(ctx, storeRelational, "create_room", func(ctx context.Context) error {
		return s.relational.CreateRoom(ctx, room)
	}, guildField(room.GuildID), roomField(room.RoomID))
}

// Room returns a structured room and whether it was found.
func (s *State) Room(ctx context.Context, roomID string) (storage.Room, bool) {
	var room storage.Room
	ok := s.run(ctx, storeRelational, "get_room", func(ctx context.Context) error {
		var err error
		room, err = s.relational.GetRoom(ctx, roomID)
		return err
	}, roomField(roomID))
	return room, ok
}

// Rooms lists a guild's structured rooms, newest first.
func (s *State) Rooms(ctx context.Context, guildID string) []storage.Room {
	rooms := []storage.Room{}
	s.run(ctx, storeRelational, "list_rooms", func(ctx context.Context) error {
		listed, err := s.relational.ListRooms(ctx, guildID)
		if err == nil {
			rooms = listed
		}
		return err
	}, guildField(guildID))
	return rooms
}

// SetRoomActive opens or closes a structured room.
func (s *State) SetRoomActive(ctx context.Context, roomID string, active bool) bool {
	return s.run(ctx, storeRelational, "set_room_active", func(ctx context.Context) error {
		return s.relational.SetRoomActive(ctx, roomID, active)
	}, roomField(roomID))
}

// DeleteRoom removes a structured room and its roster.
func (s *State) DeleteRoom(ctx context.Context, roomID string) bool {
	return s.run(ctx, storeRelational, "delete_room", func(ctx context.Context) error {
		return s.relational.DeleteRoom(ctx, roomID)
	}, roomField(roomID))
}

// RoomPlayers lists a structured room's roster.
func (s *State) RoomPlayers(ctx context.Context, roomID string) []storage.RoomPlayer {
	players := []storage.RoomPlayer{}
	s.run(ctx, storeRelational, "get_room_players", func(ctx context.Context) error {
		listed, err := s.relational.GetRoomPlayers(ctx, roomID)
		if err == nil {
			players = listed
		}
		return err
	}, roomField(roomID))
	return players
}

// AddPlayerToRoom joins a player to a structured room.
func (s *State) AddPlayerToRoom(ctx context.Context, roomID, playerID, playerName string) bool {
	return s.run(ctx, storeRelational, "add_room_player", func(ctx context.Context) error {
		return s.relational.AddPlayerToRoom(ctx, roomID, playerID, playerName)
	}, roomField(roomID))
}

// RemovePlayerFromRoom drops a player from a structured room.
func (s *State) RemovePlayerFromRoom(ctx context.Context, roomID, playerID string) bool {
	return s.run(ctx, storeRelational, "remove_room_player", func(ctx context.Context) error {
		return s.relational.RemovePlayerFromRoom(ctx, roomID, playerID)
	}, roomField(roomID))
}

// Announcements lists a guild's announcements, newest first.
func (s *State) Announcements(ctx context.Context, guildID string, limit int) []storage.Announcement {
	announcements := []storage.Announcement{}
	s.run(ctx, storeRelational, "get_announcements", func(ctx context.Context) error {
		listed, err := s.relational.GetAnnouncements(ctx, guildID, limit)
		if err == nil {
			announcements = listed
		}
		return err
	}, guildField(guildID))
	return announcements
}

// AddLog appends a guild action log row.
func (s *State) AddLog(ctx context.Context, guildID, action, actor, details string) bool {
	return s.run(ctx, storeRelational, "add_log", func(ctx context.Context) error {
		return s.relational.AddLog(ctx, guildID, action, actor, details)
	}, guildField(guildID), zap.String("action", action))
}

// Logs lists a guild's action log, newest first.
func (s *State) Logs(ctx context.Context, guildID string, limit int) []storage.LogEntry {
	entries := []storage.LogEntry{}
	s.run(ctx, storeRelational, "get_logs", func(ctx context.Context) error {
		listed, err := s.relational.GetLogs(ctx, guildID, limit)
		if err == nil {
			entries = listed
		}
		return err
	}, guildField(guildID))
	return entries
}
