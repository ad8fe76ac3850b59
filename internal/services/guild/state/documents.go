package state

import (
	"context"

	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
)

// DocumentRooms returns every guild's document rooms.
func (s *State) DocumentRooms(ctx context.Context) document.RoomsDocument {
	rooms := document.RoomsDocument{}
	s.run(ctx, storeDocument, "get_rooms", func(ctx context.Context) error {
		doc, err := s.documents.GetRooms(ctx)
		if err == nil {
			rooms = doc
		}
		return err
	})
	return rooms
}

// GuildDocumentRooms returns one guild's document rooms.
func (s *State) GuildDocumentRooms(ctx context.Context, guildID string) map[string]document.RoomRecord {
	rooms := map[string]document.RoomRecord{}
	s.run(ctx, storeDocument, "get_guild_rooms", func(ctx context.Context) error {
		listed, err := s.documents.GetGuildRooms(ctx, guildID)
		if err == nil {
			rooms = listed
		}
		return err
	}, guildField(guildID))
	return rooms
}

// DocumentRoom returns one document room and whether it was found.
func (s *State) DocumentRoom(ctx context.Context, guildID, roomID string) (document.RoomRecord, bool) {
	var room document.RoomRecord
	ok := s.run(ctx, storeDocument, "get_room", func(ctx context.Context) error {
		var err error
		room, err = s.documents.GetRoom(ctx, guildID, roomID)
		return err
	}, guildField(guildID), roomField(roomID))
	return room, ok
}

// AddDocumentRoom writes a document room under an id the caller chose,
// replacing any room with that id.
func (s *State) AddDocumentRoom(ctx context.Context, guildID, roomID string, room document.RoomRecord) bool {
	return s.run(ctx, storeDocument, "add_room", func(ctx context.Context) error {
		return s.documents.AddRoom(ctx, guildID, roomID, room)
	}, guildField(guildID), roomField(roomID))
}

// UpdateDocumentRoom shallow-merges patch over a document room.
func (s *State) UpdateDocumentRoom(ctx context.Context, guildID, roomID string, patch document.Patch) bool {
	return s.run(ctx, storeDocument, "update_room", func(ctx context.Context) error {
		return s.documents.UpdateRoom(ctx, guildID, roomID, patch)
	}, guildField(guildID), roomField(roomID))
}

// RemoveDocumentRoom deletes a document room.
func (s *State) RemoveDocumentRoom(ctx context.Context, guildID, roomID string) bool {
	return s.run(ctx, storeDocument, "remove_room", func(ctx context.Context) error {
		return s.documents.RemoveRoom(ctx, guildID, roomID)
	}, guildField(guildID), roomField(roomID))
}

// NotificationCampaign returns a guild's campaign, or the defaults when it
// cannot be read.
func (s *State) NotificationCampaign(ctx context.Context, guildID string) document.NotificationCampaign {
	campaign := document.NotificationCampaign{
		NotificationConfig: document.DefaultNotificationConfig(),
		ReadyPlayers:       []document.ReadyPlayer{},
	}
	s.run(ctx, storeDocument, "get_notification_campaign", func(ctx context.Context) error {
		read, err := s.documents.GetNotificationCampaign(ctx, guildID)
		if err == nil {
			campaign = read
		}
		return err
	}, guildField(guildID))
	return campaign
}

// SaveNotificationConfig replaces a guild's campaign settings.
func (s *State) SaveNotificationConfig(ctx context.Context, guildID string, config document.NotificationConfig) bool {
	return s.run(ctx, storeDocument, "save_notification_config", func(ctx context.Context) error {
		return s.documents.SaveNotificationConfig(ctx, guildID, config)
	}, guildField(guildID))
}

// AddReadyPlayer lists a player as ready and reports whether the list
// changed.
func (s *State) AddReadyPlayer(ctx context.Context, guildID string, player document.ReadyPlayer) bool {
	var added bool
	s.run(ctx, storeDocument, "add_ready_player", func(ctx context.Context) error {
		var err error
		added, err = s.documents.AddReadyPlayer(ctx, guildID, player)
		return err
	}, guildField(guildID))
	return added
}

// RemoveReadyPlayer drops a player from the ready list.
func (s *State) RemoveReadyPlayer(ctx context.Context, guildID, userID string) bool {
	return s.run(ctx, storeDocument, "remove_ready_player", func(ctx context.Context) error {
		return s.documents.RemoveReadyPlayer(ctx, guildID, userID)
	}, guildField(guildID))
}

// ClearReadyPlayers empties the ready list.
func (s *State) ClearReadyPlayers(ctx context.Context, guildID string) bool {
	return s.run(ctx, storeDocument, "clear_ready_players", func(ctx context.Context) error {
		return s.documents.ClearReadyPlayers(ctx, guildID)
	}, guildField(guildID))
}

// Settings returns the settings document, empty when it cannot be read.
func (s *State) Settings(ctx context.Context) document.Settings {
	settings := document.Settings{}
	s.run(ctx, storeDocument, "get_settings", func(ctx context.Context) error {
		read, err := s.documents.GetSettings(ctx)
		if err == nil {
			settings = read
		}
		return err
	})
	return settings
}

// SaveSettings replaces the settings document.
func (s *State) SaveSettings(ctx context.Context, settings document.Settings) bool {
	return s.run(ctx, storeDocument, "save_settings", func(ctx context.Context) error {
		return s.documents.SaveSettings(ctx, settings)
	})
}

// UpdateSettings shallow-merges patch over the settings document.
func (s *State) UpdateSettings(ctx context.Context, patch document.Patch) bool {
	return s.run(ctx, storeDocument, "update_settings", func(ctx context.Context) error {
		return s.documents.UpdateSettings(ctx, patch)
	})
}

// OpLogs returns the most recent operational log entries, oldest first.
func (s *State) OpLogs(ctx context.Context, limit int) []document.LogEntry {
	entries := []document.LogEntry{}
	s.run(ctx, storeDocument, "get_oplogs", func(ctx context.Context) error {
		read, err := s.documents.GetLogs(ctx, limit)
		if err == nil {
			entries = read
		}
		return err
	})
	return entries
}

// RecordOp appends an operational log entry.
func (s *State) RecordOp(ctx context.Context, entry document.LogEntry) bool {
	return s.run(ctx, storeDocument, "add_oplog", func(ctx context.Context) error {
		return s.documents.AddLog(ctx, entry)
	})
}

// ClearOpLogs empties the operational log.
func (s *State) ClearOpLogs(ctx context.Context) bool {
	return s.run(ctx, storeDocument, "clear_oplogs", func(ctx context.Context) error {
		return s.documents.ClearLogs(ctx)
	})
}
