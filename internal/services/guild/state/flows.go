package state

import (
	"context"
	"errors"

	"github.com/louisbranch/guildboard/internal/platform/id"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
)

// Action names written to the relational log by the flows below.
const (
	ActionRoomCreate       = "room.create"
	ActionRoomClose        = "room.close"
	ActionAnnouncementPost = "announcement.post"
)

// EnsureGuildConfig returns a guild's configuration, creating it with the
// given name and icon on first visit.
func (s *State) EnsureGuildConfig(ctx context.Context, guildID, guildName, guildIcon string) (storage.GuildConfig, bool) {
	var config storage.GuildConfig
	ok := s.run(ctx, storeRelational, "ensure_guild_config", func(ctx context.Context) error {
		existing, err := s.relational.GetGuildConfig(ctx, guildID)
		if err == nil {
			config = existing
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := s.relational.SaveGuildConfig(ctx, guildID, storage.GuildConfigInput{
			GuildName: guildName,
			GuildIcon: guildIcon,
		}); err != nil {
			return err
		}
		config, err = s.relational.GetGuildConfig(ctx, guildID)
		return err
	}, guildField(guildID))
	return config, ok
}

// CreateDocumentRoom stores room under a fresh room id and then records the
// action in the guild's relational log. The two writes are independent; a
// failed log write does not undo the room.
func (s *State) CreateDocumentRoom(ctx context.Context, guildID string, room document.RoomRecord, actor string) (string, bool) {
	roomID := id.NewRoomID(s.clock.Now())
	if !s.AddDocumentRoom(ctx, guildID, roomID, room) {
		return "", false
	}
	s.AddLog(ctx, guildID, ActionRoomCreate, actor, roomID)
	return roomID, true
}

// CloseDocumentRoom removes a document room from whichever guild owns it and
// logs the closure under that guild.
func (s *State) CloseDocumentRoom(ctx context.Context, roomID, actor string) (string, bool) {
	var guildID string
	if ok := s.run(ctx, storeDocument, "close_room", func(ctx context.Context) error {
		var err error
		guildID, err = s.documents.CloseRoom(ctx, roomID)
		return err
	}, roomField(roomID)); !ok {
		return "", false
	}
	s.AddLog(ctx, guildID, ActionRoomClose, actor, roomID)
	return guildID, true
}

// PostAnnouncement stores an announcement and logs it. The announcement id
// is returned even when the log write fails.
func (s *State) PostAnnouncement(ctx context.Context, guildID, title, message, postedBy string) (int64, bool) {
	var announcementID int64
	if ok := s.run(ctx, storeRelational, "create_announcement", func(ctx context.Context) error {
		var err error
		announcementID, err = s.relational.CreateAnnouncement(ctx, guildID, title, message, postedBy)
		return err
	}, guildField(guildID)); !ok {
		return 0, false
	}
	s.AddLog(ctx, guildID, ActionAnnouncementPost, postedBy, title)
	return announcementID, true
}
