package document

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"go.uber.org/zap"
)

const roomsKey = "salas"

type rawRooms map[string]map[string]json.RawMessage

// GetRooms returns every guild's rooms. Room entries that cannot be decoded
// are logged and left out.
func (s *Store) GetRooms(ctx context.Context) (RoomsDocument, error) {
	tree, err := s.readObject(ctx, s.tree)
	if err != nil {
		return nil, err
	}
	rooms := s.decodeRooms(tree)

	doc := make(RoomsDocument, len(rooms))
	for guildID, guildRooms := range rooms {
		doc[guildID] = s.decodeGuildRooms(guildID, guildRooms)
	}
	return doc, nil
}

// GetGuildRooms returns one guild's rooms, empty when the guild has none.
func (s *Store) GetGuildRooms(ctx context.Context, guildID string) (map[string]RoomRecord, error) {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return nil, err
	}
	tree, err := s.readObject(ctx, s.tree)
	if err != nil {
		return nil, err
	}
	return s.decodeGuildRooms(guildID, s.decodeRooms(tree)[guildID]), nil
}

// GetRoom returns one room or storage.ErrNotFound.
func (s *Store) GetRoom(ctx context.Context, guildID, roomID string) (RoomRecord, error) {
	rooms, err := s.GetGuildRooms(ctx, guildID)
	if err != nil {
		return RoomRecord{}, err
	}
	room, ok := rooms[strings.TrimSpace(roomID)]
	if !ok {
		return RoomRecord{}, storage.ErrNotFound
	}
	return room, nil
}

// AddRoom writes room under guildID, replacing any room with the same id.
func (s *Store) AddRoom(ctx context.Context, guildID, roomID string, room RoomRecord) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	roomID, err = required("room id", roomID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(room)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerializationFailure, "encode room", err)
	}

	return s.mutateRooms(ctx, func(rooms rawRooms) (bool, error) {
		if rooms[guildID] == nil {
			rooms[guildID] = map[string]json.RawMessage{}
		}
		rooms[guildID][roomID] = raw
		return true, nil
	})
}

// UpdateRoom shallow-merges patch over the stored room object. Fields not
// named in patch keep their stored bytes.
func (s *Store) UpdateRoom(ctx context.Context, guildID, roomID string, patch Patch) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	roomID, err = required("room id", roomID)
	if err != nil {
		return err
	}

	return s.mutateRooms(ctx, func(rooms rawRooms) (bool, error) {
		raw, ok := rooms[guildID][roomID]
		if !ok {
			return false, storage.ErrNotFound
		}
		object := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &object); err != nil || object == nil {
			return false, apperrors.WrapWithMetadata(apperrors.CodeSerializationFailure, "decode room",
				map[string]string{"guild_id": guildID, "room_id": roomID}, err)
		}
		if err := applyPatch(object, patch); err != nil {
			return false, apperrors.Wrap(apperrors.CodeInvalidArgument, "apply room patch", err)
		}
		merged, err := json.Marshal(object)
		if err != nil {
			return false, apperrors.Wrap(apperrors.CodeSerializationFailure, "encode room", err)
		}
		rooms[guildID][roomID] = merged
		return true, nil
	})
}

// RemoveRoom deletes one room. Removing a missing room is a no-op.
func (s *Store) RemoveRoom(ctx context.Context, guildID, roomID string) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	roomID, err = required("room id", roomID)
	if err != nil {
		return err
	}

	return s.mutateRooms(ctx, func(rooms rawRooms) (bool, error) {
		if _, ok := rooms[guildID][roomID]; !ok {
			return false, nil
		}
		delete(rooms[guildID], roomID)
		return true, nil
	})
}

// CloseRoom removes roomID from whichever guild holds it and returns that
// guild's id, or storage.ErrNotFound when no guild does.
func (s *Store) CloseRoom(ctx context.Context, roomID string) (string, error) {
	roomID, err := required("room id", roomID)
	if err != nil {
		return "", err
	}

	var owner string
	err = s.mutateRooms(ctx, func(rooms rawRooms) (bool, error) {
		for guildID, guildRooms := range rooms {
			if _, ok := guildRooms[roomID]; ok {
				delete(guildRooms, roomID)
				owner = guildID
				return true, nil
			}
		}
		return false, storage.ErrNotFound
	})
	if err != nil {
		return "", err
	}
	return owner, nil
}

func (s *Store) mutateRooms(ctx context.Context, apply func(rooms rawRooms) (bool, error)) error {
	return s.mutateObject(ctx, s.tree, func(tree map[string]json.RawMessage) (bool, error) {
		rooms := s.decodeRooms(tree)
		changed, err := apply(rooms)
		if err != nil || !changed {
			return false, err
		}
		raw, err := json.Marshal(rooms)
		if err != nil {
			return false, apperrors.Wrap(apperrors.CodeSerializationFailure, "encode rooms", err)
		}
		tree[roomsKey] = raw
		return true, nil
	})
}

func (s *Store) decodeRooms(tree map[string]json.RawMessage) rawRooms {
	rooms := rawRooms{}
	raw, ok := tree[roomsKey]
	if !ok {
		return rooms
	}
	if err := json.Unmarshal(raw, &rooms); err != nil {
		s.logger.Warn("corrupt rooms tree, using empty default", zap.Error(err))
		return rawRooms{}
	}
	if rooms == nil {
		return rawRooms{}
	}
	for guildID, guildRooms := range rooms {
		if guildRooms == nil {
			rooms[guildID] = map[string]json.RawMessage{}
		}
	}
	return rooms
}

func (s *Store) decodeGuildRooms(guildID string, raw map[string]json.RawMessage) map[string]RoomRecord {
	rooms := make(map[string]RoomRecord, len(raw))
	for roomID, data := range raw {
		var room RoomRecord
		if err := json.Unmarshal(data, &room); err != nil {
			s.logger.Warn("skipping undecodable room",
				zap.String("guild_id", guildID),
				zap.String("room_id", roomID),
				zap.Error(err),
			)
			continue
		}
		rooms[roomID] = room
	}
	return rooms
}

func required(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, name+" is required")
	}
	return value, nil
}
