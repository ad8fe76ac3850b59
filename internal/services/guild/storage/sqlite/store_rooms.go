package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/louisbranch/guildboard/internal/services/guild/storage"
)

// CreateRoom inserts a new room. Rooms are always created active; a
// non-positive MaxPlayers stores storage.DefaultMaxPlayers. A duplicate
// room id or an unknown guild id is a constraint violation.
func (s *Store) CreateRoom(ctx context.Context, room storage.Room) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := required("room id", room.RoomID)
	if err != nil {
		return err
	}
	guildID, err := required("guild id", room.GuildID)
	if err != nil {
		return err
	}
	maxPlayers := room.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = storage.DefaultMaxPlayers
	}

	now := toMillis(s.now())
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO rooms (room_id, guild_id, name, description, open_time, close_time, max_players, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
`,
		roomID,
		guildID,
		strings.TrimSpace(room.Name),
		room.Description,
		strings.TrimSpace(room.OpenTime),
		strings.TrimSpace(room.CloseTime),
		maxPlayers,
		now,
		now,
	)
	return classify("create room", err)
}

// GetRoom returns one room by id.
func (s *Store) GetRoom(ctx context.Context, roomID string) (storage.Room, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Room{}, err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return storage.Room{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT room_id, guild_id, name, description, open_time, close_time, max_players, is_active, created_at, updated_at
FROM rooms
WHERE room_id = ?
`, roomID)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Room{}, storage.ErrNotFound
		}
		return storage.Room{}, classify("get room", err)
	}
	return room, nil
}

// ListRooms lists a guild's rooms, newest first.
func (s *Store) ListRooms(ctx context.Context, guildID string) ([]storage.Room, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT room_id, guild_id, name, description, open_time, close_time, max_players, is_active, created_at, updated_at
FROM rooms
WHERE guild_id = ?
ORDER BY created_at DESC, room_id DESC
`, guildID)
	if err != nil {
		return nil, classify("list rooms", err)
	}
	defer rows.Close()

	rooms := make([]storage.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, classify("scan room", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate rooms", err)
	}
	return rooms, nil
}

// SetRoomActive flips a room's active flag and bumps updated_at.
func (s *Store) SetRoomActive(ctx context.Context, roomID string, active bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE rooms SET is_active = ?, updated_at = ? WHERE room_id = ?
`, boolToInt(active), toMillis(s.now()), roomID)
	if err != nil {
		return classify("set room active", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("set room active", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room's players and then the room itself.
//
// The two deletes run as separate statements. A failure between them leaves
// the room with an empty roster; repeating the call finishes the job.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = ?`, roomID); err != nil {
		return classify("delete room players", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID); err != nil {
		return classify("delete room", err)
	}
	return nil
}

// GetRoomPlayers lists a room's roster, most recent joins first.
func (s *Store) GetRoomPlayers(ctx context.Context, roomID string) ([]storage.RoomPlayer, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT room_id, player_id, player_name, joined_at
FROM room_players
WHERE room_id = ?
ORDER BY joined_at DESC, player_id ASC
`, roomID)
	if err != nil {
		return nil, classify("list room players", err)
	}
	defer rows.Close()

	players := make([]storage.RoomPlayer, 0)
	for rows.Next() {
		var (
			player   storage.RoomPlayer
			joinedAt int64
		)
		if err := rows.Scan(&player.RoomID, &player.PlayerID, &player.PlayerName, &joinedAt); err != nil {
			return nil, classify("scan room player", err)
		}
		player.JoinedAt = fromMillis(joinedAt)
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate room players", err)
	}
	return players, nil
}

// AddPlayerToRoom upserts a roster entry. Re-adding refreshes the display
// name and join time. The room must exist.
func (s *Store) AddPlayerToRoom(ctx context.Context, roomID, playerID, playerName string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return err
	}
	playerID, err = required("player id", playerID)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO room_players (room_id, player_id, player_name, joined_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(room_id, player_id) DO UPDATE SET
	player_name = excluded.player_name,
	joined_at = excluded.joined_at
`, roomID, playerID, strings.TrimSpace(playerName), toMillis(s.now()))
	return classify("add room player", err)
}

// RemovePlayerFromRoom deletes one roster entry. Missing rows are not an
// error.
func (s *Store) RemovePlayerFromRoom(ctx context.Context, roomID, playerID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := required("room id", roomID)
	if err != nil {
		return err
	}
	playerID, err = required("player id", playerID)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = ? AND player_id = ?`, roomID, playerID)
	return classify("remove room player", err)
}

func scanRoom(row rowScanner) (storage.Room, error) {
	var (
		room      storage.Room
		active    int64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&room.RoomID,
		&room.GuildID,
		&room.Name,
		&room.Description,
		&room.OpenTime,
		&room.CloseTime,
		&room.MaxPlayers,
		&active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Room{}, err
	}
	room.Active = active != 0
	room.CreatedAt = fromMillis(createdAt)
	room.UpdatedAt = fromMillis(updatedAt)
	return room, nil
}
