package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
)

// GetGuildConfig returns one guild configuration row.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (storage.GuildConfig, error) {
	if err := s.ready(ctx); err != nil {
		return storage.GuildConfig{}, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return storage.GuildConfig{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT guild_id, guild_name, guild_icon, log_channel_id, announce_channel_id, features_json, created_at, updated_at
FROM guild_config
WHERE guild_id = ?
`, guildID)
	config, err := scanGuildConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GuildConfig{}, storage.ErrNotFound
		}
		return storage.GuildConfig{}, err
	}
	return config, nil
}

// SaveGuildConfig inserts or replaces the mutable fields of a guild row.
// An existing row keeps its created_at; updated_at is bumped.
func (s *Store) SaveGuildConfig(ctx context.Context, guildID string, input storage.GuildConfigInput) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	features, err := encodeFeatures(input.Features)
	if err != nil {
		return err
	}

	now := toMillis(s.now())
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO guild_config (guild_id, guild_name, guild_icon, log_channel_id, announce_channel_id, features_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(guild_id) DO UPDATE SET
	guild_name = excluded.guild_name,
	guild_icon = excluded.guild_icon,
	log_channel_id = excluded.log_channel_id,
	announce_channel_id = excluded.announce_channel_id,
	features_json = excluded.features_json,
	updated_at = excluded.updated_at
`,
		guildID,
		strings.TrimSpace(input.GuildName),
		strings.TrimSpace(input.GuildIcon),
		strings.TrimSpace(input.LogChannelID),
		strings.TrimSpace(input.AnnounceChannelID),
		features,
		now,
		now,
	)
	return classify("save guild config", err)
}

// ListGuildConfigs returns every guild row ordered by guild id.
func (s *Store) ListGuildConfigs(ctx context.Context) ([]storage.GuildConfig, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT guild_id, guild_name, guild_icon, log_channel_id, announce_channel_id, features_json, created_at, updated_at
FROM guild_config
ORDER BY guild_id ASC
`)
	if err != nil {
		return nil, classify("list guild configs", err)
	}
	defer rows.Close()

	configs := make([]storage.GuildConfig, 0)
	for rows.Next() {
		config, err := scanGuildConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate guild configs", err)
	}
	return configs, nil
}

// AddAutoRole binds roleID to guildID. Re-adding an existing pair refreshes
// its name, color and created_at instead of creating a duplicate.
func (s *Store) AddAutoRole(ctx context.Context, guildID, roleID, roleName, roleColor string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	roleID, err = required("role id", roleID)
	if err != nil {
		return err
	}
	roleColor = strings.TrimSpace(roleColor)
	if roleColor == "" {
		roleColor = storage.DefaultRoleColor
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO auto_roles (guild_id, role_id, role_name, role_color, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(guild_id, role_id) DO UPDATE SET
	role_name = excluded.role_name,
	role_color = excluded.role_color,
	created_at = excluded.created_at
`, guildID, roleID, strings.TrimSpace(roleName), roleColor, toMillis(s.now()))
	return classify("add auto role", err)
}

// RemoveAutoRole deletes one guild's binding for roleID. Missing rows are
// not an error.
func (s *Store) RemoveAutoRole(ctx context.Context, guildID, roleID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	roleID, err = required("role id", roleID)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `DELETE FROM auto_roles WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
	return classify("remove auto role", err)
}

// RemoveAutoRoleByID deletes roleID's bindings across every guild.
//
// Role ids are globally unique upstream, so in practice this removes at
// most one row.
func (s *Store) RemoveAutoRoleByID(ctx context.Context, roleID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roleID, err := required("role id", roleID)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `DELETE FROM auto_roles WHERE role_id = ?`, roleID)
	return classify("remove auto role", err)
}

// GetAutoRoles lists a guild's bindings, newest first.
func (s *Store) GetAutoRoles(ctx context.Context, guildID string) ([]storage.AutoRole, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	guildID, err := required("guild id", guildID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, guild_id, role_id, role_name, role_color, created_at
FROM auto_roles
WHERE guild_id = ?
ORDER BY created_at DESC, id DESC
`, guildID)
	if err != nil {
		return nil, classify("list auto roles", err)
	}
	defer rows.Close()

	roles := make([]storage.AutoRole, 0)
	for rows.Next() {
		var (
			role      storage.AutoRole
			createdAt int64
		)
		if err := rows.Scan(&role.ID, &role.GuildID, &role.RoleID, &role.RoleName, &role.RoleColor, &createdAt); err != nil {
			return nil, classify("scan auto role", err)
		}
		role.CreatedAt = fromMillis(createdAt)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate auto roles", err)
	}
	return roles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuildConfig(row rowScanner) (storage.GuildConfig, error) {
	var (
		config    storage.GuildConfig
		features  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&config.GuildID,
		&config.GuildName,
		&config.GuildIcon,
		&config.LogChannelID,
		&config.AnnounceChannelID,
		&features,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GuildConfig{}, err
		}
		return storage.GuildConfig{}, classify("scan guild config", err)
	}
	decoded, err := decodeFeatures(features)
	if err != nil {
		return storage.GuildConfig{}, apperrors.WrapWithMetadata(
			apperrors.CodeSerializationFailure,
			"decode guild features",
			map[string]string{"guild_id": config.GuildID},
			err,
		)
	}
	config.Features = decoded
	config.CreatedAt = fromMillis(createdAt)
	config.UpdatedAt = fromMillis(updatedAt)
	return config, nil
}

func encodeFeatures(features map[string]json.RawMessage) (string, error) {
	if len(features) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(features)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeSerializationFailure, "encode guild features", err)
	}
	return string(data), nil
}

func decodeFeatures(raw string) (map[string]json.RawMessage, error) {
	features := map[string]json.RawMessage{}
	if strings.TrimSpace(raw) == "" {
		return features, nil
	}
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil, err
	}
	if features == nil {
		features = map[string]json.RawMessage{}
	}
	return features, nil
}
