package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Snowflake is a chat platform identifier. The bot writes ids as strings or
// as bare JSON numbers; both decode, and Snowflake always encodes as a string.
type Snowflake string

// UnmarshalJSON accepts a string, a number, or null.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = Snowflake(value)
		return nil
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("snowflake must be a string or number: %w", err)
		}
		*s = Snowflake(number.String())
		return nil
	}
}

// String returns the identifier text.
func (s Snowflake) String() string {
	return string(s)
}

// Capacity is a room's player limit. Form posts store it as a numeric
// string, the bot as a number; both decode, and Capacity encodes as a number.
// Null and the empty string decode to zero.
type Capacity int

// UnmarshalJSON accepts a number, a numeric string, or null.
func (c *Capacity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*c = 0
			return nil
		}
	}
	value, err := parseCapacity(text)
	if err != nil {
		return fmt.Errorf("max_players must be an integer: %w", err)
	}
	*c = Capacity(value)
	return nil
}

func parseCapacity(text string) (int, error) {
	if value, err := strconv.Atoi(text); err == nil {
		return value, nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if value != math.Trunc(value) || math.Abs(value) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a whole number", text)
	}
	return int(value), nil
}

// RoomsDocument maps guild id to room id to room record.
type RoomsDocument map[string]map[string]RoomRecord

// RoomRecord is one room under salas[guild][room]. Field names match the
// bot's tree; keys this type does not know are kept in Extra and written
// back unchanged.
type RoomRecord struct {
	Name          string    `json:"nombre"`
	OpenTime      string    `json:"hora_apertura"`
	CloseTime     string    `json:"hora_cierre"`
	Players       []Player  `json:"jugadores"`
	MaxPlayers    Capacity  `json:"max_players"`
	ChannelID     Snowflake `json:"canal_id"`
	RoleID        Snowflake `json:"rol_id"`
	CustomMessage string    `json:"mensaje_personalizado"`
	Description   string    `json:"descripcion"`
	MessageID     Snowflake `json:"mensaje_id"`
	Status        string    `json:"estado"`

	Extra map[string]json.RawMessage `json:"-"`
}

var roomFields = []string{
	"nombre", "hora_apertura", "hora_cierre", "jugadores", "max_players",
	"canal_id", "rol_id", "mensaje_personalizado", "descripcion", "mensaje_id", "estado",
}

// MarshalJSON writes the known fields followed by any preserved extras.
func (r RoomRecord) MarshalJSON() ([]byte, error) {
	type plain RoomRecord
	p := plain(r)
	if p.Players == nil {
		p.Players = []Player{}
	}
	return withExtra(p, r.Extra)
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (r *RoomRecord) UnmarshalJSON(data []byte) error {
	type plain RoomRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, roomFields)
	if err != nil {
		return err
	}
	*r = RoomRecord(p)
	r.Extra = extra
	return nil
}

// Player is one jugadores entry. The bot stores bare player ids while the
// dashboard stores objects; a Player re-encodes in the form it was read.
type Player struct {
	UserID   Snowflake `json:"user_id"`
	Name     string    `json:"nombre,omitempty"`
	JoinedAt string    `json:"fecha,omitempty"`

	bare bool
}

// BarePlayer returns a player that encodes as a bare id.
func BarePlayer(userID string) Player {
	return Player{UserID: Snowflake(userID), bare: true}
}

// IsBare reports whether the player encodes as a bare id.
func (p Player) IsBare() bool {
	return p.bare
}

// MarshalJSON implements json.Marshaler.
func (p Player) MarshalJSON() ([]byte, error) {
	if p.bare {
		return json.Marshal(p.UserID.String())
	}
	type plain Player
	return json.Marshal(plain(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Player) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var id Snowflake
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*p = Player{UserID: id, bare: true}
		return nil
	}
	type plain Player
	var value plain
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*p = Player(value)
	p.bare = false
	return nil
}

// ReadyStatus is the state of a ready-list entry.
type ReadyStatus string

const (
	// ReadyConfirmed marks a player who will play today.
	ReadyConfirmed ReadyStatus = "confirmado"
	// ReadyNotify marks a player who only wants to be pinged.
	ReadyNotify ReadyStatus = "notificado"
)

// Valid reports whether status is a known ready state.
func (status ReadyStatus) Valid() bool {
	return status == ReadyConfirmed || status == ReadyNotify
}

// ReadyPlayer is one jugadores_listos entry.
type ReadyPlayer struct {
	UserID Snowflake   `json:"user_id"`
	Name   string      `json:"nombre"`
	Status ReadyStatus `json:"estado"`
	Date   string      `json:"fecha"`
}

// NotificationConfig holds the editable settings of a guild's room
// notification campaign.
type NotificationConfig struct {
	Enabled       bool   `json:"notifications_enabled"`
	Role          string `json:"notification_role"`
	SendDM        bool   `json:"send_dm"`
	CustomMessage string `json:"custom_message"`
	RoomName      string `json:"room_name"`
	RoomSchedule  string `json:"room_schedule"`
}

// DefaultNotificationConfig is what a guild without a campaign reads as.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		Enabled:       true,
		Role:          "@here",
		SendDM:        true,
		CustomMessage: "🔥 ¡Únete a la sala! Tenemos espacio para ti",
		RoomName:      "Sala Free Fire",
		RoomSchedule:  "19:00 - 23:00",
	}
}

// NotificationCampaign is notificaciones_salas[guild].
type NotificationCampaign struct {
	NotificationConfig
	ReadyPlayers []ReadyPlayer `json:"jugadores_listos"`
}

// Settings is the settings.json document.
type Settings map[string]json.RawMessage

// Patch is a shallow merge: each key replaces the same top-level key of the
// target object, and keys absent from the patch are left alone.
type Patch map[string]any

// applyPatch merges patch into object.
func applyPatch(object map[string]json.RawMessage, patch Patch) error {
	for key, value := range patch {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		raw, err := toRaw(value)
		if err != nil {
			return fmt.Errorf("encode patch key %q: %w", key, err)
		}
		object[key] = raw
	}
	return nil
}

func toRaw(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("invalid raw json")
		}
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func withExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return base, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, key := range known {
		delete(all, key)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
