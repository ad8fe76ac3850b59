package document

import (
	"context"
	"encoding/json"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"go.uber.org/zap"
)

const (
	campaignsKey = "notificaciones_salas"
	readyKey     = "jugadores_listos"
)

// GetNotificationCampaign returns a guild's campaign. Missing campaigns and
// missing fields read as DefaultNotificationConfig with an empty ready list.
func (s *Store) GetNotificationCampaign(ctx context.Context, guildID string) (NotificationCampaign, error) {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return NotificationCampaign{}, err
	}
	tree, err := s.readObject(ctx, s.tree)
	if err != nil {
		return NotificationCampaign{}, err
	}

	campaign := NotificationCampaign{NotificationConfig: DefaultNotificationConfig()}
	if raw, ok := s.decodeCampaigns(tree)[guildID]; ok {
		if err := json.Unmarshal(raw, &campaign); err != nil {
			s.logger.Warn("corrupt notification campaign, using defaults",
				zap.String("guild_id", guildID),
				zap.Error(err),
			)
			campaign = NotificationCampaign{NotificationConfig: DefaultNotificationConfig()}
		}
	}
	if campaign.ReadyPlayers == nil {
		campaign.ReadyPlayers = []ReadyPlayer{}
	}
	return campaign, nil
}

// SaveNotificationConfig replaces a guild's campaign settings. The ready list
// and any keys the bot added are kept.
func (s *Store) SaveNotificationConfig(ctx context.Context, guildID string, config NotificationConfig) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(config)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerializationFailure, "encode notification config", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return apperrors.Wrap(apperrors.CodeSerializationFailure, "encode notification config", err)
	}

	return s.mutateCampaign(ctx, guildID, func(campaign map[string]json.RawMessage) (bool, error) {
		for key, value := range fields {
			campaign[key] = value
		}
		return true, nil
	})
}

// AddReadyPlayer appends player to a guild's ready list and reports whether
// it was added. A user already on the list is left as is. An empty status
// means confirmado; an empty date is stamped from the store clock.
func (s *Store) AddReadyPlayer(ctx context.Context, guildID string, player ReadyPlayer) (bool, error) {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return false, err
	}
	userID, err := required("user id", player.UserID.String())
	if err != nil {
		return false, err
	}
	player.UserID = Snowflake(userID)
	if player.Status == "" {
		player.Status = ReadyConfirmed
	}
	if !player.Status.Valid() {
		return false, apperrors.New(apperrors.CodeInvalidArgument, "unknown ready status "+string(player.Status))
	}
	if player.Date == "" {
		player.Date = s.now().Format(TimestampLayout)
	}

	added := false
	err = s.mutateCampaign(ctx, guildID, func(campaign map[string]json.RawMessage) (bool, error) {
		ready, err := decodeReady(campaign)
		if err != nil {
			return false, err
		}
		for _, existing := range ready {
			if existing.UserID == player.UserID {
				return false, nil
			}
		}
		if err := encodeReady(campaign, append(ready, player)); err != nil {
			return false, err
		}
		added = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// RemoveReadyPlayer drops userID from a guild's ready list.
func (s *Store) RemoveReadyPlayer(ctx context.Context, guildID, userID string) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}
	userID, err = required("user id", userID)
	if err != nil {
		return err
	}

	return s.mutateExistingCampaign(ctx, guildID, func(campaign map[string]json.RawMessage) (bool, error) {
		ready, err := decodeReady(campaign)
		if err != nil {
			return false, err
		}
		kept := make([]ReadyPlayer, 0, len(ready))
		for _, existing := range ready {
			if existing.UserID.String() != userID {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(ready) {
			return false, nil
		}
		return true, encodeReady(campaign, kept)
	})
}

// ClearReadyPlayers empties a guild's ready list.
func (s *Store) ClearReadyPlayers(ctx context.Context, guildID string) error {
	guildID, err := required("guild id", guildID)
	if err != nil {
		return err
	}

	return s.mutateExistingCampaign(ctx, guildID, func(campaign map[string]json.RawMessage) (bool, error) {
		return true, encodeReady(campaign, []ReadyPlayer{})
	})
}

// mutateCampaign applies fn to a guild's campaign object, creating it from
// the defaults when absent.
func (s *Store) mutateCampaign(ctx context.Context, guildID string, fn func(campaign map[string]json.RawMessage) (bool, error)) error {
	return s.mutateCampaigns(ctx, guildID, true, fn)
}

// mutateExistingCampaign applies fn only when the guild has a campaign.
func (s *Store) mutateExistingCampaign(ctx context.Context, guildID string, fn func(campaign map[string]json.RawMessage) (bool, error)) error {
	return s.mutateCampaigns(ctx, guildID, false, fn)
}

func (s *Store) mutateCampaigns(ctx context.Context, guildID string, create bool, fn func(campaign map[string]json.RawMessage) (bool, error)) error {
	return s.mutateObject(ctx, s.tree, func(tree map[string]json.RawMessage) (bool, error) {
		campaigns := s.decodeCampaigns(tree)
		campaign := map[string]json.RawMessage{}
		raw, ok := campaigns[guildID]
		switch {
		case ok:
			if err := json.Unmarshal(raw, &campaign); err != nil || campaign == nil {
				s.logger.Warn("corrupt notification campaign, resetting",
					zap.String("guild_id", guildID),
					zap.Error(err),
				)
				campaign = defaultCampaignObject()
			}
		case create:
			campaign = defaultCampaignObject()
		default:
			return false, nil
		}

		changed, err := fn(campaign)
		if err != nil || !changed {
			return false, err
		}
		if _, ok := campaign[readyKey]; !ok {
			campaign[readyKey] = json.RawMessage(`[]`)
		}
		encoded, err := json.Marshal(campaign)
		if err != nil {
			return false, apperrors.Wrap(apperrors.CodeSerializationFailure, "encode notification campaign", err)
		}
		campaigns[guildID] = encoded
		all, err := json.Marshal(campaigns)
		if err != nil {
			return false, apperrors.Wrap(apperrors.CodeSerializationFailure, "encode notification campaigns", err)
		}
		tree[campaignsKey] = all
		return true, nil
	})
}

func (s *Store) decodeCampaigns(tree map[string]json.RawMessage) map[string]json.RawMessage {
	campaigns := map[string]json.RawMessage{}
	raw, ok := tree[campaignsKey]
	if !ok {
		return campaigns
	}
	if err := json.Unmarshal(raw, &campaigns); err != nil || campaigns == nil {
		s.logger.Warn("corrupt notification campaigns, using empty default", zap.Error(err))
		return map[string]json.RawMessage{}
	}
	return campaigns
}

func defaultCampaignObject() map[string]json.RawMessage {
	campaign := map[string]json.RawMessage{}
	encoded, err := json.Marshal(NotificationCampaign{
		NotificationConfig: DefaultNotificationConfig(),
		ReadyPlayers:       []ReadyPlayer{},
	})
	if err == nil {
		_ = json.Unmarshal(encoded, &campaign)
	}
	return campaign
}

func decodeReady(campaign map[string]json.RawMessage) ([]ReadyPlayer, error) {
	raw, ok := campaign[readyKey]
	if !ok {
		return nil, nil
	}
	var ready []ReadyPlayer
	if err := json.Unmarshal(raw, &ready); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSerializationFailure, "decode ready players", err)
	}
	return ready, nil
}

func encodeReady(campaign map[string]json.RawMessage, ready []ReadyPlayer) error {
	encoded, err := json.Marshal(ready)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerializationFailure, "encode ready players", err)
	}
	campaign[readyKey] = encoded
	return nil
}
