package document

import (
	"context"
	"encoding/json"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
)

// GetSettings returns the whole settings document.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	object, err := s.readObject(ctx, s.settings)
	if err != nil {
		return nil, err
	}
	return Settings(object), nil
}

// SaveSettings replaces the settings document. A nil document writes an
// empty object.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	for key, value := range settings {
		if !json.Valid(value) {
			return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid settings value",
				map[string]string{"key": key})
		}
	}
	if settings == nil {
		settings = Settings{}
	}
	data, err := encode(settings)
	if err != nil {
		return err
	}
	return s.mutate(ctx, s.settings, func([]byte) ([]byte, error) {
		return data, nil
	})
}

// UpdateSettings shallow-merges patch over the settings document.
func (s *Store) UpdateSettings(ctx context.Context, patch Patch) error {
	return s.mutateObject(ctx, s.settings, func(object map[string]json.RawMessage) (bool, error) {
		if err := applyPatch(object, patch); err != nil {
			return false, apperrors.Wrap(apperrors.CodeInvalidArgument, "apply settings patch", err)
		}
		return true, nil
	})
}
