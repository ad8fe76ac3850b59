// Package state is the soft-fail boundary over the guild stores.
//
// The stores underneath return typed errors. State turns them into the
// shape dashboard handlers consume: writes report success as a bool, reads
// return zero values or empty collections. Every error it absorbs is logged,
// counted and recorded on the operation's span; a missing record is only
// counted. Session calls are not softened, since the web session contract
// carries errors.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"
	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/platform/logging"
	guildotel "github.com/louisbranch/guildboard/internal/platform/otel"
	"github.com/louisbranch/guildboard/internal/platform/telemetry/metrics"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	storeRelational = "relational"
	storeDocument   = "document"
)

// DocumentStore is the document tree contract State depends on.
type DocumentStore interface {
	GetRooms(ctx context.Context) (document.RoomsDocument, error)
	GetGuildRooms(ctx context.Context, guildID string) (map[string]document.RoomRecord, error)
	GetRoom(ctx context.Context, guildID, roomID string) (document.RoomRecord, error)
	AddRoom(ctx context.Context, guildID, roomID string, room document.RoomRecord) error
	UpdateRoom(ctx context.Context, guildID, roomID string, patch document.Patch) error
	RemoveRoom(ctx context.Context, guildID, roomID string) error
	CloseRoom(ctx context.Context, roomID string) (string, error)

	GetNotificationCampaign(ctx context.Context, guildID string) (document.NotificationCampaign, error)
	SaveNotificationConfig(ctx context.Context, guildID string, config document.NotificationConfig) error
	AddReadyPlayer(ctx context.Context, guildID string, player document.ReadyPlayer) (bool, error)
	RemoveReadyPlayer(ctx context.Context, guildID, userID string) error
	ClearReadyPlayers(ctx context.Context, guildID string) error

	GetSettings(ctx context.Context) (document.Settings, error)
	SaveSettings(ctx context.Context, settings document.Settings) error
	UpdateSettings(ctx context.Context, patch document.Patch) error

	GetLogs(ctx context.Context, limit int) ([]document.LogEntry, error)
	AddLog(ctx context.Context, entry document.LogEntry) error
	ClearLogs(ctx context.Context) error
}

// SessionStore is the web session contract.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID string, payload []byte, expiresAt time.Time) error
	Destroy(ctx context.Context, sessionID string) error
}

// Config wires State's dependencies. Relational and Documents are required.
type Config struct {
	Relational storage.RelationalStore
	Documents  DocumentStore
	Sessions   SessionStore
	Logger     *zap.Logger
	Metrics    *metrics.StoreMetrics
	Tracer     trace.Tracer
	Clock      clock.Clock
}

// State is the dashboard's view of guild state.
type State struct {
	relational storage.RelationalStore
	documents  DocumentStore
	sessions   SessionStore
	logger     *zap.Logger
	metrics    *metrics.StoreMetrics
	tracer     trace.Tracer
	clock      clock.Clock
}

// New builds a State from cfg.
func New(cfg Config) (*State, error) {
	if cfg.Relational == nil {
		return nil, errors.New("relational store is required")
	}
	if cfg.Documents == nil {
		return nil, errors.New("document store is required")
	}
	s := &State{
		relational: cfg.Relational,
		documents:  cfg.Documents,
		sessions:   cfg.Sessions,
		logger:     logging.OrNop(cfg.Logger).Named("state"),
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		clock:      cfg.Clock,
	}
	if s.tracer == nil {
		s.tracer = guildotel.Tracer()
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	return s, nil
}

// Sessions returns the session store, which reports errors to its caller.
func (s *State) Sessions() SessionStore {
	return s.sessions
}

// run executes fn as one observed store operation and reports whether it
// succeeded.
func (s *State) run(ctx context.Context, store, op string, fn func(ctx context.Context) error, fields ...zap.Field) bool {
	ctx, span := s.tracer.Start(ctx, store+"."+op, trace.WithAttributes(
		attribute.String("guildboard.store", store),
		attribute.String("guildboard.op", op),
	))
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	s.metrics.Observe(store, op, started, err)
	if err == nil {
		return true
	}

	code := apperrors.CodeOf(err)
	span.SetAttributes(attribute.String("guildboard.error_code", code.String()))
	if code.Soft() {
		return false
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	s.logger.Error("store operation failed", append(fields,
		zap.String("store", store),
		zap.String("op", op),
		zap.String("code", code.String()),
		zap.Error(err),
	)...)
	return false
}

func guildField(guildID string) zap.Field {
	return zap.String("guild_id", guildID)
}

func roomField(roomID string) zap.Field {
	return zap.String("room_id", roomID)
}
