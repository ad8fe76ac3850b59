package state

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/platform/id"
	"github.com/louisbranch/guildboard/internal/platform/telemetry/metrics"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	state    *State
	logs     *observer.ObservedLogs
	registry *prometheus.Registry
	clock    *testclock.Clock
}

func TestNewRequiresStores(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected missing relational store error")
	}
	if _, err := New(Config{Relational: openRelational(t)}); err == nil {
		t.Fatal("expected missing document store error")
	}
}

func TestMissingRecordIsSoftAndQuiet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, ok := f.state.GuildConfig(ctx, "missing"); ok {
		t.Fatal("expected missing guild config")
	}
	if _, ok := f.state.DocumentRoom(ctx, "g1", "missing"); ok {
		t.Fatal("expected missing document room")
	}
	if f.logs.Len() != 0 {
		t.Fatalf("missing records logged: %v", f.logs.All())
	}

	expected := `
# HELP guildboard_store_operations_total Store operations by store, operation and outcome.
# TYPE guildboard_store_operations_total counter
guildboard_store_operations_total{op="get_guild_config",outcome="not_found",store="relational"} 1
guildboard_store_operations_total{op="get_room",outcome="not_found",store="document"} 1
`
	if err := testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "guildboard_store_operations_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestFailedWriteIsLoggedAndCounted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if ok := f.state.CreateRoom(ctx, storage.Room{RoomID: "room-1", GuildID: "ghost", Name: "Ranked"}); ok {
		t.Fatal("expected room for unknown guild to fail")
	}
	entries := f.logs.FilterMessage("store operation failed").All()
	if len(entries) != 1 {
		t.Fatalf("error logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["op"] != "create_room" || fields["code"] != string(apperrors.CodeConstraintViolation) || fields["guild_id"] != "ghost" {
		t.Fatalf("log fields = %v", fields)
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("log level = %v, want error", entries[0].Level)
	}

	expected := `
# HELP guildboard_store_operations_total Store operations by store, operation and outcome.
# TYPE guildboard_store_operations_total counter
guildboard_store_operations_total{op="create_room",outcome="constraint_violation",store="relational"} 1
`
	if err := testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "guildboard_store_operations_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestReadFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	s, err := New(Config{
		Relational: openRelational(t),
		Documents:  failingDocuments{},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	ctx := context.Background()

	if rooms := s.DocumentRooms(ctx); rooms == nil || len(rooms) != 0 {
		t.Fatalf("rooms = %#v, want empty", rooms)
	}
	campaign := s.NotificationCampaign(ctx, "g1")
	if campaign.NotificationConfig != document.DefaultNotificationConfig() {
		t.Fatalf("campaign = %+v, want defaults", campaign)
	}
	if settings := s.Settings(ctx); settings == nil || len(settings) != 0 {
		t.Fatalf("settings = %#v, want empty", settings)
	}
	if ok := s.UpdateSettings(ctx, document.Patch{"a": 1}); ok {
		t.Fatal("expected update to fail")
	}
	if got := logs.FilterMessage("store operation failed").Len(); got != 4 {
		t.Fatalf("error logs = %d, want 4", got)
	}
}

func TestEnsureGuildConfigCreatesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	config, ok := f.state.EnsureGuildConfig(ctx, "g1", "Alpha", "icon.png")
	if !ok {
		t.Fatal("ensure guild config failed")
	}
	if config.GuildName != "Alpha" || config.GuildIcon != "icon.png" {
		t.Fatalf("config = %+v", config)
	}

	if ok := f.state.SaveGuildConfig(ctx, "g1", storage.GuildConfigInput{GuildName: "Renamed"}); !ok {
		t.Fatal("save guild config failed")
	}
	config, ok = f.state.EnsureGuildConfig(ctx, "g1", "Alpha", "icon.png")
	if !ok || config.GuildName != "Renamed" {
		t.Fatalf("second ensure = %+v, %v; want existing row kept", config, ok)
	}
	if got := len(f.state.GuildConfigs(ctx)); got != 1 {
		t.Fatalf("guild configs = %d, want 1", got)
	}
}

func TestCreateAndCloseDocumentRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, ok := f.state.EnsureGuildConfig(ctx, "g1", "Alpha", ""); !ok {
		t.Fatal("ensure guild config failed")
	}

	roomID, ok := f.state.CreateDocumentRoom(ctx, "g1", document.RoomRecord{Name: "Sala", MaxPlayers: 4}, "admin")
	if !ok {
		t.Fatal("create document room failed")
	}
	created, err := id.RoomIDTime(roomID)
	if err != nil {
		t.Fatalf("parse room id: %v", err)
	}
	if !created.Equal(f.clock.Now().Truncate(time.Second)) {
		t.Fatalf("room id time = %v, want %v", created, f.clock.Now())
	}
	if room, ok := f.state.DocumentRoom(ctx, "g1", roomID); !ok || room.Name != "Sala" {
		t.Fatalf("document room = %+v, %v", room, ok)
	}

	guildID, ok := f.state.CloseDocumentRoom(ctx, roomID, "admin")
	if !ok || guildID != "g1" {
		t.Fatalf("close = %q, %v", guildID, ok)
	}
	if _, ok := f.state.CloseDocumentRoom(ctx, roomID, "admin"); ok {
		t.Fatal("expected second close to report missing room")
	}

	logs := f.state.Logs(ctx, "g1", 0)
	if len(logs) != 2 {
		t.Fatalf("logs = %+v, want 2", logs)
	}
	if logs[0].Action != ActionRoomClose || logs[1].Action != ActionRoomCreate || logs[1].Details != roomID {
		t.Fatalf("logs = %+v", logs)
	}
}

func TestPostAnnouncementLogs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, ok := f.state.EnsureGuildConfig(ctx, "g1", "Alpha", ""); !ok {
		t.Fatal("ensure guild config failed")
	}

	announcementID, ok := f.state.PostAnnouncement(ctx, "g1", "Torneo", "Sábado 20h", "admin")
	if !ok || announcementID <= 0 {
		t.Fatalf("post announcement = %d, %v", announcementID, ok)
	}
	announcements := f.state.Announcements(ctx, "g1", 0)
	if len(announcements) != 1 || announcements[0].ID != announcementID {
		t.Fatalf("announcements = %+v", announcements)
	}
	logs := f.state.Logs(ctx, "g1", 0)
	if len(logs) != 1 || logs[0].Action != ActionAnnouncementPost || logs[0].Actor != "admin" {
		t.Fatalf("logs = %+v", logs)
	}

	if _, ok := f.state.PostAnnouncement(ctx, "ghost", "x", "y", "admin"); ok {
		t.Fatal("expected announcement for unknown guild to fail")
	}
}

func TestGuildStateScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if ok := f.state.SaveGuildConfig(ctx, "g1", storage.GuildConfigInput{GuildName: "Alpha"}); !ok {
		t.Fatal("save guild config failed")
	}
	if ok := f.state.AddDocumentRoom(ctx, "g1", "r1", document.RoomRecord{Name: "Sala", MaxPlayers: 50}); !ok {
		t.Fatal("add room failed")
	}
	players := []document.Player{
		{UserID: "p1", Name: "Ana"},
		{UserID: "p2", Name: "Beto"},
	}
	if ok := f.state.UpdateDocumentRoom(ctx, "g1", "r1", document.Patch{"jugadores": players}); !ok {
		t.Fatal("add players failed")
	}
	if got := len(f.state.DocumentRooms(ctx)["g1"]["r1"].Players); got != 2 {
		t.Fatalf("players = %d, want 2", got)
	}

	if ok := f.state.UpdateDocumentRoom(ctx, "g1", "r1", document.Patch{"jugadores": players[:1]}); !ok {
		t.Fatal("remove player failed")
	}
	room := f.state.DocumentRooms(ctx)["g1"]["r1"]
	if len(room.Players) != 1 || room.Players[0].UserID != "p1" {
		t.Fatalf("players = %+v, want only p1", room.Players)
	}
	if room.MaxPlayers != 50 || room.Name != "Sala" {
		t.Fatalf("room = %+v", room)
	}
}

func TestReadyListAndOpLog(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if !f.state.AddReadyPlayer(ctx, "g1", document.ReadyPlayer{UserID: "u1", Name: "Ana"}) {
		t.Fatal("expected u1 to be added")
	}
	if f.state.AddReadyPlayer(ctx, "g1", document.ReadyPlayer{UserID: "u1", Name: "Ana"}) {
		t.Fatal("expected duplicate to be ignored")
	}
	if got := len(f.state.NotificationCampaign(ctx, "g1").ReadyPlayers); got != 1 {
		t.Fatalf("ready players = %d, want 1", got)
	}
	if !f.state.ClearReadyPlayers(ctx, "g1") {
		t.Fatal("clear failed")
	}

	if !f.state.RecordOp(ctx, document.LogEntry{Action: "restart", User: "system"}) {
		t.Fatal("record op failed")
	}
	entries := f.state.OpLogs(ctx, 0)
	if len(entries) != 1 || entries[0].Timestamp != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("op logs = %+v", entries)
	}
	if !f.state.ClearOpLogs(ctx) || len(f.state.OpLogs(ctx, 0)) != 0 {
		t.Fatal("clear op logs failed")
	}
}

type failingDocuments struct {
	DocumentStore
}

var errDisk = apperrors.Wrap(apperrors.CodeIOFailure, "read config.json", errors.New("input/output error"))

func (failingDocuments) GetRooms(context.Context) (document.RoomsDocument, error) {
	return nil, errDisk
}

func (failingDocuments) GetNotificationCampaign(context.Context, string) (document.NotificationCampaign, error) {
	return document.NotificationCampaign{}, errDisk
}

func (failingDocuments) GetSettings(context.Context) (document.Settings, error) {
	return nil, errDisk
}

func (failingDocuments) UpdateSettings(context.Context, document.Patch) error {
	return errDisk
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	clk := testclock.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	docs, err := document.Open(document.Config{Dir: t.TempDir(), Clock: clk, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("open documents: %v", err)
	}
	registry := prometheus.NewRegistry()
	storeMetrics, err := metrics.NewStoreMetrics(registry)
	if err != nil {
		t.Fatalf("store metrics: %v", err)
	}
	logger, logs := observedLogger()
	s, err := New(Config{
		Relational: openRelational(t),
		Documents:  docs,
		Logger:     logger,
		Metrics:    storeMetrics,
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	return fixture{state: s, logs: logs, registry: registry, clock: clk}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func openRelational(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "guild.db"))
	if err != nil {
		t.Fatalf("open relational store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close relational store: %v", err)
		}
	})
	return store
}
