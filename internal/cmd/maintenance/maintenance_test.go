package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("maintenance", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("GUILDBOARD_DATA_DIR", "env-data")
	t.Setenv("GUILDBOARD_MAINTENANCE_TIMEOUT", "30s")

	args := []string{"-db", "other.db", "-tail-oplog", "5", "-json"}
	cfg, err := ParseConfig(flag.NewFlagSet("maintenance", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DataDir != "env-data" {
		t.Fatalf("expected env data dir, got %q", cfg.DataDir)
	}
	if cfg.DBName != "other.db" {
		t.Fatalf("expected flag db name, got %q", cfg.DBName)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected env timeout, got %v", cfg.Timeout)
	}
	if cfg.TailOpLog != 5 || !cfg.JSONOutput {
		t.Fatalf("expected tail 5 with json, got %+v", cfg)
	}
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		cfg     Config
		want    string
		wantErr bool
	}{
		{cfg: Config{}, wantErr: true},
		{cfg: Config{ReapSessions: true}, want: "reap-sessions"},
		{cfg: Config{ClearOpLog: true}, want: "clear-oplog"},
		{cfg: Config{TailOpLog: 3}, want: "tail-oplog"},
		{cfg: Config{TailOpLog: -1}, wantErr: true},
		{cfg: Config{ListGuilds: true}, want: "list-guilds"},
		{cfg: Config{ReapSessions: true, ClearOpLog: true}, wantErr: true},
	}

	for _, tc := range tests {
		got, err := selectMode(tc.cfg)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %+v", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", tc.cfg, err)
		}
		if got != tc.want {
			t.Fatalf("expected mode %q, got %q", tc.want, got)
		}
	}
}

func TestRunRejectsMissingMode(t *testing.T) {
	err := Run(context.Background(), Config{DataDir: t.TempDir(), DBName: "guildboard.db"}, nil, nil)
	if err == nil {
		t.Fatal("expected error without a mode")
	}
}

func TestReapSessions(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	stores := openStores(t)
	ctx := context.Background()

	for _, sess := range []storage.Session{
		{ID: "old", Payload: []byte("{}"), ExpiresAt: clk.Now().Add(-time.Minute)},
		{ID: "live", Payload: []byte("{}"), ExpiresAt: clk.Now().Add(time.Hour)},
	} {
		if err := stores.Relational.PutSession(ctx, sess); err != nil {
			t.Fatalf("put session %s: %v", sess.ID, err)
		}
	}
	stores.Clock = clk

	var out bytes.Buffer
	if err := runWithStores(ctx, "reap-sessions", Config{JSONOutput: true}, stores, &out); err != nil {
		t.Fatalf("reap sessions: %v", err)
	}
	var got report
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Mode != "reap-sessions" || got.Reaped != 1 {
		t.Fatalf("expected one reaped session, got %+v", got)
	}
}

func TestTailAndClearOpLog(t *testing.T) {
	stores := openStores(t)
	ctx := context.Background()
	documents := stores.Documents.(*document.Store)
	for _, action := range []string{"a", "b", "c"} {
		if err := documents.AddLog(ctx, document.LogEntry{Action: action, User: "u1", Details: "d"}); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}

	var out bytes.Buffer
	if err := runWithStores(ctx, "tail-oplog", Config{TailOpLog: 2}, stores, &out); err != nil {
		t.Fatalf("tail oplog: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Operation log (2 entries):") {
		t.Fatalf("expected two entries, got %q", text)
	}
	if strings.Contains(text, " a user=") || !strings.Contains(text, " c user=u1") {
		t.Fatalf("expected newest entries only, got %q", text)
	}

	out.Reset()
	if err := runWithStores(ctx, "clear-oplog", Config{}, stores, &out); err != nil {
		t.Fatalf("clear oplog: %v", err)
	}
	entries, err := documents.GetLogs(ctx, 10)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log, got %d entries", len(entries))
	}
}

func TestListGuilds(t *testing.T) {
	stores := openStores(t)
	ctx := context.Background()
	if err := stores.Relational.SaveGuildConfig(ctx, "g1", storage.GuildConfigInput{GuildName: "First"}); err != nil {
		t.Fatalf("save guild: %v", err)
	}

	var out bytes.Buffer
	if err := runWithStores(ctx, "list-guilds", Config{}, stores, &out); err != nil {
		t.Fatalf("list guilds: %v", err)
	}
	if got := out.String(); got != "Guilds (1):\n- g1 First\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func openStores(t *testing.T) Stores {
	t.Helper()
	dir := t.TempDir()
	relational, err := sqlite.Open(dir + "/guildboard.db")
	if err != nil {
		t.Fatalf("open relational store: %v", err)
	}
	t.Cleanup(func() {
		if err := relational.Close(); err != nil {
			t.Fatalf("close relational store: %v", err)
		}
	})
	documents, err := document.Open(document.Config{Dir: dir})
	if err != nil {
		t.Fatalf("open document store: %v", err)
	}
	return Stores{Relational: relational, Documents: documents}
}
