package dashboard

import (
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("dashboard", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected data dir data, got %q", cfg.DataDir)
	}
	if cfg.DBName != "guildboard.db" {
		t.Fatalf("expected db name guildboard.db, got %q", cfg.DBName)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("expected 720h session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.ReapInterval != time.Hour {
		t.Fatalf("expected 1h reap interval, got %v", cfg.ReapInterval)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Fatalf("expected 5s lock timeout, got %v", cfg.LockTimeout)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GUILDBOARD_DATA_DIR", "/srv/guildboard")
	t.Setenv("GUILDBOARD_OPS_ADDR", "127.0.0.1:1")

	cfg, err := ParseConfig(flag.NewFlagSet("dashboard", flag.ContinueOnError), []string{"-ops-addr", ""})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DataDir != "/srv/guildboard" {
		t.Fatalf("expected env data dir, got %q", cfg.DataDir)
	}
	if cfg.OpsAddr != "" {
		t.Fatalf("expected flag to clear ops addr, got %q", cfg.OpsAddr)
	}
}

func TestOpenCreatesStores(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	runtime := openTestRuntime(t, dir)

	for _, name := range []string{"guildboard.db", "config.json", "settings.json", "logs.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}

	ctx := context.Background()
	if _, ok := runtime.State.EnsureGuildConfig(ctx, "g1", "Guild", ""); !ok {
		t.Fatal("expected guild config to be created")
	}
	if err := runtime.Sessions.Set(ctx, "sid", []byte("{}"), time.Time{}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if _, found, err := runtime.Sessions.Get(ctx, "sid"); err != nil || !found {
		t.Fatalf("expected session, found=%v err=%v", found, err)
	}
}

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	runtime := openTestRuntime(t, t.TempDir())
	runtime.State.GuildConfig(context.Background(), "missing")

	server := httptest.NewServer(runtime.Handler())
	defer server.Close()

	body := get(t, server.URL+"/up")
	if body != "OK" {
		t.Fatalf("expected OK, got %q", body)
	}

	body = get(t, server.URL+"/metrics")
	if !strings.Contains(body, `guildboard_store_operations_total{op="get_guild_config",outcome="not_found",store="relational"} 1`) {
		t.Fatalf("expected store counter in metrics output, got:\n%s", body)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := Config{
		DataDir:      t.TempDir(),
		DBName:       "guildboard.db",
		OpsAddr:      "127.0.0.1:0",
		ReapInterval: time.Hour,
		SessionTTL:   time.Hour,
		LockTimeout:  time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, nil)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServeReturnsWhenOpsListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer taken.Close()

	cfg := Config{
		DataDir:      t.TempDir(),
		DBName:       "guildboard.db",
		OpsAddr:      taken.Addr().String(),
		ReapInterval: time.Hour,
		SessionTTL:   time.Hour,
		LockTimeout:  time.Second,
	}
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), cfg, nil)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected listen error for a port in use")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after the ops listener failed")
	}
}

func TestRunRejectsMissingDataDir(t *testing.T) {
	err := Run(context.Background(), Config{DataDir: " ", DBName: "guildboard.db"})
	if err == nil {
		t.Fatal("expected error for blank data dir")
	}
}

func openTestRuntime(t *testing.T, dir string) *Runtime {
	t.Helper()
	runtime, err := Open(Config{
		DataDir:     dir,
		DBName:      "guildboard.db",
		SessionTTL:  time.Hour,
		LockTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() {
		if err := runtime.Close(); err != nil {
			t.Fatalf("close runtime: %v", err)
		}
	})
	return runtime
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(data)
}
