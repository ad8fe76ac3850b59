package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewStoreMetrics(reg)
	if err != nil {
		t.Fatalf("new store metrics: %v", err)
	}

	now := time.Now()
	m.Observe("sqlite", "save_guild_config", now, nil)
	m.Observe("sqlite", "save_guild_config", now, nil)
	m.Observe("sqlite", "save_guild_config", now, fmt.Errorf("wrap: %w", apperrors.New(apperrors.CodeIOFailure, "disk")))

	if got := testutil.ToFloat64(m.operations.WithLabelValues("sqlite", "save_guild_config", "ok")); got != 2 {
		t.Fatalf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("sqlite", "save_guild_config", "io_failure")); got != 1 {
		t.Fatalf("io_failure count = %v, want 1", got)
	}
}

func TestNilStoreMetricsIsNoop(t *testing.T) {
	var m *StoreMetrics
	m.Observe("document", "add_room", time.Now(), nil)
}

func TestNewStoreMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewStoreMetrics(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewStoreMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestOutcome(t *testing.T) {
	if got := Outcome(nil); got != OutcomeOK {
		t.Fatalf("Outcome(nil) = %q", got)
	}
	if got := Outcome(errors.New("boom")); got != "unknown" {
		t.Fatalf("Outcome(plain) = %q", got)
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected runtime metric families")
	}
}
