package metrics

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "guildboard"

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "ok"

// NewRegistry returns a registry preloaded with Go runtime and process
// collectors.
func NewRegistry() (*prometheus.Registry, error) {
	r := prometheus.NewRegistry()
	if err := r.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := r.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	return r, nil
}

// StoreMetrics records store operation counts and latency.
//
// A nil *StoreMetrics is valid and records nothing.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store collectors on reg.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by store, operation and outcome.",
		}, []string{"store", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"store", "op"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register store metrics: %w", err)
		}
	}
	return m, nil
}

// Observe records one finished operation.
func (m *StoreMetrics) Observe(store, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(store, op, Outcome(err)).Inc()
	m.duration.WithLabelValues(store, op).Observe(time.Since(started).Seconds())
}

// Outcome maps err to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return strings.ToLower(apperrors.CodeOf(err).String())
}
