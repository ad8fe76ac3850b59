// Package dashboard wires the guild state layer into the dashboard host
// process: it opens both stores once, starts the session reaper, and serves
// health and metrics on an operations listener.
package dashboard

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/juju/clock"
	entrypoint "github.com/louisbranch/guildboard/internal/platform/cmd"
	"github.com/louisbranch/guildboard/internal/platform/config"
	"github.com/louisbranch/guildboard/internal/platform/logging"
	"github.com/louisbranch/guildboard/internal/platform/otel"
	"github.com/louisbranch/guildboard/internal/platform/telemetry/metrics"
	"github.com/louisbranch/guildboard/internal/platform/timeouts"
	"github.com/louisbranch/guildboard/internal/services/guild/session"
	"github.com/louisbranch/guildboard/internal/services/guild/state"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds dashboard process configuration.
type Config struct {
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`
	DBName       string        `env:"DB_NAME" envDefault:"guildboard.db"`
	OpsAddr      string        `env:"OPS_ADDR" envDefault:"127.0.0.1:9464"`
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"1h"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	LockTimeout  time.Duration `env:"DOCUMENT_LOCK_TIMEOUT" envDefault:"5s"`
	LogEnv       string        `env:"LOG_ENV" envDefault:"development"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string        `env:"OTEL_ENDPOINT"`
}

// ParseConfig parses environment defaults and then flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the database and document files")
	fs.StringVar(&cfg.DBName, "db", cfg.DBName, "sqlite file name, relative to -data-dir unless absolute")
	fs.StringVar(&cfg.OpsAddr, "ops-addr", cfg.OpsAddr, "listen address for /up and /metrics (empty disables)")
	fs.DurationVar(&cfg.ReapInterval, "reap-interval", cfg.ReapInterval, "expired session sweep interval (0 disables)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "default session lifetime")
	fs.DurationVar(&cfg.LockTimeout, "lock-timeout", cfg.LockTimeout, "document lock acquisition timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Runtime is the opened state layer of one dashboard process.
type Runtime struct {
	State    *state.State
	Sessions *session.Store
	Reaper   *session.Reaper
	Registry *prometheus.Registry

	relational *sqlite.Store
	logger     *zap.Logger
}

// Open opens both stores under cfg.DataDir and composes the state layer.
func Open(cfg Config, logger *zap.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)

	dataDir, err := config.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	registry, err := metrics.NewRegistry()
	if err != nil {
		return nil, err
	}
	storeMetrics, err := metrics.NewStoreMetrics(registry)
	if err != nil {
		return nil, err
	}

	relational, err := sqlite.Open(config.ResolvePath(dataDir, cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	documents, err := document.Open(document.Config{
		Dir:         dataDir,
		LockTimeout: cfg.LockTimeout,
		Clock:       clock.WallClock,
		Logger:      logger,
	})
	if err != nil {
		_ = relational.Close()
		return nil, fmt.Errorf("open document store: %w", err)
	}

	sessions := session.NewStore(relational, session.WithTTL(cfg.SessionTTL))
	guildState, err := state.New(state.Config{
		Relational: relational,
		Documents:  documents,
		Sessions:   sessions,
		Logger:     logger,
		Metrics:    storeMetrics,
		Tracer:     otel.Tracer(),
	})
	if err != nil {
		_ = relational.Close()
		return nil, err
	}

	return &Runtime{
		State:      guildState,
		Sessions:   sessions,
		Reaper:     session.NewReaper(relational, clock.WallClock, logger),
		Registry:   registry,
		relational: relational,
		logger:     logger,
	}, nil
}

// Handler serves the operations endpoints.
func (r *Runtime) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
	return mux
}

// Close releases the relational store handle.
func (r *Runtime) Close() error {
	if r == nil || r.relational == nil {
		return nil
	}
	return r.relational.Close()
}

// Run opens the state layer and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named(entrypoint.ServiceDashboard)

	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceDashboard, entrypoint.RunOptions{
		Telemetry: otel.Settings{Endpoint: cfg.OTelEndpoint},
		Logger:    logger,
	}, func(ctx context.Context) error {
		return serve(ctx, cfg, logger)
	})
}

func serve(ctx context.Context, cfg Config, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	runtime, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			logger.Error("close relational store", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	reaperDone := runtime.Reaper.StartCleanup(ctx, cfg.ReapInterval)
	defer func() {
		cancel()
		<-reaperDone
	}()

	if cfg.OpsAddr == "" {
		logger.Info("dashboard state layer ready", zap.String("data_dir", cfg.DataDir))
		<-ctx.Done()
		return nil
	}
	return serveOps(ctx, cfg.OpsAddr, runtime.Handler(), logger)
}

func serveOps(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	logger.Info("ops listener started", zap.String("addr", listener.Addr().String()))
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown ops listener: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve ops listener: %w", err)
	}
}
