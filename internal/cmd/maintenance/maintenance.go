// Package maintenance implements the offline guildboard maintenance command.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/juju/clock"
	entrypoint "github.com/louisbranch/guildboard/internal/platform/cmd"
	"github.com/louisbranch/guildboard/internal/platform/config"
	"github.com/louisbranch/guildboard/internal/platform/timeouts"
	"github.com/louisbranch/guildboard/internal/services/guild/session"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/document"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`
	DBName       string        `env:"DB_NAME" envDefault:"guildboard.db"`
	LockTimeout  time.Duration `env:"DOCUMENT_LOCK_TIMEOUT" envDefault:"5s"`
	Timeout      time.Duration `env:"MAINTENANCE_TIMEOUT"`
	ReapSessions bool
	ClearOpLog   bool
	TailOpLog    int
	ListGuilds   bool
	JSONOutput   bool
}

// ParseConfig parses environment defaults and then flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.Maintenance
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the database and document files")
	fs.StringVar(&cfg.DBName, "db", cfg.DBName, "sqlite file name, relative to -data-dir unless absolute")
	fs.DurationVar(&cfg.LockTimeout, "lock-timeout", cfg.LockTimeout, "document lock acquisition timeout")
	fs.BoolVar(&cfg.ReapSessions, "reap-sessions", false, "delete expired sessions")
	fs.BoolVar(&cfg.ClearOpLog, "clear-oplog", false, "empty the document operation log")
	fs.IntVar(&cfg.TailOpLog, "tail-oplog", 0, "print the N most recent operation log entries")
	fs.BoolVar(&cfg.ListGuilds, "list-guilds", false, "list stored guild configurations")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DocumentLog is the operation log surface the command needs.
type DocumentLog interface {
	GetLogs(ctx context.Context, limit int) ([]document.LogEntry, error)
	ClearLogs(ctx context.Context) error
}

// Stores bundles the stores a maintenance run operates on.
type Stores struct {
	Relational storage.RelationalStore
	Documents  DocumentLog
	Clock      clock.Clock
}

type report struct {
	Mode    string                `json:"mode"`
	Reaped  int64                 `json:"reaped,omitempty"`
	Entries []document.LogEntry   `json:"entries,omitempty"`
	Guilds  []storage.GuildConfig `json:"guilds,omitempty"`
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	mode, err := selectMode(cfg)
	if err != nil {
		return err
	}

	dataDir, err := config.EnsureDir(cfg.DataDir)
	if err != nil {
		return err
	}
	relational, err := sqlite.Open(config.ResolvePath(dataDir, cfg.DBName))
	if err != nil {
		return fmt.Errorf("open relational store: %w", err)
	}
	defer func() {
		if closeErr := relational.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close relational store: %v\n", closeErr)
		}
	}()
	documents, err := document.Open(document.Config{Dir: dataDir, LockTimeout: cfg.LockTimeout})
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	return runWithStores(ctx, mode, cfg, Stores{
		Relational: relational,
		Documents:  documents,
		Clock:      clock.WallClock,
	}, out)
}

func selectMode(cfg Config) (string, error) {
	var modes []string
	if cfg.ReapSessions {
		modes = append(modes, "reap-sessions")
	}
	if cfg.ClearOpLog {
		modes = append(modes, "clear-oplog")
	}
	if cfg.TailOpLog < 0 {
		return "", errors.New("-tail-oplog must be > 0")
	}
	if cfg.TailOpLog > 0 {
		modes = append(modes, "tail-oplog")
	}
	if cfg.ListGuilds {
		modes = append(modes, "list-guilds")
	}
	switch len(modes) {
	case 0:
		return "", errors.New("one of -reap-sessions, -clear-oplog, -tail-oplog or -list-guilds is required")
	case 1:
		return modes[0], nil
	default:
		return "", fmt.Errorf("-%s cannot be combined with -%s", modes[0], modes[1])
	}
}

func runWithStores(ctx context.Context, mode string, cfg Config, stores Stores, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if stores.Clock == nil {
		stores.Clock = clock.WallClock
	}

	result := report{Mode: mode}
	switch mode {
	case "reap-sessions":
		removed, err := session.NewReaper(stores.Relational, stores.Clock, nil).ReapOnce(ctx)
		if err != nil {
			return err
		}
		result.Reaped = removed
	case "clear-oplog":
		if err := stores.Documents.ClearLogs(ctx); err != nil {
			return fmt.Errorf("clear operation log: %w", err)
		}
	case "tail-oplog":
		entries, err := stores.Documents.GetLogs(ctx, cfg.TailOpLog)
		if err != nil {
			return fmt.Errorf("read operation log: %w", err)
		}
		result.Entries = entries
	case "list-guilds":
		guilds, err := stores.Relational.ListGuildConfigs(ctx)
		if err != nil {
			return fmt.Errorf("list guild configs: %w", err)
		}
		result.Guilds = guilds
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	if cfg.JSONOutput {
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(out, string(encoded))
		return nil
	}
	printReport(out, result)
	return nil
}

func printReport(out io.Writer, result report) {
	switch result.Mode {
	case "reap-sessions":
		fmt.Fprintf(out, "Removed %d expired sessions\n", result.Reaped)
	case "clear-oplog":
		fmt.Fprintln(out, "Operation log cleared")
	case "tail-oplog":
		fmt.Fprintf(out, "Operation log (%d entries):\n", len(result.Entries))
		for _, entry := range result.Entries {
			fmt.Fprintf(out, "- %s %s user=%s details=%s\n", entry.Timestamp, entry.Action, entry.User, entry.Details)
		}
	case "list-guilds":
		fmt.Fprintf(out, "Guilds (%d):\n", len(result.Guilds))
		for _, guild := range result.Guilds {
			fmt.Fprintf(out, "- %s %s\n", guild.GuildID, guild.GuildName)
		}
	}
}
