package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"github.com/louisbranch/guildboard/internal/services/guild/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

var errNotConfigured = apperrors.New(apperrors.CodeIOFailure, "storage is not configured")

// Store implements storage.RelationalStore over SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Open opens the guild SQLite store at path and applies bundled migrations.
//
// Migrations only create what is missing, so Open is safe on every process
// start against an existing file.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	sqlDB, err := sql.Open("sqlite", cleanPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensurePragmas(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB, clock: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// DB returns the raw database handle for maintenance callers.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errNotConfigured
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func ensurePragmas(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("check sqlite journal mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		return fmt.Errorf("sqlite journal mode is %q, want wal", mode)
	}
	return nil
}

// required trims value and rejects it when empty.
func required(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, name+" is required")
	}
	return value, nil
}

// classify wraps a driver error with the matching storage code.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isConstraintError(err) {
		return apperrors.Wrap(apperrors.CodeConstraintViolation, op, err)
	}
	return apperrors.Wrap(apperrors.CodeIOFailure, op, err)
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code&0xff == sqlite3lib.SQLITE_CONSTRAINT
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

var _ storage.RelationalStore = (*Store)(nil)
