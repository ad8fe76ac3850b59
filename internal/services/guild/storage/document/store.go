package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"
	"github.com/juju/utils/v4"
	apperrors "github.com/louisbranch/guildboard/internal/platform/errors"
	"github.com/louisbranch/guildboard/internal/platform/logging"
	"go.uber.org/zap"
)

const (
	// GuildTreeFile holds rooms and notification campaigns keyed by guild.
	GuildTreeFile = "config.json"
	// SettingsFile holds free-form dashboard settings.
	SettingsFile = "settings.json"
	// LogsFile holds the bounded operational log.
	LogsFile = "logs.json"

	// DefaultLockTimeout bounds how long a writer waits for the machine lock.
	DefaultLockTimeout = 5 * time.Second

	lockDelay = 20 * time.Millisecond
	filePerms = 0o644
)

// Config configures a document Store.
type Config struct {
	// Dir is the data directory the three files live in.
	Dir string
	// LockTimeout bounds lock acquisition; zero uses DefaultLockTimeout.
	LockTimeout time.Duration
	// Clock stamps generated timestamps; nil uses the wall clock.
	Clock  clock.Clock
	Logger *zap.Logger
}

// Store reads and rewrites the document files under one directory.
type Store struct {
	clock       clock.Clock
	logger      *zap.Logger
	lockTimeout time.Duration

	tree     *file
	settings *file
	logs     *file
}

type file struct {
	path     string
	lockName string
	seed     []byte
	mu       sync.Mutex
}

// Open prepares dir and seeds any missing file with its empty container.
// Existing files are left untouched, even when corrupt.
func Open(cfg Config) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("document dir is required")
	}
	dir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve document dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	store := &Store{
		clock:       cfg.Clock,
		logger:      logging.OrNop(cfg.Logger).Named("document"),
		lockTimeout: cfg.LockTimeout,
		tree:        newFile(dir, GuildTreeFile, `{"salas":{},"notificaciones_salas":{}}`),
		settings:    newFile(dir, SettingsFile, `{"recordatorios":{},"funciones_activas":{}}`),
		logs:        newFile(dir, LogsFile, `[]`),
	}
	if store.clock == nil {
		store.clock = clock.WallClock
	}
	if store.lockTimeout <= 0 {
		store.lockTimeout = DefaultLockTimeout
	}

	for _, f := range []*file{store.tree, store.settings, store.logs} {
		if err := store.seed(context.Background(), f); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func newFile(dir, name, seed string) *file {
	path := filepath.Join(dir, name)
	return &file{
		path:     path,
		lockName: lockName(path),
		seed:     []byte(seed),
	}
}

// lockName maps an absolute file path to a valid machine lock name.
func lockName(path string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return "guildboard-" + strconv.FormatUint(h.Sum64(), 36)
}

func (f *file) name() string {
	return filepath.Base(f.path)
}

func (s *Store) seed(ctx context.Context, f *file) error {
	return s.withLock(ctx, f, func() error {
		_, err := os.Stat(f.path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return apperrors.Wrap(apperrors.CodeIOFailure, "stat "+f.name(), err)
		}
		return s.write(f, f.seed)
	})
}

// load returns the file's bytes, or its seed when the file is missing.
func (s *Store) load(f *file) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return f.seed, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "read "+f.name(), err)
	}
	return data, nil
}

func (s *Store) write(f *file, data []byte) error {
	if err := utils.AtomicWriteFile(f.path, data, filePerms); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "write "+f.name(), err)
	}
	return nil
}

// mutate runs apply over the current file contents under both locks and
// atomically replaces the file with the result. A nil result skips the write.
func (s *Store) mutate(ctx context.Context, f *file, apply func(current []byte) ([]byte, error)) error {
	return s.withLock(ctx, f, func() error {
		current, err := s.load(f)
		if err != nil {
			return err
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return s.write(f, next)
	})
}

func (s *Store) withLock(ctx context.Context, f *file, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    f.lockName,
		Clock:   clock.WallClock,
		Delay:   lockDelay,
		Timeout: s.lockTimeout,
		Cancel:  ctx.Done(),
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, mutex.ErrTimeout):
			return apperrors.WrapWithMetadata(apperrors.CodeLockTimeout, "lock "+f.name(),
				map[string]string{"lock": f.lockName}, err)
		default:
			return apperrors.Wrap(apperrors.CodeIOFailure, "lock "+f.name(), err)
		}
	}
	defer releaser.Release()

	return fn()
}

// readObject loads f as a JSON object, degrading corrupt content to empty.
func (s *Store) readObject(ctx context.Context, f *file) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.load(f)
	if err != nil {
		return nil, err
	}
	return s.decodeObject(f, data), nil
}

func (s *Store) decodeObject(f *file, data []byte) map[string]json.RawMessage {
	object := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return object
	}
	if err := json.Unmarshal(data, &object); err != nil || object == nil {
		s.logger.Warn("corrupt document, using empty default",
			zap.String("file", f.name()),
			zap.Error(err),
		)
		return map[string]json.RawMessage{}
	}
	return object
}

// mutateObject is mutate for files holding a JSON object.
func (s *Store) mutateObject(ctx context.Context, f *file, apply func(object map[string]json.RawMessage) (bool, error)) error {
	return s.mutate(ctx, f, func(current []byte) ([]byte, error) {
		object := s.decodeObject(f, current)
		changed, err := apply(object)
		if err != nil || !changed {
			return nil, err
		}
		return encode(object)
	})
}

func encode(value any) ([]byte, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSerializationFailure, "encode document", err)
	}
	return data, nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}
