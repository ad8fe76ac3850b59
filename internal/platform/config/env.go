// Package config loads process configuration from the environment and
// prepares the on-disk locations the state layer writes to.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by guildboard commands.
const EnvPrefix = "GUILDBOARD_"

// ParseEnv loads configuration from environment variables into target.
//
// Struct tags name variables without the prefix; ParseEnv prepends EnvPrefix
// so `env:"DATA_DIR"` reads GUILDBOARD_DATA_DIR.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// EnsureDir creates dir (and parents) when missing and returns its cleaned form.
func EnsureDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("data directory is required")
	}
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return "", fmt.Errorf("create data directory %s: %w", clean, err)
	}
	return clean, nil
}

// ResolvePath joins name onto dir unless name is already absolute.
func ResolvePath(dir, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
