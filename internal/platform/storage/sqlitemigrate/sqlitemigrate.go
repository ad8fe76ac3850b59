// Package sqlitemigrate applies embedded, forward-only SQL migrations to an
// SQLite database.
//
// Each file runs at most once; its name is recorded in schema_migrations in
// the same transaction as its statements. Re-running Apply on an initialized
// database is a no-op, so processes call it on every start.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

// Result reports what one Apply run did.
type Result struct {
	Applied []string
	Skipped []string
}

// Apply executes the .sql files under root in migrationFS in filename order.
func Apply(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS, root string) (Result, error) {
	var result Result
	if sqlDB == nil {
		return result, fmt.Errorf("sql db is required")
	}
	if migrationFS == nil {
		return result, fmt.Errorf("migration fs is required")
	}

	root = strings.Trim(strings.TrimSpace(root), "/")
	if root == "" {
		root = "."
	}

	files, err := listSQLFiles(migrationFS, root)
	if err != nil {
		return result, err
	}

	if _, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return result, fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		key := name
		if root != "." {
			key = path.Join(root, name)
		}

		applied, err := isApplied(ctx, sqlDB, key)
		if err != nil {
			return result, fmt.Errorf("check migration %s: %w", key, err)
		}
		if applied {
			result.Skipped = append(result.Skipped, key)
			continue
		}

		content, err := fs.ReadFile(migrationFS, path.Join(root, name))
		if err != nil {
			return result, fmt.Errorf("read migration %s: %w", key, err)
		}
		upSQL := ExtractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			result.Skipped = append(result.Skipped, key)
			continue
		}

		if err := applyOne(ctx, sqlDB, key, upSQL); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, key)
	}

	return result, nil
}

// ExtractUp returns the SQL between the Up and Down markers. Files without
// an Up marker are treated as all-up.
func ExtractUp(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		body = body[:downIdx]
	}
	return body
}

// IsAlreadyExistsError reports whether err is SQLite refusing DDL that has
// already taken effect.
func IsAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

// SplitStatements splits a migration body on semicolons that sit outside
// quotes and comments. Comments are stripped and empty statements dropped.
// Trigger bodies with inner semicolons are not supported.
func SplitStatements(body string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		inLine     bool
		inBlock    bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case inLine:
			if r == '\n' {
				inLine = false
				current.WriteRune(r)
			}
			continue
		case inBlock:
			if r == '*' && next == '/' {
				inBlock = false
				i++
			}
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '-' && next == '-':
			inLine = true
			continue
		case r == '/' && next == '*':
			inBlock = true
			i++
			continue
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return statements
}

func listSQLFiles(migrationFS fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyOne(ctx context.Context, sqlDB *sql.DB, key, upSQL string) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", key, err)
	}
	for i, stmt := range SplitStatements(upSQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !IsAlreadyExistsError(err) {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s statement %d: %w", key, i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
		key, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", key, err)
	}
	return nil
}

func isApplied(ctx context.Context, sqlDB *sql.DB, key string) (bool, error) {
	var found int
	err := sqlDB.QueryRowContext(ctx, `SELECT 1 FROM `+migrationTable+` WHERE name = ?`, key).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
