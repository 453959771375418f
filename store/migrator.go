package store

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Migration files live in store/migration/ and are named "NN__description.sql"
// where NN is a zero-padded ordinal. They are sorted lexicographically and
// applied in order. Applied versions are recorded in migration_history so a
// restart only runs what is new.

//go:embed migration
var migrationFS embed.FS

// MigrateFileNameSplit is the split character between the ordinal and the
// description in a migration file name, e.g. "0001__init.sql".
const MigrateFileNameSplit = "__"

// validateMigrationFileName checks that a migration file follows the expected
// "NN__description.sql" convention.
func validateMigrationFileName(filename string) error {
	parts := strings.Split(filename, MigrateFileNameSplit)
	if len(parts) < 2 {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate brings the database schema up to date. It creates the
// migration_history table if needed and applies every pending migration file
// in a single transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migration_history (
			version TEXT NOT NULL PRIMARY KEY,
			created_ts TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return errors.Wrap(err, "failed to create migration_history table")
	}

	applied, err := s.appliedMigrationVersions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read migration history")
	}

	filePaths, err := fs.Glob(migrationFS, "migration/*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	migrationsApplied := 0
	for _, filePath := range filePaths {
		filename := filepath.Base(filePath)
		if err := validateMigrationFileName(filename); err != nil {
			return err
		}
		if applied[filename] {
			continue
		}

		slog.Info("applying migration", slog.String("file", filename))

		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if _, err := tx.ExecContext(ctx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filename)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migration_history (version) VALUES (?)`, filename); err != nil {
			return errors.Wrapf(err, "failed to record migration %s", filename)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}

	if migrationsApplied > 0 {
		slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))
	}
	return nil
}

func (s *Store) appliedMigrationVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM migration_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
