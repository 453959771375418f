// Package db opens the sqlite database for the store.
package db

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/nbolat/course-site/internal/profile"
)

// NewDB opens the sqlite database pointed to by the profile DSN.
func NewDB(profile *profile.Profile) (*sql.DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn is required")
	}

	// busy_timeout covers writer contention between the form and
	// analytics handlers; WAL lets reads proceed during writes.
	dsn := profile.DSN + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", profile.DSN)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return sqlDB, nil
}
