// Package store provides the sqlite persistence for lead-capture form
// submissions and behavioral analytics events.
package store

import (
	"database/sql"

	"github.com/nbolat/course-site/internal/profile"
)

// Store wraps the database handle with the application queries.
type Store struct {
	db      *sql.DB
	profile *profile.Profile
}

// New creates a new store with the given database handle.
func New(db *sql.DB, profile *profile.Profile) *Store {
	return &Store{
		db:      db,
		profile: profile,
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
