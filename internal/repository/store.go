package repository

import (
	"log/slog"
)

// Store bundles the repositories a processor needs.
type Store struct {
	Documents  DocumentRepository
	Versions   VersionRepository
	Activities ActivityRepository
}

// NewStore builds SQL-backed repositories over db.
func NewStore(db *DB, logger *slog.Logger) *Store {
	return &Store{
		Documents:  NewDocumentRepository(db.Driver, logger),
		Versions:   NewVersionRepository(db.Driver, logger),
		Activities: NewActivityRepository(db.Driver, logger),
	}
}
