// Package index persists decoded addon headers in SQLite and searches
// them with FTS5.
//
// Each indexed file has one addons row (nullable columns keep absent
// fields distinct from empty ones), its published metadata slots in
// properties, and an FTS5 row over its search contents. Files that fail
// to decode for any reason other than "not an archive" are recorded in
// decode_log.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/gmameta/dbopen"
)

// ErrNotFound is returned when no addon is indexed under a path.
var ErrNotFound = errors.New("index: not found")

// Store is the index database handle. Safe for concurrent use.
type Store struct {
	DB     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the index database at path and applies Schema.
func Open(path string, logger *slog.Logger, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return newStore(db, logger), nil
}

// New wraps an already opened database and applies Schema.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return newStore(db, logger), nil
}

func newStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{DB: db, logger: logger}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
