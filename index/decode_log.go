package index

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/idgen"
)

// Failure is one recorded decode failure.
type Failure struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	LoggedAt time.Time `json:"logged_at"`
}

// LogFailure records a failed decode of path. "Not an archive" rejections
// are not failures and are ignored.
func (s *Store) LogFailure(ctx context.Context, path string, decodeErr error) error {
	if decodeErr == nil || gma.IsNotThisFormat(decodeErr) {
		return nil
	}
	kind := gma.Kind(decodeErr)
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO decode_log (id, path, kind, error_message, logged_at) VALUES (?, ?, ?, ?, ?)`,
		idgen.New(), path, kind, decodeErr.Error(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("index: log failure %s: %w", path, err)
	}
	s.logger.Warn("index: decode failed", "path", path, "kind", kind, "error", decodeErr)
	return nil
}

// Failures returns recorded failures, newest first.
func (s *Store) Failures(ctx context.Context, limit int) ([]*Failure, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, path, kind, error_message, logged_at FROM decode_log
		ORDER BY logged_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: failures: %w", err)
	}
	defer rows.Close()

	out := []*Failure{}
	for rows.Next() {
		var (
			f  Failure
			at int64
		)
		if err := rows.Scan(&f.ID, &f.Path, &f.Kind, &f.Message, &at); err != nil {
			return nil, fmt.Errorf("index: scan failure: %w", err)
		}
		f.LoggedAt = time.UnixMilli(at)
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ClearFailures drops the recorded failures of path, after it decoded
// successfully or was removed.
func (s *Store) ClearFailures(ctx context.Context, path string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM decode_log WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear failures %s: %w", path, err)
	}
	return nil
}
