package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/gmameta/dbopen"
	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/idgen"
	"github.com/hazyhaar/gmameta/propstore"
)

// Addon is one indexed archive.
type Addon struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
	ModTime        time.Time `json:"mod_time"`
	Name           gma.Text  `json:"name"`
	Author         gma.Text  `json:"author"`
	Description    gma.Text  `json:"description"`
	Category       gma.Text  `json:"category"`
	Tags           []string  `json:"tags"`
	Variant        string    `json:"variant"`
	SearchContents string    `json:"search_contents"`
	IndexedAt      time.Time `json:"indexed_at"`
}

const addonColumns = `a.id, a.path, a.size, a.mod_time, a.name, a.author, a.description,
	a.category, a.tags_json, a.variant, a.search_contents, a.indexed_at`

// Put indexes h under path, replacing any previous entry for the same path.
// The addon row and its published slots are written in one transaction.
func (s *Store) Put(ctx context.Context, path string, size int64, modTime time.Time, h *gma.DecodedHeader) (*Addon, error) {
	tags := h.Extract.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("index: marshal tags: %w", err)
	}
	now := time.Now()

	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO addons (id, path, size, mod_time, name, author, description,
			category, tags_json, variant, search_contents, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				size = excluded.size,
				mod_time = excluded.mod_time,
				name = excluded.name,
				author = excluded.author,
				description = excluded.description,
				category = excluded.category,
				tags_json = excluded.tags_json,
				variant = excluded.variant,
				search_contents = excluded.search_contents,
				indexed_at = excluded.indexed_at`,
			idgen.New(), path, size, modTime.UnixMilli(),
			nullText(h.Extract.Name), nullText(h.Extract.Author),
			nullText(h.Extract.Description), nullText(h.Extract.Category),
			string(tagsJSON), h.Variant.String(), h.SearchContents.Value, now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert addon: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE path = ?`, path); err != nil {
			return fmt.Errorf("clear properties: %w", err)
		}
		return propstore.Publish(newSink(ctx, tx, path), h)
	})
	if err != nil {
		return nil, fmt.Errorf("index: put %s: %w", path, err)
	}

	s.logger.Debug("index: put", "path", path, "variant", h.Variant.String(), "tags", len(tags))
	return s.Get(ctx, path)
}

// Get returns the addon indexed under path, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*Addon, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+addonColumns+` FROM addons a WHERE a.path = ?`, path)
	a, err := scanAddon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get %s: %w", path, err)
	}
	return a, nil
}

// List returns indexed addons ordered by name, then path.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Addon, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+addonColumns+` FROM addons a
		ORDER BY a.name COLLATE NOCASE, a.path
		LIMIT ? OFFSET ?`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	out := []*Addon{}
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan addon: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Paths returns every indexed path, sorted.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT path FROM addons ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the addon indexed under path and its slots. Deleting a
// path that is not indexed is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM addons WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete %s: %w", path, err)
	}
	return nil
}

// Properties loads the published slots of path into a read-only store.
func (s *Store) Properties(ctx context.Context, path string) (*propstore.Store, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, texts_json, multi, state FROM properties WHERE path = ? ORDER BY seq`, path)
	if err != nil {
		return nil, fmt.Errorf("index: properties %s: %w", path, err)
	}
	defer rows.Close()

	store := propstore.NewStore()
	for rows.Next() {
		var (
			key       string
			textsJSON string
			v         propstore.Value
		)
		if err := rows.Scan(&key, &textsJSON, &v.Multi, &v.State); err != nil {
			return nil, fmt.Errorf("index: scan property: %w", err)
		}
		if err := json.Unmarshal([]byte(textsJSON), &v.Texts); err != nil {
			return nil, fmt.Errorf("index: property %s: %w", key, err)
		}
		if err := store.SetValueAndState(propstore.Key(key), v); err != nil {
			return nil, fmt.Errorf("index: property %s: %w", key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if store.Count() == 0 {
		return nil, fmt.Errorf("index: %s: %w", path, ErrNotFound)
	}
	return store, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// addonDest holds scan targets for addonColumns.
type addonDest struct {
	a                            Addon
	name, author, desc, category sql.NullString
	tagsJSON                     string
	modTime, indexedAt           int64
}

func (d *addonDest) fields() []any {
	return []any{&d.a.ID, &d.a.Path, &d.a.Size, &d.modTime, &d.name, &d.author, &d.desc,
		&d.category, &d.tagsJSON, &d.a.Variant, &d.a.SearchContents, &d.indexedAt}
}

func (d *addonDest) addon() (*Addon, error) {
	a := d.a
	if err := json.Unmarshal([]byte(d.tagsJSON), &a.Tags); err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	a.Name = text(d.name)
	a.Author = text(d.author)
	a.Description = text(d.desc)
	a.Category = text(d.category)
	a.ModTime = time.UnixMilli(d.modTime)
	a.IndexedAt = time.UnixMilli(d.indexedAt)
	return &a, nil
}

func scanAddon(row scanner) (*Addon, error) {
	var d addonDest
	if err := row.Scan(d.fields()...); err != nil {
		return nil, err
	}
	return d.addon()
}

func nullText(t gma.Text) sql.NullString {
	return sql.NullString{String: t.Value, Valid: t.Present}
}

func text(ns sql.NullString) gma.Text {
	if !ns.Valid {
		return gma.Absent
	}
	return gma.Some(ns.String)
}
