package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/gmameta/propstore"
)

// sink writes published slots into the properties table for one path.
type sink struct {
	ctx  context.Context
	db   execer
	path string
	seq  int
}

func newSink(ctx context.Context, db execer, path string) *sink {
	return &sink{ctx: ctx, db: db, path: path}
}

// SetValueAndState upserts one slot row.
func (k *sink) SetValueAndState(key propstore.Key, v propstore.Value) error {
	texts := v.Texts
	if texts == nil {
		texts = []string{}
	}
	data, err := json.Marshal(texts)
	if err != nil {
		return err
	}
	_, err = k.db.ExecContext(k.ctx,
		`INSERT INTO properties (path, key, texts_json, multi, state, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, key) DO UPDATE SET
			texts_json = excluded.texts_json,
			multi = excluded.multi,
			state = excluded.state`,
		k.path, string(key), string(data), v.Multi, int(v.State), k.seq)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	k.seq++
	return nil
}

// Sink returns a propstore.Sink writing slots for an already indexed path.
// Writes for a path with no addons row fail on the foreign key.
func (s *Store) Sink(ctx context.Context, path string) propstore.Sink {
	return newSink(ctx, s.DB, path)
}
