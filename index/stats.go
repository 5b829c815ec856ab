package index

import (
	"context"
	"fmt"
)

// Stats summarises the index.
type Stats struct {
	Addons         int            `json:"addons"`
	JSONChunk      int            `json:"json_chunk"`
	Plain          int            `json:"plain"`
	TotalSize      int64          `json:"total_size"`
	Failures       int            `json:"failures"`
	FailuresByKind map[string]int `json:"failures_by_kind"`
	Categories     map[string]int `json:"categories"`
}

// Stats returns aggregate counters.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := Stats{
		FailuresByKind: make(map[string]int),
		Categories:     make(map[string]int),
	}
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(variant = 'json'), 0),
			COALESCE(SUM(size), 0)
		FROM addons`).Scan(&st.Addons, &st.JSONChunk, &st.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	st.Plain = st.Addons - st.JSONChunk

	if err := s.countBy(ctx, `SELECT kind, COUNT(*) FROM decode_log GROUP BY kind`, st.FailuresByKind); err != nil {
		return nil, err
	}
	for _, n := range st.FailuresByKind {
		st.Failures += n
	}
	err = s.countBy(ctx,
		`SELECT category, COUNT(*) FROM addons WHERE category IS NOT NULL AND category != '' GROUP BY category`,
		st.Categories)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("index: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return fmt.Errorf("index: stats: %w", err)
		}
		into[k] = n
	}
	return rows.Err()
}
