package index

import (
	"context"
	"fmt"
	"strings"
)

// SearchOptions filters a search. An empty Query lists every addon
// matching the filters.
type SearchOptions struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// SearchResult is one hit. Snippet and Rank are set for text queries only.
type SearchResult struct {
	Addon   *Addon  `json:"addon"`
	Snippet string  `json:"snippet,omitempty"`
	Rank    float64 `json:"rank"`
}

// Search runs a full-text query over search contents, narrowed by category
// and tag. Query terms are matched as literal tokens (implicit AND); a
// trailing '*' on a term makes it a prefix match.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]*SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	match := ftsQuery(opts.Query)

	var (
		q    strings.Builder
		args []any
	)
	if match != "" {
		q.WriteString(`SELECT ` + addonColumns + `,
			snippet(addons_fts, 0, '[', ']', '…', 12), bm25(addons_fts)
			FROM addons_fts JOIN addons a ON a.rowid = addons_fts.rowid
			WHERE addons_fts MATCH ?`)
		args = append(args, match)
	} else {
		q.WriteString(`SELECT ` + addonColumns + `, '', 0.0 FROM addons a WHERE 1 = 1`)
	}
	if opts.Category != "" {
		q.WriteString(` AND a.category = ? COLLATE NOCASE`)
		args = append(args, opts.Category)
	}
	if opts.Tag != "" {
		q.WriteString(` AND EXISTS (SELECT 1 FROM json_each(a.tags_json) WHERE json_each.value = ? COLLATE NOCASE)`)
		args = append(args, opts.Tag)
	}
	if match != "" {
		q.WriteString(` ORDER BY bm25(addons_fts), a.path`)
	} else {
		q.WriteString(` ORDER BY a.name COLLATE NOCASE, a.path`)
	}
	q.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, opts.Limit, max(opts.Offset, 0))

	rows, err := s.DB.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	results := []*SearchResult{}
	for rows.Next() {
		var (
			r    SearchResult
			dest addonDest
		)
		if err := rows.Scan(append(dest.fields(), &r.Snippet, &r.Rank)...); err != nil {
			return nil, fmt.Errorf("index: scan search result: %w", err)
		}
		if r.Addon, err = dest.addon(); err != nil {
			return nil, fmt.Errorf("index: scan search result: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

// ftsQuery turns free text into an FTS5 expression of quoted terms so
// user input can never be parsed as FTS5 syntax.
func ftsQuery(text string) string {
	var terms []string
	for _, f := range strings.Fields(text) {
		prefix := strings.HasSuffix(f, "*")
		f = strings.TrimRight(f, "*")
		if f == "" {
			continue
		}
		term := `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}
