package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/gmameta/crawl"
	"github.com/hazyhaar/gmameta/index"
)

func runIndex(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("index", e)
	sf.add(fs)
	force := fs.Bool("force", false, "re-decode files that look unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	roots := fs.Args()
	if len(roots) == 0 {
		roots = cfg.Roots
	}
	if len(roots) == 0 {
		return fmt.Errorf("index: no roots given and none configured")
	}

	ix := crawl.NewIndexer(newDecoder(logger), store, crawl.Config{Force: *force, Logger: logger})
	for _, root := range roots {
		st, err := ix.Walk(ctx, root)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s: %d seen, %d indexed, %d unchanged, %d skipped, %d failed, %d removed in %s\n",
			st.Root, st.Seen, st.Indexed, st.Unchanged, st.Skipped, st.Failed, st.Removed, st.Duration.Round(time.Millisecond))
	}
	return nil
}

func runSearch(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("search", e)
	sf.add(fs)
	var opts index.SearchOptions
	fs.StringVar(&opts.Category, "category", "", "only addons of this type")
	fs.StringVar(&opts.Tag, "tag", "", "only addons with this tag")
	fs.IntVarP(&opts.Limit, "limit", "n", 20, "max results")
	fs.IntVar(&opts.Offset, "offset", 0, "skip this many results")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, _, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	opts.Query = strings.Join(fs.Args(), " ")
	results, err := store.Search(ctx, opts)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, results)
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tPATH")
	for _, r := range results {
		a := r.Addon
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name, a.Category, humanize.Bytes(uint64(a.Size)), a.Path)
		if r.Snippet != "" {
			fmt.Fprintf(tw, "  %s\t\t\t\n", oneLine(r.Snippet))
		}
	}
	return tw.Flush()
}

func runStats(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("stats", e)
	sf.add(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, _, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, st)
	}
	fmt.Fprintf(e.stdout, "addons:   %s (%s json, %s plain), %s total\n",
		humanize.Comma(int64(st.Addons)), humanize.Comma(int64(st.JSONChunk)),
		humanize.Comma(int64(st.Plain)), humanize.Bytes(uint64(st.TotalSize)))
	fmt.Fprintf(e.stdout, "failures: %s\n", humanize.Comma(int64(st.Failures)))
	printCounts(e.stdout, "  ", st.FailuresByKind)
	if len(st.Categories) > 0 {
		fmt.Fprintln(e.stdout, "types:")
		printCounts(e.stdout, "  ", st.Categories)
	}
	return nil
}

func runFailures(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("failures", e)
	sf.add(fs)
	limit := fs.IntP("limit", "n", 50, "max rows")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, _, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	failures, err := store.Failures(ctx, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, failures)
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tPATH")
	for _, f := range failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.Time(f.LoggedAt), f.Kind, f.Path)
	}
	return tw.Flush()
}

// printCounts prints a count map, largest first.
func printCounts(w io.Writer, prefix string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(w, "%s%-28s %s\n", prefix, k, humanize.Comma(int64(counts[k])))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
