package crawl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gmameta/dbopen"
	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/index"
)

func archive(name, description, author string) []byte {
	var b bytes.Buffer
	b.WriteString(gma.Magic)
	b.Write(make([]byte, 13+5))
	for _, f := range []string{name, description, author} {
		b.WriteString(f)
		b.WriteByte(0)
	}
	b.Write([]byte{1, 0, 0, 0})
	return b.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testIndexer(t *testing.T, cfg Config) (*Indexer, *index.Store) {
	t.Helper()
	store, err := index.New(dbopen.OpenMemory(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewIndexer(gma.New(gma.Config{}), store, cfg), store
}

func TestIndexFile(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cannon.gma")
	writeFile(t, path, archive("Cannon", `{"description":"Boom","type":"weapon","tags":["fun"]}`, "Author Name"))

	out, err := ix.IndexFile(ctx, path)
	if err != nil || out != Indexed {
		t.Fatalf("first: %s, %v", out, err)
	}
	a, err := store.Get(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Category.Value != "weapon" || a.Author != gma.Some("") {
		t.Errorf("addon = %+v", a)
	}

	if out, _ := ix.IndexFile(ctx, path); out != Unchanged {
		t.Errorf("second: %s, want unchanged", out)
	}

	forced := NewIndexer(ix.dec, store, Config{Force: true})
	if out, _ := forced.IndexFile(ctx, path); out != Indexed {
		t.Errorf("forced: %s, want indexed", out)
	}
}

func TestIndexFile_Changed(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.gma")
	writeFile(t, path, archive("Old", "d", "a"))
	ix.IndexFile(ctx, path)

	writeFile(t, path, archive("Newer name", "d", "a"))
	future := time.Now().Add(time.Hour)
	os.Chtimes(path, future, future)

	if out, err := ix.IndexFile(ctx, path); out != Indexed || err != nil {
		t.Fatalf("%s, %v", out, err)
	}
	a, _ := store.Get(ctx, path)
	if a.Name.Value != "Newer name" {
		t.Errorf("name = %q", a.Name.Value)
	}
}

func TestIndexFile_Failures(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	dir := t.TempDir()

	notArchive := filepath.Join(dir, "zip.gma")
	writeFile(t, notArchive, []byte("PK\x03\x04"))
	if out, err := ix.IndexFile(ctx, notArchive); out != Skipped || err != nil {
		t.Errorf("not an archive: %s, %v", out, err)
	}

	truncated := filepath.Join(dir, "trunc.gma")
	writeFile(t, truncated, archive("n", "d", "a")[:24])
	out, err := ix.IndexFile(ctx, truncated)
	if out != Failed || !errors.Is(err, gma.ErrUnexpectedEOF) {
		t.Errorf("truncated: %s, %v", out, err)
	}
	ix.IndexFile(ctx, truncated)

	failures, _ := store.Failures(ctx, 10)
	if len(failures) != 1 || failures[0].Kind != gma.KindUnexpectedEOF {
		t.Errorf("failures = %+v", failures)
	}

	// A fixed file clears its failure.
	writeFile(t, truncated, archive("n", "d", "a"))
	if out, _ := ix.IndexFile(ctx, truncated); out != Indexed {
		t.Errorf("fixed: %s", out)
	}
	if failures, _ := store.Failures(ctx, 10); len(failures) != 0 {
		t.Errorf("failure not cleared: %+v", failures)
	}
}

func TestIndexFile_Missing(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gone.gma")
	writeFile(t, path, archive("n", "d", "a"))
	ix.IndexFile(ctx, path)
	os.Remove(path)

	if out, err := ix.IndexFile(ctx, path); out != Removed || err != nil {
		t.Fatalf("%s, %v", out, err)
	}
	if _, err := store.Get(ctx, path); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("still indexed: %v", err)
	}
}

func TestWalk(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "cannon.gma"), archive("Cannon", `{"type":"weapon","tags":["fun"]}`, "Author Name"))
	writeFile(t, filepath.Join(root, "maps", "ttt.GMA"), archive("ttt_minecraft_b5", "A map", "author"))
	writeFile(t, filepath.Join(root, "maps", "deep", "fake.gma"), []byte("not an addon"))
	writeFile(t, filepath.Join(root, "broken.gma"), archive("n", "d", "a")[:20])
	writeFile(t, filepath.Join(root, "readme.txt"), []byte("GMAD"))

	st, err := ix.Walk(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if st.Seen != 4 || st.Indexed != 2 || st.Skipped != 1 || st.Failed != 1 || st.RunID == "" {
		t.Fatalf("first walk = %+v", st)
	}

	st, _ = ix.Walk(ctx, root)
	if st.Unchanged != 2 || st.Indexed != 0 || st.Failed != 1 {
		t.Errorf("second walk = %+v", st)
	}
	if f, _ := store.Failures(ctx, 10); len(f) != 1 {
		t.Errorf("repeated failures must not pile up: %d rows", len(f))
	}

	os.RemoveAll(filepath.Join(root, "maps"))
	st, _ = ix.Walk(ctx, root)
	if st.Removed != 1 || st.Seen != 2 {
		t.Errorf("third walk = %+v", st)
	}
	paths, _ := store.Paths(ctx)
	if len(paths) != 1 || paths[0] != filepath.Join(root, "cannon.gma") {
		t.Errorf("paths = %v", paths)
	}
}

func TestWalk_PruneStaysUnderRoot(t *testing.T) {
	ix, store := testIndexer(t, Config{})
	ctx := context.Background()
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(a, "x.gma"), archive("x", "d", "a"))
	writeFile(t, filepath.Join(b, "y.gma"), archive("y", "d", "a"))

	ix.Walk(ctx, a)
	ix.Walk(ctx, b)
	if paths, _ := store.Paths(ctx); len(paths) != 2 {
		t.Fatalf("walking b pruned a: %v", paths)
	}
}

func TestWalk_MissingRoot(t *testing.T) {
	ix, _ := testIndexer(t, Config{})
	if _, err := ix.Walk(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestWalk_Cancelled(t *testing.T) {
	ix, _ := testIndexer(t, Config{})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.gma"), archive("x", "d", "a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ix.Walk(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
