package trace

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/gmameta/kit"
)

type logLine struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Op        string `json:"op"`
	Query     string `json:"query"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// capture routes trace logs into a buffer for the duration of the test.
func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() {
		SetLogger(nil)
		SetSlowThreshold(0)
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []logLine {
	t.Helper()
	var out []logLine
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var l logLine
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("bad log line %q: %v", raw, err)
		}
		out = append(out, l)
	}
	return out
}

func openTraced(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDriver_LogsStatements(t *testing.T) {
	buf := capture(t, slog.LevelDebug)
	db := openTraced(t)
	ctx := kit.WithRequestID(context.Background(), "req-1")

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (\n\tx INTEGER\n)"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}

	var exec, query bool
	for _, l := range lines(t, buf) {
		if l.Msg != "trace: sql" || l.RequestID != "req-1" {
			continue
		}
		switch {
		case l.Op == "Exec" && l.Query == "CREATE TABLE t ( x INTEGER )":
			exec = true
		case l.Op == "Query" && l.Query == "SELECT COUNT(*) FROM t":
			query = true
		}
	}
	if !exec || !query {
		t.Fatalf("exec logged %v, query logged %v:\n%s", exec, query, buf)
	}
}

func TestDriver_ErrorLevel(t *testing.T) {
	buf := capture(t, slog.LevelError)
	db := openTraced(t)

	db.Exec("CREATE TABLE t (x INTEGER PRIMARY KEY)")
	if _, err := db.Exec("INSERT INTO t (x) VALUES (1)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO t (x) VALUES (1)"); err == nil {
		t.Fatal("expected constraint error")
	}

	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("want one error line, got %+v", got)
	}
	if got[0].Level != "ERROR" || got[0].Op != "Exec" || got[0].Error == "" {
		t.Fatalf("line = %+v", got[0])
	}
}

func TestDriver_SlowWarn(t *testing.T) {
	buf := capture(t, slog.LevelWarn)
	SetSlowThreshold(time.Nanosecond)
	db := openTraced(t)

	if _, err := db.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatal(err)
	}
	got := lines(t, buf)
	if len(got) == 0 || got[0].Level != "WARN" {
		t.Fatalf("lines = %+v", got)
	}
}

func TestDriver_SkipsFastPragma(t *testing.T) {
	buf := capture(t, slog.LevelDebug)
	db := openTraced(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	for _, l := range lines(t, buf) {
		if strings.HasPrefix(l.Query, "PRAGMA") {
			t.Fatalf("pragma logged: %+v", l)
		}
	}
}

func TestDriver_Tx(t *testing.T) {
	capture(t, slog.LevelError)
	db := openTraced(t)
	db.Exec("CREATE TABLE t (x INTEGER)")

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	tx.Exec("INSERT INTO t VALUES (1)")
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n)
	if n != 0 {
		t.Fatalf("rollback left %d rows", n)
	}
}
