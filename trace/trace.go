// Package trace logs the SQL statements run through modernc.org/sqlite.
//
// It registers a "sqlite-trace" driver that wraps the "sqlite" driver and
// intercepts every Exec and Query at the database/sql/driver level:
//
//	trace.SetLogger(logger)
//	db, _ := sql.Open(trace.DriverName, "index.db")
//
// Statements log at Debug, at Warn past the slow threshold and at Error on
// failure. The request id of the context (kit.GetRequestID) is attached so
// queries correlate with the HTTP or MCP call that ran them.
package trace

import (
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
)

// DriverName is the database/sql name of the tracing driver.
const DriverName = "sqlite-trace"

// DefaultSlowThreshold is the duration past which a statement logs at Warn.
const DefaultSlowThreshold = 100 * time.Millisecond

var (
	logger atomic.Pointer[slog.Logger]
	slow   atomic.Int64
)

// SetLogger sets the logger statements are written to. Nil restores
// slog.Default().
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

// SetSlowThreshold sets the Warn threshold. Non-positive restores
// DefaultSlowThreshold.
func SetSlowThreshold(d time.Duration) {
	if d <= 0 {
		d = DefaultSlowThreshold
	}
	slow.Store(int64(d))
}

func getLogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func init() {
	slow.Store(int64(DefaultSlowThreshold))
	sql.Register(DriverName, &TracingDriver{
		Driver: &sqlite.Driver{},
	})
}
