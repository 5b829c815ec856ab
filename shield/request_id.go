package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/gmameta/idgen"
	"github.com/hazyhaar/gmameta/kit"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses a well-formed incoming X-Request-ID or assigns a UUIDv7,
// stores it under kit.RequestIDKey, echoes it in the response and attaches
// a per-request logger under LoggerKey.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := idgen.Parse(r.Header.Get(RequestIDHeader))
			if err != nil {
				id = idgen.New()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
			reqLogger := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Debug("request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
