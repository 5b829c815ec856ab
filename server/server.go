// Package server exposes the decoder and the index over HTTP.
//
// Routes:
//
//	GET  /health
//	POST /api/decode               raw body or multipart "file" field
//	GET  /api/addons               ?limit&offset
//	GET  /api/addons/search        ?q&category&tag&limit&offset
//	GET  /api/addons/get           ?path
//	GET  /api/addons/view          ?path&view
//	GET  /api/stats
//	GET  /api/failures             ?limit
//	*    /mcp                      streamable MCP, when an MCP server is set
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/index"
	"github.com/hazyhaar/gmameta/propstore"
	"github.com/hazyhaar/gmameta/shield"
)

// Config holds the server options.
type Config struct {
	// MaxUploadBytes caps the body of /api/decode. Zero means no cap.
	MaxUploadBytes int64
	// MCP, when set, is served at /mcp over the streamable HTTP transport.
	MCP    *mcp.Server
	Logger *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	dec    *gma.Decoder
	store  *index.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a Server.
func New(dec *gma.Decoder, store *index.Store, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{dec: dec, store: store, cfg: cfg, logger: cfg.Logger}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.With(shield.MaxBody(s.cfg.MaxUploadBytes)).Post("/api/decode", s.handleDecode)

	r.Route("/api/addons", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/search", s.handleSearch)
		r.Get("/get", s.handleGet)
		r.Get("/view", s.handleView)
	})
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/failures", s.handleFailures)

	if s.cfg.MCP != nil {
		srv := s.cfg.MCP
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	}
	return r
}

// decodeResponse is the body of a successful /api/decode.
type decodeResponse struct {
	Header     *gma.DecodedHeader                `json:"header"`
	Properties map[propstore.Key]propstore.Value `json:"properties"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	src, size, closeFn, err := uploadBody(r)
	if err != nil {
		writeError(w, uploadStatus(err), err)
		return
	}
	defer closeFn()

	h, err := s.dec.DecodeReader(r.Context(), src, size)
	if err != nil {
		shield.GetLogger(r.Context()).Info("decode rejected", "kind", gma.Kind(err), "size", size)
		writeError(w, decodeStatus(err), err)
		return
	}
	props := propstore.NewStore()
	if err := propstore.Publish(props, h); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, decodeResponse{Header: h, Properties: props.Snapshot()})
}

// uploadBody returns the archive bytes of r: the "file" part of a
// multipart form, or the raw body otherwise.
//
// A raw body is held only up to gma.MaxHeaderSize, the furthest offset the
// decoder reads; the remainder is drained to learn the real size.
func uploadBody(r *http.Request) (io.ReadSeeker, int64, func(), error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, fh, err := r.FormFile("file")
		if err != nil {
			return nil, 0, nil, fmt.Errorf("upload: %w", err)
		}
		return f, fh.Size, func() { f.Close() }, nil
	}
	var prefix bytes.Buffer
	n, err := io.CopyN(&prefix, r.Body, gma.MaxHeaderSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, nil, fmt.Errorf("upload: %w", err)
	}
	rest, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("upload: %w", err)
	}
	return bytes.NewReader(prefix.Bytes()), n + rest, func() {}, nil
}

func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func decodeStatus(err error) int {
	switch gma.Kind(err) {
	case gma.KindNotThisFormat:
		return http.StatusUnsupportedMediaType
	case gma.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	addons, err := s.store.List(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, addons)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.store.Search(r.Context(), index.SearchOptions{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Limit:    queryInt(r, "limit", 20),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	a, err := s.store.Get(r.Context(), path)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	props, err := s.store.Properties(r.Context(), path)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addon": a, "properties": props.Snapshot()})
}

// handleView returns one viewer property list for an indexed addon, with
// the file system keys filled from the index row.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, ok := propstore.ParseView(q.Get("view"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown view %q", q.Get("view")))
		return
	}
	path := q.Get("path")
	a, err := s.store.Get(r.Context(), path)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	props, err := s.store.Properties(r.Context(), path)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	if err := propstore.PublishFile(props, a.Size, a.ModTime); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     view,
		"proplist": propstore.PropList(view),
		"fields":   props.View(view),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := s.store.Failures(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, failures)
}

func storeStatus(err error) int {
	if errors.Is(err, index.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
