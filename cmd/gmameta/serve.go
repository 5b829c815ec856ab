package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gmameta/config"
	"github.com/hazyhaar/gmameta/crawl"
	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/index"
	"github.com/hazyhaar/gmameta/server"
)

func runWatch(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("watch", e)
	sf.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	if fs.NArg() > 0 {
		cfg.Roots = fs.Args()
	}
	if len(cfg.Roots) == 0 {
		return fmt.Errorf("watch: no roots given and none configured")
	}
	return watchRoots(ctx, cfg, logger, newDecoder(logger), store)
}

// watchRoots walks every root once, then follows file events until ctx
// is done.
func watchRoots(ctx context.Context, cfg *config.Config, logger *slog.Logger, dec *gma.Decoder, store *index.Store) error {
	ix := crawl.NewIndexer(dec, store, crawl.Config{Logger: logger})
	w := crawl.NewWatcher(ix, cfg.Roots, crawl.WatchOptions{Debounce: cfg.Watch.Debounce, Logger: logger})

	for _, root := range cfg.Roots {
		if _, err := ix.Walk(ctx, root); err != nil {
			return err
		}
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newMCPServer(dec *gma.Decoder, store *index.Store) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "gmameta", Version: version}, nil)
	dec.RegisterMCP(srv)
	store.RegisterMCP(srv)
	return srv
}

func runServe(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("serve", e)
	sf.add(fs)
	listen := fs.String("listen", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()
	if *listen != "" {
		cfg.Listen = *listen
	}

	dec := newDecoder(logger)
	scfg := server.Config{MaxUploadBytes: cfg.MaxUploadBytes(), Logger: logger}
	if cfg.MCP.Enabled {
		scfg.MCP = newMCPServer(dec, store)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchErr := make(chan error, 1)
	if cfg.Watch.Enabled {
		go func() { watchErr <- watchRoots(ctx, cfg, logger, dec, store) }()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(dec, store, scfg).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Listen, "mcp", cfg.MCP.Enabled, "watch", cfg.Watch.Enabled)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case err := <-watchErr:
		if err != nil {
			logger.Error("watch stopped", "error", err)
			srv.Close()
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func runMCP(ctx context.Context, e *env, args []string) error {
	var sf storeFlags
	fs := newFlagSet("mcp", e)
	sf.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, store, err := sf.setup(e)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := newMCPServer(newDecoder(logger), store)
	logger.Info("mcp stdio starting")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
