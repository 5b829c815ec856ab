// Command gmameta decodes Garry's Mod addon headers and keeps a searchable
// index of them.
//
//	gmameta inspect  [--format text|json|yaml] [--view NAME] FILE...
//	gmameta index    [--force] [ROOT...]
//	gmameta search   [--category C] [--tag T] [--limit N] [QUERY...]
//	gmameta stats
//	gmameta failures [--limit N]
//	gmameta watch    [ROOT...]
//	gmameta serve    [--listen ADDR]
//	gmameta mcp      (MCP over stdio)
//
// Every command but inspect accepts --config, --db and --log-level. Logs go
// to stderr as JSON; stdout carries command output only.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gmameta/config"
	"github.com/hazyhaar/gmameta/dbopen"
	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/index"
	"github.com/hazyhaar/gmameta/trace"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// env carries the process streams through the commands.
type env struct {
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

func commands() []command {
	return []command{
		{"inspect", "decode archive headers and print them", runInspect},
		{"index", "index every archive under the given roots", runIndex},
		{"search", "full-text search over the index", runSearch},
		{"stats", "print index counters", runStats},
		{"failures", "list recorded decode failures", runFailures},
		{"watch", "index roots, then re-index on file changes", runWatch},
		{"serve", "serve the HTTP API (and MCP, when enabled)", runServe},
		{"mcp", "serve the MCP tools over stdio", runMCP},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	e := &env{stdout: stdout, stderr: stderr}
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		return pflag.ErrHelp
	}
	if args[0] == "--version" || args[0] == "version" {
		fmt.Fprintln(stdout, "gmameta", version)
		return nil
	}
	for _, c := range commands() {
		if c.name == args[0] {
			return c.run(ctx, e, args[1:])
		}
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: gmameta <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
}

// newFlagSet builds a command flag set that reports errors instead of
// exiting.
func newFlagSet(name string, e *env) *pflag.FlagSet {
	fs := pflag.NewFlagSet("gmameta "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// storeFlags are shared by every command that touches the index.
type storeFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func (f *storeFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.StringVar(&f.dbPath, "db", "", "index database path (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

// load resolves the configuration: defaults, then the config file, then
// flags.
func (f *storeFlags) load() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

// setup loads the configuration, builds the logger and opens the index.
func (f *storeFlags) setup(e *env) (*config.Config, *slog.Logger, *index.Store, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(e.stderr, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	var opts []dbopen.Option
	if cfg.TraceSQL {
		trace.SetLogger(logger)
		opts = append(opts, dbopen.WithTrace())
	}
	store, err := index.Open(cfg.DBPath, logger, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

func newDecoder(logger *slog.Logger) *gma.Decoder {
	return gma.New(gma.Config{Logger: logger})
}
