// Package main is the entry point for factsheet.
//
// factsheet curates a table of facts extracted from documents: load or
// extract rows, review and edit them, filter them, and export them as JSON or
// CSV. The working set is persisted as a JSON snapshot in the data directory,
// optionally versioned in git. Configuration is read from an optional YAML
// file and CLI flags, flags taking precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/factsheet/internal/config"
	"github.com/maruel/factsheet/internal/persist"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "factsheet: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, ll)))
	return run(ctx, stop, os.Args[1:], os.Stdout, ll)
}

// newLogHandler returns the tint handler used for every log line.
func newLogHandler(w *os.File, ll *slog.LevelVar) slog.Handler {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	})
}

const usage = `usage: factsheet [flags] <command> [args]

Commands:
  serve                      Serve the HTTP API
  sample [-replace]          Load the sample batch
  extract <document>         Extract facts from a file name or URL and load them
  list [-section S] [-q Q] [-where EXPR]
                             List rows
  sections                   List distinct sections
  set <id> <field> <value>   Edit one field of one row
  delete <id>                Delete one row
  export [-dir D] json|csv   Write the export file
  journal [-n N]             Show recent mutations
  revisions [-n N]           Show snapshot revisions (requires git persistence)
  show <revision>            Print the rows at a snapshot revision
  version                    Print version

Flags:
`

// run parses the global flags and dispatches the command.
func run(ctx context.Context, stop context.CancelFunc, args []string, stdout io.Writer, ll *slog.LevelVar) error {
	fs := flag.NewFlagSet("factsheet", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "YAML configuration file")
	dataDir := fs.String("data-dir", "data", "Data directory")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	httpAddr := fs.String("http", "localhost:8080", "Address to listen on for serve")
	useGit := fs.Bool("git", false, "Commit every snapshot save to a git repository in the data directory")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags explicitly set override the configuration file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = *dataDir
		case "log-level":
			cfg.LogLevel = *logLevel
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "git":
			cfg.Persistence.Git = *useGit
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.LogLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	default:
		ll.Set(slog.LevelError)
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		printVersion(stdout)
		return nil
	}
	c, ok := commands[cmd]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	if cmd != "serve" {
		// Name the snapshot revision after the command line.
		ctx = persist.WithCommitMessage(ctx, "factsheet "+strings.Join(fs.Args(), " "))
	}
	a, err := openApp(ctx, &cfg)
	if err != nil {
		return err
	}
	return c(ctx, &env{app: a, stop: stop, stdout: stdout}, cmdArgs)
}
