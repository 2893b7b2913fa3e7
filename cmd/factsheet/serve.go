package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/factsheet/internal/server"
)

func cmdServe(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	cfg := e.app.cfg
	addr := cfg.HTTP.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if e.stop != nil {
		if err := watchExecutable(ctx, e.stop); err != nil {
			return fmt.Errorf("failed to watch executable: %w", err)
		}
	}

	version, _, _, _ := getBuildInfo()
	opts := &server.Options{
		Store:             e.app.store,
		Extractor:         e.app.extractor,
		ExtractionTimeout: cfg.ExtractionTimeout(),
		Journal:           e.app.journal,
		ExportBaseName:    cfg.Export.BaseName,
		Version:           version,
	}
	if e.app.git != nil {
		opts.Revisions = e.app.git
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(opts),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadHeaderTimeoutSec) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", version, "rows", e.app.store.Len())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
