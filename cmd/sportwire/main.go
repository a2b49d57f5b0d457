// Entry point for the sportwire ingestion worker + HTTP API. One process
// runs one worker loop, the search API and, optionally, MCP tools over
// stdio.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sportwire/dbopen"
	"github.com/hazyhaar/sportwire/pipeline"
)

func main() {
	logLevel := env("LOG_LEVEL", "info")
	configPath := env("CONFIG", "sportwire.yaml")
	mcpTransport := env("MCP_TRANSPORT", "")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := pipeline.Load(configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	db, err := dbopen.Open(cfg.Database.Path, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc, err := pipeline.New(db, cfg, logger)
	if err != nil {
		slog.Error("pipeline init", "error", err)
		os.Exit(1)
	}

	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "sportwire",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("MCP stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	slog.Info("sportwire starting",
		"db", cfg.Database.Path,
		"addr", cfg.HTTP.Addr,
		"enforce_quality", cfg.Quality.Enforce)

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("pipeline stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("sportwire stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
