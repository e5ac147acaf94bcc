// Package main is the entry point for the bounty-portal API server.
//
// main stays small: load config, build the logger, open the store, hand
// everything to internal/server and block until shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/bounty-portal/internal/config"
	"github.com/sakif/bounty-portal/internal/logging"
	"github.com/sakif/bounty-portal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := server.OpenStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until SIGINT/SIGTERM and closes the store on return.
	if err := server.New(cfg, store, logger).Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
