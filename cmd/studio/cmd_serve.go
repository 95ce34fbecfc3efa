// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/SapheneiaStudio/pkg/extensions"
	"github.com/AleutianAI/SapheneiaStudio/pkg/logging"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/middleware"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/routes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serveAddr       string
	serveDBDir      string
	servePackDir    string
	serveWatchPacks bool
	serveLogDir     string
	serveLogJSON    bool
	serveDebug      bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", envOr("STUDIO_ADDR", ":8880"),
		"Listen address for the API server")
	serveCmd.Flags().StringVar(&serveDBDir, "db", envOr("STUDIO_DB_DIR", "~/.sapheneia/studio/history"),
		"Directory for the generation history database")
	serveCmd.Flags().StringVar(&servePackDir, "packs", envOr("STUDIO_PACK_DIR", ""),
		"Directory of template pack YAML files to load alongside the embedded catalog")
	serveCmd.Flags().BoolVar(&serveWatchPacks, "watch-packs", envBool("STUDIO_PACK_WATCH", false),
		"Reload the pack directory when its files change")
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", envOr("STUDIO_LOG_DIR", ""),
		"Directory for JSON log files (empty disables file logging)")
	serveCmd.Flags().BoolVar(&serveLogJSON, "log-json", false,
		"Emit stderr logs as JSON instead of text")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable debug logging and gin debug mode")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runServe starts the Studio API server and blocks until shutdown.
func runServe(cmd *cobra.Command, args []string) {
	if err := serve(); err != nil {
		slog.Error("studio server failed", "error", err)
		os.Exit(CLIExitError)
	}
}

// serve assembles and runs the server. Split out of runServe so that
// deferred cleanup (badger close, telemetry flush) runs on every exit
// path, which os.Exit would skip.
func serve() error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  serveLogDir,
		Service: "studio-api",
		JSON:    serveLogJSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	storeCfg := history.DefaultConfig()
	storeCfg.Path = expandHome(serveDBDir)
	storeCfg.Logger = logger.Slog()
	store, err := history.OpenBadger(storeCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, err := catalog.NewRegistry(logger.Slog())
	if err != nil {
		return err
	}
	if servePackDir != "" {
		if serveWatchPacks {
			watcher, err := catalog.NewPackWatcher(registry, servePackDir, 0)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()
		} else if err := registry.LoadPackDir(servePackDir); err != nil {
			return err
		}
	}

	pipe, err := pipeline.New(pipeline.Config{
		Templates: registry,
		History:   store,
		Logger:    logger.Slog(),
	})
	if err != nil {
		return err
	}

	opts := extensions.DefaultOptions()
	if token := os.Getenv("STUDIO_AUTH_TOKEN"); token != "" {
		opts = opts.WithAuth(&extensions.StaticTokenProvider{Token: token})
		slog.Info("bearer token authentication enabled")
	}

	limiter := middleware.NewRateLimiter(
		envFloat("STUDIO_GENERATE_RPS", 2),
		envInt("STUDIO_GENERATE_BURST", 5),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Slog()))
	router.Use(otelgin.Middleware("sapheneia-studio"))

	routes.SetupRoutes(router, pipe, registry, store, opts, limiter)

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down studio server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			slog.Error("server drain failed", "error", err)
		}
	}()

	slog.Info("starting studio server",
		"addr", serveAddr,
		"db", storeCfg.Path,
		"packs", servePackDir,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Environment Helpers
// =============================================================================

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool parses key as a boolean, returning fallback when unset or invalid.
func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// envFloat parses key as a float, returning fallback when unset or invalid.
func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envInt parses key as an int, returning fallback when unset or invalid.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
