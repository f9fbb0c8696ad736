// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"log"
	"time"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// SHARED SETUP
// =============================================================================

// EffectiveConfig returns the global config with --api applied on top.
// The global instance is never modified.
func EffectiveConfig(args Args) *config.Config {
	cfg := config.Global().Clone()
	if args.APIURL != "" {
		cfg.Backend.APIBaseURL = args.APIURL
	}
	return cfg
}

// NewBackendClient builds the backend client described by cfg. A nil
// logger discards request logs.
func NewBackendClient(cfg *config.Config, logger *log.Logger) *backend.Client {
	cacheSize := 0
	if cfg.Query.CacheEnabled {
		cacheSize = cfg.Query.CacheSize
	}
	return backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:   cfg.Backend.APIBaseURL,
		Timeout:   time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RateLimit: cfg.Backend.RateLimit,
		RateBurst: cfg.Backend.RateBurst,
		CacheSize: cacheSize,
		Logger:    logger,
	})
}

// OpenHistory opens the history database in the config directory and
// applies the configured retention.
func OpenHistory(cfg *config.Config) (*storage.HistoryStore, error) {
	path, err := config.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	store.MaxEntries = cfg.History.MaxEntries
	return store, nil
}

// requestLogger returns a stderr logger with --verbose, nil otherwise.
func requestLogger(args Args) *log.Logger {
	if !args.Verbose {
		return nil
	}
	return log.New(errOut, "", log.Ltime)
}

// clientFor is the usual first step of a command.
func clientFor(args Args) (*config.Config, *backend.Client) {
	cfg := EffectiveConfig(args)
	return cfg, NewBackendClient(cfg, requestLogger(args))
}

// recordAnswer stores a successful answer when history is enabled. Failures
// are logged, not returned: the answer was already printed.
func recordAnswer(ctx context.Context, cfg *config.Config, e *storage.Entry) string {
	if !cfg.History.Enabled {
		return ""
	}
	store, err := OpenHistory(cfg)
	if err != nil {
		log.New(errOut, "", 0).Printf("history: %v", err)
		return ""
	}
	defer store.Close()

	if err := store.Add(ctx, e); err != nil {
		log.New(errOut, "", 0).Printf("history: %v", err)
		return ""
	}
	return e.ID
}
