// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for repochat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// a .env file, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: where the RAG backend lives and how hard to hit it
//   - IndexConfig: chunking parameters sent with index builds
//   - QueryConfig: retrieval depth and the local answer cache
//   - UIConfig: theme, typewriter speed, markdown rendering
//   - HistoryConfig: the local question/answer log
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (REPOCHAT_*, VITE_API_BASE_URL)
//   - .env in the working directory
//   - ~/.repochat/config.toml
//   - ~/.repochat/config.json
//   - Built-in defaults (BuildAPIBaseURL via -ldflags)
//
// The --api flag on the command line beats all of these; it is applied by
// the cli package after loading.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits while the TUI is running:
//
//	go config.Watch(ctx, func(cfg *config.Config, err error) { ... })
package config
