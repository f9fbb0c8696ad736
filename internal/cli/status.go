// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
)

// HandleStatus handles the "status" command: backend health, effective
// config and history statistics. An offline backend is reported, not
// returned as an error, so the rest of the report still prints.
func HandleStatus(args Args) error {
	cfg, client := clientFor(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data := StatusData{
		Backend: collectBackendInfo(ctx, client),
		Config:  collectConfigInfo(cfg),
		History: collectHistoryInfo(ctx, cfg),
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	printTitle("repochat Status")

	fmt.Fprintln(errOut, SectionStyle.Render("Backend"))
	printField("URL", data.Backend.URL)
	if data.Backend.Running {
		msg := fmt.Sprintf("online (%dms)", data.Backend.LatencyMs)
		if data.Backend.Message != "" {
			msg += " " + DimStyle.Render(data.Backend.Message)
		}
		fmt.Fprintf(errOut, "  %s %s %s\n", RenderLabel("Status"), RenderStatus("online"), msg)
	} else {
		fmt.Fprintf(errOut, "  %s %s %s\n", RenderLabel("Status"), RenderStatus("offline"), data.Backend.Error)
	}

	fmt.Fprintln(errOut, SectionStyle.Render("Config"))
	path := data.Config.Path
	if !data.Config.Exists {
		path += DimStyle.Render(" (not created, using defaults)")
	}
	printField("File", path)
	printField("Chunking", fmt.Sprintf("%d / %d overlap", data.Config.ChunkSize, data.Config.ChunkOverlap))
	printField("k", data.Config.K)
	if data.Config.CacheSize > 0 {
		printField("Answer cache", fmt.Sprintf("%d entries", data.Config.CacheSize))
	} else {
		printField("Answer cache", "off")
	}

	fmt.Fprintln(errOut, SectionStyle.Render("History"))
	switch {
	case !data.History.Enabled:
		fmt.Fprintf(errOut, "  %s %s\n", RenderLabel("Recording"), RenderStatus("disabled"))
	case data.History.Error != "":
		fmt.Fprintf(errOut, "  %s %s %s\n", RenderLabel("Database"), RenderStatus("error"), data.History.Error)
	default:
		printField("Entries", fmt.Sprintf("%d across %d repositories", data.History.Entries, data.History.Repos))
		if data.History.Newest != "" {
			printField("Last answer", data.History.Newest)
		}
	}
	fmt.Fprintln(errOut)
	return nil
}

func collectBackendInfo(ctx context.Context, client *backend.Client) StatusBackendInfo {
	info := StatusBackendInfo{URL: client.BaseURL()}

	start := time.Now()
	health, err := client.Health(ctx)
	info.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		info.Error = backend.Describe(err)
		return info
	}
	info.Running = true
	if health != nil {
		info.Message = health.Message
	}
	return info
}

func collectConfigInfo(cfg *config.Config) StatusConfigInfo {
	path, exists := config.ActivePath()
	info := StatusConfigInfo{
		Path:         path,
		Exists:       exists,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		K:            cfg.Query.K,
	}
	if cfg.Query.CacheEnabled {
		info.CacheSize = cfg.Query.CacheSize
	}
	return info
}

func collectHistoryInfo(ctx context.Context, cfg *config.Config) StatusHistoryInfo {
	info := StatusHistoryInfo{Enabled: cfg.History.Enabled}
	if path, err := config.HistoryDBPath(); err == nil {
		info.Path = path
	}
	if !info.Enabled {
		return info
	}

	store, err := OpenHistory(cfg)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Entries = stats.Entries
	info.Repos = stats.Repos
	if !stats.Newest.IsZero() {
		info.Newest = stats.Newest.Format("2006-01-02 15:04")
	}
	return info
}
