// repochat - a terminal client for chatting with a Git repository through a
// RAG backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/cli"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/ui/chat"
	"github.com/jeranaias/repochat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	if cmd == cli.CmdTUI {
		os.Exit(runTUI(args))
	}
	os.Exit(cli.Run(cmd, args))
}

// runTUI starts the TUI interface and returns the process exit code.
func runTUI(args cli.Args) int {
	cli.ApplyColorFlags(args)

	// The alt screen owns the terminal, so diagnostics go to a file or nowhere.
	if os.Getenv("REPOCHAT_DEBUG") != "" {
		if path, err := config.DebugLogPath(); err == nil && config.EnsureConfigDir() == nil {
			f, err := tea.LogToFile(path, "repochat")
			if err == nil {
				defer f.Close()
			}
		}
	} else {
		log.SetOutput(io.Discard)
	}

	cfg := cli.EffectiveConfig(args)
	theme := styles.NewThemeWithMode(cfg.UI.Theme)
	client := cli.NewBackendClient(cfg, log.Default())

	m := chat.New(theme, client, cfg)

	if cfg.History.Enabled {
		store, err := cli.OpenHistory(cfg)
		if err != nil {
			log.Printf("history disabled: %v", err)
		} else {
			defer store.Close()
			m.SetHistory(store)
		}
	}

	// Config edits made while the TUI runs are applied live; --api still wins.
	reloads := make(chan chat.ConfigReloadedMsg, 4)
	watcher, err := config.NewWatcher(func(newCfg *config.Config, err error) {
		if newCfg != nil && args.APIURL != "" {
			newCfg = newCfg.Clone()
			newCfg.Backend.APIBaseURL = args.APIURL
		}
		select {
		case reloads <- chat.ConfigReloadedMsg{Config: newCfg, Err: err}:
		default:
			log.Printf("config reload dropped; the TUI is still applying the last one")
		}
	})
	if err != nil {
		log.Printf("config watcher unavailable: %v", err)
	} else {
		watcher.Start()
		defer watcher.Close()
		m.SetConfigReloads(reloads)
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running repochat: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}
