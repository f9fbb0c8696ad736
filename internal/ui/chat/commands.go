// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the part of *backend.Client the TUI uses.
type Backend interface {
	BuildIndex(ctx context.Context, repoURL string, opts backend.BuildOptions) (*backend.BuildResponse, error)
	Query(ctx context.Context, repoURL, question string, k int) (*backend.QueryResponse, error)
	CheckRunning(ctx context.Context) error
	BaseURL() string
}

// baseURLSetter is implemented by backends that can be repointed when the
// config file changes.
type baseURLSetter interface {
	SetBaseURL(baseURL string)
}

// HistoryWriter stores answered questions. *storage.HistoryStore satisfies it.
type HistoryWriter interface {
	Add(ctx context.Context, e *storage.Entry) error
}

// healthCheckTimeout bounds the startup health check.
const healthCheckTimeout = 5 * time.Second

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// buildIndexCmd calls BuildIndex off the event loop.
func buildIndexCmd(ctx context.Context, client Backend, repoURL string, opts backend.BuildOptions) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.BuildIndex(ctx, repoURL, opts)
		return buildResultMsg{RepoURL: repoURL, Resp: resp, Err: err}
	}
}

// queryCmd calls Query off the event loop.
func queryCmd(ctx context.Context, client Backend, repoURL, question string, k int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		resp, err := client.Query(ctx, repoURL, question, k)
		return queryResultMsg{
			RepoURL:  repoURL,
			Question: question,
			K:        k,
			Resp:     resp,
			Elapsed:  time.Since(start),
			Err:      err,
		}
	}
}

// CheckBackendCmd creates a command that checks whether the backend answers.
func CheckBackendCmd(ctx context.Context, client Backend) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return BackendStatusMsg{Running: false, Err: backend.ErrNotRunning}
		}
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		err := client.CheckRunning(ctx)
		return BackendStatusMsg{BaseURL: client.BaseURL(), Running: err == nil, Err: err}
	}
}

// recordHistoryCmd writes one entry. Failures come back as a message and
// never block the UI.
func recordHistoryCmd(ctx context.Context, w HistoryWriter, e storage.Entry) tea.Cmd {
	return func() tea.Msg {
		err := w.Add(ctx, &e)
		return HistoryRecordedMsg{ID: e.ID, Err: err}
	}
}

// WaitForConfigReload waits for the next reloaded config on ch.
func WaitForConfigReload(ch <-chan ConfigReloadedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// emit wraps a message as a command.
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
