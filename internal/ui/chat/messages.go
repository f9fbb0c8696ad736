// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
)

// =============================================================================
// FORM OUTPUT MESSAGES
// =============================================================================

// RepoIndexedMsg is emitted by the repo form once the backend has built an
// index for RepoURL. The root model makes it the active repository.
type RepoIndexedMsg struct {
	RepoURL   string
	Repo      string
	IndexPath string
}

// AnswerMsg is emitted by the query form when a query finishes. On failure
// Answer holds the error text, Sources is empty and Err is set.
type AnswerMsg struct {
	RepoURL  string
	Question string
	Answer   string
	Sources  []string
	K        int
	Elapsed  time.Duration
	Err      error
}

// =============================================================================
// BACKGROUND MESSAGES
// =============================================================================

// BackendStatusMsg reports the result of a health check.
type BackendStatusMsg struct {
	BaseURL string
	Running bool
	Err     error
}

// HistoryRecordedMsg reports a history write.
type HistoryRecordedMsg struct {
	ID  string
	Err error
}

// ConfigReloadedMsg carries a configuration reloaded from disk. Err is set
// when the file could not be read or failed validation.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// REQUEST RESULTS
// =============================================================================

// buildResultMsg is the raw outcome of a BuildIndex call.
type buildResultMsg struct {
	RepoURL string
	Resp    *backend.BuildResponse
	Err     error
}

// queryResultMsg is the raw outcome of a Query call.
type queryResultMsg struct {
	RepoURL  string
	Question string
	K        int
	Resp     *backend.QueryResponse
	Elapsed  time.Duration
	Err      error
}
