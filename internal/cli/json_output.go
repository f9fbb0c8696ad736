// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output support for scripting.

package cli

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ErrorType categorizes Error (e.g. "backend_not_running")
	ErrorType string `json:"error_type,omitempty"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := describeError(err)
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the JSON response to stdout.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// BuildData is the payload of the build command.
type BuildData struct {
	RepoURL      string `json:"repo_url"`
	Repo         string `json:"repo"`
	Status       string `json:"status"`
	IndexPath    string `json:"index_path,omitempty"`
	Branch       string `json:"branch,omitempty"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	DurationMs   int64  `json:"duration_ms"`
}

// AskData is the payload of the ask command.
type AskData struct {
	RepoURL    string   `json:"repo_url"`
	Repo       string   `json:"repo"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"source_chunks"`
	K          int      `json:"k"`
	DurationMs int64    `json:"duration_ms"`
	HistoryID  string   `json:"history_id,omitempty"`
}

// StatusData is the payload of the status command.
type StatusData struct {
	Backend StatusBackendInfo `json:"backend"`
	Config  StatusConfigInfo  `json:"config"`
	History StatusHistoryInfo `json:"history"`
}

// StatusBackendInfo describes the backend health check.
type StatusBackendInfo struct {
	URL       string `json:"url"`
	Running   bool   `json:"running"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// StatusConfigInfo summarizes the effective configuration.
type StatusConfigInfo struct {
	Path         string `json:"path"`
	Exists       bool   `json:"exists"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	K            int    `json:"k"`
	CacheSize    int    `json:"cache_size"`
}

// StatusHistoryInfo summarizes the history store.
type StatusHistoryInfo struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Repos   int    `json:"repos"`
	Newest  string `json:"newest,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HistoryExportData is the payload of "history export".
type HistoryExportData struct {
	Path    string `json:"path"`
	Format  string `json:"format"`
	Entries int    `json:"entries"`
}

// ConfigPathData is the payload of "config path".
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}
