// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultChunkSize and DefaultChunkOverlap match the backend's own
	// BuildRequest defaults.
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100

	// DefaultK is the number of chunks retrieved per question.
	DefaultK = 5
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// BuildRequest is the request body for POST /build.
type BuildRequest struct {
	RepoURL      string `json:"repo_url"`
	Branch       string `json:"branch,omitempty"` // empty lets the backend use the remote HEAD
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

// BuildOptions are the optional parts of a build request.
// A zero ChunkSize selects both chunk defaults; a zero ChunkOverlap
// alongside an explicit ChunkSize is sent as 0.
type BuildOptions struct {
	Branch       string
	ChunkSize    int
	ChunkOverlap int
}

// QueryRequest is the request body for POST /query.
type QueryRequest struct {
	RepoURL  string `json:"repo_url"`
	Question string `json:"question"`
	K        int    `json:"k"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BuildResponse is returned by POST /build once the index is on disk.
type BuildResponse struct {
	Status    string `json:"status"`     // "success"
	Repo      string `json:"repo"`       // repository name, see RepoName
	IndexPath string `json:"index_path"` // server-side path of the index
}

// QueryResponse is returned by POST /query.
type QueryResponse struct {
	Answer       string   `json:"answer"`
	SourceChunks []string `json:"source_chunks"` // source file paths, one per retrieved chunk
}

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Message string `json:"message"`
}

// errorBody is the FastAPI error envelope, {"detail": "..."}.
type errorBody struct {
	Detail interface{} `json:"detail"`
}
