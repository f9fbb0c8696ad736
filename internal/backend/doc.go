// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the repository RAG backend.
//
// The backend clones a GitHub repository, chunks and embeds it into a vector
// index, and answers questions against that index. This package only speaks
// its JSON API; none of the retrieval happens here.
//
// # Key Types
//
//   - Client: HTTP client for the /build, /query and health endpoints
//   - BuildRequest, BuildResponse: index build payloads
//   - QueryRequest, QueryResponse: question payloads
//   - ClientError: typed error carrying the response body when there is one
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{
//	    BaseURL: "http://localhost:8000",
//	})
//	if _, err := client.BuildIndex(ctx, repoURL, backend.BuildOptions{}); err != nil {
//	    fmt.Println("Error building index: " + backend.Describe(err))
//	}
//	resp, err := client.Query(ctx, repoURL, "What does this library do?", 5)
//
// # Caching
//
// Answers are kept in a small LRU keyed by repository, question and k.
// Rebuilding a repository's index drops its cached answers.
package backend
