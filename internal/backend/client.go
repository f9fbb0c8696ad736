// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend root (default: http://localhost:8000)
	BaseURL string

	// Timeout bounds a whole request (default: 120s). Building an index for
	// a large repository takes a while.
	Timeout time.Duration

	// RateLimit is the sustained number of POSTs per second (0 = unlimited)
	RateLimit float64

	// RateBurst is the limiter burst size (default: 1)
	RateBurst int

	// CacheSize is the number of answers kept in memory (0 = no cache)
	CacheSize int

	// Logger receives one line per request. Nil discards.
	Logger *log.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   DefaultBaseURL,
		Timeout:   120 * time.Second,
		RateBurst: 1,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the RAG backend.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *answerCache
	logger     *log.Logger
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		config:  &cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  newAnswerCache(cfg.CacheSize),
		logger: cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at another backend. Cached answers came from
// the old backend and are dropped.
func (c *Client) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c.mu.Lock()
	changed := baseURL != c.baseURL
	c.baseURL = baseURL
	c.mu.Unlock()

	if changed {
		c.cache.purge()
		c.logger.Printf("backend: base URL set to %s", baseURL)
	}
}

// CacheStats reports answer cache usage.
func (c *Client) CacheStats() CacheStats {
	return c.cache.stats()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Health calls GET / and returns the backend's greeting.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.do(ctx, http.MethodGet, "/", "health check", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckRunning verifies that the backend is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// =============================================================================
// INDEX OPERATIONS
// =============================================================================

// BuildIndex asks the backend to clone repoURL and build its vector index.
// The call blocks until the index is built. Cached answers for the
// repository are dropped on success.
func (c *Client) BuildIndex(ctx context.Context, repoURL string, opts BuildOptions) (*BuildResponse, error) {
	repoURL = Normalize(repoURL)
	if repoURL == "" {
		return nil, ErrEmptyRepoURL
	}

	reqBody := BuildRequest{
		RepoURL:      repoURL,
		Branch:       strings.TrimSpace(opts.Branch),
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
	}
	// An overlap of 0 is a real setting once a chunk size is given.
	if reqBody.ChunkSize <= 0 {
		reqBody.ChunkSize = DefaultChunkSize
		if reqBody.ChunkOverlap == 0 {
			reqBody.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if reqBody.ChunkOverlap < 0 {
		reqBody.ChunkOverlap = DefaultChunkOverlap
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	// The backend's reply is informational; any 2xx means the index exists.
	var result BuildResponse
	if err := c.do(ctx, http.MethodPost, "/build", "build index", reqBody, &result); err != nil {
		return nil, err
	}

	if n := c.cache.purgeRepo(RepoName(repoURL)); n > 0 {
		c.logger.Printf("backend: dropped %d cached answers for %s", n, repoURL)
	}
	return &result, nil
}

// =============================================================================
// QUERY OPERATIONS
// =============================================================================

// Query asks question against the index built for repoURL.
// k <= 0 uses DefaultK. The returned SourceChunks is never nil.
func (c *Client) Query(ctx context.Context, repoURL, question string, k int) (*QueryResponse, error) {
	question = Normalize(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	repoURL = Normalize(repoURL)
	if k <= 0 {
		k = DefaultK
	}

	// The backend keys its indexes by repository name, so the cache does too.
	key := cacheKey{repo: RepoName(repoURL), question: question, k: k}
	if cached, ok := c.cache.get(key); ok {
		c.logger.Printf("backend: cache hit for %q", question)
		return cached, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	reqBody := QueryRequest{RepoURL: repoURL, Question: question, K: k}
	var result QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", "query", reqBody, &result); err != nil {
		return nil, err
	}
	if result.SourceChunks == nil {
		result.SourceChunks = []string{}
	}

	c.cache.put(key, &result)
	return &result, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(err)
	}
	return nil
}

// do sends one request and decodes a 2xx JSON body into out.
// A nil reqBody sends no body. A 2xx body that does not decode is an error,
// except for builds, whose reply carries nothing the client depends on.
func (c *Client) do(ctx context.Context, method, path, op string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("backend: %s %s failed after %s: %v", method, path, time.Since(start).Round(time.Millisecond), err)
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err, StatusCode: resp.StatusCode}
	}
	c.logger.Printf("backend: %s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, resp.Status, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if _, lenient := out.(*BuildResponse); lenient {
			return nil
		}
		return &ClientError{
			Type:       ErrTypeInvalidResponse,
			Message:    "failed to decode response",
			Cause:      err,
			StatusCode: resp.StatusCode,
			Body:       compactBody(raw),
		}
	}
	return nil
}
