// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// withCapturedOutput points out and errOut at buffers for the test.
func withCapturedOutput(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	origOut, origErr := out, errOut
	out, errOut = stdout, stderr
	t.Cleanup(func() { out, errOut = origOut, origErr })
	return stdout, stderr
}

// withConfig isolates the config directory and installs a default global
// config aimed at apiURL.
func withConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	t.Setenv("REPOCHAT_HOME", t.TempDir())
	t.Setenv("REPOCHAT_API_BASE_URL", "")
	t.Setenv("VITE_API_BASE_URL", "")

	cfg := config.Default()
	cfg.Backend.APIBaseURL = apiURL
	cfg.UI.RenderMarkdown = false
	config.ResetGlobalForTesting()
	config.SetGlobal(cfg)
	t.Cleanup(config.ResetGlobalForTesting)
	return cfg
}

// fakeBackend is a stand-in for the RAG backend's HTTP API.
type fakeBackend struct {
	mu      sync.Mutex
	builds  []backend.BuildRequest
	queries []backend.QueryRequest

	queryStatus int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`{"message":"RAG backend is running"}`))
		case "/build":
			var req backend.BuildRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fb.mu.Lock()
			fb.builds = append(fb.builds, req)
			fb.mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"success","repo":"flask","index_path":"/indexes/flask"}`))
		case "/query":
			var req backend.QueryRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fb.mu.Lock()
			fb.queries = append(fb.queries, req)
			status := fb.queryStatus
			fb.mu.Unlock()
			if status != 0 {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"detail":"Index not found. Please build it first."}`))
				return
			}
			_, _ = w.Write([]byte(`{"answer":"Flask routes requests in app.py.","source_chunks":["src/flask/app.py","src/flask/app.py","docs/index.md"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) counts() (builds, queries int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.builds), len(fb.queries)
}

// closedURL returns a base URL nothing is listening on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "http://" + addr
}

type jsonEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	ErrorType string          `json:"error_type"`
	Command   string          `json:"command"`
}

func decodeEnvelope(t *testing.T, buf *bytes.Buffer, data interface{}) jsonEnvelope {
	t.Helper()
	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env), "stdout: %s", buf.String())
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func runArgs(argv ...string) int {
	cmd, args := ParseArgs(argv)
	return Run(cmd, args)
}

const flaskURL = "https://github.com/pallets/flask"

// =============================================================================
// BUILD
// =============================================================================

func TestBuild_JSON(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	stdout, _ := withCapturedOutput(t)

	code := runArgs("--json", "build", flaskURL, "--branch", "main", "--chunk-size", "1200")
	require.Equal(t, ExitSuccess, code)

	var data BuildData
	env := decodeEnvelope(t, stdout, &data)
	assert.True(t, env.Success)
	assert.Equal(t, "build", env.Command)
	assert.Equal(t, "flask", data.Repo)
	assert.Equal(t, "/indexes/flask", data.IndexPath)

	require.Len(t, fb.builds, 1)
	assert.Equal(t, flaskURL, fb.builds[0].RepoURL)
	assert.Equal(t, "main", fb.builds[0].Branch)
	assert.Equal(t, 1200, fb.builds[0].ChunkSize)
	assert.Equal(t, 100, fb.builds[0].ChunkOverlap)
}

func TestBuild_InvalidURL(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	_, stderr := withCapturedOutput(t)

	assert.Equal(t, ExitUsageError, runArgs("build", "github.com/pallets/flask"))
	assert.Contains(t, stderr.String(), "[ERROR]")

	assert.Equal(t, ExitUsageError, runArgs("build"))

	builds, _ := fb.counts()
	assert.Zero(t, builds)
}

func TestBuild_BackendOffline(t *testing.T) {
	withConfig(t, closedURL(t))
	_, stderr := withCapturedOutput(t)

	assert.Equal(t, ExitNetworkError, runArgs("build", flaskURL))
	assert.Contains(t, stderr.String(), "repochat status")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_JSONRecordsHistory(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	stdout, _ := withCapturedOutput(t)

	code := runArgs("--json", "ask", "--repo", flaskURL, "-k", "3", "How", "are", "routes", "matched?")
	require.Equal(t, ExitSuccess, code)

	var data AskData
	decodeEnvelope(t, stdout, &data)
	assert.Equal(t, "Flask routes requests in app.py.", data.Answer)
	assert.Equal(t, []string{"src/flask/app.py", "src/flask/app.py", "docs/index.md"}, data.Sources)
	assert.Equal(t, 3, data.K)
	assert.Equal(t, "How are routes matched?", data.Question)
	assert.NotEmpty(t, data.HistoryID)

	require.Len(t, fb.queries, 1)
	assert.Equal(t, 3, fb.queries[0].K)

	store, err := OpenHistory(config.Global())
	require.NoError(t, err)
	defer store.Close()
	entry, err := store.Get(context.Background(), data.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, "flask", entry.Repo)
	assert.Equal(t, data.Sources, entry.Sources)
}

func TestAsk_PlainOutput(t *testing.T) {
	_, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	stdout, stderr := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("ask", "--repo", flaskURL, "routing?"))

	got := stdout.String()
	assert.True(t, strings.HasPrefix(got, "Flask routes requests in app.py.\n"), got)
	assert.Contains(t, got, "Source Files:")
	assert.Contains(t, got, "docs/index.md")
	assert.Contains(t, got, "(Python")
	assert.Contains(t, stderr.String(), "k=5")
}

func TestAsk_HistoryDisabled(t *testing.T) {
	_, srv := newFakeBackend(t)
	cfg := withConfig(t, srv.URL)
	cfg.History.Enabled = false
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("--json", "ask", "--repo", flaskURL, "routing?"))
	var data AskData
	decodeEnvelope(t, stdout, &data)
	assert.Empty(t, data.HistoryID)

	_, err := os.Stat(filepath.Join(os.Getenv("REPOCHAT_HOME"), "history.db"))
	assert.True(t, os.IsNotExist(err), "history database should not be created")
}

func TestAsk_BuildFirst(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("-q", "ask", "--repo", flaskURL, "--build", "routing?"))
	builds, queries := fb.counts()
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, queries)
}

func TestAsk_Validation(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	withCapturedOutput(t)

	assert.Equal(t, ExitUsageError, runArgs("ask", "routing?"))
	assert.Equal(t, ExitUsageError, runArgs("ask", "--repo", flaskURL))
	assert.Equal(t, ExitUsageError, runArgs("ask", "--repo", flaskURL, "-k", "99", "routing?"))

	_, queries := fb.counts()
	assert.Zero(t, queries)
}

func TestAsk_IndexNotFound(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.queryStatus = http.StatusNotFound
	withConfig(t, srv.URL)
	stdout, _ := withCapturedOutput(t)

	assert.Equal(t, ExitNotFoundError, runArgs("--json", "ask", "--repo", flaskURL, "routing?"))

	env := decodeEnvelope(t, stdout, nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "Index not found")
	assert.Equal(t, "backend_"+backend.ErrTypeIndexNotFound.String(), env.ErrorType)
}

func TestAsk_APIFlagOverridesConfig(t *testing.T) {
	fb, srv := newFakeBackend(t)
	withConfig(t, closedURL(t))
	withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("--api", srv.URL, "ask", "--repo", flaskURL, "routing?"))
	_, queries := fb.counts()
	assert.Equal(t, 1, queries)
	assert.NotEqual(t, srv.URL, config.Global().Backend.APIBaseURL, "global config must not change")
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_Online(t *testing.T) {
	_, srv := newFakeBackend(t)
	withConfig(t, srv.URL)
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("--json", "status"))
	var data StatusData
	decodeEnvelope(t, stdout, &data)
	assert.True(t, data.Backend.Running)
	assert.Equal(t, "RAG backend is running", data.Backend.Message)
	assert.False(t, data.Config.Exists)
	assert.Equal(t, 5, data.Config.K)
	assert.True(t, data.History.Enabled)
	assert.Zero(t, data.History.Entries)
}

func TestStatus_OfflineIsNotAnError(t *testing.T) {
	withConfig(t, closedURL(t))
	_, stderr := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("status"))
	assert.Contains(t, stderr.String(), "[FAIL]")
	assert.Contains(t, stderr.String(), "Backend")
}

// =============================================================================
// HISTORY
// =============================================================================

func seedHistory(t *testing.T, entries ...storage.Entry) []string {
	t.Helper()
	store, err := OpenHistory(config.Global())
	require.NoError(t, err)
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	ids := make([]string, 0, len(entries))
	for i := range entries {
		e := entries[i]
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Add(context.Background(), &e))
		ids = append(ids, e.ID)
	}
	return ids
}

func TestHistory_ListShowDelete(t *testing.T) {
	withConfig(t, closedURL(t))
	ids := seedHistory(t,
		storage.Entry{RepoURL: flaskURL, Repo: "flask", Question: "How are routes matched?", Answer: "Werkzeug.", Sources: []string{"src/flask/app.py"}, K: 5},
		storage.Entry{RepoURL: "https://github.com/psf/requests", Repo: "requests", Question: "Where are sessions?", Answer: "sessions.py", K: 5},
	)

	stdout, _ := withCapturedOutput(t)
	require.Equal(t, ExitSuccess, runArgs("--json", "history", "list"))
	var listed []storage.Entry
	decodeEnvelope(t, stdout, &listed)
	require.Len(t, listed, 2)
	assert.Equal(t, ids[1], listed[0].ID, "newest first")

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("--json", "history", "list", "--repo", "flask"))
	listed = nil
	decodeEnvelope(t, stdout, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "flask", listed[0].Repo)

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("history", "show", ids[0][:8]))
	assert.Contains(t, stdout.String(), "Werkzeug.")
	assert.Contains(t, stdout.String(), "src/flask/app.py")

	require.Equal(t, ExitSuccess, runArgs("history", "delete", ids[0]))
	assert.Equal(t, ExitNotFoundError, runArgs("history", "show", ids[0]))
}

func TestHistory_PlainListEmpty(t *testing.T) {
	withConfig(t, closedURL(t))
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("history"))
	assert.Equal(t, "No history found.\n", stdout.String())
}

func TestHistory_Export(t *testing.T) {
	withConfig(t, closedURL(t))
	seedHistory(t,
		storage.Entry{RepoURL: flaskURL, Repo: "flask", Question: "First question", Answer: "one", K: 5},
		storage.Entry{RepoURL: flaskURL, Repo: "flask", Question: "Second question", Answer: "two", K: 5},
	)
	stdout, _ := withCapturedOutput(t)

	target := filepath.Join(t.TempDir(), "answers.md")
	require.Equal(t, ExitSuccess, runArgs("--json", "history", "export", "--output", target))

	var data HistoryExportData
	decodeEnvelope(t, stdout, &data)
	assert.Equal(t, target, data.Path)
	assert.Equal(t, 2, data.Entries)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	first := strings.Index(string(content), "First question")
	second := strings.Index(string(content), "Second question")
	require.True(t, first >= 0 && second >= 0, string(content))
	assert.Less(t, first, second, "exports read in asking order")
}

func TestHistory_ExportErrors(t *testing.T) {
	withConfig(t, closedURL(t))
	withCapturedOutput(t)

	assert.Equal(t, ExitNotFoundError, runArgs("history", "export"))

	seedHistory(t, storage.Entry{RepoURL: flaskURL, Repo: "flask", Question: "q", Answer: "a", K: 5})
	assert.Equal(t, ExitUsageError, runArgs("history", "export", "--format", "pdf"))
}

func TestHistory_ClearNeedsConfirmation(t *testing.T) {
	withConfig(t, closedURL(t))
	seedHistory(t, storage.Entry{RepoURL: flaskURL, Repo: "flask", Question: "q", Answer: "a", K: 5})
	stdout, _ := withCapturedOutput(t)

	assert.Equal(t, ExitUsageError, runArgs("--json", "history", "clear"))

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("--json", "history", "clear", "--confirm"))
	var data map[string]int
	decodeEnvelope(t, stdout, &data)
	assert.Equal(t, 1, data["deleted"])
}

func TestHistory_UnknownSubcommand(t *testing.T) {
	withConfig(t, closedURL(t))
	withCapturedOutput(t)
	assert.Equal(t, ExitUsageError, runArgs("history", "rewind"))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetWritesFile(t *testing.T) {
	withConfig(t, closedURL(t))
	_, stderr := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("config", "set", "query.k", "8"))
	assert.Contains(t, stderr.String(), "query.k = 8")

	path, exists := config.ActivePath()
	require.True(t, exists)
	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Query.K)
	assert.Equal(t, 8, config.Global().Query.K, "global reloaded after set")

	require.Equal(t, ExitSuccess, runArgs("config", "set", "ui.theme", "dark"))
	cfg, err = config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Query.K, "earlier edits survive")
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestConfig_SetDoesNotPersistEnvironment(t *testing.T) {
	withConfig(t, closedURL(t))
	withCapturedOutput(t)
	t.Setenv("REPOCHAT_API_BASE_URL", "http://from-env:9000")

	require.Equal(t, ExitSuccess, runArgs("config", "set", "query.k", "7"))
	path, _ := config.ActivePath()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "from-env")
}

func TestConfig_SetRejectsBadInput(t *testing.T) {
	withConfig(t, closedURL(t))
	withCapturedOutput(t)

	assert.Equal(t, ExitUsageError, runArgs("config", "set", "query.nope", "1"))
	assert.Equal(t, ExitUsageError, runArgs("config", "set", "query.k"))
	assert.Equal(t, ExitConfigError, runArgs("config", "set", "query.k", "51"))

	_, exists := config.ActivePath()
	assert.False(t, exists, "rejected edits must not create a file")
}

func TestConfig_GetPathKeys(t *testing.T) {
	withConfig(t, "http://localhost:8123")
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("config", "get", "backend.api_base_url"))
	assert.Equal(t, "http://localhost:8123\n", stdout.String())

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("--api", "http://override:1", "config", "get", "backend.api_base_url"))
	assert.Equal(t, "http://override:1\n", stdout.String())

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("--json", "config", "path"))
	var data ConfigPathData
	decodeEnvelope(t, stdout, &data)
	assert.Equal(t, filepath.Join(os.Getenv("REPOCHAT_HOME"), "config.toml"), data.Path)
	assert.False(t, data.Exists)

	stdout.Reset()
	require.Equal(t, ExitSuccess, runArgs("config", "keys"))
	assert.Contains(t, stdout.String(), "query.k\n")
	assert.Contains(t, stdout.String(), "ui.typewriter_interval_ms\n")
}

// =============================================================================
// CHAT SESSION
// =============================================================================

func newTestSession(t *testing.T, apiURL, repo string) *ChatSession {
	t.Helper()
	withConfig(t, apiURL)
	return NewChatSession(Args{Repo: repo, Quiet: true})
}

func TestChatSession_Questions(t *testing.T) {
	fb, srv := newFakeBackend(t)
	s := newTestSession(t, srv.URL, flaskURL)
	stdout, _ := withCapturedOutput(t)
	ctx := context.Background()

	cont, err := s.Handle(ctx, "  how are routes matched?  ")
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Equal(t, 1, s.Asked)
	assert.Contains(t, stdout.String(), "Flask routes requests in app.py.")
	assert.Equal(t, "how are routes matched?", fb.queries[0].Question)

	cont, err = s.Handle(ctx, "")
	assert.NoError(t, err)
	assert.True(t, cont)

	for _, line := range []string{"exit", "QUIT", "/q", "/exit"} {
		cont, err = s.Handle(ctx, line)
		assert.NoError(t, err)
		assert.False(t, cont, line)
	}
}

func TestChatSession_SlashCommands(t *testing.T) {
	fb, srv := newFakeBackend(t)
	s := newTestSession(t, srv.URL, "")
	_, stderr := withCapturedOutput(t)
	ctx := context.Background()

	_, err := s.Handle(ctx, "a question without a repo")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = s.Handle(ctx, "/repo not-a-url")
	assert.Error(t, err)
	assert.Empty(t, s.RepoURL)

	_, err = s.Handle(ctx, "/repo "+flaskURL)
	require.NoError(t, err)
	assert.Equal(t, flaskURL, s.RepoURL)
	assert.Equal(t, "flask> ", s.prompt())

	_, err = s.Handle(ctx, "/k 12")
	require.NoError(t, err)
	assert.Equal(t, 12, s.K)

	_, err = s.Handle(ctx, "/k 51")
	assert.Error(t, err)
	assert.Equal(t, 12, s.K)

	_, err = s.Handle(ctx, "/build https://github.com/psf/requests dev")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/psf/requests", s.RepoURL)
	require.Len(t, fb.builds, 1)
	assert.Equal(t, "dev", fb.builds[0].Branch)

	_, err = s.Handle(ctx, "/status")
	assert.NoError(t, err)
	assert.Contains(t, stderr.String(), "[OK]")
	assert.Contains(t, stderr.String(), "answer cache:")

	_, err = s.Handle(ctx, "/help")
	assert.NoError(t, err)
	assert.Contains(t, stderr.String(), "/build [url] [branch]")

	cont, err := s.Handle(ctx, "/frobnicate")
	assert.Error(t, err)
	assert.True(t, cont, "unknown commands keep the session alive")
}

func TestChatSession_OfflineBackend(t *testing.T) {
	s := newTestSession(t, closedURL(t), flaskURL)
	withCapturedOutput(t)

	cont, err := s.Handle(context.Background(), "anything?")
	assert.True(t, cont)
	assert.True(t, backend.IsNotRunning(err), "err = %v", err)
	assert.Zero(t, s.Asked)
}

func TestChat_RejectsJSON(t *testing.T) {
	withConfig(t, closedURL(t))
	withCapturedOutput(t)
	assert.Equal(t, ExitUsageError, runArgs("--json", "chat"))
}

// =============================================================================
// MISC COMMANDS
// =============================================================================

func TestRun_HelpAndUnknown(t *testing.T) {
	withConfig(t, closedURL(t))
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("help"))
	assert.Contains(t, stdout.String(), "repochat ask --repo")

	assert.Equal(t, ExitUsageError, runArgs("frobnicate"))
}

func TestVersion_JSON(t *testing.T) {
	withConfig(t, closedURL(t))
	stdout, _ := withCapturedOutput(t)

	require.Equal(t, ExitSuccess, runArgs("--json", "version"))
	var data VersionData
	decodeEnvelope(t, stdout, &data)
	assert.Equal(t, Version, data.Version)
	assert.Equal(t, config.DefaultAPIBaseURL(), data.Backend)
}
