// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/storage"
	"github.com/jeranaias/repochat/internal/ui/components"
	"github.com/jeranaias/repochat/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type buildCall struct {
	url  string
	opts backend.BuildOptions
}

type queryCall struct {
	url, question string
	k             int
}

type fakeBackend struct {
	mu       sync.Mutex
	builds   []buildCall
	queries  []queryCall
	baseURL  string
	buildErr error
	queryErr error
	answer   *backend.QueryResponse
	health   error
}

func newFake() *fakeBackend {
	return &fakeBackend{
		baseURL: "http://localhost:8000",
		answer:  &backend.QueryResponse{Answer: "A", SourceChunks: []string{"f1.js", "f2.js"}},
	}
}

func (f *fakeBackend) BuildIndex(_ context.Context, url string, opts backend.BuildOptions) (*backend.BuildResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, buildCall{url, opts})
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &backend.BuildResponse{Status: "FAISS index built", Repo: backend.RepoName(url), IndexPath: "faiss_indexes/x"}, nil
}

func (f *fakeBackend) Query(_ context.Context, url, question string, k int) (*backend.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryCall{url, question, k})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	resp := *f.answer
	return &resp, nil
}

func (f *fakeBackend) CheckRunning(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func (f *fakeBackend) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *fakeBackend) SetBaseURL(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseURL = u
}

func (f *fakeBackend) buildCalls() []buildCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]buildCall(nil), f.builds...)
}

func (f *fakeBackend) queryCalls() []queryCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queryCall(nil), f.queries...)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []storage.Entry
	err     error
}

func (h *fakeHistory) Add(_ context.Context, e *storage.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	e.ID = "entry-1"
	h.entries = append(h.entries, *e)
	return nil
}

func (h *fakeHistory) list() []storage.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]storage.Entry(nil), h.entries...)
}

// =============================================================================
// DRIVER
// =============================================================================

const repoURL = "https://github.com/user/repo"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.UI.TypewriterIntervalMs = 1
	cfg.UI.RenderMarkdown = false
	return cfg
}

func newTestModel(client Backend) Model {
	return New(styles.NewThemeWithMode("dark"), client, testConfig())
}

// run executes cmd and returns its messages, flattening batches. Commands
// that do not finish quickly (cursor blinks, spinner and toast timers) are
// dropped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, run(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// send delivers msg and keeps feeding the resulting messages back until the
// model goes quiet.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 10000 {
			t.Fatal("model never settled")
		}
		next := queue[0]
		queue = queue[1:]
		switch next.(type) {
		case spinner.TickMsg, components.ToastTickMsg:
			continue
		}
		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, run(cmd)...)
	}
	return m
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// indexed returns a model that has already built repoURL.
func indexed(t *testing.T, client *fakeBackend) Model {
	t.Helper()
	m := newTestModel(client)
	m.repoForm.SetValue(repoURL)
	m = send(t, m, keyMsg(tea.KeyEnter))
	if m.RepoURL() != repoURL {
		t.Fatalf("RepoURL() = %q, want %q", m.RepoURL(), repoURL)
	}
	return m
}

func ask(t *testing.T, m Model, question string) Model {
	t.Helper()
	m.queryForm.SetValue(question)
	return send(t, m, keyMsg(tea.KeyEnter))
}

// =============================================================================
// REPO FORM
// =============================================================================

func TestRepoSubmit_BuildsOnceWithDefaults(t *testing.T) {
	fb := newFake()
	m := indexed(t, fb)

	builds := fb.buildCalls()
	if len(builds) != 1 {
		t.Fatalf("got %d builds, want 1", len(builds))
	}
	if builds[0].url != repoURL {
		t.Errorf("url = %q, want %q", builds[0].url, repoURL)
	}
	if builds[0].opts.ChunkSize != 800 || builds[0].opts.ChunkOverlap != 100 {
		t.Errorf("chunks = %d/%d, want 800/100", builds[0].opts.ChunkSize, builds[0].opts.ChunkOverlap)
	}

	status, isErr := m.RepoForm().Status()
	if status != statusIndexBuilt || isErr {
		t.Errorf("status = %q (err %v)", status, isErr)
	}
	if m.RepoName() != "repo" {
		t.Errorf("RepoName() = %q, want repo", m.RepoName())
	}
	if m.focus != focusQuestion {
		t.Errorf("focus = %v, want question", m.focus)
	}
}

func TestRepoSubmit_BlankURL(t *testing.T) {
	fb := newFake()
	m := newTestModel(fb)
	m.repoForm.SetValue("   ")
	m = send(t, m, keyMsg(tea.KeyEnter))

	if len(fb.buildCalls()) != 0 {
		t.Error("blank URL should not issue a request")
	}
	status, isErr := m.RepoForm().Status()
	if status != "Please enter a repository URL." || !isErr {
		t.Errorf("status = %q (err %v)", status, isErr)
	}
}

func TestRepoForm_InputLockedWhileLoading(t *testing.T) {
	m := newTestModel(newFake())
	m.repoForm.SetValue(repoURL)

	updated, _ := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	if !m.RepoForm().Loading() {
		t.Fatal("form should be loading")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m = updated.(Model)
	updated, _ = m.Update(keyMsg(tea.KeyBackspace))
	m = updated.(Model)
	if got := m.repoForm.url.Value(); got != repoURL {
		t.Errorf("url = %q, want %q while loading", got, repoURL)
	}
}

func TestRepoSubmit_IgnoredWhileLoading(t *testing.T) {
	fb := newFake()
	m := newTestModel(fb)
	m.repoForm.SetValue(repoURL)

	updated, first := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	if !m.RepoForm().Loading() {
		t.Fatal("form should be loading")
	}

	updated, second := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	if second != nil {
		t.Error("second submit while loading should return no command")
	}

	for _, msg := range run(first) {
		m = send(t, m, msg)
	}
	if len(fb.buildCalls()) != 1 {
		t.Errorf("got %d builds, want 1", len(fb.buildCalls()))
	}
	if m.RepoForm().Loading() {
		t.Error("form should stop loading after the result")
	}
}

func TestRepoSubmit_Failure(t *testing.T) {
	fb := newFake()
	fb.buildErr = errors.New("connection refused")
	m := newTestModel(fb)
	m.repoForm.SetValue(repoURL)
	m = send(t, m, keyMsg(tea.KeyEnter))

	status, isErr := m.RepoForm().Status()
	if status != "Error building index: connection refused" || !isErr {
		t.Errorf("status = %q (err %v)", status, isErr)
	}
	if m.RepoURL() != "" {
		t.Error("failed build must not set the repository")
	}
	if m.RepoForm().Value() != repoURL {
		t.Error("URL input should keep its text for a retry")
	}
	if strings.Contains(m.View(), "Step 2") {
		t.Error("step 2 should stay hidden")
	}
}

func TestRepoSubmit_Branch(t *testing.T) {
	fb := newFake()
	cfg := testConfig()
	cfg.Backend.DefaultBranch = "main"
	m := New(styles.NewThemeWithMode("dark"), fb, cfg)

	m.repoForm.SetValue(repoURL)
	m = send(t, m, keyMsg(tea.KeyEnter))
	m = send(t, m, keyMsg(tea.KeyCtrlN))

	m.repoForm.SetValue(repoURL)
	m.repoForm.SetBranch("dev")
	send(t, m, keyMsg(tea.KeyEnter))

	builds := fb.buildCalls()
	if len(builds) != 2 {
		t.Fatalf("got %d builds, want 2", len(builds))
	}
	if builds[0].opts.Branch != "main" || builds[1].opts.Branch != "dev" {
		t.Errorf("branches = %q, %q", builds[0].opts.Branch, builds[1].opts.Branch)
	}
}

// =============================================================================
// QUERY FORM AND ANSWER
// =============================================================================

func TestQuery_SuccessRevealsAnswerThenSources(t *testing.T) {
	fb := newFake()
	m := ask(t, indexed(t, fb), "What is this?")

	queries := fb.queryCalls()
	if len(queries) != 1 {
		t.Fatalf("got %d queries, want 1", len(queries))
	}
	if queries[0].question != "What is this?" || queries[0].k != 5 || queries[0].url != repoURL {
		t.Errorf("query = %+v", queries[0])
	}

	a := m.Answer()
	if a.Visible() != "A" || !a.IsComplete() {
		t.Errorf("Visible() = %q, complete %v", a.Visible(), a.IsComplete())
	}
	got := a.VisibleSources()
	if len(got) != 2 || got[0] != "f1.js" || got[1] != "f2.js" {
		t.Errorf("VisibleSources() = %v", got)
	}
	if m.QueryForm().Value() != "" {
		t.Error("question input should be cleared after an answer")
	}
	if !strings.Contains(m.View(), "Source Files:") {
		t.Error("view should list the sources")
	}
}

func TestAnswer_SourcesHiddenUntilComplete(t *testing.T) {
	m := indexed(t, newFake())
	updated, _ := m.Update(AnswerMsg{RepoURL: repoURL, Answer: "Hello", Sources: []string{"a.go"}})
	m = updated.(Model)

	a := m.Answer()
	if a.Visible() != "" {
		t.Errorf("Visible() = %q, want empty before the first tick", a.Visible())
	}
	if a.VisibleSources() != nil {
		t.Error("sources must stay hidden while typing")
	}
	if strings.Contains(m.View(), "Source Files:") {
		t.Error("view must not list sources while typing")
	}
}

func TestQuery_BlankQuestionNoRequest(t *testing.T) {
	fb := newFake()
	m := ask(t, indexed(t, fb), "  \t ")
	if len(fb.queryCalls()) != 0 {
		t.Error("blank question should not issue a request")
	}
	if m.QueryForm().Loading() {
		t.Error("form should not be loading")
	}
}

func TestQuery_Failure(t *testing.T) {
	fb := newFake()
	fb.queryErr = errors.New("index not found")
	m := ask(t, indexed(t, fb), "What?")

	a := m.Answer()
	want := "An error occurred: index not found. Please check the console or try again."
	if a.Text() != want {
		t.Errorf("Text() = %q, want %q", a.Text(), want)
	}
	if a.Err() == nil {
		t.Error("Err() should be set")
	}
	if a.Sources() == nil || len(a.Sources()) != 0 {
		t.Errorf("Sources() = %#v, want empty slice", a.Sources())
	}
	if m.QueryForm().Value() != "What?" {
		t.Error("failed question should stay in the input")
	}
}

func TestQuery_IgnoredWhileLoading(t *testing.T) {
	fb := newFake()
	m := indexed(t, fb)
	m.queryForm.SetValue("first?")

	updated, first := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	updated, second := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	if second != nil {
		t.Error("second submit while loading should return no command")
	}
	for _, msg := range run(first) {
		m = send(t, m, msg)
	}
	if len(fb.queryCalls()) != 1 {
		t.Errorf("got %d queries, want 1", len(fb.queryCalls()))
	}
}

func TestAnswer_ReplacementRestartsFromEmpty(t *testing.T) {
	m := indexed(t, newFake())

	updated, cmd := m.Update(AnswerMsg{RepoURL: repoURL, Answer: "first answer"})
	m = updated.(Model)
	stale := run(cmd)
	for _, msg := range stale {
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}
	if m.Answer().Visible() != "f" {
		t.Fatalf("Visible() = %q, want f", m.Answer().Visible())
	}

	updated, _ = m.Update(AnswerMsg{RepoURL: repoURL, Answer: "second"})
	m = updated.(Model)
	if m.Answer().Visible() != "" {
		t.Errorf("Visible() = %q, want empty after replacement", m.Answer().Visible())
	}

	// The old chain's tick no longer advances anything.
	for _, msg := range stale {
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}
	if m.Answer().Visible() != "" {
		t.Errorf("stale tick advanced the new answer: %q", m.Answer().Visible())
	}
}

func TestAnswer_EmptyAnswerRendersNothing(t *testing.T) {
	m := indexed(t, newFake())
	m = send(t, m, AnswerMsg{RepoURL: repoURL, Answer: "", Sources: []string{"f1.js"}})
	if m.Answer().HasAnswer() {
		t.Error("an empty answer should not count as an answer")
	}
	if v := m.Answer().View(); v != "" {
		t.Errorf("View() = %q, want empty", v)
	}
	if m.Answer().VisibleSources() != nil {
		t.Error("sources of an empty answer should stay hidden")
	}
}

func TestAnswer_StaleRepoIgnored(t *testing.T) {
	m := indexed(t, newFake())
	m = send(t, m, AnswerMsg{RepoURL: "https://github.com/user/other", Answer: "x"})
	if m.Answer().HasAnswer() {
		t.Error("answer for another repository should be dropped")
	}
}

// =============================================================================
// KEYS
// =============================================================================

func TestKeys_SkipRevealsEverything(t *testing.T) {
	m := indexed(t, newFake())
	updated, _ := m.Update(AnswerMsg{RepoURL: repoURL, Answer: "a long answer", Sources: []string{"x.go"}})
	m = updated.(Model)

	updated, _ = m.Update(keyMsg(tea.KeyEsc))
	m = updated.(Model)
	if m.Answer().Visible() != "a long answer" || len(m.Answer().VisibleSources()) != 1 {
		t.Errorf("after Esc: %q %v", m.Answer().Visible(), m.Answer().VisibleSources())
	}
}

func TestKeys_QuitStopsTypewriter(t *testing.T) {
	m := indexed(t, newFake())
	updated, tick := m.Update(AnswerMsg{RepoURL: repoURL, Answer: "hello"})
	m = updated.(Model)

	updated, cmd := m.Update(keyMsg(tea.KeyCtrlC))
	m = updated.(Model)
	if !m.Quitting() || cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command should produce tea.QuitMsg")
	}

	for _, msg := range run(tick) {
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}
	if m.Answer().Visible() != "" {
		t.Errorf("typewriter kept going after quit: %q", m.Answer().Visible())
	}
	if m.View() != "" {
		t.Error("quitting model should render nothing")
	}
}

func TestKeys_CtrlQAlsoQuits(t *testing.T) {
	m := newTestModel(newFake())
	updated, _ := m.Update(keyMsg(tea.KeyCtrlQ))
	if !updated.(Model).Quitting() {
		t.Error("ctrl+q should quit")
	}
}

func TestKeys_TabCyclesFocus(t *testing.T) {
	m := newTestModel(newFake())
	if m.focus != focusRepoURL {
		t.Fatalf("initial focus = %v", m.focus)
	}

	updated, _ := m.Update(keyMsg(tea.KeyTab))
	m = updated.(Model)
	if m.focus != focusBranch {
		t.Errorf("focus = %v, want branch", m.focus)
	}
	updated, _ = m.Update(keyMsg(tea.KeyTab))
	m = updated.(Model)
	if m.focus != focusRepoURL {
		t.Errorf("question must not take focus before indexing, got %v", m.focus)
	}

	m = indexed(t, newFake())
	updated, _ = m.Update(keyMsg(tea.KeyTab))
	m = updated.(Model)
	if m.focus != focusRepoURL {
		t.Errorf("tab from question should wrap to URL, got %v", m.focus)
	}
	updated, _ = m.Update(keyMsg(tea.KeyShiftTab))
	m = updated.(Model)
	if m.focus != focusQuestion {
		t.Errorf("shift+tab from URL should reach question, got %v", m.focus)
	}
}

func TestKeys_NewRepoClearsState(t *testing.T) {
	m := ask(t, indexed(t, newFake()), "What?")
	m = send(t, m, keyMsg(tea.KeyCtrlN))

	if m.RepoURL() != "" || m.RepoName() != "" {
		t.Error("ctrl+n should clear the repository")
	}
	if m.Answer().HasAnswer() || m.Answer().Sources() != nil {
		t.Error("ctrl+n should clear the answer and sources")
	}
	if m.focus != focusRepoURL {
		t.Errorf("focus = %v, want URL", m.focus)
	}
}

// =============================================================================
// HISTORY, BACKEND STATUS AND CONFIG RELOAD
// =============================================================================

func TestHistory_RecordsSuccessfulAnswers(t *testing.T) {
	fb := newFake()
	h := &fakeHistory{}
	m := indexed(t, fb)
	m.SetHistory(h)

	m = ask(t, m, "What is this?")
	entries := h.list()
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Repo != "repo" || e.Question != "What is this?" || e.Answer != "A" || len(e.Sources) != 2 || e.K != 5 {
		t.Errorf("entry = %+v", e)
	}

	fb.queryErr = errors.New("down")
	ask(t, m, "Again?")
	if len(h.list()) != 1 {
		t.Error("failed queries should not be recorded")
	}
}

func TestHistory_DisabledInConfig(t *testing.T) {
	fb := newFake()
	cfg := testConfig()
	cfg.History.Enabled = false
	m := New(styles.NewThemeWithMode("dark"), fb, cfg)
	h := &fakeHistory{}
	m.SetHistory(h)

	m.repoForm.SetValue(repoURL)
	m = send(t, m, keyMsg(tea.KeyEnter))
	ask(t, m, "q?")
	if len(h.list()) != 0 {
		t.Error("history disabled, nothing should be recorded")
	}
}

func TestHistory_WriteFailureToasts(t *testing.T) {
	m := indexed(t, newFake())
	m.SetHistory(&fakeHistory{err: errors.New("disk full")})
	m = ask(t, m, "q?")

	toasts := m.Toasts()
	if len(toasts) != 1 || toasts[0].Message != "history write failed" {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestBackendStatus_Offline(t *testing.T) {
	fb := newFake()
	fb.health = backend.ErrNotRunning
	m := newTestModel(fb)

	m = send(t, m, CheckBackendCmd(context.Background(), fb)())
	if m.backendState != components.BackendOffline {
		t.Errorf("backendState = %v", m.backendState)
	}
	toasts := m.Toasts()
	if len(toasts) != 1 || !strings.Contains(toasts[0].Message, "backend offline at http://localhost:8000") {
		t.Errorf("toasts = %+v", toasts)
	}

	fb.health = nil
	m = send(t, m, CheckBackendCmd(context.Background(), fb)())
	if m.backendState != components.BackendOnline {
		t.Errorf("backendState = %v, want online", m.backendState)
	}
}

func TestConfigReload_Applies(t *testing.T) {
	fb := newFake()
	ch := make(chan ConfigReloadedMsg, 1)
	m := indexed(t, fb)
	m.SetConfigReloads(ch)

	cfg := testConfig()
	cfg.Query.K = 9
	cfg.UI.TypewriterIntervalMs = 2
	cfg.Backend.APIBaseURL = "http://rag.internal:9000"

	m = send(t, m, ConfigReloadedMsg{Config: cfg})

	if m.queryForm.k != 9 {
		t.Errorf("k = %d, want 9", m.queryForm.k)
	}
	if m.answer.tw.Interval() != 2*time.Millisecond {
		t.Errorf("interval = %v", m.answer.tw.Interval())
	}
	if fb.BaseURL() != "http://rag.internal:9000" {
		t.Errorf("BaseURL() = %q", fb.BaseURL())
	}

	var reloaded bool
	for _, toast := range m.Toasts() {
		if toast.Message == "config reloaded" {
			reloaded = true
		}
	}
	if !reloaded {
		t.Errorf("toasts = %+v", m.Toasts())
	}

	ask(t, m, "q?")
	if calls := fb.queryCalls(); len(calls) != 1 || calls[0].k != 9 {
		t.Errorf("queries = %+v", calls)
	}
}

func TestConfigReload_ErrorToasts(t *testing.T) {
	m := newTestModel(newFake())
	m = send(t, m, ConfigReloadedMsg{Err: errors.New("bad toml")})
	toasts := m.Toasts()
	if len(toasts) != 1 || !strings.Contains(toasts[0].Message, "bad toml") {
		t.Errorf("toasts = %+v", toasts)
	}
	if m.cfg.Query.K != 5 {
		t.Error("a failed reload must keep the old config")
	}
}

func TestWaitForConfigReload(t *testing.T) {
	if WaitForConfigReload(nil) != nil {
		t.Error("nil channel should give nil command")
	}
	ch := make(chan ConfigReloadedMsg, 1)
	ch <- ConfigReloadedMsg{Err: errors.New("x")}
	if _, ok := WaitForConfigReload(ch)().(ConfigReloadedMsg); !ok {
		t.Error("expected ConfigReloadedMsg")
	}
	close(ch)
	if WaitForConfigReload(ch)() != nil {
		t.Error("closed channel should give nil message")
	}
}

// =============================================================================
// VIEW
// =============================================================================

func TestView_Steps(t *testing.T) {
	m := newTestModel(newFake())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"GitHub Repo RAG Assistant", "Step 1: Enter GitHub Repo", "Build RAG Index"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "Step 2: Ask a Question") {
		t.Error("step 2 should be hidden before indexing")
	}

	m = indexed(t, newFake())
	view = m.View()
	if !strings.Contains(view, "Step 2: Ask a Question") || !strings.Contains(view, "Ask") {
		t.Error("step 2 should show after indexing")
	}
}
