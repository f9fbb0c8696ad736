// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/ui/components"
	"github.com/jeranaias/repochat/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// focusArea is the input that receives typing.
type focusArea int

const (
	focusRepoURL focusArea = iota
	focusBranch
	focusQuestion
)

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the Bubble Tea model for the whole assistant: step 1 builds an
// index for a repository, step 2 asks questions about it.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config

	client  Backend
	history HistoryWriter

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int

	header  *components.Header
	helpBar *components.HelpBar
	toasts  *components.ToastManager
	keys    KeyMap

	repoForm  RepoForm
	queryForm QueryForm
	answer    AnswerView

	// Active repository; empty until a build succeeds.
	repoURL  string
	repoName string

	focus focusArea

	backendState components.BackendState
	toastTicking bool
	reloads      <-chan ConfigReloadedMsg
	quitting     bool
}

// New creates the root model. cfg may be nil, in which case defaults apply.
func New(theme *styles.Theme, client Backend, cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		theme:     theme,
		cfg:       cfg,
		client:    client,
		ctx:       ctx,
		cancel:    cancel,
		header:    components.NewHeader(theme),
		helpBar:   components.NewHelpBar(theme),
		toasts:    components.NewToastManager(),
		keys:      DefaultKeyMap(),
		repoForm:  NewRepoForm(ctx, theme, client),
		queryForm: NewQueryForm(ctx, theme, client),
		answer:    NewAnswerView(theme, typewriterInterval(cfg), components.NewMarkdownRenderer(cfg.UI.Theme)),
	}
	m.applyConfig(cfg)
	m.repoForm.FocusURL()
	if client != nil {
		m.header.SetBackend(client.BaseURL(), components.BackendUnknown)
	}
	return m
}

// SetHistory enables recording of answered questions.
func (m *Model) SetHistory(h HistoryWriter) {
	m.history = h
}

// SetConfigReloads subscribes the model to reloaded configs.
func (m *Model) SetConfigReloads(ch <-chan ConfigReloadedMsg) {
	m.reloads = ch
}

// applyConfig pushes config values into the components.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.repoForm.SetBuildOptions(backend.BuildOptions{
		Branch:       cfg.Backend.DefaultBranch,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	})
	m.queryForm.SetK(cfg.Query.K)
	m.answer.SetInterval(typewriterInterval(cfg))
	m.answer.SetRenderMarkdown(cfg.UI.RenderMarkdown)
	m.answer.SetShowLanguage(cfg.UI.ShowSourceLanguage)
}

func typewriterInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.UI.TypewriterIntervalMs) * time.Millisecond
}

// Init starts the cursor blink, the backend health check and the config
// reload listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		CheckBackendCmd(m.ctx, m.client),
		WaitForConfigReload(m.reloads),
	)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// RepoURL returns the active repository, or "" before a successful build.
func (m Model) RepoURL() string {
	return m.repoURL
}

// RepoName returns the backend's name for the active repository.
func (m Model) RepoName() string {
	return m.repoName
}

// Answer returns the answer view.
func (m Model) Answer() AnswerView {
	return m.answer
}

// RepoForm returns the step 1 form.
func (m Model) RepoForm() RepoForm {
	return m.repoForm
}

// QueryForm returns the step 2 form.
func (m Model) QueryForm() QueryForm {
	return m.queryForm
}

// Toasts returns the visible notices.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}

// Quitting reports whether the model asked the program to exit.
func (m Model) Quitting() bool {
	return m.quitting
}
