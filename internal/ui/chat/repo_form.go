// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/ui/components"
	"github.com/jeranaias/repochat/internal/ui/styles"
)

// Status lines shown under the repo form.
const (
	statusEmptyRepoURL = "Please enter a repository URL."
	statusIndexBuilt   = "FAISS index built successfully! You can now ask questions."
	statusBuildFailed  = "Error building index: "
)

// =============================================================================
// REPO FORM
// =============================================================================

type repoField int

const (
	fieldURL repoField = iota
	fieldBranch
)

// RepoForm asks for a repository URL (and optionally a branch) and builds
// its index. At most one build is in flight per form.
type RepoForm struct {
	url    textinput.Model
	branch textinput.Model
	field  repoField

	focused bool
	loading bool
	status  string
	isError bool

	spinner components.Spinner

	client Backend
	ctx    context.Context
	opts   backend.BuildOptions

	theme *styles.Theme
	width int
}

// NewRepoForm creates the step 1 form.
func NewRepoForm(ctx context.Context, theme *styles.Theme, client Backend) RepoForm {
	url := textinput.New()
	url.Placeholder = "https://github.com/user/repo"
	url.Prompt = "> "
	url.CharLimit = 2048

	branch := textinput.New()
	branch.Placeholder = "default branch"
	branch.Prompt = "branch: "
	branch.CharLimit = 255

	return RepoForm{
		url:     url,
		branch:  branch,
		spinner: components.NewSpinner("Building"),
		client:  client,
		ctx:     ctx,
		opts: backend.BuildOptions{
			ChunkSize:    backend.DefaultChunkSize,
			ChunkOverlap: backend.DefaultChunkOverlap,
		},
		theme: theme,
		width: 80,
	}
}

// SetBuildOptions sets the chunk parameters and the branch used when the
// branch input is blank.
func (f *RepoForm) SetBuildOptions(opts backend.BuildOptions) {
	f.opts = opts
}

// SetWidth updates the available width.
func (f *RepoForm) SetWidth(width int) {
	f.width = width
	inner := width - 8
	if inner < 20 {
		inner = 20
	}
	f.url.Width = inner
	f.branch.Width = inner
}

// =============================================================================
// FOCUS
// =============================================================================

// FocusURL focuses the URL input.
func (f *RepoForm) FocusURL() tea.Cmd {
	f.focused = true
	f.field = fieldURL
	f.branch.Blur()
	return f.url.Focus()
}

// FocusBranch focuses the branch input.
func (f *RepoForm) FocusBranch() tea.Cmd {
	f.focused = true
	f.field = fieldBranch
	f.url.Blur()
	return f.branch.Focus()
}

// Blur removes focus from both inputs.
func (f *RepoForm) Blur() {
	f.focused = false
	f.url.Blur()
	f.branch.Blur()
}

// Focused reports whether either input has focus.
func (f RepoForm) Focused() bool {
	return f.focused
}

// =============================================================================
// STATE
// =============================================================================

// Value returns the URL as typed.
func (f RepoForm) Value() string {
	return f.url.Value()
}

// SetValue replaces the URL input text.
func (f *RepoForm) SetValue(s string) {
	f.url.SetValue(s)
}

// SetBranch replaces the branch input text.
func (f *RepoForm) SetBranch(s string) {
	f.branch.SetValue(s)
}

// Loading reports whether a build is in flight.
func (f RepoForm) Loading() bool {
	return f.loading
}

// Status returns the status line and whether it describes an error.
func (f RepoForm) Status() (string, bool) {
	return f.status, f.isError
}

// Reset clears the inputs and status. An in-flight build still completes.
func (f *RepoForm) Reset() {
	f.url.Reset()
	f.branch.Reset()
	f.status = ""
	f.isError = false
}

// Submit starts a build for the typed URL. It does nothing while a build is
// in flight, and reports a blank URL without issuing a request.
func (f *RepoForm) Submit() tea.Cmd {
	if f.loading {
		return nil
	}

	url := strings.TrimSpace(f.url.Value())
	if url == "" {
		f.status = statusEmptyRepoURL
		f.isError = true
		return nil
	}

	opts := f.opts
	if b := strings.TrimSpace(f.branch.Value()); b != "" {
		opts.Branch = b
	}

	f.loading = true
	f.status = ""
	f.isError = false
	return tea.Batch(
		f.spinner.Start(),
		buildIndexCmd(f.ctx, f.client, url, opts),
	)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles build results, spinner ticks and typing in the focused input.
func (f RepoForm) Update(msg tea.Msg) (RepoForm, tea.Cmd) {
	switch msg := msg.(type) {
	case buildResultMsg:
		f.loading = false
		f.spinner.Stop()
		if msg.Err != nil {
			f.status = statusBuildFailed + backend.Describe(msg.Err)
			f.isError = true
			return f, nil
		}
		f.status = statusIndexBuilt
		f.isError = false

		indexed := RepoIndexedMsg{RepoURL: msg.RepoURL, Repo: backend.RepoName(msg.RepoURL)}
		if msg.Resp != nil {
			if msg.Resp.Repo != "" {
				indexed.Repo = msg.Resp.Repo
			}
			indexed.IndexPath = msg.Resp.IndexPath
		}
		return f, emit(indexed)

	case tea.KeyMsg:
		// The inputs are read-only while a build is in flight.
		if !f.focused || f.loading {
			return f, nil
		}
		var cmd tea.Cmd
		if f.field == fieldBranch {
			f.branch, cmd = f.branch.Update(msg)
		} else {
			f.url, cmd = f.url.Update(msg)
		}
		return f, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	f.spinner, cmd = f.spinner.Update(msg)
	cmds = append(cmds, cmd)
	f.url, cmd = f.url.Update(msg)
	cmds = append(cmds, cmd)
	f.branch, cmd = f.branch.Update(msg)
	cmds = append(cmds, cmd)
	return f, tea.Batch(cmds...)
}

// View renders the inputs, the build button and the status line.
func (f RepoForm) View() string {
	t := f.theme

	var b strings.Builder
	b.WriteString(f.url.View())
	b.WriteString("\n")
	b.WriteString(f.branch.View())
	b.WriteString("\n\n")

	switch {
	case f.loading:
		b.WriteString(t.ButtonDisabled.Render("Building..."))
		b.WriteString("  ")
		b.WriteString(f.spinner.View())
	case f.focused:
		b.WriteString(t.ButtonFocused.Render("Build RAG Index"))
	default:
		b.WriteString(t.Button.Render("Build RAG Index"))
	}

	if f.status != "" {
		b.WriteString("\n")
		if f.isError {
			b.WriteString(t.ErrorStyle.Render(f.status))
		} else {
			b.WriteString(t.SuccessStyle.Render(f.status))
		}
	}

	box := t.FormBox
	if f.focused {
		box = t.FormBoxFocused
	}
	width := f.width - 2
	if width < 24 {
		width = 24
	}
	return box.Width(width).Render(b.String())
}
