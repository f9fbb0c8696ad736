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

// =============================================================================
// QUERY FORM
// =============================================================================

// QueryForm asks a question about the indexed repository.
type QueryForm struct {
	input   textinput.Model
	focused bool
	loading bool
	k       int

	spinner components.Spinner

	client Backend
	ctx    context.Context

	theme *styles.Theme
	width int
}

// NewQueryForm creates the step 2 form.
func NewQueryForm(ctx context.Context, theme *styles.Theme, client Backend) QueryForm {
	input := textinput.New()
	input.Placeholder = "e.g., What is the main purpose of this library?"
	input.Prompt = "? "
	input.CharLimit = 4096

	return QueryForm{
		input:   input,
		k:       backend.DefaultK,
		spinner: components.NewSpinner("Thinking"),
		client:  client,
		ctx:     ctx,
		theme:   theme,
		width:   80,
	}
}

// SetK sets how many chunks the backend retrieves per question.
func (f *QueryForm) SetK(k int) {
	if k > 0 {
		f.k = k
	}
}

// SetWidth updates the available width.
func (f *QueryForm) SetWidth(width int) {
	f.width = width
	inner := width - 8
	if inner < 20 {
		inner = 20
	}
	f.input.Width = inner
}

// Focus focuses the question input.
func (f *QueryForm) Focus() tea.Cmd {
	f.focused = true
	return f.input.Focus()
}

// Blur removes focus.
func (f *QueryForm) Blur() {
	f.focused = false
	f.input.Blur()
}

// Focused reports whether the input has focus.
func (f QueryForm) Focused() bool {
	return f.focused
}

// Value returns the question as typed.
func (f QueryForm) Value() string {
	return f.input.Value()
}

// SetValue replaces the question text.
func (f *QueryForm) SetValue(s string) {
	f.input.SetValue(s)
}

// Loading reports whether a query is in flight.
func (f QueryForm) Loading() bool {
	return f.loading
}

// Reset clears the question.
func (f *QueryForm) Reset() {
	f.input.Reset()
}

// Submit asks the typed question about repoURL. Blank questions and submits
// while a query is in flight issue no request.
func (f *QueryForm) Submit(repoURL string) tea.Cmd {
	if f.loading {
		return nil
	}
	question := strings.TrimSpace(f.input.Value())
	if question == "" {
		return nil
	}

	f.loading = true
	return tea.Batch(
		f.spinner.Start(),
		queryCmd(f.ctx, f.client, repoURL, question, f.k),
	)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles query results, spinner ticks and typing.
func (f QueryForm) Update(msg tea.Msg) (QueryForm, tea.Cmd) {
	switch msg := msg.(type) {
	case queryResultMsg:
		f.loading = false
		f.spinner.Stop()

		answer := AnswerMsg{
			RepoURL:  msg.RepoURL,
			Question: msg.Question,
			K:        msg.K,
			Elapsed:  msg.Elapsed,
		}
		if msg.Err != nil {
			answer.Answer = "An error occurred: " + backend.Describe(msg.Err) + ". Please check the console or try again."
			answer.Sources = []string{}
			answer.Err = msg.Err
			return f, emit(answer)
		}

		f.input.Reset()
		answer.Sources = []string{}
		if msg.Resp != nil {
			answer.Answer = msg.Resp.Answer
			answer.Sources = append(answer.Sources, msg.Resp.SourceChunks...)
		}
		return f, emit(answer)

	case tea.KeyMsg:
		if !f.focused {
			return f, nil
		}
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return f, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	f.spinner, cmd = f.spinner.Update(msg)
	cmds = append(cmds, cmd)
	f.input, cmd = f.input.Update(msg)
	cmds = append(cmds, cmd)
	return f, tea.Batch(cmds...)
}

// View renders the input and the ask button.
func (f QueryForm) View() string {
	t := f.theme

	var b strings.Builder
	b.WriteString(f.input.View())
	b.WriteString("\n\n")

	switch {
	case f.loading:
		b.WriteString(t.ButtonDisabled.Render("Thinking..."))
		b.WriteString("  ")
		b.WriteString(f.spinner.View())
	case f.focused:
		b.WriteString(t.ButtonFocused.Render("Ask"))
	default:
		b.WriteString(t.Button.Render("Ask"))
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
