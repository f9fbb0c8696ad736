// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/ui/components"
	"github.com/jeranaias/repochat/internal/ui/styles"
)

// =============================================================================
// ANSWER VIEW
// =============================================================================

// AnswerView types out the current answer and, once it is fully shown,
// lists the source files it was drawn from.
type AnswerView struct {
	tw       components.Typewriter
	question string
	sources  []string
	err      error

	md             *components.MarkdownRenderer
	renderMarkdown bool
	showLanguage   bool
	rendered       string

	theme *styles.Theme
	width int
}

// NewAnswerView creates an empty answer view.
func NewAnswerView(theme *styles.Theme, interval time.Duration, md *components.MarkdownRenderer) AnswerView {
	return AnswerView{
		tw:             components.NewTypewriter(interval),
		md:             md,
		renderMarkdown: md != nil,
		showLanguage:   true,
		theme:          theme,
		width:          80,
	}
}

// SetAnswer replaces the answer wholesale and starts typing it from an
// empty prefix.
func (a *AnswerView) SetAnswer(msg AnswerMsg) tea.Cmd {
	a.question = msg.Question
	a.err = msg.Err
	a.sources = append([]string{}, msg.Sources...)
	a.rendered = ""

	cmd := a.tw.Start(msg.Answer)
	a.renderIfComplete()
	return cmd
}

// Clear removes the answer and stops typing.
func (a *AnswerView) Clear() {
	a.tw.Reset()
	a.question = ""
	a.sources = nil
	a.err = nil
	a.rendered = ""
}

// Skip shows the rest of the answer at once.
func (a *AnswerView) Skip() {
	a.tw.Skip()
	a.renderIfComplete()
}

// Stop cancels the outstanding typewriter tick.
func (a *AnswerView) Stop() {
	a.tw.Stop()
}

// SetInterval changes the typing speed.
func (a *AnswerView) SetInterval(d time.Duration) {
	if d <= 0 || d == a.tw.Interval() {
		return
	}
	log.Printf("chat: typewriter interval %v -> %v", a.tw.Interval(), d)
	a.tw.SetInterval(d)
}

// SetRenderMarkdown toggles glamour rendering of completed answers.
func (a *AnswerView) SetRenderMarkdown(on bool) {
	a.renderMarkdown = on && a.md != nil
	a.rendered = ""
	a.renderIfComplete()
}

// SetShowLanguage toggles language annotations on source files.
func (a *AnswerView) SetShowLanguage(on bool) {
	a.showLanguage = on
}

// SetWidth updates the wrap width, re-rendering a completed answer.
func (a *AnswerView) SetWidth(width int) {
	if width == a.width {
		return
	}
	a.width = width
	a.rendered = ""
	a.renderIfComplete()
}

// renderIfComplete renders a finished, successful answer as Markdown.
// Errors are shown as plain text.
func (a *AnswerView) renderIfComplete() {
	if !a.renderMarkdown || a.err != nil || !a.tw.IsComplete() || a.tw.Text() == "" {
		return
	}
	out, err := a.md.Render(a.tw.Text(), a.contentWidth())
	if err != nil {
		log.Printf("chat: markdown render failed: %v", err)
		return
	}
	a.rendered = out
}

func (a *AnswerView) contentWidth() int {
	w := a.width - 6
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// ACCESSORS
// =============================================================================

// HasAnswer reports whether a non-empty answer (or error) is set.
func (a AnswerView) HasAnswer() bool {
	return a.tw.State() != components.TypewriterIdle && a.tw.Text() != ""
}

// Text returns the full answer.
func (a AnswerView) Text() string {
	return a.tw.Text()
}

// Visible returns the part of the answer typed so far.
func (a AnswerView) Visible() string {
	return a.tw.Visible()
}

// IsRevealing reports whether the answer is still typing.
func (a AnswerView) IsRevealing() bool {
	return a.tw.IsRevealing()
}

// IsComplete reports whether the whole answer is shown.
func (a AnswerView) IsComplete() bool {
	return a.tw.IsComplete()
}

// Err returns the query error, if the answer is an error message.
func (a AnswerView) Err() error {
	return a.err
}

// Sources returns the sources of the current answer.
func (a AnswerView) Sources() []string {
	return a.sources
}

// VisibleSources returns the sources once the answer is fully shown and
// nil before that.
func (a AnswerView) VisibleSources() []string {
	if !a.tw.IsComplete() || !a.HasAnswer() {
		return nil
	}
	return a.sources
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update advances the typewriter.
func (a AnswerView) Update(msg tea.Msg) (AnswerView, tea.Cmd) {
	var cmd tea.Cmd
	wasRevealing := a.tw.IsRevealing()
	a.tw, cmd = a.tw.Update(msg)
	if wasRevealing && a.tw.IsComplete() {
		a.renderIfComplete()
	}
	return a, cmd
}

// View renders the answer box. Nothing is drawn before the first answer.
func (a AnswerView) View() string {
	if !a.HasAnswer() {
		return ""
	}
	t := a.theme

	var b strings.Builder
	b.WriteString(t.AnswerHeading.Render("Answer"))
	b.WriteString("\n")

	switch {
	case a.rendered != "" && a.tw.IsComplete():
		b.WriteString(a.rendered)
	case a.err != nil:
		b.WriteString(t.ErrorStyle.Render(a.tw.Visible()))
	case a.tw.IsRevealing():
		b.WriteString(t.AnswerText.Render(a.tw.Visible()))
		b.WriteString(t.Cursor.Render(styles.TypingCursor))
	default:
		b.WriteString(t.AnswerText.Render(a.tw.Visible()))
	}

	if sources := a.VisibleSources(); len(sources) > 0 {
		b.WriteString("\n")
		list := components.SourceList{
			Sources:      sources,
			ShowLanguage: a.showLanguage,
			Width:        a.contentWidth(),
		}
		b.WriteString(list.View(t))
	}

	width := a.width - 2
	if width < 24 {
		width = 24
	}
	return t.AnswerBox.Width(width).Render(b.String())
}
