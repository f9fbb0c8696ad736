// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/repochat/internal/ui/components"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders header, the two steps, the answer, toasts and the help bar.
// Step 2 only appears once a repository is indexed.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	t := m.theme

	var sections []string
	sections = append(sections, m.header.View())

	sections = append(sections, t.StepHeading.Render("Step 1: Enter GitHub Repo"))
	sections = append(sections, m.repoForm.View())

	if m.repoURL != "" {
		sections = append(sections, t.StepHeading.Render("Step 2: Ask a Question"))
		sections = append(sections, m.queryForm.View())
	}

	if answer := m.answer.View(); answer != "" {
		sections = append(sections, answer)
	}

	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		sections = append(sections, components.RenderToastStack(toasts, m.width))
	}

	m.helpBar.SetShortcuts(m.keys.shortcuts(m.repoURL != "", m.answer.IsRevealing())...)
	sections = append(sections, m.helpBar.View())

	return t.App.Render(strings.Join(sections, "\n"))
}
