// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat/internal/ui/styles"
)

// =============================================================================
// HELP BAR COMPONENT
// =============================================================================

// Shortcut is one key hint in the help bar.
type Shortcut struct {
	Key  string
	Desc string
}

// HelpBar renders key hints along the bottom of the screen. Hints that do
// not fit are dropped from the end.
type HelpBar struct {
	Shortcuts []Shortcut
	Width     int
	theme     *styles.Theme
}

// NewHelpBar creates a help bar.
func NewHelpBar(theme *styles.Theme, shortcuts ...Shortcut) *HelpBar {
	return &HelpBar{Shortcuts: shortcuts, Width: 80, theme: theme}
}

// SetShortcuts replaces the hints.
func (b *HelpBar) SetShortcuts(shortcuts ...Shortcut) {
	b.Shortcuts = shortcuts
}

// SetWidth updates the available width.
func (b *HelpBar) SetWidth(width int) {
	b.Width = width
}

// View renders "tab switch  enter submit  ctrl+c quit".
func (b *HelpBar) View() string {
	if len(b.Shortcuts) == 0 {
		return ""
	}

	sep := "  "
	var parts []string
	used := 0
	for _, s := range b.Shortcuts {
		part := b.theme.ShortcutKey.Render(s.Key) + " " + b.theme.ShortcutDesc.Render(s.Desc)
		w := lipgloss.Width(part)
		if len(parts) > 0 {
			w += len(sep)
		}
		if b.Width > 0 && used+w > b.Width-2 {
			break
		}
		parts = append(parts, part)
		used += w
	}
	return b.theme.HelpBar.Render(strings.Join(parts, sep))
}
