// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/repochat/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the assistant.
type KeyMap struct {
	Submit    key.Binding
	NextField key.Binding
	PrevField key.Binding
	Skip      key.Binding
	NewRepo   key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev field"),
		),
		Skip: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "skip typing"),
		),
		NewRepo: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new repo"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the help bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextField, k.Skip, k.NewRepo, k.Quit}
}

// shortcuts converts the relevant bindings for the help bar. Skip only
// shows while an answer is typing, and new repo once one is indexed.
func (k KeyMap) shortcuts(hasRepo, revealing bool) []components.Shortcut {
	var out []components.Shortcut
	for _, b := range k.ShortHelp() {
		switch b.Help().Key {
		case k.Skip.Help().Key:
			if !revealing {
				continue
			}
		case k.NewRepo.Help().Key:
			if !hasRepo {
				continue
			}
		}
		out = append(out, components.Shortcut{Key: b.Help().Key, Desc: b.Help().Desc})
	}
	return out
}
