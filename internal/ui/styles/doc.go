// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the repochat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The theme can also be forced with the ui.theme config key.

# Colors (colors.go)

  - Purple - answer box, spinners
  - Cyan - step headings and the focused input
  - Emerald - success and the indexed repository badge
  - Amber - warnings
  - Rose - errors

Status text always carries an ASCII indicator ([OK], [X], [!], [i]) so that
it reads the same without color.

# Theme (theme.go)

	theme := styles.NewThemeWithMode(cfg.UI.Theme)
	theme.SetSize(msg.Width, msg.Height)
	box := theme.AnswerBox.Width(theme.ContentWidth())

# Animations (animations.go)

Spinner frame sets, the typewriter cursor and its default interval, and the
tree connectors used by the sources list.
*/
package styles
