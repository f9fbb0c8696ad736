// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the repochat TUI.

# Components

Typewriter (typewriter.go) reveals an answer one rune at a time on a
generation-guarded tea.Tick chain. It moves Idle -> Revealing -> Complete;
Start restarts from an empty prefix, Skip completes at once, and Stop
orphans the outstanding tick.

SourceList (sources.go) renders the files an answer was drawn from, each
annotated with the language chroma's lexer registry detects for it.

MarkdownRenderer (markdown.go) renders completed answers with glamour.

Spinner (spinner.go) wraps the bubbles spinner with a message and an
elapsed timer for "Building..." and "Thinking...".

ToastManager (error_toast.go) holds short-lived notices such as
"config reloaded".

# Usage

	tw := components.NewTypewriter(20 * time.Millisecond)
	cmd := tw.Start(resp.Answer)
	...
	case components.TypewriterTickMsg:
		m.tw, cmd = m.tw.Update(msg)
*/
package components
