// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// LineSpinner - Simple line rotation, used while building and thinking
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// =============================================================================
// TYPEWRITER
// =============================================================================

// TypingCursor is drawn after the revealed prefix while an answer is typing.
const TypingCursor = "_"

// DefaultTypewriterInterval is the delay between revealed characters.
const DefaultTypewriterInterval = 20 * time.Millisecond

// =============================================================================
// TREE CONNECTORS
// =============================================================================

// TreeChars for rendering the sources list (ASCII-safe)
var TreeChars = struct {
	Tee    string
	Corner string
	Dash   string
}{
	Tee:    "+",
	Corner: "`",
	Dash:   "-",
}

// RenderTreeLine creates a tree line prefix.
// isLast: true if this is the last item in the list
func RenderTreeLine(isLast bool) string {
	if isLast {
		return TreeChars.Corner + TreeChars.Dash + " "
	}
	return TreeChars.Tee + TreeChars.Dash + " "
}
