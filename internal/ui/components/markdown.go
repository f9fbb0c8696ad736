// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders finished answers with glamour. Building a
// TermRenderer is expensive, so one is kept per word-wrap width.
type MarkdownRenderer struct {
	mu       sync.Mutex
	theme    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for theme "dark", "light" or "auto".
func NewMarkdownRenderer(theme string) *MarkdownRenderer {
	return &MarkdownRenderer{theme: strings.ToLower(theme)}
}

func (m *MarkdownRenderer) styleOption() glamour.TermRendererOption {
	switch m.theme {
	case "dark", "light":
		return glamour.WithStandardStyle(m.theme)
	default:
		return glamour.WithAutoStyle()
	}
}

// Render renders md wrapped at width. On failure the input is returned
// unchanged along with the error, so callers can always display something.
func (m *MarkdownRenderer) Render(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			m.styleOption(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md, err
		}
		m.renderer = r
		m.width = width
	}

	out, err := m.renderer.Render(md)
	if err != nil {
		return md, err
	}
	return strings.Trim(out, "\n"), nil
}
