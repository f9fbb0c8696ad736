// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat/internal/ui/styles"
	"github.com/jeranaias/repochat/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// BackendState is the last known reachability of the RAG backend.
type BackendState int

const (
	BackendUnknown BackendState = iota
	BackendOnline
	BackendOffline
)

// String returns the display string for the state.
func (s BackendState) String() string {
	switch s {
	case BackendOnline:
		return "online"
	case BackendOffline:
		return "offline"
	default:
		return "checking"
	}
}

// Header is the title bar: application title, the active repository badge
// and the backend status.
type Header struct {
	Title   string
	Repo    string // repo name of the last successful build, "" before any
	BaseURL string
	Backend BackendState
	Width   int
	theme   *styles.Theme
}

// NewHeader creates a header titled "GitHub Repo RAG Assistant".
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "GitHub Repo RAG Assistant",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetRepo sets the repository badge.
func (h *Header) SetRepo(name string) {
	h.Repo = name
}

// SetBackend records the backend URL and reachability.
func (h *Header) SetBackend(baseURL string, state BackendState) {
	h.BaseURL = baseURL
	h.Backend = state
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}
	inner := width - 4

	title := h.theme.HeaderTitle.Render(h.Title)
	if h.Repo != "" {
		title += " " + h.theme.RepoBadge.Render(util.TruncateWidth(h.Repo, 24))
	}

	var status string
	switch h.Backend {
	case BackendOnline:
		status = styles.RenderSuccess("backend")
	case BackendOffline:
		status = styles.RenderError("backend offline")
	default:
		status = lipgloss.NewStyle().Foreground(styles.TextMuted).Render(styles.StatusIndicators.Pending + " backend")
	}

	line := title
	gap := inner - lipgloss.Width(title) - lipgloss.Width(status)
	if gap >= 2 {
		line += strings.Repeat(" ", gap) + status
	} else {
		line += "\n" + status
	}

	sub := ""
	if h.BaseURL != "" {
		sub = "\n" + h.theme.HeaderSubtitle.Render(util.TruncateWidth(h.BaseURL, inner))
	}

	return h.theme.Header.Width(width).Render(line + sub)
}
