// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME TESTS
// =============================================================================

func TestNewThemeWithMode(t *testing.T) {
	dark := NewThemeWithMode("dark")
	if !dark.IsDark {
		t.Error("dark mode should set IsDark")
	}
	light := NewThemeWithMode("LIGHT")
	if light.IsDark {
		t.Error("light mode should clear IsDark")
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme()

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"StepHeading", theme.StepHeading},
		{"FormBox", theme.FormBox},
		{"FormBoxFocused", theme.FormBoxFocused},
		{"AnswerBox", theme.AnswerBox},
		{"SourceItem", theme.SourceItem},
		{"HelpBar", theme.HelpBar},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style should render its content", s.name)
		}
	}
}

func TestThemeLayout(t *testing.T) {
	theme := NewTheme()

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}

	theme.SetSize(10, 10)
	if theme.ContentWidth() != 20 {
		t.Errorf("ContentWidth() = %d, want minimum 20", theme.ContentWidth())
	}
	theme.SetSize(86, 30)
	if theme.ContentWidth() != 80 {
		t.Errorf("ContentWidth() = %d, want 80", theme.ContentWidth())
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestRenderHelpersIncludeIndicators(t *testing.T) {
	tests := []struct {
		got       string
		indicator string
	}{
		{RenderSuccess("built"), "[OK]"},
		{RenderError("failed"), "[X]"},
		{RenderWarning("offline"), "[!]"},
		{RenderInfo("reloaded"), "[i]"},
		{RenderStatus(true, "ok"), "[OK]"},
		{RenderStatus(false, "no"), "[X]"},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.indicator) {
			t.Errorf("%q should contain %q", tt.got, tt.indicator)
		}
	}
}

func TestSpinnerConfigDuration(t *testing.T) {
	if got := LineSpinner.Duration(); got != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v, want 100ms", got)
	}
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("zero FPS Duration() = %v, want 1s", got)
	}
}

func TestRenderTreeLine(t *testing.T) {
	if got := RenderTreeLine(false); got != "+- " {
		t.Errorf("RenderTreeLine(false) = %q", got)
	}
	if got := RenderTreeLine(true); got != "`- " {
		t.Errorf("RenderTreeLine(true) = %q", got)
	}
}
