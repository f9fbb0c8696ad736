// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/jeranaias/repochat/internal/ui/styles"
	"github.com/jeranaias/repochat/internal/util"
)

// =============================================================================
// SOURCE LANGUAGE DETECTION
// =============================================================================

// LanguageOf names the language of a source file from its path, using
// chroma's lexer registry ("src/app.go" -> "Go"). Unknown files give "".
func LanguageOf(sourcePath string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(sourcePath), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return ""
	}
	lexer := lexers.Match(name)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// =============================================================================
// SOURCES LIST
// =============================================================================

// SourceList renders the source files of an answer as a tree:
//
//	Source Files:
//	+- src/index.js (JavaScript)
//	`- README.md (markdown)
type SourceList struct {
	Sources      []string
	ShowLanguage bool
	Width        int
}

// Lines returns the plain (unstyled) rows, one per source, in order.
// Duplicates are kept: each row is one retrieved chunk.
func (l SourceList) Lines() []string {
	lines := make([]string, 0, len(l.Sources))
	for i, src := range l.Sources {
		prefix := styles.RenderTreeLine(i == len(l.Sources)-1)
		suffix := ""
		if l.ShowLanguage {
			if lang := LanguageOf(src); lang != "" {
				suffix = " (" + lang + ")"
			}
		}
		lines = append(lines, prefix+l.fit(src, prefix, suffix)+suffix)
	}
	return lines
}

// fit truncates src so the whole row stays within Width.
func (l SourceList) fit(src, prefix, suffix string) string {
	if l.Width <= 0 {
		return src
	}
	avail := l.Width - util.StringWidth(prefix) - util.StringWidth(suffix)
	if avail < 8 {
		avail = 8
	}
	return util.TruncateWidth(src, avail)
}

// View renders the styled list with its "Source Files:" title.
// An empty list renders nothing.
func (l SourceList) View(theme *styles.Theme) string {
	if len(l.Sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.SourcesTitle.Render("Source Files:"))
	for i, src := range l.Sources {
		prefix := styles.RenderTreeLine(i == len(l.Sources)-1)
		suffix := ""
		if l.ShowLanguage {
			if lang := LanguageOf(src); lang != "" {
				suffix = " (" + lang + ")"
			}
		}
		b.WriteString("\n")
		b.WriteString(theme.ShortcutDesc.Render(prefix))
		b.WriteString(theme.SourceItem.Render(l.fit(src, prefix, suffix)))
		if suffix != "" {
			b.WriteString(theme.SourceLang.Render(suffix))
		}
	}
	return b.String()
}
