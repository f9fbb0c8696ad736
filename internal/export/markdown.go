// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports history to Markdown: one section per question,
// the answer verbatim, then its source files.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts entries to Markdown.
func (e *MarkdownExporter) Export(entries []storage.Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, errors.New("history is empty")
	}

	var sb strings.Builder
	title := subject(entries)

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(title)))
		sb.WriteString(fmt.Sprintf("entries: %d\n", len(entries)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: repochat\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title)))

	for i := range entries {
		entry := &entries[i]

		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdown(strings.TrimSpace(entry.Question))))

		if e.options.IncludeMetadata || e.options.IncludeTimestamps {
			if meta := e.formatEntryMeta(entry); meta != "" {
				sb.WriteString(meta)
				sb.WriteString("\n\n")
			}
		}

		sb.WriteString(strings.TrimSpace(entry.Answer))
		sb.WriteString("\n\n")

		if len(entry.Sources) > 0 {
			sb.WriteString("**Source Files:**\n\n")
			for _, src := range entry.Sources {
				sb.WriteString(fmt.Sprintf("- `%s`\n", src))
			}
			sb.WriteString("\n")
		}

		if i < len(entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from repochat on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// formatEntryMeta renders "<sub>repo | 2025-03-01 09:30:00 | k=5 | 1.20s</sub>".
func (e *MarkdownExporter) formatEntryMeta(entry *storage.Entry) string {
	var parts []string
	if e.options.IncludeMetadata {
		if entry.Repo != "" {
			parts = append(parts, entry.Repo)
		}
	}
	if e.options.IncludeTimestamps && !entry.CreatedAt.IsZero() {
		parts = append(parts, formatTimestamp(entry.CreatedAt))
	}
	if e.options.IncludeMetadata {
		if entry.K > 0 {
			parts = append(parts, fmt.Sprintf("k=%d", entry.K))
		}
		if entry.DurationMs > 0 {
			parts = append(parts, formatDuration(entry.DurationMs))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "<sub>" + strings.Join(parts, " | ") + "</sub>"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a front matter value when it contains special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
