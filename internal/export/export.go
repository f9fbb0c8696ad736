// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/repochat/internal/storage"
	"github.com/jeranaias/repochat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for history exporters.
type Exporter interface {
	// Export converts history entries to the target format.
	Export(entries []storage.Entry) ([]byte, error)

	// FileExtension returns the file extension, such as ".md".
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where generated file names are placed (default ".").
	OutputDir string

	// OutputPath overrides the generated name when set.
	OutputPath string

	// IncludeMetadata adds a front matter block and per-entry details.
	IncludeMetadata bool

	// IncludeTimestamps adds the time each question was answered.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for "md" (or "markdown") and "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want md or json)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports entries with exporter and returns the written path.
func ExportToFile(entries []storage.Entry, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(entries)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		filename := fmt.Sprintf("repochat_%s_%s%s",
			sanitizeFilename(subject(entries)),
			time.Now().Format("20060102_150405"),
			exporter.FileExtension(),
		)
		outputPath = filepath.Join(dir, filename)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// subject names an export after its repository when every entry shares one.
func subject(entries []storage.Entry) string {
	if len(entries) == 0 {
		return "history"
	}
	repo := entries[0].Repo
	for _, e := range entries[1:] {
		if e.Repo != repo {
			return "history"
		}
	}
	if repo == "" {
		return "history"
	}
	return repo
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "history"
	}
	return string(result)
}

// formatDuration formats milliseconds as "850ms", "2.50s" or "1m 5s".
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return fmt.Sprintf("%dm %ds", int(seconds/60), int(seconds)%60)
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
