// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports history as a JSON document. The entries are always
// complete; options only control the envelope.
type JSONExporter struct {
	options *Options
}

// jsonDocument is the exported envelope.
type jsonDocument struct {
	Generator string          `json:"generator,omitempty"`
	Exported  *time.Time      `json:"exported,omitempty"`
	Count     int             `json:"count"`
	Entries   []storage.Entry `json:"entries"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts entries to indented JSON. An empty history exports as an
// empty list.
func (e *JSONExporter) Export(entries []storage.Entry) ([]byte, error) {
	if entries == nil {
		entries = []storage.Entry{}
	}
	doc := jsonDocument{Count: len(entries), Entries: entries}
	if e.options.IncludeMetadata {
		now := time.Now().UTC()
		doc.Generator = "repochat"
		doc.Exported = &now
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
