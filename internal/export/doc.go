// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes question and answer history to Markdown or JSON.
//
// # Usage
//
//	exporter, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(entries, exporter, opts)
package export
