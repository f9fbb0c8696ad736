// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across repochat.
//
// File Operations:
//   - AtomicWriteFile: temp file, fsync, rename
//
// Text:
//   - TruncateWidth: display-width truncation with an ellipsis
//   - PadRight: pad to a display width
//   - OneLine: collapse whitespace onto one line
//
// Width calculations go through github.com/mattn/go-runewidth so that
// wide characters in file paths and answers line up in the terminal.
package util
