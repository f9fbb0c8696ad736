// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-interactive repochat commands.
//
// The TUI is the default; everything else is a one-shot command that reuses
// the same backend client, config and history store:
//
//	repochat build <url>              build the RAG index for a repository
//	repochat ask --repo <url> "q"     ask one question
//	repochat chat --repo <url>        line-mode REPL
//	repochat status                   backend health and local state
//	repochat history ...              list, show, export and clear answers
//	repochat config ...               show and edit the config file
//
// Human output goes to stderr with lipgloss styles; answers and --json
// output go to stdout so they can be piped. Errors map to exit codes in
// errors.go.
package cli
