// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive assistant view for repochat.

The package implements the two-step flow of the assistant on top of the
Bubble Tea framework: index a repository, then ask questions about it.

# Key Components

## Model (model.go, update.go, view.go)

The root model owns both forms and the answer view, and keeps the active
repository URL. It replaces its state wholesale on RepoIndexedMsg and
AnswerMsg, records answers into history, and shows toasts for background
notices such as an offline backend or a reloaded config file.

## RepoForm (repo_form.go)

Step 1. A URL input with an optional branch, the "Build RAG Index" button
and an inline status line. Emits RepoIndexedMsg after a successful build.

## QueryForm (query_form.go)

Step 2. A question input. Emits AnswerMsg with either the answer and its
sources or an error message in place of the answer.

## AnswerView (answer.go)

Types the answer out with a components.Typewriter, then renders it as
Markdown and lists the source files.

# Concurrency

Everything runs on the Bubble Tea event loop. Network calls are tea.Cmd
functions (commands.go); each form tracks its single in-flight request with
a loading flag and ignores submits until the result arrives.

# Usage

	m := chat.New(theme, client, cfg)
	m.SetHistory(store)
	p := tea.NewProgram(m, tea.WithAltScreen())
*/
package chat
