// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides question and answer history for repochat.
//
// Every answered question is stored in a SQLite database
// (~/.repochat/history.db) through the pure-Go modernc.org/sqlite driver.
// Entries carry a UUID, the repository, the question, the answer and the
// source files it cited.
//
// # Usage
//
//	store, err := storage.Open(config.HistoryDBPath())
//	defer store.Close()
//	store.MaxEntries = cfg.History.MaxEntries
//
//	err = store.Add(ctx, &storage.Entry{Repo: "repo", Question: q, Answer: a})
//	entries, err := store.List(ctx, storage.ListOptions{Limit: 20})
//	entry, err := store.Get(ctx, "3f2a")   // full ID or unique prefix
package storage
