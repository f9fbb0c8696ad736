// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HISTORY STORE TESTS
// =============================================================================

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addEntry(t *testing.T, s *HistoryStore, repo, question string, at time.Time) *Entry {
	t.Helper()
	e := &Entry{
		RepoURL:   "https://github.com/user/" + repo,
		Repo:      repo,
		Question:  question,
		Answer:    "answer to " + question,
		Sources:   []string{"src/index.js", "README.md"},
		K:         5,
		CreatedAt: at,
	}
	require.NoError(t, s.Add(context.Background(), e))
	return e
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestHistoryStore_AddAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := &Entry{Repo: "repo", RepoURL: "https://github.com/user/repo", Question: "What is this?", Answer: "A library."}
	require.NoError(t, s.Add(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Question, got.Question)
	assert.Equal(t, e.Answer, got.Answer)
	assert.Equal(t, []string{}, got.Sources)
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
}

func TestHistoryStore_SourcesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	e := addEntry(t, s, "repo", "q", time.Now())

	got, err := s.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js", "README.md"}, got.Sources)
	assert.Equal(t, 5, got.K)
}

func TestHistoryStore_GetByPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &Entry{ID: "abc-111", Repo: "r", Question: "q1"}
	b := &Entry{ID: "abd-222", Repo: "r", Question: "q2"}
	require.NoError(t, s.Add(ctx, a))
	require.NoError(t, s.Add(ctx, b))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-111", got.ID)

	_, err = s.Get(ctx, "ab")
	assert.True(t, errors.Is(err, ErrAmbiguousID), "err = %v", err)

	_, err = s.Get(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	_, err = s.Get(ctx, "")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestHistoryStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().Add(-time.Hour)
	addEntry(t, s, "repo", "first", base)
	addEntry(t, s, "repo", "second", base.Add(time.Minute))
	addEntry(t, s, "other", "third", base.Add(2*time.Minute))

	entries, err := s.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Question)
	assert.Equal(t, "first", entries[2].Question)
}

func TestHistoryStore_ListFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	addEntry(t, s, "repo", "How is auth done?", now)
	addEntry(t, s, "repo", "Where are tests?", now.Add(time.Second))
	addEntry(t, s, "other", "How is auth configured?", now.Add(2*time.Second))

	byRepo, err := s.List(ctx, ListOptions{Repo: "repo"})
	require.NoError(t, err)
	assert.Len(t, byRepo, 2)

	bySearch, err := s.List(ctx, ListOptions{Search: "AUTH"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2)

	limited, err := s.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "How is auth configured?", limited[0].Question)
}

func TestHistoryStore_MaxEntriesPrunesOldest(t *testing.T) {
	s := openTestStore(t)
	s.MaxEntries = 2
	base := time.Now()
	addEntry(t, s, "repo", "one", base)
	addEntry(t, s, "repo", "two", base.Add(time.Second))
	addEntry(t, s, "repo", "three", base.Add(2*time.Second))

	entries, err := s.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Question)
	assert.Equal(t, "two", entries[1].Question)
}

func TestHistoryStore_DeleteClearCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	e := addEntry(t, s, "repo", "one", time.Now())
	addEntry(t, s, "repo", "two", time.Now())

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, e.ID))
	assert.True(t, errors.Is(s.Delete(ctx, e.ID), ErrEntryNotFound))

	cleared, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHistoryStore_Stats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)
	assert.True(t, st.Newest.IsZero())

	at := time.Now().Truncate(time.Millisecond)
	addEntry(t, s, "repo", "one", at.Add(-time.Minute))
	addEntry(t, s, "other", "two", at)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 2, st.Repos)
	assert.True(t, st.Newest.Equal(at))
}

func TestHistoryStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	addEntry(t, s, "repo", "kept", time.Now())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second Close is a no-op")

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFormatHistoryList(t *testing.T) {
	assert.Equal(t, "No history found.", FormatHistoryList(nil))

	out := FormatHistoryList([]Entry{{
		ID:        "0123456789abcdef",
		Repo:      "repo",
		Question:  "What is\nthe main purpose?",
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}})
	assert.Contains(t, out, "01234567 ")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "2025-03-01 09:30")
	assert.True(t, strings.Contains(out, "What is the main purpose?"))
}
