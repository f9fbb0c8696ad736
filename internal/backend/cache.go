// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// ANSWER CACHE
// =============================================================================

type cacheKey struct {
	repo     string
	question string
	k        int
}

// answerCache is a thread-safe LRU of query answers.
// A nil *answerCache is a valid, always-missing cache.
type answerCache struct {
	lru    *lru.Cache[cacheKey, QueryResponse]
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports answer cache usage.
type CacheStats struct {
	Enabled bool
	Size    int
	Hits    int64
	Misses  int64
}

func newAnswerCache(size int) *answerCache {
	if size <= 0 {
		return nil
	}
	l, err := lru.New[cacheKey, QueryResponse](size)
	if err != nil {
		return nil
	}
	return &answerCache{lru: l}
}

func (c *answerCache) get(k cacheKey) (*QueryResponse, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(k)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return cloneResponse(&v), true
}

func (c *answerCache) put(k cacheKey, resp *QueryResponse) {
	if c == nil {
		return
	}
	c.lru.Add(k, *cloneResponse(resp))
}

// purgeRepo drops every cached answer for repo.
func (c *answerCache) purgeRepo(repo string) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, k := range c.lru.Keys() {
		if k.repo == repo {
			if c.lru.Remove(k) {
				n++
			}
		}
	}
	return n
}

func (c *answerCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *answerCache) stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Enabled: true,
		Size:    c.lru.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// cloneResponse copies resp so callers never share a SourceChunks slice
// with the cache.
func cloneResponse(resp *QueryResponse) *QueryResponse {
	out := &QueryResponse{Answer: resp.Answer, SourceChunks: make([]string, len(resp.SourceChunks))}
	copy(out.SourceChunks, resp.SourceChunks)
	return out
}
