// Package search implements the Smart Search Engine (§4.3): query
// normalization, variant generation, a local-index fast path, parallel
// upstream fan-out, tiered scoring, deduplication, and a two-tier
// fresh/stale cache with single-flight coalescing. Grounded on the
// teacher's internal/search/engine.go (cache-check -> fan-out -> rank ->
// cache-store shape) and internal/search/coordinator.go (dedup + stable
// tie-broken sort), generalized from platform link resolution to the
// spec's exact scoring and caching rules.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"songshare/internal/cache"
	"songshare/internal/catalog"
	"songshare/internal/song"
	"songshare/internal/songindex"
	"songshare/internal/textmatch"
)

// MaxSmartResults bounds every smartSearch response (§4.3).
const MaxSmartResults = 40

// SmartMinResults is the local-index short-circuit and upstream-loop
// early-break threshold (§4.3 steps 3 and 5).
const SmartMinResults = 8

// SmartMaxLatency bounds the upstream fan-out loop's total elapsed time
// once the ranked set is non-empty (§4.3 step 5).
const SmartMaxLatency = 3200 * time.Millisecond

// backgroundRefreshTimeout bounds a fire-and-forget stale-while-revalidate
// refresh; it is deliberately not tied to the originating request's
// context (§5: a background refresh outlives the request that triggered
// it).
const backgroundRefreshTimeout = 10 * time.Second

// Options configure one smartSearch call (§4.3 contract).
type Options struct {
	WaitForFresh       bool
	PreferredLanguages []string
}

// Engine is the Smart Search Engine.
type Engine struct {
	index    *songindex.Index
	primary  catalog.Adapter
	fallback catalog.Adapter
	broad    catalog.Adapter

	cache  *resultCache
	flight singleflight.Group

	languageNoiseWords map[string]bool
}

// New builds a Smart Search Engine over the three named upstream
// adapters and a shared Local Song Index.
func New(index *songindex.Index, primary, fallback, broad catalog.Adapter) *Engine {
	return newEngine(index, primary, fallback, broad, nil)
}

// NewWithSharedCache is New plus a Valkey-backed L2 tier shared across
// instances (internal/cache.MultiLevelCache). A nil shared behaves
// exactly like New.
func NewWithSharedCache(index *songindex.Index, primary, fallback, broad catalog.Adapter, shared cache.Cache) *Engine {
	return newEngine(index, primary, fallback, broad, shared)
}

func newEngine(index *songindex.Index, primary, fallback, broad catalog.Adapter, shared cache.Cache) *Engine {
	rc := newResultCache()
	if shared != nil {
		rc = newResultCacheWithShared(shared)
	}
	return &Engine{
		index:    index,
		primary:  primary,
		fallback: fallback,
		broad:    broad,
		cache:    rc,
		languageNoiseWords: map[string]bool{
			"english": true, "hindi": true, "tamil": true, "telugu": true,
			"punjabi": true, "spanish": true, "french": true, "german": true,
		},
	}
}

// SmartSearch is the §4.3 contract: given a query, produce an ordered,
// deduplicated list of at most MaxSmartResults Songs.
func (e *Engine) SmartSearch(ctx context.Context, query string, opts Options) ([]*song.Song, error) {
	normQuery := textmatch.Normalize(query)
	if normQuery == "" {
		return nil, nil
	}
	key := cacheKey(normQuery, opts.PreferredLanguages)

	entry, state := e.cache.get(ctx, key)
	switch state {
	case cacheFresh:
		return cloneSongs(entry.songs), nil
	case cacheStale:
		if !opts.WaitForFresh {
			e.scheduleBackgroundRefresh(key, normQuery, opts)
			return cloneSongs(entry.songs), nil
		}
		// waitForFresh: fall through to compute synchronously.
	}

	songs, err := e.computeAndCache(ctx, key, normQuery, opts)
	if err != nil {
		if entry != nil {
			// Failed refresh never evicts the existing stale entry (§7).
			slog.Error("smart search refresh failed, serving stale", "query", normQuery, "error", err)
			return cloneSongs(entry.songs), nil
		}
		return nil, err
	}
	return songs, nil
}

// scheduleBackgroundRefresh launches a fire-and-forget refresh. It still
// goes through the same singleflight group/key as foreground callers, so
// a background refresh and a concurrent waitForFresh request for the same
// key collapse into one computation (§8 single-flight invariant).
func (e *Engine) scheduleBackgroundRefresh(key, normQuery string, opts Options) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()
		if _, err := e.computeAndCache(ctx, key, normQuery, opts); err != nil {
			slog.Error("background smart search refresh failed", "query", normQuery, "error", err)
		}
	}()
}

// computeAndCache runs the computation for key through single-flight and,
// on success, stores the result. Concurrent callers with the same key
// share one in-flight computation.
func (e *Engine) computeAndCache(ctx context.Context, key, normQuery string, opts Options) ([]*song.Song, error) {
	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		songs, computeErr := e.compute(ctx, normQuery, opts)
		if computeErr != nil {
			return nil, computeErr
		}
		e.cache.put(ctx, key, songs)
		return songs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSongs(v.([]*song.Song)), nil
}

// compute runs the §4.3 steps 1-7 computation algorithm.
func (e *Engine) compute(ctx context.Context, normQuery string, opts Options) ([]*song.Song, error) {
	start := time.Now()
	compactQuery := textmatch.Compact(normQuery)
	queryTokens := textmatch.Tokenize(normQuery)

	preferredSet := make(map[string]bool, len(opts.PreferredLanguages))
	for _, l := range opts.PreferredLanguages {
		preferredSet[l] = true
	}

	ranked := newRankedSet()

	// Step 3: local index pass first.
	localMatches := e.index.Search(normQuery)
	localSongs := make([]*song.Song, len(localMatches))
	goodLocalTiers := 0
	for i, m := range localMatches {
		localSongs[i] = m.Song
		if m.Tier == textmatch.TierExact || m.Tier == textmatch.TierStartsWith || m.Tier == textmatch.TierContains {
			goodLocalTiers++
		}
	}
	ranked.addRankedSongs(localSongs, normQuery, compactQuery, queryTokens, "local", 0, preferredSet)
	if goodLocalTiers >= SmartMinResults {
		return ranked.sorted(MaxSmartResults), nil
	}

	// Step 4-5: upstream loop over variants.
	variants := generateVariants(normQuery, e.languageNoiseWords)
	for i, variant := range variants {
		variantTokens := textmatch.Tokenize(variant)
		variantCompact := textmatch.Compact(variant)

		for _, batch := range e.fanOutVariant(ctx, variant, i, ranked.len()) {
			ranked.addRankedSongs(batch.songs, variant, variantCompact, variantTokens, batch.source, i, preferredSet)
			e.upsertIndex(batch.songs)
		}

		if ranked.len() >= SmartMinResults {
			break
		}
		if time.Since(start) >= SmartMaxLatency && ranked.len() > 0 {
			break
		}
	}

	// Step 6: final global pass if no exact match was found.
	if !ranked.hasExact() {
		for _, batch := range e.globalPass(ctx, normQuery) {
			ranked.addRankedSongs(batch.songs, normQuery, compactQuery, queryTokens, batch.source, len(variants), preferredSet)
			e.upsertIndex(batch.songs)
		}
	}

	return ranked.sorted(MaxSmartResults), nil
}

// taggedSongs pairs a source label with the songs it returned so the
// caller can score each batch with the right source weight.
type taggedSongs struct {
	source string
	songs  []*song.Song
}

// fanOutVariant issues the primary/broad/fallback calls required for
// variant index i (§4.3 step 4) in parallel and returns one batch per
// source that actually responded.
func (e *Engine) fanOutVariant(ctx context.Context, variant string, variantIndex, rankedSoFar int) []taggedSongs {
	wantBroad := variantIndex < 2 || rankedSoFar < SmartMinResults
	wantFallback := variantIndex == 0 || rankedSoFar < SmartMinResults/2

	var wg sync.WaitGroup
	results := make(chan taggedSongs, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		page, err := e.primary.PrimarySongs(ctx, variant, 1)
		if err != nil {
			slog.Debug("primary search failed", "variant", variant, "error", err)
			return
		}
		if page != nil {
			results <- taggedSongs{source: "primary", songs: page.Results}
		}
	}()

	if wantBroad {
		wg.Add(1)
		go func() {
			defer wg.Done()
			br, err := e.broad.BroadSearch(ctx, variant, 1)
			if err != nil {
				slog.Debug("broad search failed", "variant", variant, "error", err)
				return
			}
			if br != nil {
				results <- taggedSongs{source: "broad", songs: br.Songs}
			}
		}()
	}

	if wantFallback {
		wg.Add(1)
		go func() {
			defer wg.Done()
			songs, err := e.fallback.FallbackSongs(ctx, variant)
			if err != nil {
				slog.Debug("fallback search failed", "variant", variant, "error", err)
				return
			}
			results <- taggedSongs{source: "fallback", songs: songs}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var batches []taggedSongs
	for batch := range results {
		batches = append(batches, batch)
	}
	return batches
}

// globalPass issues the §4.3 step 6 final broad-search + fallback call on
// the original normalized query.
func (e *Engine) globalPass(ctx context.Context, normQuery string) []taggedSongs {
	var batches []taggedSongs
	if br, err := e.broad.BroadSearch(ctx, normQuery, 1); err == nil && br != nil {
		batches = append(batches, taggedSongs{source: "broad", songs: br.Songs})
	}
	if fb, err := e.fallback.FallbackSongs(ctx, normQuery); err == nil {
		batches = append(batches, taggedSongs{source: "fallback", songs: fb})
	}
	return batches
}

// InvalidateCache clears the entire result cache, e.g. for admin/testing
// use; the spec does not require selective invalidation.
func (e *Engine) InvalidateCache() {
	e.cache.mu.Lock()
	defer e.cache.mu.Unlock()
	e.cache.entries = make(map[string]*cacheEntry)
}

// upsertIndex adds every upstream Song seen this request to the Local
// Song Index (§4.2: every Song returned by the Adapter is upserted).
func (e *Engine) upsertIndex(songs []*song.Song) {
	for _, s := range songs {
		if s.Valid() {
			e.index.Upsert(s)
		}
	}
}
