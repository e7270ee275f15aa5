package profile

import "sort"

// buildRealtimeProfile is the pure assembly step shared by every Store
// implementation: given the current preferences and the derived
// aggregates read from storage, produce the capped RealtimeProfile (§3).
func buildRealtimeProfile(prefs *UserPreferences, aggregates []*SongAggregate, history []*SearchHistoryEntry) *RealtimeProfile {
	p := &RealtimeProfile{
		LanguageAffinity: make(map[string]float64),
		ArtistAffinity:   make(map[string]float64),
		SongInteractions: make(map[string]SongInteraction),
	}
	if prefs != nil {
		p.UID = prefs.UID
		p.Languages = append([]string(nil), prefs.Languages...)
		p.FavoriteArtists = append([]FavoriteArtist(nil), prefs.FavoriteArtists...)
	}

	for _, agg := range aggregates {
		if agg.Language != "" {
			p.LanguageAffinity[agg.Language] += agg.Affinity
		}
		if agg.Artist != "" {
			p.ArtistAffinity[agg.Artist] += agg.Affinity
		}
	}

	sorted := append([]*SongAggregate(nil), aggregates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LastPlayed.After(sorted[j].LastPlayed) })
	if len(sorted) > maxSongInteractions {
		sorted = sorted[:maxSongInteractions]
	}
	for _, agg := range sorted {
		p.SongInteractions[agg.SongID] = SongInteraction{
			PlayCount:  agg.PlayCount,
			SkipCount:  agg.SkipCount,
			Affinity:   agg.Affinity,
			LastPlayed: agg.LastPlayed,
			Artist:     agg.Artist,
			Language:   agg.Language,
		}
	}

	sortedHistory := append([]*SearchHistoryEntry(nil), history...)
	sort.Slice(sortedHistory, func(i, j int) bool {
		return sortedHistory[i].LastSearched.After(sortedHistory[j].LastSearched)
	})
	seen := make(map[string]bool, len(sortedHistory))
	for _, h := range sortedHistory {
		if len(p.SearchTerms) >= maxSearchTerms {
			break
		}
		if seen[h.Query] {
			continue
		}
		seen[h.Query] = true
		p.SearchTerms = append(p.SearchTerms, h.Query)
	}

	return p
}
