package httpapi

import "songshare/internal/song"

// languageSection buckets songs or albums under one language for the
// §6 `sections`/`albumLanguageSections` response fields.
type languageSection struct {
	Language string       `json:"language"`
	Songs    []*song.Song `json:"songs"`
}

// buildLanguageSections groups songs by language, preserving first-seen
// language order so the caller's preferred languages (queried first)
// surface first.
func buildLanguageSections(songs []*song.Song) []languageSection {
	order := []string{}
	byLang := map[string][]*song.Song{}
	for _, s := range songs {
		lang := s.Language
		if lang == "" {
			lang = "unknown"
		}
		if _, ok := byLang[lang]; !ok {
			order = append(order, lang)
		}
		byLang[lang] = append(byLang[lang], s)
	}
	sections := make([]languageSection, 0, len(order))
	for _, lang := range order {
		sections = append(sections, languageSection{Language: lang, Songs: byLang[lang]})
	}
	return sections
}

// relatedLanguages returns the distinct languages present in songs that
// are not already in excluded (the caller's requested/preferred set).
func relatedLanguages(songs []*song.Song, excluded map[string]bool) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range songs {
		if s.Language == "" || excluded[s.Language] || seen[s.Language] {
			continue
		}
		seen[s.Language] = true
		out = append(out, s.Language)
	}
	return out
}
