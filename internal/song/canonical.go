package song

import (
	"regexp"
	"strings"
)

var (
	bracketedPattern = regexp.MustCompile(`[\(\[][^\)\]]*[\)\]]`)
	decoratorWords   = regexp.MustCompile(`(?i)\b(remix|version|live|slowed|reverb|karaoke|instrumental|lofi|cover)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CanonicalTitle strips parenthetical/bracketed decorators and version
// keywords from a title so duplicate recordings of the same song collapse
// to the same key for next-track deduplication.
func CanonicalTitle(title string) string {
	t := bracketedPattern.ReplaceAllString(title, " ")
	t = decoratorWords.ReplaceAllString(t, " ")
	t = whitespacePattern.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

// TitleSupersetOrEqual reports whether a's canonical title is equal to, or
// a strict word-superset of, b's canonical title (and vice versa isn't
// required — this is the one-directional check next-track filtering uses
// to reject re-releases and alternate cuts of the current song).
func TitleSupersetOrEqual(a, b string) bool {
	ca, cb := CanonicalTitle(a), CanonicalTitle(b)
	if ca == cb {
		return true
	}
	if ca == "" || cb == "" {
		return false
	}
	wordsA := strings.Fields(ca)
	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	for _, w := range strings.Fields(cb) {
		if !setA[w] {
			return false
		}
	}
	return true
}
