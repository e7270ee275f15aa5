package search

import (
	"songshare/internal/textmatch"
)

// maxVariants bounds the variant list kept after generation (§4.3 step 2).
const maxVariants = 4

// generateVariants builds the ordered, deduped query-rewrite list the
// upstream fan-out loop iterates over: the original, a noise-stripped
// form, truncated forms, single-token forms, leave-one-out forms, and a
// shortened form of any long token.
func generateVariants(normQuery string, languageNoiseWords map[string]bool) []string {
	if normQuery == "" {
		return nil
	}
	tokens := textmatch.Tokenize(normQuery)

	seen := map[string]bool{}
	variants := make([]string, 0, maxVariants)
	add := func(v string) {
		if v == "" || seen[v] || len(variants) >= maxVariants {
			return
		}
		seen[v] = true
		variants = append(variants, v)
	}

	add(normQuery)

	stripped := textmatch.StripNoiseWords(tokens, languageNoiseWords)
	if len(stripped) > 0 {
		add(joinTokens(stripped))
	}

	if len(tokens) > 1 {
		add(joinTokens(tokens[:len(tokens)-1])) // tokens[:-1]
	}
	if len(tokens) > 2 {
		add(joinTokens(tokens[:2])) // tokens[:2]
	}
	if len(tokens) > 0 {
		add(tokens[0]) // tokens[0]
	}

	// leave-one-out variants
	for i := range tokens {
		if len(variants) >= maxVariants {
			break
		}
		loo := make([]string, 0, len(tokens)-1)
		for j, t := range tokens {
			if j != i {
				loo = append(loo, t)
			}
		}
		if len(loo) > 0 {
			add(joinTokens(loo))
		}
	}

	// shortened-by-1-char variant for any token >= 6 chars
	for i, t := range tokens {
		if len(variants) >= maxVariants {
			break
		}
		if len([]rune(t)) >= 6 {
			shortened := append([]string(nil), tokens...)
			shortened[i] = string([]rune(t)[:len([]rune(t))-1])
			add(joinTokens(shortened))
		}
	}

	if len(variants) == 0 {
		return []string{normQuery}
	}
	return variants
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
