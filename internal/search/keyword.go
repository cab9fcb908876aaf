package search

import (
	"strings"
)

// KeywordSearch searches models by case-insensitive keyword matching over
// name, language code, language name, description and training sources.
// All query tokens must match (AND semantics). A token equal to the language
// code scores higher than a substring hit.
func KeywordSearch(models []ModelDoc, query string, limit int) []SearchResult {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []SearchResult{}
	}

	var out []SearchResult
	for _, m := range models {
		blob := strings.ToLower(strings.Join([]string{m.Name, m.Lang, m.Language, m.Description, m.Sources}, "\n"))
		score := 0.0
		ok := true
		for _, tok := range tokens {
			if !strings.Contains(blob, tok) {
				ok = false
				break
			}
			score++
			if tok == strings.ToLower(m.Lang) {
				score++
			}
		}
		if !ok {
			continue
		}
		out = append(out, SearchResult{Model: m, Score: score, Why: "keyword"})
	}

	SortResults(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func tokenize(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	parts := strings.Fields(q)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
