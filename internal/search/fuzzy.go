package search

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type nameSource []ModelDoc

func (s nameSource) String(i int) string { return s[i].Name }
func (s nameSource) Len() int            { return len(s) }

// FuzzySearch ranks models whose names contain the query characters in
// order, for queries such as "encorsm".
func FuzzySearch(models []ModelDoc, query string, limit int) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []SearchResult{}
	}
	matches := fuzzy.FindFrom(query, nameSource(models))
	out := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, SearchResult{Model: models[m.Index], Score: float64(m.Score), Why: "fuzzy"})
	}
	SortResults(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Search runs KeywordSearch and falls back to FuzzySearch when no keyword
// matches.
func Search(models []ModelDoc, query string, limit int) []SearchResult {
	if res := KeywordSearch(models, query, limit); len(res) > 0 {
		return res
	}
	return FuzzySearch(models, query, limit)
}
