package search

import (
	"cmp"
	"slices"
	"strings"
)

// SortResults orders results by score (descending), then by model name.
func SortResults(results []SearchResult) {
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Model.Name, b.Model.Name)
	})
}
