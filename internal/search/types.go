package search

import (
	"strings"

	"github.com/kamusis/nlpm/internal/lang"
	"github.com/kamusis/nlpm/internal/packages"
)

// ModelDoc represents the searchable metadata for a model package.
type ModelDoc struct {
	Name        string
	Lang        string
	Language    string
	Description string
	Sources     string
}

// SearchResult represents one matched model.
type SearchResult struct {
	Model ModelDoc
	Score float64
	Why   string
}

// Docs builds one ModelDoc per model package.
func Docs(pkgs []packages.Package) []ModelDoc {
	out := make([]ModelDoc, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Kind != packages.KindModel {
			continue
		}
		code := p.Lang()
		if code == "" {
			code, _, _ = strings.Cut(p.Name, "_")
		}
		language := lang.EnglishName(code)
		if native := lang.Name(code); native != language {
			language += " " + native
		}
		out = append(out, ModelDoc{
			Name:        p.Name,
			Lang:        code,
			Language:    language,
			Description: p.Model.Description,
			Sources:     strings.Join(p.Model.Sources, " "),
		})
	}
	return out
}
