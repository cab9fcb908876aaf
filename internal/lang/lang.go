// Package lang names the languages model packages are built for.
package lang

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Multi is the code of language-independent models.
const Multi = "xx"

// Name returns the language's name in that language, e.g. "Deutsch" for
// "de". Codes without a known name are returned as given.
func Name(code string) string {
	if code == Multi {
		return "Multi-language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}

// EnglishName returns the English name of the language.
func EnglishName(code string) string {
	if code == Multi {
		return "Multi-language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
