package info

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LibraryFeed is the library's package index entry as served by PyPI's JSON
// API. Only the parts nlpm reads are decoded; release payloads are kept raw.
type LibraryFeed struct {
	Info     map[string]any             `json:"info"`
	Releases map[string]json.RawMessage `json:"releases"`
}

func (f LibraryFeed) field(key string) string {
	return stringField(f.Info, key)
}

// Author is the package author as published.
func (f LibraryFeed) Author() string { return f.field("author") }

// AuthorEmail is the package author's contact address.
func (f LibraryFeed) AuthorEmail() string { return f.field("author_email") }

// Summary is the one-line package description.
func (f LibraryFeed) Summary() string { return f.field("summary") }

// HomePage is the project URL, when one is published.
func (f LibraryFeed) HomePage() string {
	if s := f.field("home_page"); s != "" {
		return s
	}
	return f.field("project_url")
}

// ModelInfo is the metadata published for one model version.
type ModelInfo struct {
	Lang        string
	Name        string
	Version     string
	Description string
	Author      string
	Email       string
	URL         string
	License     string
	Size        string
	Sources     []string
	// Raw holds every field of the metadata file.
	Raw map[string]any
}

// FullName is the installable package name, {lang}_{name}.
func (m ModelInfo) FullName() string {
	if m.Lang == "" || strings.HasPrefix(m.Name, m.Lang+"_") {
		return m.Name
	}
	return m.Lang + "_" + m.Name
}

func parseModelInfo(data []byte) (ModelInfo, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ModelInfo{}, err
	}
	m := ModelInfo{
		Lang:        stringField(raw, "lang"),
		Name:        stringField(raw, "name"),
		Version:     stringField(raw, "version"),
		Description: stringField(raw, "description"),
		Author:      stringField(raw, "author"),
		Email:       stringField(raw, "email"),
		URL:         stringField(raw, "url"),
		License:     stringField(raw, "license"),
		Size:        stringField(raw, "size"),
		Raw:         raw,
	}
	if sources, ok := raw["sources"].([]any); ok {
		for _, s := range sources {
			switch s := s.(type) {
			case string:
				m.Sources = append(m.Sources, s)
			case map[string]any:
				if name := stringField(s, "name"); name != "" {
					m.Sources = append(m.Sources, name)
				}
			}
		}
	}
	return m, nil
}

// stringField renders a scalar JSON field as text. Missing and null fields
// are empty.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%g", v), ".0")
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}
