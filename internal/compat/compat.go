// Package compat builds the model compatibility index: for every model name
// and model version, the set of library versions that can load it.
package compat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/version"
)

// ErrNotFound is returned when a model name or model version is not indexed.
var ErrNotFound = errors.New("not found in compatibility index")

// DefaultFloor is the lowest library version that contributes to the index.
var DefaultFloor = version.MustParse("2.0.0")

// Feed is the raw compatibility matrix:
// library version -> model name -> compatible model versions.
type Feed map[string]map[string][]string

// entry is the set of library versions for one model version.
type entry struct {
	model   *semver.Version
	library map[string]*semver.Version
}

// Index maps model name -> model version -> set of library versions.
// It is immutable once built.
type Index struct {
	models map[string]map[string]*entry
}

// BuildIndex inverts feed into an Index. Library versions below floor are
// skipped. A (model, version) pair listed under several library versions
// accumulates all of them, so the result does not depend on map order.
// A nil floor means DefaultFloor.
func BuildIndex(feed Feed, floor *semver.Version) (*Index, error) {
	if floor == nil {
		floor = DefaultFloor
	}
	idx := &Index{models: make(map[string]map[string]*entry)}

	for libraryRaw, models := range feed {
		library, err := version.Parse(libraryRaw)
		if err != nil {
			return nil, fmt.Errorf("library version %q: %w", libraryRaw, err)
		}
		if version.Compare(library, floor) < 0 {
			continue
		}
		for name, versions := range models {
			byVersion, ok := idx.models[name]
			if !ok {
				byVersion = make(map[string]*entry)
				idx.models[name] = byVersion
			}
			for _, raw := range versions {
				v, err := version.Parse(raw)
				if err != nil {
					return nil, fmt.Errorf("model %s version %q: %w", name, raw, err)
				}
				key := version.Key(v)
				e, ok := byVersion[key]
				if !ok {
					e = &entry{model: v, library: make(map[string]*semver.Version)}
					byVersion[key] = e
				}
				e.library[version.Key(library)] = library
			}
		}
	}
	return idx, nil
}

// Has reports whether name is an indexed model.
func (idx *Index) Has(name string) bool {
	_, ok := idx.models[name]
	return ok
}

// CompatibleLibraryVersions returns the library versions compatible with the
// given model version, newest first.
func (idx *Index) CompatibleLibraryVersions(name string, modelVersion *semver.Version) ([]*semver.Version, error) {
	byVersion, ok := idx.models[name]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", name, ErrNotFound)
	}
	if modelVersion == nil {
		return nil, fmt.Errorf("model %s without version: %w", name, ErrNotFound)
	}
	e, ok := byVersion[version.Key(modelVersion)]
	if !ok {
		return nil, fmt.Errorf("model %s version %s: %w", name, modelVersion, ErrNotFound)
	}
	out := make([]*semver.Version, 0, len(e.library))
	for _, v := range e.library {
		out = append(out, v)
	}
	version.SortDescending(out)
	return out, nil
}

// VersionsForModel returns every indexed version of name, newest first.
// Pre-release versions are dropped unless preRelease is set.
func (idx *Index) VersionsForModel(name string, preRelease bool) ([]*semver.Version, error) {
	byVersion, ok := idx.models[name]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", name, ErrNotFound)
	}
	out := make([]*semver.Version, 0, len(byVersion))
	for _, e := range byVersion {
		if !preRelease && version.IsPrerelease(e.model) {
			continue
		}
		out = append(out, e.model)
	}
	version.SortDescending(out)
	return out, nil
}

// ModelNames returns the indexed model names in alphabetical order, hiding
// models that have no version visible under preRelease.
func (idx *Index) ModelNames(preRelease bool) []string {
	names := make([]string, 0, len(idx.models))
	for name, byVersion := range idx.models {
		if hasVisibleVersion(byVersion, preRelease) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func hasVisibleVersion(byVersion map[string]*entry, preRelease bool) bool {
	for _, e := range byVersion {
		if preRelease || !version.IsPrerelease(e.model) {
			return true
		}
	}
	return false
}
