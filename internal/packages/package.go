// Package packages turns compatibility queries and installed-version
// detection into installable package descriptors.
//
// Descriptors are recreated on every refresh and hold no identity of their
// own.
package packages

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/lang"
	"github.com/kamusis/nlpm/internal/version"
)

// DefaultModelDownloadURL is where model release tarballs are published.
const DefaultModelDownloadURL = "https://github.com/explosion/spacy-models/releases/download"

// Kind discriminates the two kinds of package.
type Kind int

const (
	KindLibrary Kind = iota
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindModel:
		return "model"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Package describes the library or one model.
type Package struct {
	Kind       Kind
	Name       string
	InstallDir string
	// Installed is nil when the package is not installed.
	Installed *semver.Version
	// Versions are the installable versions, newest first.
	Versions []*semver.Version
	// ExcludeDeps names dependencies that must not be pulled in on install.
	ExcludeDeps []string

	// Library is set for KindLibrary.
	Library info.LibraryFeed
	// Model is set for KindModel.
	Model info.ModelInfo

	// DownloadURL is the base URL of model release tarballs.
	DownloadURL string
}

// Updates returns the available versions newer than the installed one.
// It is nil when the package is not installed, and a non-nil (possibly
// empty) slice otherwise.
func (p Package) Updates() []*semver.Version {
	if p.Installed == nil {
		return nil
	}
	out := make([]*semver.Version, 0, len(p.Versions))
	for _, v := range p.Versions {
		if version.Compare(v, p.Installed) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// UpdatesAvailable reports whether a newer version can be installed.
func (p Package) UpdatesAvailable() bool {
	return len(p.Updates()) > 0
}

// Latest is the newest installable version, or nil.
func (p Package) Latest() *semver.Version {
	if len(p.Versions) == 0 {
		return nil
	}
	return p.Versions[0]
}

// Requirement is what pip is asked to install for version v: a pinned
// requirement for the library, the release tarball URL for a model.
func (p Package) Requirement(v *semver.Version) string {
	pv := version.PythonString(v)
	switch p.Kind {
	case KindModel:
		base := p.DownloadURL
		if base == "" {
			base = DefaultModelDownloadURL
		}
		release := p.Name + "-" + pv
		return strings.TrimSuffix(base, "/") + "/" + release + "/" + release + ".tar.gz"
	default:
		return p.Name + "==" + pv
	}
}

// Lang is the model's language code, empty for the library.
func (p Package) Lang() string {
	if p.Kind != KindModel {
		return ""
	}
	return p.Model.Lang
}

// DisplayName is the label shown in listings.
func (p Package) DisplayName() string {
	if p.Kind == KindModel && p.Model.Lang != "" {
		return lang.Name(p.Model.Lang) + " - " + p.Name
	}
	return p.Name
}

// Row is one labelled detail line.
type Row struct {
	Key   string
	Value string
}

const libraryDescription = "spaCy is a free, open-source library for advanced Natural Language Processing (NLP) in Python."

// DetailRows returns the details shown for the package, in display order.
func (p Package) DetailRows() []Row {
	switch p.Kind {
	case KindModel:
		rows := []Row{
			{"Language", lang.Name(p.Model.Lang)},
			{"Description", p.Model.Description},
			{"Author", p.Model.Author},
			{"Email", p.Model.Email},
			{"Download Size", p.Model.Size},
		}
		if p.Model.License != "" {
			rows = append(rows, Row{"License", p.Model.License})
		}
		if len(p.Model.Sources) > 0 {
			rows = append(rows, Row{"Sources", strings.Join(p.Model.Sources, ", ")})
		}
		return rows
	default:
		desc := p.Library.Summary()
		if desc == "" {
			desc = libraryDescription
		}
		return []Row{
			{"Author", p.Library.Author()},
			{"Email", p.Library.AuthorEmail()},
			{"Description", desc},
		}
	}
}

// UninstallPaths lists the directories in the install directory that belong
// to the package: the import package itself and its metadata directories.
func (p Package) UninstallPaths() ([]string, error) {
	entries, err := os.ReadDir(p.InstallDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || !ownsEntry(p.Name, e.Name()) {
			continue
		}
		out = append(out, filepath.Join(p.InstallDir, e.Name()))
	}
	return out, nil
}

// ownsEntry reports whether dir is name itself or one of its versioned
// metadata directories. Prefix matches such as spacy_legacy for spacy are
// separate distributions and are left alone.
func ownsEntry(name, dir string) bool {
	rest, ok := strings.CutPrefix(dir, name)
	if !ok {
		return false
	}
	return rest == "" || strings.HasPrefix(rest, "-") || rest == ".egg-info"
}

// Path is where the package's importable data lives once installed.
func (p Package) Path() string {
	path := filepath.Join(p.InstallDir, p.Name)
	if p.Kind == KindModel && p.Installed != nil {
		path = filepath.Join(path, p.Name+"-"+version.PythonString(p.Installed))
	}
	return path
}
