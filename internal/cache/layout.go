package cache

import (
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/fsutil"
	"github.com/kamusis/nlpm/internal/version"
)

// Layout describes where cached metadata lives under a cache root:
//
//	{root}/library/library.json          raw library release feed
//	{root}/library/library-etag          etag of library.json
//	{root}/library/compatibility.json    model compatibility matrix
//	{root}/library/models/{name}-{version}.json
//	{root}/library/models-etag           etag of the model archive
type Layout struct {
	Root string
}

// LibraryDir is the directory holding the library feed and compatibility file.
func (l Layout) LibraryDir() string { return filepath.Join(l.Root, "library") }

// ModelsDir holds the per-model metadata files.
func (l Layout) ModelsDir() string { return filepath.Join(l.LibraryDir(), "models") }

func (l Layout) LibraryInfoFile() string   { return filepath.Join(l.LibraryDir(), "library.json") }
func (l Layout) LibraryETagFile() string   { return filepath.Join(l.LibraryDir(), "library-etag") }
func (l Layout) CompatibilityFile() string { return filepath.Join(l.LibraryDir(), "compatibility.json") }
func (l Layout) ModelsETagFile() string    { return filepath.Join(l.LibraryDir(), "models-etag") }

func (l Layout) lockFile() string { return filepath.Join(l.Root, ".sync.lock") }

// ModelInfoPath is the metadata file for one model version. The extractor
// writes files under the same name, so lookups and writes always agree.
func (l Layout) ModelInfoPath(name string, v *semver.Version) string {
	return filepath.Join(l.ModelsDir(), ModelInfoFile(name, v))
}

// ModelInfoFile returns "{name}-{version}.json" using the canonical version
// string.
func ModelInfoFile(name string, v *semver.Version) string {
	return name + "-" + version.Key(v) + ".json"
}

// EnsureDirs creates the cache root, the library directory and the models
// directory. Safe to call repeatedly.
func (l Layout) EnsureDirs(status func(string)) error {
	steps := []struct {
		msg  string
		path string
	}{
		{"Creating info cache directory if missing.", l.Root},
		{"Creating library info cache directory if missing.", l.LibraryDir()},
		{"Creating model info cache directory if missing.", l.ModelsDir()},
	}
	for _, s := range steps {
		status(s.msg)
		if err := fsutil.EnsureDir(s.path); err != nil {
			return wrapStorage(err)
		}
	}
	return nil
}
