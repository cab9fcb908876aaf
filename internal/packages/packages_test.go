package packages

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/version"
)

type fakeDetector struct {
	library *semver.Version
	models  map[string]*semver.Version
}

func (d fakeDetector) InstalledLibraryVersion() (*semver.Version, error) { return d.library, nil }

func (d fakeDetector) InstalledModelVersions(isModel func(string) bool) (map[string]*semver.Version, error) {
	out := map[string]*semver.Version{}
	for name, v := range d.models {
		if isModel(name) {
			out[name] = v
		}
	}
	return out, nil
}

var feed = compat.Feed{
	"3.0.0": {"en_core_web_sm": {"3.0.0"}, "de_core_news_sm": {"3.0.0"}},
	"3.0.1": {"en_core_web_sm": {"3.0.0", "3.0.1"}},
	"3.1.0": {"ja_core_news_sm": {"3.1.0a1"}},
}

var metas = map[string]string{
	"en_core_web_sm-3.0.1":    `{"lang":"en","name":"core_web_sm","version":"3.0.1","description":"English pipeline","author":"Explosion","email":"contact@explosion.ai","size":"13 MB"}`,
	"de_core_news_sm-3.0.0":   `{"lang":"de","name":"core_news_sm","version":"3.0.0","description":"German pipeline","author":"Explosion","email":"contact@explosion.ai","size":"14 MB"}`,
	"ja_core_news_sm-3.1.0a1": `{"lang":"ja","name":"core_news_sm","version":"3.1.0a1","description":"Japanese pipeline","author":"Explosion","email":"contact@explosion.ai","size":"12 MB"}`,
}

func newResolver(t *testing.T, d fakeDetector) Resolver {
	t.Helper()
	layout := cache.Layout{Root: t.TempDir()}
	require.NoError(t, layout.EnsureDirs(func(string) {}))
	for key, body := range metas {
		name, raw, _ := cutLast(key)
		require.NoError(t, os.WriteFile(layout.ModelInfoPath(name, version.MustParse(raw)), []byte(body), 0o644))
	}

	library := info.LibraryFeed{
		Info:     map[string]any{"author": "Explosion", "author_email": "contact@explosion.ai"},
		Releases: map[string]json.RawMessage{"3.0.0": nil, "3.0.1": nil, "3.1.0": nil, "2.3.9": nil},
	}
	inf, err := info.New(library, feed, info.WithLayout(layout), info.WithDetector(d))
	require.NoError(t, err)
	return Resolver{Info: inf, InstallDir: "/pkgs", Library: "spacy"}
}

func cutLast(s string) (string, string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func strs(vs []*semver.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func TestUpdatesNilWhenNotInstalled(t *testing.T) {
	p := Package{Versions: []*semver.Version{version.MustParse("3.0.1")}}
	assert.Nil(t, p.Updates())
	assert.False(t, p.UpdatesAvailable())
}

func TestUpdatesEmptyWhenCurrent(t *testing.T) {
	p := Package{
		Installed: version.MustParse("3.0.1"),
		Versions:  []*semver.Version{version.MustParse("3.0.1"), version.MustParse("3.0.0")},
	}
	u := p.Updates()
	assert.NotNil(t, u)
	assert.Empty(t, u)
	assert.False(t, p.UpdatesAvailable())
}

func TestUpdatesNewerOnly(t *testing.T) {
	p := Package{
		Installed: version.MustParse("3.0.0"),
		Versions:  []*semver.Version{version.MustParse("3.1.0"), version.MustParse("3.0.1"), version.MustParse("3.0.0"), version.MustParse("2.3.9")},
	}
	assert.Equal(t, []string{"3.1.0", "3.0.1"}, strs(p.Updates()))
	assert.True(t, p.UpdatesAvailable())
}

func TestUpdatesOfferPostRelease(t *testing.T) {
	p := Package{
		Installed: version.MustParse("3.0.0"),
		Versions:  []*semver.Version{version.MustParse("3.0.0.post1"), version.MustParse("3.0.0"), version.MustParse("3.0.0rc10")},
	}
	assert.Equal(t, []string{"3.0.0+post.1"}, strs(p.Updates()))

	p.Installed = version.MustParse("3.0.0.post1")
	assert.False(t, p.UpdatesAvailable())
}

func TestRequirement(t *testing.T) {
	lib := Package{Kind: KindLibrary, Name: "spacy"}
	assert.Equal(t, "spacy==3.0.1", lib.Requirement(version.MustParse("3.0.1")))
	assert.Equal(t, "spacy==3.1.0rc1", lib.Requirement(version.MustParse("3.1.0rc1")))

	model := Package{Kind: KindModel, Name: "en_core_web_sm"}
	assert.Equal(t,
		"https://github.com/explosion/spacy-models/releases/download/en_core_web_sm-3.0.0/en_core_web_sm-3.0.0.tar.gz",
		model.Requirement(version.MustParse("3.0.0")))

	model.DownloadURL = "https://mirror.example/models/"
	assert.Equal(t,
		"https://mirror.example/models/en_core_web_sm-3.1.0a1/en_core_web_sm-3.1.0a1.tar.gz",
		model.Requirement(version.MustParse("3.1.0a1")))
}

func TestDisplayNameAndDetails(t *testing.T) {
	model := Package{Kind: KindModel, Name: "de_core_news_sm", Model: info.ModelInfo{Lang: "de", Description: "German", Size: "14 MB"}}
	assert.Equal(t, "Deutsch - de_core_news_sm", model.DisplayName())
	rows := model.DetailRows()
	assert.Equal(t, Row{"Language", "Deutsch"}, rows[0])
	assert.Equal(t, Row{"Download Size", "14 MB"}, rows[4])

	multi := Package{Kind: KindModel, Name: "xx_ent_wiki_sm", Model: info.ModelInfo{Lang: "xx"}}
	assert.Equal(t, "Multi-language - xx_ent_wiki_sm", multi.DisplayName())

	lib := Package{Kind: KindLibrary, Name: "spacy", Library: info.LibraryFeed{Info: map[string]any{"author": "Explosion"}}}
	assert.Equal(t, "spacy", lib.DisplayName())
	libRows := lib.DetailRows()
	assert.Equal(t, Row{"Author", "Explosion"}, libRows[0])
	assert.Equal(t, libraryDescription, libRows[2].Value)
}

func TestUninstallPaths(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"spacy", "spacy-3.0.1.dist-info", "spacy_legacy", "spacy_legacy-3.0.5.dist-info", "thinc"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spacy.pth"), nil, 0o644))

	p := Package{Kind: KindLibrary, Name: "spacy", InstallDir: dir}
	paths, err := p.UninstallPaths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "spacy"),
		filepath.Join(dir, "spacy-3.0.1.dist-info"),
	}, paths)

	missing := Package{Name: "spacy", InstallDir: filepath.Join(dir, "nope")}
	paths, err = missing.UninstallPaths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPath(t *testing.T) {
	lib := Package{Kind: KindLibrary, Name: "spacy", InstallDir: "/pkgs"}
	assert.Equal(t, filepath.Join("/pkgs", "spacy"), lib.Path())

	model := Package{Kind: KindModel, Name: "en_core_web_sm", InstallDir: "/pkgs", Installed: version.MustParse("3.0.0")}
	assert.Equal(t, filepath.Join("/pkgs", "en_core_web_sm", "en_core_web_sm-3.0.0"), model.Path())
}

func TestLibraryPackage(t *testing.T) {
	r := newResolver(t, fakeDetector{library: version.MustParse("3.0.0")})
	p, err := r.LibraryPackage(false)
	require.NoError(t, err)
	assert.Equal(t, KindLibrary, p.Kind)
	assert.Equal(t, "spacy", p.Name)
	assert.Equal(t, "3.0.0", p.Installed.String())
	assert.Equal(t, []string{"3.1.0", "3.0.1", "3.0.0"}, strs(p.Versions))
	assert.Equal(t, "Explosion", p.Library.Author())
}

func TestModelPackages(t *testing.T) {
	r := newResolver(t, fakeDetector{models: map[string]*semver.Version{"en_core_web_sm": version.MustParse("3.0.0")}})
	pkgs, err := r.ModelPackages(false)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	de, en := pkgs[0], pkgs[1]
	assert.Equal(t, "de_core_news_sm", de.Name)
	assert.Nil(t, de.Installed)
	assert.Nil(t, de.Updates())

	assert.Equal(t, "en_core_web_sm", en.Name)
	assert.Equal(t, []string{"3.0.1", "3.0.0"}, strs(en.Versions))
	assert.Equal(t, "3.0.1", en.Model.Version, "details come from the newest version")
	assert.Equal(t, []string{"spacy"}, en.ExcludeDeps)
	assert.Equal(t, []string{"3.0.1"}, strs(en.Updates()))

	withPre, err := r.ModelPackages(true)
	require.NoError(t, err)
	assert.Len(t, withPre, 3)
}

func TestInstalledModelPackagesIgnorePrereleaseFlag(t *testing.T) {
	r := newResolver(t, fakeDetector{models: map[string]*semver.Version{
		"ja_core_news_sm": version.MustParse("3.1.0a1"),
		"numpy":           version.MustParse("1.20.0"),
	}})
	pkgs, err := r.InstalledModelPackages()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "ja_core_news_sm", pkgs[0].Name)
	assert.Equal(t, "ja", pkgs[0].Lang())
}

func TestFilterCompatible(t *testing.T) {
	r := newResolver(t, fakeDetector{models: map[string]*semver.Version{
		"en_core_web_sm":  version.MustParse("3.0.0"),
		"de_core_news_sm": version.MustParse("3.0.0"),
	}})
	installed, err := r.InstalledModelPackages()
	require.NoError(t, err)

	got, err := r.FilterCompatible(installed, version.MustParse("3.0.1"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "en_core_web_sm", got[0].Name)

	got, err = r.FilterCompatible(installed, version.MustParse("3.0.0"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.FilterCompatible(installed, version.MustParse("2.3.9"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestModelPackageUnknown(t *testing.T) {
	r := newResolver(t, fakeDetector{})
	_, err := r.ModelPackage("xx_nope", false)
	require.ErrorIs(t, err, compat.ErrNotFound)
}
