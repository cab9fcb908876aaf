package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDistInfo(t *testing.T, dir, name, ver string, requires ...string) {
	t.Helper()
	info := filepath.Join(dir, name+"-"+ver+".dist-info")
	require.NoError(t, os.MkdirAll(info, 0o755))
	var b strings.Builder
	b.WriteString("Metadata-Version: 2.1\n")
	b.WriteString("Name: " + name + "\n")
	b.WriteString("Version: " + ver + "\n")
	b.WriteString("Summary: test package\n")
	for _, r := range requires {
		b.WriteString("Requires-Dist: " + r + "\n")
	}
	b.WriteString("\nLong description body.\nName: not-a-header\n")
	require.NoError(t, os.WriteFile(filepath.Join(info, "METADATA"), []byte(b.String()), 0o644))
}

func TestMissingDirectoryHasNothingInstalled(t *testing.T) {
	s := Scanner{Dir: filepath.Join(t.TempDir(), "missing"), Library: "spacy"}

	dists, err := s.Distributions()
	require.NoError(t, err)
	assert.Empty(t, dists)

	v, err := s.InstalledLibraryVersion()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestScannerReadsDistInfo(t *testing.T) {
	dir := t.TempDir()
	writeDistInfo(t, dir, "spacy", "3.0.1",
		"thinc (<8.1.0,>=8.0.3)",
		"spacy-legacy<3.1.0,>=3.0.4",
		`cupy-cuda110<9.0.0,>=5.0.0b4; extra == "cuda110"`,
	)
	writeDistInfo(t, dir, "en-core-web-sm", "3.0.0", "spacy<3.1.0,>=3.0.0")
	writeDistInfo(t, dir, "numpy", "1.20.1")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "spacy"), 0o755))

	s := Scanner{Dir: dir, Library: "spacy"}

	dists, err := s.Distributions()
	require.NoError(t, err)
	require.Len(t, dists, 3)
	assert.Equal(t, "en-core-web-sm", dists[0].Name)

	v, err := s.InstalledLibraryVersion()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "3.0.1", v.String())

	d, ok, err := s.Distribution("spacy")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, d.Requires, 2, "extras are not installed by default")
	assert.Equal(t, "thinc", d.Requires[0].Name)
	assert.Equal(t, "thinc (<8.1.0,>=8.0.3)", d.Requires[0].Spec)
	assert.Equal(t, "spacy-legacy", d.Requires[1].Name)

	models, err := s.InstalledModelVersions(func(name string) bool { return strings.HasPrefix(name, "en_") })
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "3.0.0", models["en_core_web_sm"].String())
}

func TestScannerPrefersNewestDuplicate(t *testing.T) {
	dir := t.TempDir()
	writeDistInfo(t, dir, "spacy", "2.3.2")
	writeDistInfo(t, dir, "spacy", "3.0.0")

	v, err := Scanner{Dir: dir, Library: "spacy"}.InstalledLibraryVersion()
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", v.String())
}

func TestScannerReadsEggInfo(t *testing.T) {
	dir := t.TempDir()
	egg := filepath.Join(dir, "de_core_news_sm.egg-info")
	require.NoError(t, os.MkdirAll(egg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(egg, "PKG-INFO"),
		[]byte("Metadata-Version: 1.0\nName: de_core_news_sm\nVersion: 3.0.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(egg, "requires.txt"),
		[]byte("spacy<3.1.0,>=3.0.0\n\n[gpu]\ncupy\n"), 0o644))

	d, ok, err := Scanner{Dir: dir}.Distribution("de-core-news-sm")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3.0.0", d.Version.String())
	require.Len(t, d.Requires, 1)
	assert.Equal(t, "spacy", d.Requires[0].Name)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "en_core_web_sm", NormalizeName("en-core-web-sm"))
	assert.Equal(t, "zope_interface", NormalizeName("zope.interface"))
	assert.Equal(t, "spacy", NormalizeName("spaCy"))
}

func TestParseRequirement(t *testing.T) {
	req, ok := ParseRequirement("  srsly<3.0.0,>=2.4.0 ")
	require.True(t, ok)
	assert.Equal(t, "srsly", req.Name)
	assert.Equal(t, "srsly<3.0.0,>=2.4.0", req.Spec)

	_, ok = ParseRequirement(";;")
	assert.False(t, ok)
}
