package version

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in         string
		want       string
		prerelease bool
	}{
		{"2.3.2", "2.3.2", false},
		{"v3.0.0", "3.0.0", false},
		{"1.0", "1.0.0", false},
		{"3.0.0a1", "3.0.0-a.1", true},
		{"3.0.0a10", "3.0.0-a.10", true},
		{"3.0.0a01", "3.0.0-a.1", true},
		{"2.0.0rc2", "2.0.0-rc.2", true},
		{"2.0.0.rc2", "2.0.0-rc.2", true},
		{"3.0.0b", "3.0.0-b.0", true},
		{"2.1.0.dev3", "2.1.0-dev.3", true},
		{"2.1.0a1.dev2", "2.1.0-a.1.dev.2", true},
		{"1.0.0.post1", "1.0.0+post.1", false},
		{"1.0.0.post1.dev2", "1.0.0+post.1.dev.2", true},
		{"3.0.0-rc.1", "3.0.0-rc.1", true},
	}
	for _, c := range cases {
		v, err := Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, v.String(), c.in)
		assert.Equal(t, c.prerelease, IsPrerelease(v), c.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "latest", "1.2.3.4", "a.b.c"} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrInvalidVersion, in)
	}
}

func TestPrereleaseOrdersBeforeRelease(t *testing.T) {
	vs := []*semver.Version{
		MustParse("3.0.0"),
		MustParse("3.0.0rc1"),
		MustParse("3.0.0a1"),
		MustParse("3.0.0.dev1"),
		MustParse("3.0.0b2"),
		MustParse("2.3.5"),
	}
	SortDescending(vs)
	assert.Equal(t, []string{"3.0.0", "3.0.0rc1", "3.0.0b2", "3.0.0a1", "3.0.0.dev1", "2.3.5"}, pythonStrings(vs))
}

func TestPrereleaseNumbersOrderNumerically(t *testing.T) {
	vs := []*semver.Version{
		MustParse("3.0.0a2"),
		MustParse("3.0.0rc2"),
		MustParse("3.0.0a10"),
		MustParse("3.0.0rc10"),
		MustParse("3.0.0a1.dev2"),
		MustParse("3.0.0a1"),
		MustParse("3.0.0b9"),
	}
	SortDescending(vs)
	assert.Equal(t, []string{"3.0.0rc10", "3.0.0rc2", "3.0.0b9", "3.0.0a10", "3.0.0a2", "3.0.0a1", "3.0.0a1.dev2"}, pythonStrings(vs))
}

func TestPostReleaseOrdersAfterRelease(t *testing.T) {
	vs := []*semver.Version{
		MustParse("1.0.0"),
		MustParse("1.0.1"),
		MustParse("1.0.0.post1"),
		MustParse("1.0.0.post10"),
		MustParse("1.0.0.post2"),
		MustParse("1.0.0.post2.dev1"),
	}
	SortDescending(vs)
	assert.Equal(t, []string{"1.0.1", "1.0.0.post10", "1.0.0.post2", "1.0.0.post2.dev1", "1.0.0.post1", "1.0.0"}, pythonStrings(vs))

	assert.Equal(t, -1, Compare(MustParse("1.0.0"), MustParse("1.0.0.post1")))
	assert.False(t, Equal(MustParse("1.0.0"), MustParse("1.0.0.post1")))
	assert.False(t, Contains([]*semver.Version{MustParse("1.0.0")}, MustParse("1.0.0.post1")))
}

func TestCompareEquivalentSpellings(t *testing.T) {
	pairs := [][2]string{
		{"3.0.0a1", "3.0.0-a.1"},
		{"3.0.0-rc1", "3.0.0rc1"},
		{"3.0.0-alpha.2", "3.0.0a2"},
		{"1.0.0+post1", "1.0.0.post1"},
		{"2.3", "2.3.0"},
	}
	for _, p := range pairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		assert.True(t, Equal(a, b), p)
		assert.Equal(t, Key(a), Key(b), p)
	}
}

func TestCompareFallsBackToSemver(t *testing.T) {
	assert.Equal(t, -1, Compare(MustParse("1.0.0-x.1"), MustParse("1.0.0-x.2")))
	assert.Equal(t, 1, Compare(MustParse("1.0.0"), MustParse("1.0.0-x.2")))
	assert.NotEqual(t, 0, Compare(MustParse("1.0.0+build1"), MustParse("1.0.0+build2")))
}

func pythonStrings(vs []*semver.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = PythonString(v)
	}
	return out
}

func TestContains(t *testing.T) {
	vs := []*semver.Version{MustParse("2.3.1"), MustParse("2.3.2")}
	assert.True(t, Contains(vs, MustParse("2.3.2")))
	assert.False(t, Contains(vs, MustParse("2.3.0")))
	assert.False(t, Contains(vs, nil))
}

func TestKeyCollapsesEquivalentSpellings(t *testing.T) {
	assert.Equal(t, Key(MustParse("2.3")), Key(MustParse("2.3.0")))
}

func TestPythonString(t *testing.T) {
	cases := map[string]string{
		"3.0.0":        "3.0.0",
		"2.3":          "2.3.0",
		"3.0.0a1":      "3.0.0a1",
		"2.0.0rc2":     "2.0.0rc2",
		"2.1.0.dev3":   "2.1.0.dev3",
		"3.0.0a1.dev2": "3.0.0a1.dev2",
		"1.0.0.post1":  "1.0.0.post1",
		"3.0.0a10":     "3.0.0a10",
		"3.0.0-rc.1":   "3.0.0rc1",
		"1.0.0-x.1":    "1.0.0-x.1",
	}
	for in, want := range cases {
		assert.Equal(t, want, PythonString(MustParse(in)), in)
	}
}
