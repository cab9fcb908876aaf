// Package version parses and orders release versions of the library and its
// models. Versions published to Python package indexes use PEP 440 spellings
// (3.0.0a1, 2.0.0rc2, 2.1.0.dev3, 1.0.0.post1); Parse rewrites those into
// semantic versions and Compare orders them by PEP 440 rules.
package version

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

// pep440 matches the release segment followed by an optional pre-release,
// post-release or dev-release suffix.
var pep440 = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?(?:[-_.]?(post|rev|r)[-_.]?(\d*))?(?:[-_.]?(dev)[-_.]?(\d*))?$`)

var preLabels = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

// Parse parses s into a semantic version.
func Parse(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)
	if v, err := semver.NewVersion(s); err == nil {
		return v, nil
	}
	normalized, ok := normalize(strings.ToLower(s))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	v, err := semver.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) *semver.Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalize(s string) (string, bool) {
	m := pep440.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	release := strings.Split(m[1], ".")
	if len(release) > 3 {
		return "", false
	}
	for len(release) < 3 {
		release = append(release, "0")
	}
	out := strings.Join(release, ".")

	// Label and number are separate identifiers so semver compares the
	// number numerically. A dev marker goes with the post-release when
	// there is one.
	var pre, md []string
	if m[2] != "" {
		pre = append(pre, preLabels[m[2]], numberOrZero(m[3]))
	}
	if m[4] != "" {
		md = append(md, "post", numberOrZero(m[5]))
	}
	if m[6] != "" {
		if len(md) > 0 {
			md = append(md, "dev", numberOrZero(m[7]))
		} else {
			pre = append(pre, "dev", numberOrZero(m[7]))
		}
	}
	if len(pre) > 0 {
		out += "-" + strings.Join(pre, ".")
	}
	if len(md) > 0 {
		out += "+" + strings.Join(md, ".")
	}
	return out, true
}

// numberOrZero drops leading zeros, which semver rejects in numeric
// identifiers.
func numberOrZero(s string) string {
	if s = strings.TrimLeft(s, "0"); s == "" {
		return "0"
	}
	return s
}

const (
	phaseDev = iota
	phaseAlpha
	phaseBeta
	phaseRC
	phaseFinal
)

const noDev = math.MaxInt

var phases = map[string]int{"a": phaseAlpha, "b": phaseBeta, "rc": phaseRC}

var phaseLabels = map[int]string{phaseAlpha: "a", phaseBeta: "b", phaseRC: "rc"}

// rank is the PEP 440 position of a version within its release:
// dev-only < alpha < beta < rc < final, then the pre-release number,
// then post-release, then dev (a missing dev sorts after any dev).
type rank struct {
	phase int
	pre   int
	post  int
	dev   int
}

func (r rank) compare(o rank) int {
	if c := cmp.Compare(r.phase, o.phase); c != 0 {
		return c
	}
	if c := cmp.Compare(r.pre, o.pre); c != 0 {
		return c
	}
	if c := cmp.Compare(r.post, o.post); c != 0 {
		return c
	}
	return cmp.Compare(r.dev, o.dev)
}

var identifier = regexp.MustCompile(`^([a-z]+)(\d*)$`)

// labelled reads one "label[N]" or "label.N" group from ids.
func labelled(ids []string) (string, int, []string, bool) {
	m := identifier.FindStringSubmatch(strings.ToLower(ids[0]))
	if m == nil {
		return "", 0, nil, false
	}
	label, digits, rest := m[1], m[2], ids[1:]
	if digits == "" && len(rest) > 0 && isNumeric(rest[0]) {
		digits, rest = rest[0], rest[1:]
	}
	n := 0
	if digits != "" {
		var err error
		if n, err = strconv.Atoi(digits); err != nil {
			return "", 0, nil, false
		}
	}
	return label, n, rest, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// rankOf reads the PEP 440 position of v from its pre-release and build
// metadata. It fails for tags outside the PEP 440 vocabulary.
func rankOf(v *semver.Version) (rank, bool) {
	r := rank{phase: phaseFinal, post: -1, dev: noDev}

	if ids := splitIDs(v.Prerelease()); len(ids) > 0 {
		label, n, rest, ok := labelled(ids)
		if !ok {
			return rank{}, false
		}
		if label == "dev" {
			r.phase, r.dev = phaseDev, n
		} else {
			phase, ok := phases[preLabels[label]]
			if !ok {
				return rank{}, false
			}
			r.phase, r.pre = phase, n
			if len(rest) > 0 {
				label, n, rest, ok = labelled(rest)
				if !ok || label != "dev" {
					return rank{}, false
				}
				r.dev = n
			}
		}
		if len(rest) > 0 {
			return rank{}, false
		}
	}

	if ids := splitIDs(v.Metadata()); len(ids) > 0 {
		label, n, rest, ok := labelled(ids)
		if !ok || label != "post" {
			return rank{}, false
		}
		r.post = n
		if len(rest) > 0 {
			label, n, rest, ok = labelled(rest)
			if !ok || label != "dev" || len(rest) > 0 || r.dev != noDev {
				return rank{}, false
			}
			r.dev = n
		}
	}
	return r, true
}

// Compare orders a and b the way PEP 440 does: 1.0.0.dev1 < 1.0.0a2 <
// 1.0.0a10 < 1.0.0rc1 < 1.0.0 < 1.0.0.post1 < 1.0.1. Tags outside the PEP
// 440 vocabulary fall back to semver precedence, with build metadata as the
// final tie-breaker so Compare agrees with Key.
func Compare(a, b *semver.Version) int {
	if c := cmp.Compare(a.Major(), b.Major()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor(), b.Minor()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Patch(), b.Patch()); c != 0 {
		return c
	}
	ra, okA := rankOf(a)
	rb, okB := rankOf(b)
	if okA && okB {
		return ra.compare(rb)
	}
	if c := a.Compare(b); c != 0 {
		return c
	}
	return strings.Compare(a.Metadata(), b.Metadata())
}

// Equal reports whether a and b are the same release.
func Equal(a, b *semver.Version) bool {
	return Compare(a, b) == 0
}

// IsPrerelease reports whether v is a pre-release or dev release.
func IsPrerelease(v *semver.Version) bool {
	if r, ok := rankOf(v); ok {
		return r.phase != phaseFinal || r.dev != noDev
	}
	return v.Prerelease() != ""
}

// Key returns the canonical string used to deduplicate versions and name
// cache files. Spellings that compare equal share a key.
func Key(v *semver.Version) string {
	return PythonString(v)
}

// SortDescending sorts versions newest first, in place.
func SortDescending(vs []*semver.Version) {
	slices.SortFunc(vs, func(a, b *semver.Version) int {
		return Compare(b, a)
	})
}

// Contains reports whether vs holds a version equal to v.
func Contains(vs []*semver.Version, v *semver.Version) bool {
	if v == nil {
		return false
	}
	return slices.ContainsFunc(vs, func(x *semver.Version) bool {
		return Equal(x, v)
	})
}

// PythonString renders v in PEP 440 form, the spelling package indexes and
// release URLs use: 3.0.0-a.1 becomes 3.0.0a1, 2.1.0-dev.3 becomes
// 2.1.0.dev3 and 1.0.0+post.1 becomes 1.0.0.post1.
func PythonString(v *semver.Version) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	r, ok := rankOf(v)
	if !ok {
		if pre := v.Prerelease(); pre != "" {
			b.WriteString("-" + pre)
		}
		if md := v.Metadata(); md != "" {
			b.WriteString("+" + md)
		}
		return b.String()
	}
	if label, ok := phaseLabels[r.phase]; ok {
		fmt.Fprintf(&b, "%s%d", label, r.pre)
	}
	if r.post >= 0 {
		fmt.Fprintf(&b, ".post%d", r.post)
	}
	if r.dev != noDev {
		fmt.Fprintf(&b, ".dev%d", r.dev)
	}
	return b.String()
}
