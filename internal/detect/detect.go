// Package detect finds installed Python distributions in a pip target
// directory by reading their core metadata files.
package detect

import (
	"bufio"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/version"
)

// Distribution is one installed package.
type Distribution struct {
	// Name is the project name as recorded in the metadata.
	Name       string
	Version    *semver.Version
	RawVersion string
	Requires   []Requirement
	// MetadataDir is the .dist-info or .egg-info path the entry came from.
	MetadataDir string
}

// Requirement is one Requires-Dist entry.
type Requirement struct {
	Name string
	// Spec is the full requirement string, markers included, as pip accepts it.
	Spec string
}

var requirementName = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

// ParseRequirement extracts the project name from a requirement string.
func ParseRequirement(spec string) (Requirement, bool) {
	m := requirementName.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, false
	}
	return Requirement{Name: m[1], Spec: strings.TrimSpace(spec)}, true
}

// NormalizeName folds a distribution name to the underscored lower-case form
// model names use.
func NormalizeName(name string) string {
	return strings.ToLower(nameFolder.Replace(name))
}

var nameFolder = strings.NewReplacer("-", "_", ".", "_")

// Scanner reads distributions from Dir. Library names the managed library's
// distribution.
type Scanner struct {
	Dir     string
	Library string
}

// Distributions returns every distribution in Dir sorted by normalized name.
// A missing directory has no distributions. When several metadata
// directories describe the same project, the highest version wins.
func (s Scanner) Distributions() ([]Distribution, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	byName := map[string]Distribution{}
	for _, e := range entries {
		dist, ok, err := readEntry(s.Dir, e)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key := NormalizeName(dist.Name)
		if prev, seen := byName[key]; seen && prev.Version != nil && (dist.Version == nil || version.Compare(dist.Version, prev.Version) <= 0) {
			continue
		}
		byName[key] = dist
	}

	out := make([]Distribution, 0, len(byName))
	for _, d := range byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return NormalizeName(out[i].Name) < NormalizeName(out[j].Name)
	})
	return out, nil
}

// Distribution returns the installed distribution called name, compared in
// normalized form.
func (s Scanner) Distribution(name string) (Distribution, bool, error) {
	dists, err := s.Distributions()
	if err != nil {
		return Distribution{}, false, err
	}
	want := NormalizeName(name)
	for _, d := range dists {
		if NormalizeName(d.Name) == want {
			return d, true, nil
		}
	}
	return Distribution{}, false, nil
}

// InstalledLibraryVersion returns the installed library version or nil.
func (s Scanner) InstalledLibraryVersion() (*semver.Version, error) {
	d, ok, err := s.Distribution(s.Library)
	if err != nil || !ok {
		return nil, err
	}
	return d.Version, nil
}

// InstalledModelVersions maps each installed distribution accepted by
// isModel to its version. Keys are normalized names.
func (s Scanner) InstalledModelVersions(isModel func(string) bool) (map[string]*semver.Version, error) {
	dists, err := s.Distributions()
	if err != nil {
		return nil, err
	}
	out := map[string]*semver.Version{}
	for _, d := range dists {
		name := NormalizeName(d.Name)
		if d.Version == nil || !isModel(name) {
			continue
		}
		out[name] = d.Version
	}
	return out, nil
}

func readEntry(dir string, e os.DirEntry) (Distribution, bool, error) {
	p := filepath.Join(dir, e.Name())
	var metaPath, requiresPath string
	switch {
	case strings.HasSuffix(e.Name(), ".dist-info") && e.IsDir():
		metaPath = filepath.Join(p, "METADATA")
	case strings.HasSuffix(e.Name(), ".egg-info") && e.IsDir():
		metaPath = filepath.Join(p, "PKG-INFO")
		requiresPath = filepath.Join(p, "requires.txt")
	case strings.HasSuffix(e.Name(), ".egg-info"):
		metaPath = p
	default:
		return Distribution{}, false, nil
	}

	f, err := os.Open(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Distribution{}, false, nil
		}
		return Distribution{}, false, err
	}
	defer f.Close()

	dist, err := parseMetadata(f)
	if err != nil {
		return Distribution{}, false, err
	}
	if dist.Name == "" {
		return Distribution{}, false, nil
	}
	dist.MetadataDir = p

	if requiresPath != "" && len(dist.Requires) == 0 {
		reqs, err := readRequiresTxt(requiresPath)
		if err != nil {
			return Distribution{}, false, err
		}
		dist.Requires = reqs
	}
	return dist, true, nil
}

// parseMetadata reads the RFC 822 style header block of a METADATA or
// PKG-INFO file. The body after the first blank line is ignored.
func parseMetadata(r io.Reader) (Distribution, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	h, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return Distribution{}, err
	}

	d := Distribution{
		Name:       strings.TrimSpace(h.Get("Name")),
		RawVersion: strings.TrimSpace(h.Get("Version")),
	}
	if v, err := version.Parse(d.RawVersion); err == nil {
		d.Version = v
	}
	for _, spec := range h.Values("Requires-Dist") {
		if isExtra(spec) {
			continue
		}
		if req, ok := ParseRequirement(spec); ok {
			d.Requires = append(d.Requires, req)
		}
	}
	return d, nil
}

// isExtra reports whether a requirement only applies to an optional extra.
func isExtra(spec string) bool {
	_, marker, ok := strings.Cut(spec, ";")
	return ok && strings.Contains(marker, "extra")
}

// readRequiresTxt reads the unconditional requirements of an egg-info
// directory. Sections such as [cuda] hold extras and end the list.
func readRequiresTxt(p string) ([]Requirement, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Requirement
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "[") {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if req, ok := ParseRequirement(line); ok {
			out = append(out, req)
		}
	}
	return out, sc.Err()
}
