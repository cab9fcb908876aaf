// Package info answers version and compatibility questions against the
// cached library feed and model compatibility matrix.
//
// An Info is built from scratch every time the cache is read and never
// changes afterwards; callers replace their reference after a refresh.
package info

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/version"
)

// DefaultEarliest is the display floor: only library releases strictly newer
// than this are offered.
var DefaultEarliest = version.MustParse("2.3.9")

// Detector reports what is installed in the packages directory.
type Detector interface {
	// InstalledLibraryVersion returns nil when the library is not installed.
	InstalledLibraryVersion() (*semver.Version, error)
	// InstalledModelVersions returns the installed distributions accepted by
	// isModel, keyed by underscored name.
	InstalledModelVersions(isModel func(string) bool) (map[string]*semver.Version, error)
}

type options struct {
	earliest *semver.Version
	floor    *semver.Version
	detector Detector
	layout   cache.Layout
	logger   *slog.Logger
}

// Option configures an Info.
type Option func(*options)

// WithEarliest sets the display floor for library versions.
func WithEarliest(v *semver.Version) Option {
	return func(o *options) { o.earliest = v }
}

// WithFloor sets the structural floor applied when building the index.
func WithFloor(v *semver.Version) Option {
	return func(o *options) { o.floor = v }
}

// WithDetector sets the installed-version detector.
func WithDetector(d Detector) Option {
	return func(o *options) { o.detector = d }
}

// WithLogger sets the logger that reports skipped feed entries.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLayout sets the cache layout model metadata is read from.
func WithLayout(l cache.Layout) Option {
	return func(o *options) { o.layout = l }
}

// Info is an immutable view over one snapshot of the metadata cache.
type Info struct {
	library  LibraryFeed
	releases []*semver.Version
	index    *compat.Index
	earliest *semver.Version
	detector Detector
	layout   cache.Layout
}

// New builds an Info from a parsed library feed and compatibility matrix.
//
// The two inputs are treated differently on bad versions. The package index
// feed publishes every historical release, including legacy keys that are
// not PEP 440 versions; those are logged at debug level and skipped. The
// compatibility matrix is curated, so a bad version there fails New.
func New(library LibraryFeed, feed compat.Feed, opts ...Option) (*Info, error) {
	o := options{earliest: DefaultEarliest, floor: compat.DefaultFloor, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	idx, err := compat.BuildIndex(feed, o.floor)
	if err != nil {
		return nil, err
	}

	releases := make([]*semver.Version, 0, len(library.Releases))
	for raw := range library.Releases {
		v, err := version.Parse(raw)
		if err != nil {
			o.logger.Debug("skipping library release", "release", raw, "err", err)
			continue
		}
		releases = append(releases, v)
	}
	version.SortDescending(releases)

	return &Info{
		library:  library,
		releases: releases,
		index:    idx,
		earliest: o.earliest,
		detector: o.detector,
		layout:   o.layout,
	}, nil
}

// LibraryVersions returns published library releases newer than the
// earliest supported version, newest first.
func (i *Info) LibraryVersions(preRelease bool) []*semver.Version {
	out := make([]*semver.Version, 0, len(i.releases))
	for _, v := range i.releases {
		if !preRelease && version.IsPrerelease(v) {
			continue
		}
		if version.Compare(v, i.earliest) <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ModelNames returns model names in alphabetical order.
func (i *Info) ModelNames(preRelease bool) []string {
	return i.index.ModelNames(preRelease)
}

// VersionsForModel returns the versions of name, newest first.
func (i *Info) VersionsForModel(name string, preRelease bool) ([]*semver.Version, error) {
	return i.index.VersionsForModel(name, preRelease)
}

// CompatibleLibraryVersions returns the library versions that support the
// given model version, newest first.
func (i *Info) CompatibleLibraryVersions(name string, v *semver.Version) ([]*semver.Version, error) {
	return i.index.CompatibleLibraryVersions(name, v)
}

// IsModel reports whether name appears in the compatibility matrix.
func (i *Info) IsModel(name string) bool {
	return i.index.Has(name)
}

// IsModelCompatible reports whether the installed library version supports
// the given model version. It is false when the library is not installed.
func (i *Info) IsModelCompatible(name string, v *semver.Version) (bool, error) {
	if i.detector == nil {
		return false, nil
	}
	installed, err := i.detector.InstalledLibraryVersion()
	if err != nil {
		return false, err
	}
	if installed == nil {
		return false, nil
	}
	versions, err := i.CompatibleLibraryVersions(name, v)
	if err != nil {
		return false, err
	}
	return version.Contains(versions, installed), nil
}

// LoadModelInfo reads the cached metadata for one model version.
func (i *Info) LoadModelInfo(name string, v *semver.Version) (ModelInfo, error) {
	p := i.layout.ModelInfoPath(name, v)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ModelInfo{}, fmt.Errorf("%w: %s %s", ErrModelInfoNotFound, name, version.Key(v))
		}
		return ModelInfo{}, err
	}
	m, err := parseModelInfo(data)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return m, nil
}

// LibraryDetails returns the library's package index entry.
func (i *Info) LibraryDetails() LibraryFeed {
	return i.library
}

// Detector returns the detector this Info was built with, or nil.
func (i *Info) Detector() Detector {
	return i.detector
}

// Earliest returns the display floor in effect.
func (i *Info) Earliest() *semver.Version {
	return i.earliest
}

// LatestLibraryVersion is the newest offered release, or nil.
func (i *Info) LatestLibraryVersion(preRelease bool) *semver.Version {
	versions := i.LibraryVersions(preRelease)
	if len(versions) == 0 {
		return nil
	}
	return versions[0]
}

// ModelsSupporting lists the models with at least one version compatible
// with library version v, alphabetically.
func (i *Info) ModelsSupporting(v *semver.Version, preRelease bool) []string {
	var out []string
	for _, name := range i.ModelNames(preRelease) {
		versions, err := i.VersionsForModel(name, preRelease)
		if err != nil {
			continue
		}
		if slices.ContainsFunc(versions, func(mv *semver.Version) bool {
			libs, err := i.CompatibleLibraryVersions(name, mv)
			return err == nil && version.Contains(libs, v)
		}) {
			out = append(out, name)
		}
	}
	return out
}
