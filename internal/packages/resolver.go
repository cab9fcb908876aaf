package packages

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/version"
)

// Resolver builds descriptors from one Info snapshot and the packages
// currently installed.
type Resolver struct {
	Info *info.Info
	// Detector defaults to the one Info was built with.
	Detector   info.Detector
	InstallDir string
	// Library is the managed library's distribution name.
	Library          string
	ModelDownloadURL string
}

func (r Resolver) detector() info.Detector {
	if r.Detector != nil {
		return r.Detector
	}
	return r.Info.Detector()
}

func (r Resolver) installedLibrary() (*semver.Version, error) {
	d := r.detector()
	if d == nil {
		return nil, nil
	}
	return d.InstalledLibraryVersion()
}

func (r Resolver) installedModels() (map[string]*semver.Version, error) {
	d := r.detector()
	if d == nil {
		return map[string]*semver.Version{}, nil
	}
	return d.InstalledModelVersions(r.Info.IsModel)
}

// LibraryPackage describes the library.
func (r Resolver) LibraryPackage(preRelease bool) (Package, error) {
	installed, err := r.installedLibrary()
	if err != nil {
		return Package{}, fmt.Errorf("detect installed %s: %w", r.Library, err)
	}
	return Package{
		Kind:       KindLibrary,
		Name:       r.Library,
		InstallDir: r.InstallDir,
		Installed:  installed,
		Versions:   r.Info.LibraryVersions(preRelease),
		Library:    r.Info.LibraryDetails(),
	}, nil
}

// ModelPackages describes every model offered under the pre-release flag,
// alphabetically.
func (r Resolver) ModelPackages(preRelease bool) ([]Package, error) {
	installed, err := r.installedModels()
	if err != nil {
		return nil, fmt.Errorf("detect installed models: %w", err)
	}
	return r.modelPackages(r.Info.ModelNames(preRelease), installed, preRelease)
}

// InstalledModelPackages describes the installed models. An installed model
// is listed even when all of its versions are pre-releases.
func (r Resolver) InstalledModelPackages() ([]Package, error) {
	installed, err := r.installedModels()
	if err != nil {
		return nil, fmt.Errorf("detect installed models: %w", err)
	}
	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)
	return r.modelPackages(names, installed, true)
}

// ModelPackage describes one model by name.
func (r Resolver) ModelPackage(name string, preRelease bool) (Package, error) {
	installed, err := r.installedModels()
	if err != nil {
		return Package{}, fmt.Errorf("detect installed models: %w", err)
	}
	if _, ok := installed[name]; ok {
		preRelease = true
	}
	pkgs, err := r.modelPackages([]string{name}, installed, preRelease)
	if err != nil {
		return Package{}, err
	}
	return pkgs[0], nil
}

func (r Resolver) modelPackages(names []string, installed map[string]*semver.Version, preRelease bool) ([]Package, error) {
	out := make([]Package, 0, len(names))
	for _, name := range names {
		versions, err := r.Info.VersionsForModel(name, preRelease)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s has no versions", compat.ErrNotFound, name)
		}
		details, err := r.Info.LoadModelInfo(name, versions[0])
		if err != nil {
			return nil, err
		}
		out = append(out, Package{
			Kind:        KindModel,
			Name:        name,
			InstallDir:  r.InstallDir,
			Installed:   installed[name],
			Versions:    versions,
			ExcludeDeps: []string{r.Library},
			Model:       details,
			DownloadURL: r.ModelDownloadURL,
		})
	}
	return out, nil
}

// FilterCompatible keeps the installed models whose installed version works
// with library version v. Models whose installed version is not in the
// index are treated as incompatible.
func (r Resolver) FilterCompatible(pkgs []Package, v *semver.Version) ([]Package, error) {
	var out []Package
	for _, p := range pkgs {
		if p.Kind != KindModel || p.Installed == nil {
			continue
		}
		libs, err := r.Info.CompatibleLibraryVersions(p.Name, p.Installed)
		if err != nil {
			if errors.Is(err, compat.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if version.Contains(libs, v) {
			out = append(out, p)
		}
	}
	return out, nil
}
