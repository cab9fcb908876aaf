// Package installer installs and removes packages in the packages directory
// by running pip in a subprocess.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/nlpm/internal/detect"
	"github.com/kamusis/nlpm/internal/fsutil"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/pyenv"
	"github.com/kamusis/nlpm/internal/version"
)

// DefaultLockTimeout bounds the wait for another install in the same
// packages directory.
const DefaultLockTimeout = 5 * time.Minute

const lockName = ".nlpm-install.lock"

// InstallError reports a failed install or uninstall together with the
// package it was for.
type InstallError struct {
	Op      string
	Package packages.Package
	Version *semver.Version
	Err     error
}

func (e *InstallError) Error() string {
	if e.Version != nil {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Package.Name, version.PythonString(e.Version), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Package.Name, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Installer drives pip for one packages directory at a time.
type Installer struct {
	// Python is the interpreter used to run pip.
	Python   string
	Runner   CommandRunner
	Registry *pyenv.Registry
	// LockTimeout defaults to DefaultLockTimeout.
	LockTimeout time.Duration
}

// DefaultPython is the interpreter name used when none is configured.
func DefaultPython() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

func (in Installer) python() string {
	if in.Python != "" {
		return in.Python
	}
	return DefaultPython()
}

func (in Installer) runner() CommandRunner {
	if in.Runner != nil {
		return in.Runner
	}
	return ExecRunner{}
}

func (in Installer) lockTimeout() time.Duration {
	if in.LockTimeout > 0 {
		return in.LockTimeout
	}
	return DefaultLockTimeout
}

// PipArgs builds the pip arguments that install target into dir.
func PipArgs(dir, target string, noDeps bool) []string {
	args := []string{
		"-m", "pip", "install",
		"--upgrade",
		"--no-cache-dir",
		"--disable-pip-version-check",
		"-t", dir,
		target,
	}
	if noDeps {
		args = append(args, "--no-deps")
	}
	return args
}

// Install installs version v of pkg. Packages with excluded dependencies are
// installed without dependencies first; their remaining requirements are
// then installed one by one. Output lines are passed to progress.
func (in Installer) Install(ctx context.Context, pkg packages.Package, v *semver.Version, progress func(string)) error {
	fail := func(err error) error {
		return &InstallError{Op: "install", Package: pkg, Version: v, Err: err}
	}
	if err := fsutil.EnsureDir(pkg.InstallDir); err != nil {
		return fail(err)
	}
	unlock, err := fsutil.Lock(ctx, filepath.Join(pkg.InstallDir, lockName), in.lockTimeout())
	if err != nil {
		return fail(err)
	}
	defer unlock()

	noDeps := len(pkg.ExcludeDeps) > 0
	if err := in.pip(ctx, pkg.InstallDir, pkg.Requirement(v), noDeps, progress); err != nil {
		return fail(err)
	}

	if noDeps {
		reqs, err := in.remainingRequirements(pkg)
		if err != nil {
			return fail(err)
		}
		for _, req := range reqs {
			if err := in.pip(ctx, pkg.InstallDir, req.Spec, false, progress); err != nil {
				return fail(fmt.Errorf("dependency %s: %w", req.Name, err))
			}
		}
	}

	in.reload(ctx, pkg.InstallDir)
	return nil
}

// remainingRequirements lists the installed package's requirements minus
// the excluded ones.
func (in Installer) remainingRequirements(pkg packages.Package) ([]detect.Requirement, error) {
	dist, ok, err := detect.Scanner{Dir: pkg.InstallDir}.Distribution(pkg.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s not found in %s after install", pkg.Name, pkg.InstallDir)
	}
	excluded := make([]string, len(pkg.ExcludeDeps))
	for i, name := range pkg.ExcludeDeps {
		excluded[i] = detect.NormalizeName(name)
	}
	var out []detect.Requirement
	for _, req := range dist.Requires {
		if slices.Contains(excluded, detect.NormalizeName(req.Name)) {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (in Installer) pip(ctx context.Context, dir, target string, noDeps bool, progress func(string)) error {
	if progress == nil {
		progress = func(string) {}
	}
	env := append(os.Environ(), "LC_ALL=en_US.UTF-8")
	if in.Registry != nil {
		env = in.Registry.Environ(env)
	}
	out := &lineWriter{emit: progress}
	cmd := Command{
		Path:   in.python(),
		Args:   PipArgs(dir, target, noDeps),
		Env:    env,
		Output: out,
	}
	slogcontext.FromCtx(ctx).Info("running pip install", "command", cmd.String())
	err := in.runner().Run(ctx, cmd)
	out.Flush()
	if err != nil {
		slogcontext.FromCtx(ctx).Debug("pip install failed", "target", target, "err", err)
	}
	return err
}

// Uninstall removes every directory pkg owns in its install directory.
func (in Installer) Uninstall(ctx context.Context, pkg packages.Package) error {
	fail := func(err error) error {
		return &InstallError{Op: "uninstall", Package: pkg, Version: pkg.Installed, Err: err}
	}
	if err := fsutil.EnsureDir(pkg.InstallDir); err != nil {
		return fail(err)
	}
	unlock, err := fsutil.Lock(ctx, filepath.Join(pkg.InstallDir, lockName), in.lockTimeout())
	if err != nil {
		return fail(err)
	}
	defer unlock()

	paths, err := pkg.UninstallPaths()
	if err != nil {
		return fail(err)
	}
	log := slogcontext.FromCtx(ctx)
	for _, p := range paths {
		log.Debug("removing", "path", p)
		if err := fsutil.RemovePath(p); err != nil {
			return fail(err)
		}
	}
	in.reload(ctx, pkg.InstallDir)
	return nil
}

func (in Installer) reload(ctx context.Context, dir string) {
	if in.Registry == nil {
		return
	}
	loaded := in.Registry.Reload(dir)
	slogcontext.FromCtx(ctx).Debug("reloaded packages directory", "dir", dir, "loaded", loaded)
}
