package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/task"
	"github.com/kamusis/nlpm/internal/version"
)

var (
	flagInstallPreRelease bool
	flagInstallForce      bool
	flagInstallQuiet      bool
)

var installCmd = &cobra.Command{
	Use:   "install <package> [version]",
	Short: "Install the library or a model into the packages directory",
	Long: `Install the library or a model with pip into the packages directory.

Without a version, the library installs its latest release and a model
installs its newest version that the installed library can load. Models
are installed without pulling in the library as a dependency.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&flagInstallPreRelease, "pre-release", false, "Consider pre-release versions")
	installCmd.Flags().BoolVar(&flagInstallForce, "force", false, "Reinstall or install a version the installed library cannot load")
	installCmd.Flags().BoolVarP(&flagInstallQuiet, "quiet", "q", false, "Do not echo pip output")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	r := ws.resolver(inf)

	var want *semver.Version
	preRelease := flagInstallPreRelease
	if len(args) == 2 {
		if want, err = version.Parse(args[1]); err != nil {
			return err
		}
		preRelease = preRelease || version.IsPrerelease(want)
	}
	pkg, err := ws.resolvePackage(r, args[0], preRelease)
	if err != nil {
		return err
	}

	v, err := installVersion(inf, pkg, want)
	if err != nil {
		return err
	}
	if pkg.Installed != nil && version.Equal(pkg.Installed, v) && !flagInstallForce {
		printSkip(pkg.Name, fmt.Sprintf("%s is already installed", versionText(v)))
		return nil
	}

	printSection(fmt.Sprintf("Installing %s %s", pkg.Name, versionText(v)))
	in, err := ws.installer()
	if err != nil {
		return err
	}
	fut := task.Go(cmd.Context(), tasks, func(ctx context.Context, progress func(string)) (struct{}, error) {
		return struct{}{}, in.Install(ctx, pkg, v, progress)
	})
	for line := range fut.Progress() {
		if !flagInstallQuiet {
			fmt.Fprintln(cmd.OutOrStdout(), "    "+line)
		}
	}
	if _, err := fut.Wait(); err != nil {
		printErr(pkg.Name, "install failed")
		return err
	}
	printOK(pkg.Name, fmt.Sprintf("%s installed into %s", versionText(v), pkg.InstallDir))

	n := ws.notifier(r)
	previous := pkg.Installed
	if previous != nil && !version.Equal(previous, v) {
		if err := n.OnUninstalled(cmd.Context(), pkg, previous); err != nil {
			return err
		}
	}
	pkg.Installed = v
	return n.OnInstalled(cmd.Context(), pkg)
}

// installVersion picks the version to install. A requested version must be
// offered; otherwise the library takes its latest release and a model its
// newest version loadable by the installed library.
func installVersion(inf *info.Info, pkg packages.Package, want *semver.Version) (*semver.Version, error) {
	if want != nil {
		if !version.Contains(pkg.Versions, want) {
			return nil, fmt.Errorf("%w: %s %s", compat.ErrNotFound, pkg.Name, version.PythonString(want))
		}
		if pkg.Kind == packages.KindModel {
			if err := checkModelCompatible(inf, pkg, want); err != nil {
				return nil, err
			}
		}
		return want, nil
	}

	if pkg.Kind != packages.KindModel {
		if v := pkg.Latest(); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%w: no %s release to install", compat.ErrNotFound, pkg.Name)
	}

	lib, err := inf.Detector().InstalledLibraryVersion()
	if err != nil {
		return nil, err
	}
	if lib == nil {
		printWarn(pkg.Name, "library not installed; choosing the newest model version")
		if v := pkg.Latest(); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s has no versions", compat.ErrNotFound, pkg.Name)
	}
	for _, v := range pkg.Versions {
		ok, err := inf.IsModelCompatible(pkg.Name, v)
		if err != nil && !errors.Is(err, compat.ErrNotFound) {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	if flagInstallForce && pkg.Latest() != nil {
		return pkg.Latest(), nil
	}
	return nil, fmt.Errorf("%s: no version usable with installed library %s: %w",
		pkg.Name, version.PythonString(lib), errIncompatible)
}

func checkModelCompatible(inf *info.Info, pkg packages.Package, v *semver.Version) error {
	ok, err := inf.IsModelCompatible(pkg.Name, v)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	lib, err := inf.Detector().InstalledLibraryVersion()
	if err != nil {
		return err
	}
	if lib == nil {
		return nil
	}
	if flagInstallForce {
		printWarn(pkg.Name, fmt.Sprintf("%s cannot be loaded by installed library %s", versionText(v), versionText(lib)))
		return nil
	}
	return fmt.Errorf("%s %s with installed library %s: %w (use --force to install anyway)",
		pkg.Name, versionText(v), versionText(lib), errIncompatible)
}
