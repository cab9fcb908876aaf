package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/version"
)

var flagShowPreRelease bool

var showCmd = &cobra.Command{
	Use:   "show <package>",
	Short: "Show details, versions and compatibility of the library or a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&flagShowPreRelease, "pre-release", false, "Include pre-release versions")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	pkg, err := ws.resolvePackage(ws.resolver(inf), args[0], flagShowPreRelease)
	if err != nil {
		return err
	}

	printSection(pkg.DisplayName())
	for _, row := range pkg.DetailRows() {
		if row.Value == "" {
			continue
		}
		fmt.Printf("  %-16s %s\n", row.Key+":", row.Value)
	}
	fmt.Printf("  %-16s %s\n", "Installed:", versionText(pkg.Installed))
	if pkg.Installed != nil {
		fmt.Printf("  %-16s %s\n", "Location:", pkg.Path())
	}

	switch pkg.Kind {
	case packages.KindModel:
		return showModelVersions(inf, pkg)
	default:
		return showLibraryVersions(inf, pkg)
	}
}

func showModelVersions(inf *info.Info, pkg packages.Package) error {
	printBullet("Versions (compatible library releases):")
	for _, v := range pkg.Versions {
		libs, err := inf.CompatibleLibraryVersions(pkg.Name, v)
		if err != nil && !errors.Is(err, compat.ErrNotFound) {
			return err
		}
		msg := fmt.Sprintf("%s %s", pkg.Name, versionText(v))
		if len(libs) > 0 {
			msg += "  ← " + joinVersions(libs)
		}
		ok, err := inf.IsModelCompatible(pkg.Name, v)
		if err != nil && !errors.Is(err, compat.ErrNotFound) {
			return err
		}
		switch {
		case pkg.Installed != nil && version.Equal(v, pkg.Installed):
			printOK("installed", msg)
		case ok:
			printInfo("", msg)
		default:
			printSkip("", msg)
		}
	}
	return nil
}

func showLibraryVersions(inf *info.Info, pkg packages.Package) error {
	printBullet("Versions (models supported):")
	for _, v := range pkg.Versions {
		msg := fmt.Sprintf("%s %s  (%d models)", pkg.Name, versionText(v), len(inf.ModelsSupporting(v, false)))
		if pkg.Installed != nil && version.Equal(v, pkg.Installed) {
			printOK("installed", msg)
		} else {
			printInfo("", msg)
		}
	}
	return nil
}

func joinVersions(vs []*semver.Version) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = version.PythonString(v)
	}
	return strings.Join(parts, ", ")
}
