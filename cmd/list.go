package cmd

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/lang"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/version"
)

var (
	flagListModels     bool
	flagListPreRelease bool
	flagListInstalled  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the library and the available models",
	Long: `List the managed library and every model offered by the cached
compatibility table, with the installed and latest versions.

Run 'nlpm refresh' first to populate the cache.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&flagListModels, "models", false, "List models only")
	listCmd.Flags().BoolVar(&flagListPreRelease, "pre-release", false, "Include pre-release versions")
	listCmd.Flags().BoolVar(&flagListInstalled, "installed", false, "List installed packages only")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	r := ws.resolver(inf)

	var pkgs []packages.Package
	if !flagListModels {
		lib, err := r.LibraryPackage(flagListPreRelease)
		if err != nil {
			return err
		}
		if !flagListInstalled || lib.Installed != nil {
			pkgs = append(pkgs, lib)
		}
	}
	var models []packages.Package
	if flagListInstalled {
		models, err = r.InstalledModelPackages()
	} else {
		models, err = r.ModelPackages(flagListPreRelease)
	}
	if err != nil {
		return err
	}
	pkgs = append(pkgs, models...)

	if len(pkgs) == 0 {
		printMiss("", "no packages found")
		return nil
	}

	t := newTable(cmd.OutOrStdout(), table.Row{"PACKAGE", "LANGUAGE", "INSTALLED", "LATEST", "STATUS"})
	for _, p := range pkgs {
		t.AppendRow(table.Row{p.Name, languageText(p), versionText(p.Installed), versionText(p.Latest()), statusText(p)})
	}
	t.Render()
	return nil
}

func versionText(v *semver.Version) string {
	if v == nil {
		return "-"
	}
	return version.PythonString(v)
}

func languageText(p packages.Package) string {
	if p.Lang() == "" {
		return ""
	}
	return lang.Name(p.Lang())
}

func statusText(p packages.Package) string {
	switch {
	case p.Installed == nil:
		return "not installed"
	case p.UpdatesAvailable():
		return fmt.Sprintf("update: %s", versionText(p.Updates()[0]))
	default:
		return "up to date"
	}
}
