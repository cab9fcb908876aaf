package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/version"
)

var (
	flagCompatLibrary    string
	flagCompatPreRelease bool
)

var compatCmd = &cobra.Command{
	Use:   "compat <model> <version> | --library <version>",
	Short: "Show which library releases can load a model version",
	Long: `Show which library releases can load the given model version, and
whether the installed library is one of them.

With --library, list the models that have at least one version usable
with that library release instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if flagCompatLibrary != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runCompat,
}

func init() {
	compatCmd.Flags().StringVar(&flagCompatLibrary, "library", "", "List the models supported by this library version")
	compatCmd.Flags().BoolVar(&flagCompatPreRelease, "pre-release", false, "Include pre-release model versions (with --library)")
	rootCmd.AddCommand(compatCmd)
}

func runCompat(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}

	if flagCompatLibrary != "" {
		v, err := version.Parse(flagCompatLibrary)
		if err != nil {
			return err
		}
		printSection(fmt.Sprintf("Models for %s %s", ws.cfg.Library, version.PythonString(v)))
		names := inf.ModelsSupporting(v, flagCompatPreRelease)
		if len(names) == 0 {
			printMiss("", "no compatible models")
			return nil
		}
		for _, name := range names {
			printOK("", name)
		}
		return nil
	}

	name := args[0]
	v, err := version.Parse(args[1])
	if err != nil {
		return err
	}
	libs, err := inf.CompatibleLibraryVersions(name, v)
	if err != nil {
		return err
	}

	printSection(fmt.Sprintf("%s %s", name, version.PythonString(v)))
	if len(libs) == 0 {
		printMiss("", fmt.Sprintf("no %s release can load this version", ws.cfg.Library))
	} else {
		printInfo("", fmt.Sprintf("%s releases: %s", ws.cfg.Library, joinVersions(libs)))
	}

	installed, err := ws.detector.InstalledLibraryVersion()
	if err != nil {
		return err
	}
	if installed == nil {
		printSkip(ws.cfg.Library, "not installed")
		return nil
	}
	ok, err := inf.IsModelCompatible(name, v)
	if err != nil {
		return err
	}
	if !ok {
		printWarn(ws.cfg.Library, fmt.Sprintf("installed %s cannot load it", version.PythonString(installed)))
		return fmt.Errorf("%s %s: %w", name, version.PythonString(v), errIncompatible)
	}
	printOK(ws.cfg.Library, fmt.Sprintf("installed %s can load it", version.PythonString(installed)))
	return nil
}
