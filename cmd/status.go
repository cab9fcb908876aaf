package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/compat"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed packages, available updates and compatibility",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	r := ws.resolver(inf)

	fmt.Println("=== Library ===")
	lib, err := r.LibraryPackage(false)
	if err != nil {
		return err
	}
	switch {
	case lib.Installed == nil:
		printMiss(lib.Name, fmt.Sprintf("not installed  (run: nlpm install %s)", lib.Name))
	case lib.UpdatesAvailable():
		printUpdate(lib.Name, fmt.Sprintf("%s installed, %s available", versionText(lib.Installed), versionText(lib.Latest())))
	default:
		printOK(lib.Name, fmt.Sprintf("%s (latest)", versionText(lib.Installed)))
	}

	fmt.Println("\n=== Models ===")
	models, err := r.InstalledModelPackages()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		printMiss("", "no models installed")
		return nil
	}

	var usable, unusable, updates int
	t := newTable(cmd.OutOrStdout(), table.Row{"MODEL", "LANGUAGE", "INSTALLED", "LATEST", "USABLE"})
	for _, m := range models {
		ok, err := inf.IsModelCompatible(m.Name, m.Installed)
		if err != nil && !errors.Is(err, compat.ErrNotFound) {
			return err
		}
		usableText := "no"
		if ok {
			usableText = "yes"
			usable++
		} else {
			unusable++
		}
		if m.UpdatesAvailable() {
			updates++
		}
		t.AppendRow(table.Row{m.Name, languageText(m), versionText(m.Installed), versionText(m.Latest()), usableText})
	}
	t.Render()

	fmt.Printf("\n  %d usable / %d not usable with installed library / %d with updates  (total: %d models)\n",
		usable, unusable, updates, len(models))
	return nil
}
