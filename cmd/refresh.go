package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/version"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update the cached library feed and model compatibility table",
	Long: `Fetch the library release feed and the model metadata archive.

Both are requested with the ETag stored by the previous refresh, so an
unchanged remote is not downloaded again. Set NLPM_GITHUB_TOKEN when the
GitHub API rate limit is reached.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	printSection("nlpm refresh")
	inf, err := ws.refresh(cmd.Context(), func(msg string) { printInfo("", msg) })
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	lib := ws.cfg.Library
	printOK("", fmt.Sprintf("%d %s release(s), %d model(s) available",
		len(inf.LibraryVersions(false)), lib, len(inf.ModelNames(false))))
	if latest := inf.LatestLibraryVersion(false); latest != nil {
		printInfo(lib, "latest release "+version.PythonString(latest))
	}
	return nil
}
