package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/task"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Remove the library or a model from the packages directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	r := ws.resolver(inf)
	pkg, err := ws.resolvePackage(r, args[0], true)
	if err != nil {
		return err
	}
	if pkg.Installed == nil {
		return fmt.Errorf("%s: %w", pkg.Name, errNotInstalled)
	}

	in, err := ws.installer()
	if err != nil {
		return err
	}
	fut := task.Go(cmd.Context(), tasks, func(ctx context.Context, _ func(string)) (struct{}, error) {
		return struct{}{}, in.Uninstall(ctx, pkg)
	})
	if _, err := fut.Wait(); err != nil {
		printErr(pkg.Name, "uninstall failed")
		return err
	}
	removed := pkg.Installed
	printOK(pkg.Name, fmt.Sprintf("%s removed", versionText(removed)))

	pkg.Installed = nil
	return ws.notifier(r).OnUninstalled(cmd.Context(), pkg, removed)
}
