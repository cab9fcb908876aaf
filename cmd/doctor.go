package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/config"
	"github.com/kamusis/nlpm/internal/detect"
	"github.com/kamusis/nlpm/internal/version"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that nlpm's dependencies and environment are correctly configured.
Run this command when something seems wrong, or before filing a bug report.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("nlpm doctor")
	fmt.Println()

	// ── Check 1: nlpm.yaml is valid ──────────────────────────────────────────
	fmt.Println("[ nlpm.yaml ]")
	ws, loadErr := openWorkspace()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		path, _ := config.ConfigPath()
		printOK("", fmt.Sprintf("valid config: %s", path))
	}
	fmt.Println()

	// ── Check 2: python and pip ───────────────────────────────────────────────
	fmt.Println("[ python / pip ]")
	if loadErr != nil {
		printWarn("", "skipped (nlpm.yaml not loaded)")
	} else {
		python := ws.python()
		if _, err := exec.LookPath(python); err != nil {
			failD("%s not found on PATH; set python in nlpm.yaml or NLPM_PYTHON", python)
		} else if out, err := exec.Command(python, "-m", "pip", "--version").Output(); err != nil {
			failD("%s cannot run pip: %v", python, err)
		} else {
			printOK("", strings.TrimSpace(string(out)))
		}
	}
	fmt.Println()

	// ── Check 3: metadata cache ───────────────────────────────────────────────
	fmt.Println("[ Metadata cache ]")
	if loadErr != nil {
		printWarn("", "skipped (nlpm.yaml not loaded)")
	} else if inf, err := ws.info(cmd.Context()); err != nil {
		failD("%v", err)
	} else {
		printOK("", fmt.Sprintf("%d %s release(s), %d model(s) cached in %s",
			len(inf.LibraryVersions(false)), ws.cfg.Library, len(inf.ModelNames(false)), ws.cfg.CacheDir))
	}
	fmt.Println()

	// ── Check 4: packages directory ───────────────────────────────────────────
	fmt.Println("[ Packages directory ]")
	if loadErr != nil {
		printWarn("", "skipped (nlpm.yaml not loaded)")
	} else if _, err := os.Stat(ws.cfg.PackagesDir); os.IsNotExist(err) {
		printMiss("", fmt.Sprintf("%s does not exist yet (created on first install)", ws.cfg.PackagesDir))
	} else {
		dists, err := detect.Scanner{Dir: ws.cfg.PackagesDir}.Distributions()
		if err != nil {
			failD("cannot scan %s: %v", ws.cfg.PackagesDir, err)
		} else {
			printOK("", fmt.Sprintf("%d distribution(s) in %s", len(dists), ws.cfg.PackagesDir))
		}
		if lib, err := ws.detector.InstalledLibraryVersion(); err == nil && lib != nil {
			printOK(ws.cfg.Library, "installed "+version.PythonString(lib))
		}
	}
	fmt.Println()

	// ── Check 5: GitHub token ─────────────────────────────────────────────────
	fmt.Println("[ GitHub token ]")
	if token, err := config.GitHubToken(); err != nil {
		failD("cannot read .env: %v", err)
	} else if token == "" {
		printSkip("", "not set (anonymous GitHub API requests are rate limited)")
	} else {
		printOK("", "set")
	}
	fmt.Println()

	// ── Summary ──────────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. nlpm is ready to use.")
		return nil
	}
	fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
	return errReported
}
