package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/config"
	"github.com/kamusis/nlpm/internal/fsutil"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create ~/.nlpm with a default config, cache and packages directory",
	Long: `Initialize nlpm at ~/.nlpm/ (or $NLPM_HOME).

Writes nlpm.yaml with default settings, a .env template for
NLPM_GITHUB_TOKEN / NLPM_LOG_LEVEL / NLPM_PYTHON, and creates the cache
and packages directories. An existing nlpm.yaml is kept unless --force
is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var flagInitForce bool

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "Overwrite an existing nlpm.yaml with defaults")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.nlpm directory ──────────────────────────────────────────
	nlpmDir, err := config.NlpmDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(nlpmDir); err != nil {
		return fmt.Errorf("cannot create %s: %w", nlpmDir, err)
	}
	printOK("", fmt.Sprintf("nlpm directory ready: %s", nlpmDir))

	// ── 2. Write nlpm.yaml if missing ─────────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || flagInitForce {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 3. .env template ──────────────────────────────────────────────────────
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	envPath, _ := config.DotEnvPath()
	printOK("", fmt.Sprintf("Environment file ready: %s", envPath))

	// ── 4. Directories from the final config ──────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}
	if err := fsutil.EnsureDir(cfg.PackagesDir); err != nil {
		return fmt.Errorf("cannot create packages directory: %w", err)
	}
	printOK("", fmt.Sprintf("Packages directory ready: %s", cfg.PackagesDir))

	layout := cache.Layout{Root: cfg.CacheDir}
	if err := layout.EnsureDirs(func(msg string) { printInfo("", msg) }); err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Cache directory ready: %s", cfg.CacheDir))

	fmt.Println("\n✓  nlpm init complete. Run 'nlpm refresh' to download package metadata.")
	return nil
}
