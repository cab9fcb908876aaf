package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/kamusis/nlpm/internal/version"
)

// HomeEnv overrides the nlpm home directory (~/.nlpm).
const HomeEnv = "NLPM_HOME"

// Defaults written by nlpm init.
const (
	DefaultLibrary          = "spacy"
	DefaultLibraryInfoURL   = "https://pypi.org/pypi/spacy/json"
	DefaultModelArchiveURL  = "https://api.github.com/repos/explosion/spacy-models/zipball/master"
	DefaultModelDownloadURL = "https://github.com/explosion/spacy-models/releases/download"
	DefaultEarliestVersion  = "2.3.9"
	DefaultCompatFloor      = "2.0.0"
	DefaultLockTimeout      = "30s"
)

// ErrNotInitialized is returned by Load when nlpm.yaml does not exist.
var ErrNotInitialized = errors.New("nlpm is not initialized; run `nlpm init`")

// Config is the in-memory representation of ~/.nlpm/nlpm.yaml.
type Config struct {
	// Library is the distribution name of the managed library.
	Library string `yaml:"library"`
	// PackagesDir is the pip target directory packages are installed into.
	PackagesDir string `yaml:"packages_dir"`
	// CacheDir holds the cached library feed and model metadata.
	CacheDir string `yaml:"cache_dir"`

	LibraryInfoURL   string `yaml:"library_info_url"`
	ModelArchiveURL  string `yaml:"model_archive_url"`
	ModelDownloadURL string `yaml:"model_download_url"`

	// EarliestVersion is the display floor: only newer library releases are
	// offered for install.
	EarliestVersion string `yaml:"earliest_version"`
	// CompatFloor drops library versions below it from the compatibility index.
	CompatFloor string `yaml:"compat_floor"`

	Python      string `yaml:"python,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`
	LockTimeout string `yaml:"lock_timeout,omitempty"`
}

// NlpmDir returns the nlpm home directory: $NLPM_HOME or ~/.nlpm.
func NlpmDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return ExpandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".nlpm"), nil
}

// ConfigPath returns the absolute path to nlpm.yaml.
func ConfigPath() (string, error) {
	dir, err := NlpmDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nlpm.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the default Config written on first nlpm init.
func DefaultConfig() (*Config, error) {
	dir, err := NlpmDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Library:          DefaultLibrary,
		PackagesDir:      filepath.Join(dir, "packages"),
		CacheDir:         filepath.Join(dir, "_cache"),
		LibraryInfoURL:   DefaultLibraryInfoURL,
		ModelArchiveURL:  DefaultModelArchiveURL,
		ModelDownloadURL: DefaultModelDownloadURL,
		EarliestVersion:  DefaultEarliestVersion,
		CompatFloor:      DefaultCompatFloor,
		LockTimeout:      DefaultLockTimeout,
	}, nil
}

// applyDefaults fills fields left empty in the file.
func (c *Config) applyDefaults(def *Config) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Library, def.Library)
	fill(&c.PackagesDir, def.PackagesDir)
	fill(&c.CacheDir, def.CacheDir)
	fill(&c.LibraryInfoURL, def.LibraryInfoURL)
	fill(&c.ModelArchiveURL, def.ModelArchiveURL)
	fill(&c.ModelDownloadURL, def.ModelDownloadURL)
	fill(&c.EarliestVersion, def.EarliestVersion)
	fill(&c.CompatFloor, def.CompatFloor)
	fill(&c.LockTimeout, def.LockTimeout)
}

// Load reads and parses nlpm.yaml. Fields missing from the file take their
// default values.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (%s)", ErrNotInitialized, path)
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	def, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults(def)

	// Expand ~ in paths at load time.
	if cfg.PackagesDir, err = ExpandPath(cfg.PackagesDir); err != nil {
		return nil, err
	}
	if cfg.CacheDir, err = ExpandPath(cfg.CacheDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to DefaultConfig when nlpm has not
// been initialized.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, ErrNotInitialized) {
		return DefaultConfig()
	}
	return cfg, err
}

// Save marshals cfg and writes it to nlpm.yaml, creating the nlpm home
// directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Earliest parses EarliestVersion.
func (c *Config) Earliest() (*semver.Version, error) {
	v, err := version.Parse(c.EarliestVersion)
	if err != nil {
		return nil, fmt.Errorf("earliest_version: %w", err)
	}
	return v, nil
}

// Floor parses CompatFloor.
func (c *Config) Floor() (*semver.Version, error) {
	v, err := version.Parse(c.CompatFloor)
	if err != nil {
		return nil, fmt.Errorf("compat_floor: %w", err)
	}
	return v, nil
}

// LockWait parses LockTimeout.
func (c *Config) LockWait() (time.Duration, error) {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("lock_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("lock_timeout: must be positive, got %s", c.LockTimeout)
	}
	return d, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"library", c.Library},
		{"packages_dir", c.PackagesDir},
		{"cache_dir", c.CacheDir},
		{"library_info_url", c.LibraryInfoURL},
		{"model_archive_url", c.ModelArchiveURL},
		{"model_download_url", c.ModelDownloadURL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s: must not be empty", f.name))
		}
	}
	if _, err := c.Earliest(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Floor(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LockWait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
