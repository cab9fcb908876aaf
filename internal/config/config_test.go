package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNotInitialized(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	_, err := Load()
	require.ErrorIs(t, err, ErrNotInitialized)

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultLibrary, cfg.Library)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nlpm")
	t.Setenv(HomeEnv, home)

	cfg, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "packages"), cfg.PackagesDir)
	assert.Equal(t, filepath.Join(home, "_cache"), cfg.CacheDir)

	cfg.Python = "/usr/bin/python3.11"
	require.NoError(t, Save(cfg))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	require.NoError(t, got.Validate())
}

func TestLoadFillsDefaultsAndExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv("HOME", home)

	body := "library: spacy\npackages_dir: ~/pkgs\nearliest_version: 3.0.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "nlpm.yaml"), []byte(body), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pkgs"), cfg.PackagesDir)
	assert.Equal(t, DefaultCompatFloor, cfg.CompatFloor)
	assert.Equal(t, DefaultLibraryInfoURL, cfg.LibraryInfoURL)

	earliest, err := cfg.Earliest()
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", earliest.String())

	wait, err := cfg.LockWait()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, wait)
}

func TestValidateReportsEveryField(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	cfg.Library = ""
	cfg.CompatFloor = "two"
	cfg.LockTimeout = "-1s"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library")
	assert.Contains(t, err.Error(), "compat_floor")
	assert.Contains(t, err.Error(), "lock_timeout")
}

func TestInvalidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "nlpm.yaml"), []byte("library: [\n"), 0o644))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}
