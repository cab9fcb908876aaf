package cmd

import (
	"errors"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/config"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/installer"
	"github.com/kamusis/nlpm/internal/version"
)

// CLI exit codes.
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitInvalidArgs    = 2
	ExitNotFound       = 3
	ExitNotInstalled   = 4
	ExitNetworkError   = 5
	ExitInstallFailed  = 6
	ExitStorageError   = 7
	ExitNotInitialized = 8
)

var (
	// errNotInstalled is returned when a command needs an installed package.
	errNotInstalled = errors.New("package is not installed")
	// errIncompatible is returned when a model version cannot be loaded by
	// the installed library.
	errIncompatible = errors.New("not compatible with the installed library")
	// errReported marks failures whose details were already printed.
	errReported = errors.New("one or more checks failed")
)

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var installErr *installer.InstallError
	switch {
	case errors.Is(err, version.ErrInvalidVersion):
		return ExitInvalidArgs
	case errors.Is(err, compat.ErrNotFound),
		errors.Is(err, info.ErrModelInfoNotFound),
		errors.Is(err, info.ErrLibraryNotInFeed):
		return ExitNotFound
	case errors.Is(err, errNotInstalled):
		return ExitNotInstalled
	case errors.As(err, &installErr):
		return ExitInstallFailed
	case errors.Is(err, cache.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, cache.ErrStorage), errors.Is(err, cache.ErrMalformedArchive):
		return ExitStorageError
	case errors.Is(err, config.ErrNotInitialized), errors.Is(err, info.ErrNoCache):
		return ExitNotInitialized
	default:
		return ExitGeneralError
	}
}
