package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache synchronization.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrNetwork indicates the request failed or the server answered with an
	// unexpected status.
	ErrNetwork = errors.New("cache: network error")

	// ErrStorage indicates a cache file or directory could not be written.
	ErrStorage = errors.New("cache: storage error")

	// ErrMalformedArchive indicates the model archive did not contain exactly
	// one compatibility file.
	ErrMalformedArchive = errors.New("cache: malformed model archive")

	// ErrLocked indicates another synchronization holds the cache lock.
	ErrLocked = errors.New("cache: another synchronization is in progress")
)

func wrapStorage(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func wrapNetwork(err error) error {
	if err == nil || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
