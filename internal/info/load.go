package info

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/compat"
)

// Load builds an Info from the files under layout. libraryName selects the
// section of the compatibility file that applies to the managed library.
func Load(layout cache.Layout, libraryName string, opts ...Option) (*Info, error) {
	var library LibraryFeed
	if err := readJSON(layout.LibraryInfoFile(), &library); err != nil {
		return nil, err
	}

	var sections map[string]compat.Feed
	if err := readJSON(layout.CompatibilityFile(), &sections); err != nil {
		return nil, err
	}
	feed, ok := sections[libraryName]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrLibraryNotInFeed, libraryName, layout.CompatibilityFile())
	}

	opts = append([]Option{WithLayout(layout)}, opts...)
	return New(library, feed, opts...)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoCache, path)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Loader refreshes the cache and returns a fresh Info over the result.
type Loader struct {
	Sync    *cache.Synchronizer
	Library string
	Options []Option
}

// Load runs one synchronization and, on success, reads the now-current
// cache into a new Info.
func (l Loader) Load(ctx context.Context) (*Info, error) {
	res, err := l.Sync.Sync(ctx)
	if err != nil {
		return nil, err
	}
	slogcontext.FromCtx(ctx).Debug("cache synchronized",
		"library", res.Library.State.String(),
		"models", res.Models.State.String())
	return Load(l.Sync.Layout(), l.Library, l.Options...)
}
