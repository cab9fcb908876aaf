package info

import "errors"

var (
	// ErrModelInfoNotFound is returned when no metadata file is cached for a
	// model version. A refresh must have fetched it first.
	ErrModelInfoNotFound = errors.New("model info not found in cache")

	// ErrNoCache is returned when the cache has never been populated.
	ErrNoCache = errors.New("metadata cache is empty; run `nlpm refresh`")

	// ErrLibraryNotInFeed is returned when the compatibility file has no
	// section for the managed library.
	ErrLibraryNotInFeed = errors.New("library missing from compatibility feed")
)
