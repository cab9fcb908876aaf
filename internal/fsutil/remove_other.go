//go:build !windows

package fsutil

import (
	"errors"
	"os"
)

func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func removeTree(path string) error {
	return os.RemoveAll(path)
}
