package cache

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

// archiveEntry is one member of a model archive.
type archiveEntry struct {
	// name is the sanitized, slash-separated member path.
	name string
	// regular is false for directories, links and other special members.
	regular bool
	open    func() (io.ReadCloser, error)
}

// walkArchive calls fn for every member of the zip or tar.gz archive at p.
// The archive type is sniffed from content, not from the file name.
func walkArchive(p string, fn func(archiveEntry) error) error {
	mime, err := mimetype.DetectFile(p)
	if err != nil {
		return wrapStorage(err)
	}
	for m := mime; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/zip"):
			return walkZip(p, fn)
		case m.Is("application/gzip"):
			return walkTarGz(p, fn)
		}
	}
	return fmt.Errorf("%w: unsupported archive type %s", ErrMalformedArchive, mime.String())
}

func walkZip(p string, fn func(archiveEntry) error) error {
	r, err := zip.OpenReader(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedArchive, err)
	}
	defer r.Close()

	for _, f := range r.File {
		name := sanitizeArchivePath(f.Name)
		if name == "" {
			continue
		}
		err := fn(archiveEntry{
			name:    name,
			regular: f.Mode().IsRegular() && !strings.HasSuffix(f.Name, "/"),
			open:    f.Open,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func walkTarGz(p string, fn func(archiveEntry) error) error {
	f, err := os.Open(p)
	if err != nil {
		return wrapStorage(err)
	}
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedArchive, err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		h, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrMalformedArchive, err)
		}
		name := sanitizeArchivePath(h.Name)
		if name == "" {
			continue
		}
		err = fn(archiveEntry{
			name:    name,
			regular: h.Typeflag == tar.TypeReg,
			open:    func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
		})
		if err != nil {
			return err
		}
	}
}

// sanitizeArchivePath rejects absolute paths and traversal sequences in
// archive entries and returns a clean slash-separated path.
func sanitizeArchivePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "/") {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return ""
		}
	}
	clean := path.Clean(name)
	if clean == "." {
		return ""
	}
	return clean
}
