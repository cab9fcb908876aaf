package cache

import (
	"errors"
	"os"
	"strings"

	"github.com/kamusis/nlpm/internal/fsutil"
)

// normalizeETag strips the surrounding quotes from a response ETag. Weak
// validators keep their W/ prefix.
func normalizeETag(header string) string {
	header = strings.TrimSpace(header)
	weak := strings.HasPrefix(header, "W/")
	header = strings.Trim(strings.TrimPrefix(header, "W/"), `"`)
	if header == "" {
		return ""
	}
	if weak {
		return "W/" + header
	}
	return header
}

// formatETag renders a stored etag for an If-None-Match header.
func formatETag(stored string) string {
	if rest, ok := strings.CutPrefix(stored, "W/"); ok {
		return `W/"` + rest + `"`
	}
	return `"` + stored + `"`
}

// loadETag returns the stored etag for a resource. An etag is only usable
// when the content it validates is still on disk.
func loadETag(etagPath, contentPath string) (string, bool) {
	if _, err := os.Stat(contentPath); err != nil {
		return "", false
	}
	data, err := os.ReadFile(etagPath)
	if err != nil {
		return "", false
	}
	etag := strings.TrimSpace(string(data))
	return etag, etag != ""
}

// storeETag persists etag unquoted. A response without an etag removes the
// stored one so the next run fetches unconditionally.
func storeETag(path, etag string) error {
	if etag == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return wrapStorage(err)
		}
		return nil
	}
	return wrapStorage(fsutil.WriteFileAtomic(path, strings.NewReader(etag), 0o644))
}
