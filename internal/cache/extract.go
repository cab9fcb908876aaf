package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/nlpm/internal/fsutil"
	"github.com/kamusis/nlpm/internal/version"
)

// maxMetaSize caps a single metadata member read into memory.
const maxMetaSize = 8 << 20

var (
	metaPattern   = glob.MustCompile("**/meta/*", '/')
	compatPattern = glob.MustCompile("**/compatibility.json", '/')
)

type memberKind int

const (
	memberOther memberKind = iota
	memberMeta
	memberCompat
)

func classify(e archiveEntry) memberKind {
	if !e.regular {
		return memberOther
	}
	// Rooted so that top-level members match the ** patterns too.
	name := "/" + strings.TrimPrefix(e.name, "/")
	switch {
	case metaPattern.Match(name):
		return memberMeta
	case compatPattern.Match(name):
		return memberCompat
	default:
		return memberOther
	}
}

// extractStats summarizes one extraction.
type extractStats struct {
	Meta    int
	Skipped int
}

// extractModelArchive copies the per-model metadata files and the single
// compatibility file out of the archive. Directory structure inside the
// archive is discarded: metadata lands flat in the models directory as
// {name}-{version}.json, the compatibility file in the library directory.
func extractModelArchive(ctx context.Context, archivePath string, layout Layout) (extractStats, error) {
	var stats extractStats
	log := slogcontext.FromCtx(ctx)

	var compat []string
	err := walkArchive(archivePath, func(e archiveEntry) error {
		if classify(e) == memberCompat {
			compat = append(compat, e.name)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	if len(compat) != 1 {
		return stats, fmt.Errorf("%w: expected one compatibility.json, found %d %v", ErrMalformedArchive, len(compat), compat)
	}

	err = walkArchive(archivePath, func(e archiveEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch classify(e) {
		case memberCompat:
			log.Debug("extracting compatibility file", "member", e.name)
			return extractTo(e, layout.CompatibilityFile())
		case memberMeta:
			data, err := readMember(e)
			if err != nil {
				return err
			}
			file, ok := metaFileName(path.Base(e.name), data)
			if !ok {
				log.Warn("skipping model metadata without name or version", "member", e.name)
				stats.Skipped++
				return nil
			}
			stats.Meta++
			return wrapStorage(fsutil.WriteFileAtomic(filepath.Join(layout.ModelsDir(), file), bytes.NewReader(data), 0o644))
		}
		return nil
	})
	return stats, err
}

func extractTo(e archiveEntry, dest string) error {
	rc, err := e.open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedArchive, e.name, err)
	}
	defer rc.Close()
	return wrapStorage(fsutil.WriteFileAtomic(dest, rc, 0o644))
}

func readMember(e archiveEntry) ([]byte, error) {
	rc, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedArchive, e.name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxMetaSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedArchive, e.name, err)
	}
	return data, nil
}

// metaFileName picks the flat file name for a metadata member. Members named
// "{name}-{version}.json" keep that name with the version canonicalized;
// anything else is named from the lang, name and version fields of its body.
func metaFileName(base string, data []byte) (string, bool) {
	if stem, ok := strings.CutSuffix(base, ".json"); ok {
		if name, raw, ok := strings.Cut(stem, "-"); ok && name != "" {
			if v, err := version.Parse(raw); err == nil {
				return ModelInfoFile(name, v), true
			}
		}
	}

	var meta struct {
		Lang    string `json:"lang"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Name == "" || meta.Version == "" {
		return "", false
	}
	v, err := version.Parse(meta.Version)
	if err != nil {
		return "", false
	}
	name := meta.Name
	if meta.Lang != "" && !strings.HasPrefix(name, meta.Lang+"_") {
		name = meta.Lang + "_" + name
	}
	return ModelInfoFile(name, v), true
}
