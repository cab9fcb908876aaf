// Package cache keeps a local copy of the library release feed and the model
// metadata archive. Each resource is fetched conditionally with its stored
// ETag, so an unchanged remote costs one request and no disk writes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/kamusis/nlpm/internal/fsutil"
)

// State is the synchronization state of one cached resource.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateUpToDate
	StateUpdating
	StateWritten
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateUpToDate:
		return "up-to-date"
	case StateUpdating:
		return "updating"
	case StateWritten:
		return "written"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResourceResult is the outcome for one resource.
type ResourceResult struct {
	State State
	// ETag is the validator stored after the run, unquoted.
	ETag string
}

// Result is the outcome of a Sync.
type Result struct {
	Library ResourceResult
	Models  ResourceResult
}

// Synchronizer refreshes the cache under a Layout from two remote resources.
type Synchronizer struct {
	layout     Layout
	libraryURL string
	modelsURL  string

	client      HTTPClient
	lockTimeout time.Duration
	token       string
	userAgent   string

	statusMu sync.Mutex
	status   func(string)
}

// New returns a Synchronizer for layout fetching the library feed from
// libraryURL and the model archive from modelsURL.
func New(layout Layout, libraryURL, modelsURL string, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		layout:      layout,
		libraryURL:  libraryURL,
		modelsURL:   modelsURL,
		client:      http.DefaultClient,
		lockTimeout: DefaultLockTimeout,
		userAgent:   "nlpm",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the cache layout this synchronizer writes.
func (s *Synchronizer) Layout() Layout { return s.layout }

func (s *Synchronizer) emit(msg string) {
	if s.status == nil {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status(msg)
}

// emitFor tags messages with the resource they belong to. Both resources
// sync at once, so their messages interleave.
func (s *Synchronizer) emitFor(resource string) func(string) {
	return func(msg string) { s.emit(resource + ": " + msg) }
}

// Sync brings both cached resources up to date. The two resources are
// fetched concurrently; status messages from each are prefixed with
// "library: " or "models: " and keep their relative order, but the two
// streams interleave. Failures are returned as-is; nothing is rolled back.
// Because an ETag is only stored after its content was written, a failed
// run is retried in full by the next one.
func (s *Synchronizer) Sync(ctx context.Context) (Result, error) {
	log := slogcontext.FromCtx(ctx)
	log.Info("checking info cache for updates", "root", s.layout.Root)

	s.emit("Creating cache directories...")
	if err := s.layout.EnsureDirs(s.emit); err != nil {
		return Result{}, err
	}

	unlock, err := acquireLock(ctx, s.layout.lockFile(), s.lockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.syncLibrary(gctx)
		res.Library = r
		return err
	})
	g.Go(func() error {
		r, err := s.syncModels(gctx)
		res.Models = r
		return err
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Synchronizer) syncLibrary(ctx context.Context) (ResourceResult, error) {
	log := slogcontext.FromCtx(ctx).With("resource", "library")
	res := ResourceResult{State: StateFetching}
	emit := s.emitFor("library")

	emit("Checking for newer library package info...")
	resp, err := s.fetch(ctx, s.libraryURL, s.layout.LibraryETagFile(), s.layout.LibraryInfoFile(), nil)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		log.Debug("library info is current")
		emit("Library info is current.")
		res.State = StateUpToDate
		res.ETag, _ = loadETag(s.layout.LibraryETagFile(), s.layout.LibraryInfoFile())
		return res, nil
	}

	res.State = StateUpdating
	emit("Downloading latest library package info...")
	log.Debug("writing library info", "path", s.layout.LibraryInfoFile())
	if err := fsutil.WriteFileAtomic(s.layout.LibraryInfoFile(), resp.Body, 0o644); err != nil {
		return res, classifyCopyError(err)
	}

	emit("Writing updated etag for library info...")
	etag := normalizeETag(resp.Header.Get("ETag"))
	log.Debug("writing updated etag", "etag", etag, "path", s.layout.LibraryETagFile())
	if err := storeETag(s.layout.LibraryETagFile(), etag); err != nil {
		return res, err
	}
	res.State = StateWritten
	res.ETag = etag
	return res, nil
}

func (s *Synchronizer) syncModels(ctx context.Context) (ResourceResult, error) {
	log := slogcontext.FromCtx(ctx).With("resource", "models")
	res := ResourceResult{State: StateFetching}
	emit := s.emitFor("models")

	emit("Checking for latest model info...")
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}
	resp, err := s.fetch(ctx, s.modelsURL, s.layout.ModelsETagFile(), s.layout.CompatibilityFile(), headers)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		log.Debug("model info is current")
		emit("Model info is current.")
		res.State = StateUpToDate
		res.ETag, _ = loadETag(s.layout.ModelsETagFile(), s.layout.CompatibilityFile())
		return res, nil
	}

	res.State = StateUpdating
	emit("Downloading latest model package info...")
	tmpDir, err := os.MkdirTemp("", "nlpm-models-*")
	if err != nil {
		return res, wrapStorage(err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "models-archive")
	if err := downloadTo(resp.Body, archivePath); err != nil {
		return res, err
	}

	emit("Extracting latest model package info...")
	stats, err := extractModelArchive(ctx, archivePath, s.layout)
	if err != nil {
		return res, err
	}
	log.Debug("extracted model metadata", "files", stats.Meta, "skipped", stats.Skipped)

	emit("Writing updated etag for model info...")
	etag := normalizeETag(resp.Header.Get("ETag"))
	if err := storeETag(s.layout.ModelsETagFile(), etag); err != nil {
		return res, err
	}
	res.State = StateWritten
	res.ETag = etag
	return res, nil
}

// fetch issues the conditional GET for one resource. Only 200 and 304 are
// returned; any other status is an ErrNetwork.
func (s *Synchronizer) fetch(ctx context.Context, url, etagPath, contentPath string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapNetwork(err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	// Identity encoding keeps the cached bytes identical to what the server hashed.
	req.Header.Set("Accept-Encoding", "identity")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if etag, ok := loadETag(etagPath, contentPath); ok {
		req.Header.Set("If-None-Match", formatETag(etag))
	}

	slogcontext.FromCtx(ctx).Debug("fetching", "url", url, "if-none-match", req.Header.Get("If-None-Match"))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotModified:
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	return nil, fmt.Errorf("%w: GET %s: %s\n%s", ErrNetwork, url, resp.Status, strings.TrimSpace(string(body)))
}

func downloadTo(body io.Reader, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return wrapStorage(err)
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return classifyCopyError(err)
	}
	return wrapStorage(out.Close())
}

// classifyCopyError attributes a failed body copy. Write failures surface
// as *os.PathError from the temp file; everything else came off the wire.
func classifyCopyError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return wrapStorage(err)
	}
	return wrapNetwork(err)
}
