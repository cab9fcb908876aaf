package cmd

import (
	"context"
	"fmt"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/config"
	"github.com/kamusis/nlpm/internal/detect"
	"github.com/kamusis/nlpm/internal/events"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/installer"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/pyenv"
	"github.com/kamusis/nlpm/internal/task"
	"github.com/kamusis/nlpm/internal/version"
)

// tasks serializes refreshes and installs started by this process.
var tasks = task.NewRunner()

// workspace bundles the components configured by nlpm.yaml.
type workspace struct {
	cfg      *config.Config
	layout   cache.Layout
	detector detect.Scanner
	registry *pyenv.Registry
}

// openWorkspace loads and validates the config.
func openWorkspace() (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	reg := &pyenv.Registry{}
	reg.Load(cfg.PackagesDir)
	return &workspace{
		cfg:      cfg,
		layout:   cache.Layout{Root: cfg.CacheDir},
		detector: detect.Scanner{Dir: cfg.PackagesDir, Library: cfg.Library},
		registry: reg,
	}, nil
}

func (w *workspace) infoOptions(ctx context.Context) ([]info.Option, error) {
	earliest, err := w.cfg.Earliest()
	if err != nil {
		return nil, err
	}
	floor, err := w.cfg.Floor()
	if err != nil {
		return nil, err
	}
	return []info.Option{
		info.WithEarliest(earliest),
		info.WithFloor(floor),
		info.WithDetector(w.detector),
		info.WithLayout(w.layout),
		info.WithLogger(slogcontext.FromCtx(ctx)),
	}, nil
}

// synchronizer returns a Synchronizer that reports progress to status.
func (w *workspace) synchronizer(status func(string)) (*cache.Synchronizer, error) {
	wait, err := w.cfg.LockWait()
	if err != nil {
		return nil, err
	}
	opts := []cache.Option{
		cache.WithLockTimeout(wait),
		cache.WithUserAgent(userAgent()),
	}
	if status != nil {
		opts = append(opts, cache.WithStatus(status))
	}
	token, err := config.GitHubToken()
	if err != nil {
		return nil, err
	}
	if token != "" {
		opts = append(opts, cache.WithToken(token))
	}
	return cache.New(w.layout, w.cfg.LibraryInfoURL, w.cfg.ModelArchiveURL, opts...), nil
}

// info reads the cached metadata without touching the network.
func (w *workspace) info(ctx context.Context) (*info.Info, error) {
	opts, err := w.infoOptions(ctx)
	if err != nil {
		return nil, err
	}
	return info.Load(w.layout, w.cfg.Library, opts...)
}

// refresh synchronizes the cache on the task runner, passing progress
// messages to status, and returns the refreshed metadata.
func (w *workspace) refresh(ctx context.Context, status func(string)) (*info.Info, error) {
	opts, err := w.infoOptions(ctx)
	if err != nil {
		return nil, err
	}
	fut := task.Go(ctx, tasks, func(ctx context.Context, progress func(string)) (*info.Info, error) {
		s, err := w.synchronizer(progress)
		if err != nil {
			return nil, err
		}
		return info.Loader{Sync: s, Library: w.cfg.Library, Options: opts}.Load(ctx)
	})
	for msg := range fut.Progress() {
		status(msg)
	}
	return fut.Wait()
}

func (w *workspace) resolver(inf *info.Info) packages.Resolver {
	return packages.Resolver{
		Info:             inf,
		Detector:         w.detector,
		InstallDir:       w.cfg.PackagesDir,
		Library:          w.cfg.Library,
		ModelDownloadURL: w.cfg.ModelDownloadURL,
	}
}

// python returns the interpreter: NLPM_PYTHON, then nlpm.yaml, then the
// platform default.
func (w *workspace) python() string {
	if v, err := config.GetConfigValue(config.PythonKey); err == nil && v != "" {
		return v
	}
	if w.cfg.Python != "" {
		return w.cfg.Python
	}
	return installer.DefaultPython()
}

func (w *workspace) installer() (installer.Installer, error) {
	wait, err := w.cfg.LockWait()
	if err != nil {
		return installer.Installer{}, err
	}
	return installer.Installer{
		Python:      w.python(),
		Registry:    w.registry,
		LockTimeout: wait,
	}, nil
}

// notifier returns a Notifier whose bus prints every event.
func (w *workspace) notifier(r packages.Resolver) events.Notifier {
	bus := &events.Bus{}
	bus.Subscribe(printEvent)
	return events.Notifier{Bus: bus, Resolver: r}
}

func printEvent(e events.Event) {
	v := ""
	if e.Payload.Version != nil {
		v = " " + version.PythonString(e.Payload.Version)
	}
	switch e.Type {
	case events.LibraryInstalled, events.ModelAvailable:
		printOK(e.Payload.Name, e.Type.String()+v)
	default:
		printMiss(e.Payload.Name, e.Type.String()+v)
	}
}

// resolvePackage describes the library or the model called name.
func (w *workspace) resolvePackage(r packages.Resolver, name string, preRelease bool) (packages.Package, error) {
	if detect.NormalizeName(name) == detect.NormalizeName(w.cfg.Library) {
		return r.LibraryPackage(preRelease)
	}
	return r.ModelPackage(name, preRelease)
}
