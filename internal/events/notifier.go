package events

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/version"
)

// Notifier translates install and uninstall outcomes into events.
type Notifier struct {
	Bus      *Bus
	Resolver packages.Resolver
}

// SendCurrentState announces the installed library and every installed
// model it can load. Nothing is sent when the library is not installed.
func (n Notifier) SendCurrentState(ctx context.Context) error {
	lib, err := n.Resolver.LibraryPackage(false)
	if err != nil {
		return err
	}
	if lib.Installed == nil {
		return nil
	}
	return n.LibraryInstalled(ctx, lib)
}

// OnInstalled dispatches a completed install by package kind.
func (n Notifier) OnInstalled(ctx context.Context, pkg packages.Package) error {
	switch pkg.Kind {
	case packages.KindLibrary:
		return n.LibraryInstalled(ctx, pkg)
	case packages.KindModel:
		return n.ModelInstalled(ctx, pkg)
	}
	return nil
}

// OnUninstalled dispatches a completed uninstall of version v by package kind.
func (n Notifier) OnUninstalled(ctx context.Context, pkg packages.Package, v *semver.Version) error {
	switch pkg.Kind {
	case packages.KindLibrary:
		return n.LibraryUninstalled(ctx, pkg, v)
	case packages.KindModel:
		return n.ModelRemoved(ctx, pkg, v)
	}
	return nil
}

// LibraryInstalled announces the library and the installed models that are
// usable with it.
func (n Notifier) LibraryInstalled(ctx context.Context, lib packages.Package) error {
	n.publish(ctx, LibraryInstalled, payload(lib, lib.Installed))
	return n.availabilityChanged(ctx, lib.Installed, ModelAvailable)
}

// LibraryUninstalled announces the removal of library version v and the
// installed models that were usable with it.
func (n Notifier) LibraryUninstalled(ctx context.Context, lib packages.Package, v *semver.Version) error {
	n.publish(ctx, LibraryUninstalled, payload(lib, v))
	return n.availabilityChanged(ctx, v, ModelUnavailable)
}

// ModelInstalled announces a model when the installed library can load it.
func (n Notifier) ModelInstalled(ctx context.Context, model packages.Package) error {
	return n.modelChanged(ctx, model, model.Installed, ModelAvailable)
}

// ModelRemoved announces that version v of a model is gone, when the
// installed library could load it.
func (n Notifier) ModelRemoved(ctx context.Context, model packages.Package, v *semver.Version) error {
	return n.modelChanged(ctx, model, v, ModelUnavailable)
}

func (n Notifier) availabilityChanged(ctx context.Context, lib *semver.Version, t Type) error {
	if lib == nil {
		return nil
	}
	installed, err := n.Resolver.InstalledModelPackages()
	if err != nil {
		return err
	}
	compatible, err := n.Resolver.FilterCompatible(installed, lib)
	if err != nil {
		return err
	}
	for _, m := range compatible {
		n.publish(ctx, t, payload(m, m.Installed))
	}
	return nil
}

func (n Notifier) modelChanged(ctx context.Context, model packages.Package, v *semver.Version, t Type) error {
	if v == nil {
		return nil
	}
	lib, err := n.Resolver.LibraryPackage(false)
	if err != nil {
		return err
	}
	if lib.Installed == nil {
		return nil
	}
	libs, err := n.Resolver.Info.CompatibleLibraryVersions(model.Name, v)
	if err != nil {
		if errors.Is(err, compat.ErrNotFound) {
			return nil
		}
		return err
	}
	if version.Contains(libs, lib.Installed) {
		n.publish(ctx, t, payload(model, v))
	}
	return nil
}

func (n Notifier) publish(ctx context.Context, t Type, p Payload) {
	slogcontext.FromCtx(ctx).Debug("publishing event", "event", t.String(), "name", p.Name, "path", p.Path)
	if n.Bus != nil {
		n.Bus.Publish(Event{Type: t, Payload: p})
	}
}

func payload(pkg packages.Package, v *semver.Version) Payload {
	pkg.Installed = v
	return Payload{Name: pkg.Name, Version: v, Path: pkg.Path()}
}
