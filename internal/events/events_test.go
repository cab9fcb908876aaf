package events

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/nlpm/internal/cache"
	"github.com/kamusis/nlpm/internal/compat"
	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/version"
)

type fakeDetector struct {
	library *semver.Version
	models  map[string]*semver.Version
}

func (d *fakeDetector) InstalledLibraryVersion() (*semver.Version, error) { return d.library, nil }

func (d *fakeDetector) InstalledModelVersions(isModel func(string) bool) (map[string]*semver.Version, error) {
	out := map[string]*semver.Version{}
	for name, v := range d.models {
		if isModel(name) {
			out[name] = v
		}
	}
	return out, nil
}

func newNotifier(t *testing.T, d *fakeDetector) (Notifier, *[]Event) {
	t.Helper()
	layout := cache.Layout{Root: t.TempDir()}
	require.NoError(t, layout.EnsureDirs(func(string) {}))
	for name, v := range map[string]string{"en_core_web_sm": "3.0.0", "de_core_news_sm": "3.0.0"} {
		body := `{"lang":"` + name[:2] + `","name":"` + name[3:] + `","version":"` + v + `"}`
		require.NoError(t, os.WriteFile(layout.ModelInfoPath(name, version.MustParse(v)), []byte(body), 0o644))
	}
	feed := compat.Feed{
		"3.0.0": {"en_core_web_sm": {"3.0.0"}, "de_core_news_sm": {"3.0.0"}},
		"3.0.1": {"en_core_web_sm": {"3.0.0"}},
	}
	library := info.LibraryFeed{Releases: map[string]json.RawMessage{"3.0.0": nil, "3.0.1": nil}}
	inf, err := info.New(library, feed, info.WithLayout(layout), info.WithDetector(d))
	require.NoError(t, err)

	bus := &Bus{}
	var got []Event
	bus.Subscribe(func(e Event) { got = append(got, e) })
	return Notifier{Bus: bus, Resolver: packages.Resolver{Info: inf, InstallDir: "/pkgs", Library: "spacy"}}, &got
}

func types(events []Event) []Type {
	out := make([]Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestBusSubscribeUnsubscribe(t *testing.T) {
	var bus Bus
	var a, b int
	unsubA := bus.Subscribe(func(Event) { a++ })
	bus.Subscribe(func(Event) { b++ })

	bus.Publish(Event{Type: ModelAvailable})
	unsubA()
	unsubA()
	bus.Publish(Event{Type: ModelAvailable})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, bus.Len())
}

func TestSendCurrentStateWithoutLibrary(t *testing.T) {
	n, got := newNotifier(t, &fakeDetector{models: map[string]*semver.Version{"en_core_web_sm": version.MustParse("3.0.0")}})
	require.NoError(t, n.SendCurrentState(context.Background()))
	assert.Empty(t, *got)
}

func TestSendCurrentState(t *testing.T) {
	n, got := newNotifier(t, &fakeDetector{
		library: version.MustParse("3.0.1"),
		models: map[string]*semver.Version{
			"en_core_web_sm":  version.MustParse("3.0.0"),
			"de_core_news_sm": version.MustParse("3.0.0"),
		},
	})
	require.NoError(t, n.SendCurrentState(context.Background()))
	require.Equal(t, []Type{LibraryInstalled, ModelAvailable}, types(*got))

	lib := (*got)[0].Payload
	assert.Equal(t, "spacy", lib.Name)
	assert.Equal(t, filepath.Join("/pkgs", "spacy"), lib.Path)

	model := (*got)[1].Payload
	assert.Equal(t, "en_core_web_sm", model.Name)
	assert.Equal(t, "3.0.0", model.Version.String())
	assert.Equal(t, filepath.Join("/pkgs", "en_core_web_sm", "en_core_web_sm-3.0.0"), model.Path)
}

func TestOnUninstalledLibrary(t *testing.T) {
	d := &fakeDetector{models: map[string]*semver.Version{
		"en_core_web_sm":  version.MustParse("3.0.0"),
		"de_core_news_sm": version.MustParse("3.0.0"),
	}}
	n, got := newNotifier(t, d)
	lib := packages.Package{Kind: packages.KindLibrary, Name: "spacy", InstallDir: "/pkgs"}

	require.NoError(t, n.OnUninstalled(context.Background(), lib, version.MustParse("3.0.0")))
	assert.Equal(t, []Type{LibraryUninstalled, ModelUnavailable, ModelUnavailable}, types(*got))
	assert.Equal(t, "3.0.0", (*got)[0].Payload.Version.String())
}

func TestOnInstalledModel(t *testing.T) {
	d := &fakeDetector{library: version.MustParse("3.0.1")}
	n, got := newNotifier(t, d)

	en := packages.Package{Kind: packages.KindModel, Name: "en_core_web_sm", InstallDir: "/pkgs", Installed: version.MustParse("3.0.0")}
	de := packages.Package{Kind: packages.KindModel, Name: "de_core_news_sm", InstallDir: "/pkgs", Installed: version.MustParse("3.0.0")}

	require.NoError(t, n.OnInstalled(context.Background(), en))
	require.NoError(t, n.OnInstalled(context.Background(), de))
	require.Len(t, *got, 1, "de_core_news_sm 3.0.0 does not load under 3.0.1")
	assert.Equal(t, ModelAvailable, (*got)[0].Type)
	assert.Equal(t, "en_core_web_sm", (*got)[0].Payload.Name)

	require.NoError(t, n.OnUninstalled(context.Background(), en, version.MustParse("3.0.0")))
	assert.Equal(t, ModelUnavailable, (*got)[1].Type)
}

func TestModelEventsNeedLibrary(t *testing.T) {
	n, got := newNotifier(t, &fakeDetector{})
	en := packages.Package{Kind: packages.KindModel, Name: "en_core_web_sm", InstallDir: "/pkgs", Installed: version.MustParse("3.0.0")}
	require.NoError(t, n.OnInstalled(context.Background(), en))
	assert.Empty(t, *got)
}
