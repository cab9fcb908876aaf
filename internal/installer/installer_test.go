package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/nlpm/internal/info"
	"github.com/kamusis/nlpm/internal/packages"
	"github.com/kamusis/nlpm/internal/pyenv"
	"github.com/kamusis/nlpm/internal/version"
)

// fakePip records commands and simulates what pip leaves in the target
// directory.
type fakePip struct {
	commands []Command
	onRun    func(c Command) error
}

func (f *fakePip) Run(ctx context.Context, c Command) error {
	f.commands = append(f.commands, c)
	fmt.Fprint(c.Output, "Collecting "+c.Args[len(c.Args)-1]+"\nDownloading\r 50%\r100%\nInstalled")
	if f.onRun != nil {
		return f.onRun(c)
	}
	return nil
}

func writeDist(t *testing.T, dir, name, ver string, requires ...string) {
	t.Helper()
	d := filepath.Join(dir, name+"-"+ver+".dist-info")
	require.NoError(t, os.MkdirAll(d, 0o755))
	meta := "Metadata-Version: 2.1\nName: " + name + "\nVersion: " + ver + "\n"
	for _, r := range requires {
		meta += "Requires-Dist: " + r + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(d, "METADATA"), []byte(meta), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
}

func TestPipArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-m", "pip", "install", "--upgrade", "--no-cache-dir", "--disable-pip-version-check", "-t", "/pkgs", "spacy==3.0.1"},
		PipArgs("/pkgs", "spacy==3.0.1", false))
	args := PipArgs("/pkgs", "https://x/en.tar.gz", true)
	assert.Equal(t, "--no-deps", args[len(args)-1])
}

func TestInstallLibrary(t *testing.T) {
	dir := t.TempDir()
	pip := &fakePip{}
	reg := &pyenv.Registry{}
	in := Installer{Python: "py", Runner: pip, Registry: reg}

	lib := packages.Package{Kind: packages.KindLibrary, Name: "spacy", InstallDir: dir}
	var lines []string
	require.NoError(t, in.Install(context.Background(), lib, version.MustParse("3.0.1"), func(s string) { lines = append(lines, s) }))

	require.Len(t, pip.commands, 1)
	c := pip.commands[0]
	assert.Equal(t, "py", c.Path)
	assert.Equal(t, PipArgs(dir, "spacy==3.0.1", false), c.Args)
	assert.Contains(t, c.Env, "LC_ALL=en_US.UTF-8")
	assert.Equal(t, []string{"Collecting spacy==3.0.1", "Downloading", "50%", "100%", "Installed"}, lines)
	assert.Equal(t, []string{dir}, reg.Loaded())
}

func TestInstallModelReinstallsDependenciesExceptExcluded(t *testing.T) {
	dir := t.TempDir()
	pip := &fakePip{}
	pip.onRun = func(c Command) error {
		if len(pip.commands) == 1 {
			writeDist(t, dir, "en_core_web_sm", "3.0.0", "spacy<3.1.0,>=3.0.0", "spacy-lookups-data>=1.0.0", `cupy; extra == "gpu"`)
		}
		return nil
	}
	reg := &pyenv.Registry{}
	reg.Load(dir)
	in := Installer{Runner: pip, Registry: reg}

	model := packages.Package{
		Kind:        packages.KindModel,
		Name:        "en_core_web_sm",
		InstallDir:  dir,
		ExcludeDeps: []string{"spacy"},
		Model:       info.ModelInfo{Lang: "en"},
	}
	require.NoError(t, in.Install(context.Background(), model, version.MustParse("3.0.0"), nil))

	require.Len(t, pip.commands, 2)
	first := pip.commands[0].Args
	assert.Equal(t, "--no-deps", first[len(first)-1])
	assert.Contains(t, first, "https://github.com/explosion/spacy-models/releases/download/en_core_web_sm-3.0.0/en_core_web_sm-3.0.0.tar.gz")
	assert.Equal(t, PipArgs(dir, "spacy-lookups-data>=1.0.0", false), pip.commands[1].Args)

	var pythonPath string
	for _, kv := range pip.commands[0].Env {
		if v, ok := strings.CutPrefix(kv, "PYTHONPATH="); ok {
			pythonPath = v
		}
	}
	assert.True(t, strings.HasPrefix(pythonPath, dir))
}

func TestInstallFailure(t *testing.T) {
	dir := t.TempDir()
	exit := errors.New("exit status 1")
	in := Installer{Runner: &fakePip{onRun: func(Command) error { return exit }}}

	lib := packages.Package{Kind: packages.KindLibrary, Name: "spacy", InstallDir: dir}
	err := in.Install(context.Background(), lib, version.MustParse("3.0.1"), nil)

	var ie *InstallError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "install", ie.Op)
	assert.Equal(t, "spacy", ie.Package.Name)
	assert.ErrorIs(t, err, exit)
	assert.Contains(t, err.Error(), "install spacy 3.0.1")
}

func TestInstallMissingDistributionAfterNoDeps(t *testing.T) {
	in := Installer{Runner: &fakePip{}}
	model := packages.Package{Kind: packages.KindModel, Name: "en_core_web_sm", InstallDir: t.TempDir(), ExcludeDeps: []string{"spacy"}}
	err := in.Install(context.Background(), model, version.MustParse("3.0.0"), nil)
	var ie *InstallError
	require.ErrorAs(t, err, &ie)
}

func TestUninstall(t *testing.T) {
	dir := t.TempDir()
	writeDist(t, dir, "spacy", "3.0.1")
	writeDist(t, dir, "spacy_legacy", "3.0.5")
	reg := &pyenv.Registry{}
	in := Installer{Registry: reg}

	lib := packages.Package{Kind: packages.KindLibrary, Name: "spacy", InstallDir: dir, Installed: version.MustParse("3.0.1")}
	require.NoError(t, in.Uninstall(context.Background(), lib))

	for _, gone := range []string{"spacy", "spacy-3.0.1.dist-info"} {
		_, err := os.Stat(filepath.Join(dir, gone))
		assert.True(t, os.IsNotExist(err), gone)
	}
	_, err := os.Stat(filepath.Join(dir, "spacy_legacy"))
	assert.NoError(t, err)
	assert.Equal(t, []string{dir}, reg.Loaded())
}

func TestLineWriter(t *testing.T) {
	var got []string
	w := &lineWriter{emit: func(s string) { got = append(got, s) }}
	fmt.Fprint(w, "a\nb")
	fmt.Fprint(w, "c\r\n\nd")
	w.Flush()
	assert.Equal(t, []string{"a", "bc", "d"}, got)
}
