// Package pyenv tracks the package directories whose contents are made
// importable to Python subprocesses nlpm starts.
package pyenv

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Registry is an ordered set of loaded package directories.
type Registry struct {
	mu   sync.RWMutex
	dirs []string
}

// Load adds dir when it exists and is not loaded yet. It reports whether
// dir is loaded afterwards.
func (r *Registry) Load(dir string) bool {
	dir = filepath.Clean(dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.dirs, dir) {
		r.dirs = append(r.dirs, dir)
	}
	return true
}

// Unload removes dir. Unloading a directory that is not loaded is a no-op.
func (r *Registry) Unload(dir string) {
	dir = filepath.Clean(dir)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = slices.DeleteFunc(r.dirs, func(d string) bool { return d == dir })
}

// Reload unloads and loads dir again, so a directory created or removed by
// an install is picked up.
func (r *Registry) Reload(dir string) bool {
	r.Unload(dir)
	return r.Load(dir)
}

// Loaded returns the loaded directories in load order.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dirs)
}

// PythonPath renders the loaded directories as a PYTHONPATH value.
func (r *Registry) PythonPath() string {
	return strings.Join(r.Loaded(), string(os.PathListSeparator))
}

// Environ returns base with PYTHONPATH pointing at the loaded directories,
// ahead of any PYTHONPATH already in base.
func (r *Registry) Environ(base []string) []string {
	loaded := r.PythonPath()
	out := make([]string, 0, len(base)+1)
	var existing string
	for _, kv := range base {
		if v, ok := strings.CutPrefix(kv, "PYTHONPATH="); ok {
			existing = v
			continue
		}
		out = append(out, kv)
	}
	switch {
	case loaded != "" && existing != "":
		out = append(out, "PYTHONPATH="+loaded+string(os.PathListSeparator)+existing)
	case loaded != "":
		out = append(out, "PYTHONPATH="+loaded)
	case existing != "":
		out = append(out, "PYTHONPATH="+existing)
	}
	return out
}
