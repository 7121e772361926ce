// Package manifest handles updater.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/BurntSushi/toml"

	"github.com/chazu/updater/compiler/hash"
	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/vm"
)

// FileName is the project file looked up by Load and FindAndLoad.
const FileName = "updater.toml"

var (
	ErrDuplicateBinding = errors.New("duplicate binding")
	ErrInvalidBinding   = errors.New("invalid binding")
	ErrUnknownRoot      = errors.New("unknown root type")
)

// TypeResolver looks up root types by name. *registry.Registry implements it.
type TypeResolver interface {
	ResolveType(name string) (reflect.Type, bool)
}

// Manifest represents an updater.toml project configuration.
type Manifest struct {
	Project  Project   `toml:"project"`
	Bindings []Binding `toml:"binding"`
	// Imports lists JSON clip files, relative to Dir, whose tracks become
	// additional bindings.
	Imports []string `toml:"imports"`

	// Dir is the directory containing the updater.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	// Root is the default root type name for bindings that do not set one.
	Root string `toml:"root"`
}

// Binding is a named batch of paths compiled against one root type.
type Binding struct {
	Name  string      `toml:"name"`
	Root  string      `toml:"root"`
	Paths []PathEntry `toml:"paths"`
}

// PathEntry is one path of a binding and the offset of its data.
type PathEntry struct {
	Path   string `toml:"path"`
	Offset int    `toml:"offset"`
}

// Entries returns the binding's paths in compiler form.
func (b *Binding) Entries() []vm.PathEntry {
	out := make([]vm.PathEntry, len(b.Paths))
	for i, p := range b.Paths {
		out[i] = vm.PathEntry{Path: p.Path, DataOffset: p.Offset}
	}
	return out
}

// Resolve looks up the binding's root type and rewrites Root to the type's
// canonical name, the one compiled programs report. Qualified and short
// spellings of the same type then hash alike.
func (b *Binding) Resolve(types TypeResolver) (reflect.Type, error) {
	t, ok := types.ResolveType(b.Root)
	if !ok {
		return nil, fmt.Errorf("binding %s: %w %q", b.Name, ErrUnknownRoot, b.Root)
	}
	t = registry.Target(t)
	b.Root = t.String()
	return t, nil
}

// Hash returns the content hash of the binding's root and paths. It matches
// hash.Program of the compiled binding once Resolve has been called.
func (b *Binding) Hash() [32]byte {
	return hash.Batch(b.Root, b.Entries())
}

func (b *Binding) validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBinding)
	}
	if b.Root == "" {
		return fmt.Errorf("%w: %s has no root type", ErrInvalidBinding, b.Name)
	}
	if len(b.Paths) == 0 {
		return fmt.Errorf("%w: %s has no paths", ErrInvalidBinding, b.Name)
	}
	for _, p := range b.Paths {
		if p.Path == "" || p.Offset < 0 {
			return fmt.Errorf("%w: %s has entry %q at %d", ErrInvalidBinding, b.Name, p.Path, p.Offset)
		}
	}
	return nil
}

// Load parses an updater.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	for i := range m.Bindings {
		if m.Bindings[i].Root == "" {
			m.Bindings[i].Root = m.Project.Root
		}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an updater.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// AllBindings returns the bindings declared in the manifest followed by
// those of every imported clip, validated and with unique names.
func (m *Manifest) AllBindings() ([]Binding, error) {
	all := append([]Binding(nil), m.Bindings...)
	for _, imp := range m.Imports {
		b, err := LoadClip(filepath.Join(m.Dir, imp))
		if err != nil {
			return nil, err
		}
		if b.Root == "" {
			b.Root = m.Project.Root
		}
		all = append(all, *b)
	}

	seen := make(map[string]bool, len(all))
	for i := range all {
		if err := all[i].validate(); err != nil {
			return nil, err
		}
		if seen[all[i].Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBinding, all[i].Name)
		}
		seen[all[i].Name] = true
	}
	return all, nil
}

// FindBinding returns the binding called name, looking through imports too.
func (m *Manifest) FindBinding(name string) (*Binding, error) {
	all, err := m.AllBindings()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("no binding named %q", name)
}

// LockFilePath returns the path to updater.lock.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, "updater.lock")
}
