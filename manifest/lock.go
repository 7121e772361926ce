package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/updater/compiler/hash"
)

// LockFile records the content hash of every binding at the time it was
// last compiled. Frame producers compare against it to detect bindings that
// changed under them.
type LockFile struct {
	Bindings []LockedBinding `toml:"binding"`
}

// LockedBinding is one entry of a lock file.
type LockedBinding struct {
	Name string `toml:"name"`
	Root string `toml:"root"`
	Hash string `toml:"hash"`
}

// NewLockFile builds a lock file for bindings, sorted by name.
func NewLockFile(bindings []Binding) *LockFile {
	lf := &LockFile{Bindings: make([]LockedBinding, len(bindings))}
	for i := range bindings {
		lf.Bindings[i] = LockedBinding{
			Name: bindings[i].Name,
			Root: bindings[i].Root,
			Hash: hash.String(bindings[i].Hash()),
		}
	}
	sort.Slice(lf.Bindings, func(i, j int) bool {
		return lf.Bindings[i].Name < lf.Bindings[j].Name
	})
	return lf
}

// FindLockedBinding returns the entry called name, or nil.
func (lf *LockFile) FindLockedBinding(name string) *LockedBinding {
	for i := range lf.Bindings {
		if lf.Bindings[i].Name == name {
			return &lf.Bindings[i]
		}
	}
	return nil
}

// Stale returns the names of bindings that are missing from the lock file
// or whose hash differs from the locked one.
func (lf *LockFile) Stale(bindings []Binding) []string {
	var stale []string
	for i := range bindings {
		locked := lf.FindLockedBinding(bindings[i].Name)
		if locked == nil || locked.Hash != hash.String(bindings[i].Hash()) {
			stale = append(stale, bindings[i].Name)
		}
	}
	return stale
}

// ReadLock reads a lock file. A missing file yields nil, nil.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes lf to path.
func WriteLock(path string, lf *LockFile) error {
	var buf bytes.Buffer
	buf.WriteString("# Generated by updater. Do not edit.\n\n")
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return fmt.Errorf("encoding lock file: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
