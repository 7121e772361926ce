package compiler

import (
	"reflect"
	"sync"

	"github.com/chazu/updater/compiler/hash"
	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/vm"
)

// Cache memoizes compiled programs by batch hash. Programs returned for the
// same batch are shared, including their temporary slots, so callers that
// run them from several goroutines must serialize runs per program.
type Cache struct {
	compiler *Compiler

	mu       sync.Mutex
	programs map[[32]byte]*vm.Program
}

// NewCache creates an empty cache compiling through c.
func NewCache(c *Compiler) *Cache {
	return &Cache{
		compiler: c,
		programs: make(map[[32]byte]*vm.Program),
	}
}

// Get returns the program for the batch, compiling it on first use.
// Failed compilations are not cached.
func (c *Cache) Get(root reflect.Type, entries []vm.PathEntry) (*vm.Program, error) {
	root = registry.Target(root)
	h := hash.Batch(root.String(), entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.programs[h]; ok {
		log.Debugf("program cache hit %s", hash.String(h)[:12])
		return p, nil
	}
	log.Debugf("program cache miss %s", hash.String(h)[:12])

	p, err := c.compiler.Compile(root, entries)
	if err != nil {
		return nil, err
	}
	c.programs[h] = p
	return p, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}

// Clear drops every cached program.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.programs)
}
