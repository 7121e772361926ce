// Package dist implements the wire format for update bindings and frames.
// A producer (an animation system, a network peer, a recorder) sends a
// Binding once, then a stream of Frames, each carrying the condition words,
// blittable payloads and object values for one update tick. CBOR is used
// for both.
package dist

import (
	"github.com/chazu/updater/vm"
)

// Entry is one path of a binding.
type Entry struct {
	Path       string `cbor:"1,keyasint"`
	DataOffset int    `cbor:"2,keyasint"`
}

// Binding is a named path batch rooted at a registered type name.
type Binding struct {
	Name    string  `cbor:"1,keyasint"`
	Root    string  `cbor:"2,keyasint"` // type name as resolved by the registry
	Entries []Entry `cbor:"3,keyasint"`
}

// NewBinding builds a binding from path entries.
func NewBinding(name, root string, entries []vm.PathEntry) *Binding {
	b := &Binding{Name: name, Root: root, Entries: make([]Entry, len(entries))}
	for i, e := range entries {
		b.Entries[i] = Entry{Path: e.Path, DataOffset: e.DataOffset}
	}
	return b
}

// PathEntries returns the binding's entries in compiler form.
func (b *Binding) PathEntries() []vm.PathEntry {
	out := make([]vm.PathEntry, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = vm.PathEntry{Path: e.Path, DataOffset: e.DataOffset}
	}
	return out
}

// Object is one object table entry on the wire. Value holds the CBOR
// encoding of the value and is empty for nil.
type Object struct {
	Condition int32  `cbor:"1,keyasint"`
	Value     []byte `cbor:"2,keyasint,omitempty"`
}

// Frame is the payload of one update tick for a compiled binding.
type Frame struct {
	Batch   [32]byte `cbor:"1,keyasint"` // hash of the binding the frame was built for
	Data    []byte   `cbor:"2,keyasint"`
	Objects []Object `cbor:"3,keyasint,omitempty"`
}
