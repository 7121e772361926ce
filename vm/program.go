package vm

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/chazu/updater/registry"
)

// PathEntry is one path of an update batch and the offset of its payload:
// a byte offset into the data buffer for blittable leaves, an index into
// the object table otherwise.
type PathEntry struct {
	Path       string
	DataOffset int
}

// Operation is one compiled update step.
type Operation struct {
	Op     Opcode
	Member registry.Accessor

	// AdjustOffset is added to the cursor before the operation runs.
	AdjustOffset int

	// DataOffset is the data buffer offset, object table index or
	// temporary slot index, depending on Op.
	DataOffset int

	// Skip is the index of the matching leave for enter operations. When
	// an enter reaches nothing, execution resumes there.
	Skip int

	// Expect is the dynamic type required when entering an interface value.
	Expect reflect.Type
}

// Program is a compiled update batch. Operations are immutable once
// compiled, but the temporary slots are scratch space shared by every run:
// a program must not be run concurrently with itself.
type Program struct {
	ID          uuid.UUID
	Root        reflect.Type
	Entries     []PathEntry
	Operations  []Operation
	Temporaries []registry.Ref

	// TemporaryTypes[i] is the type stored in Temporaries[i].
	TemporaryTypes []reflect.Type

	// ObjectTypes[i] is the member type fed by object table entry i, or
	// nil when no path uses that entry.
	ObjectTypes []reflect.Type

	// LeafTypes[i] is the static type of the member Entries[i] sets.
	LeafTypes []reflect.Type

	DataSize    int // minimum data buffer length
	ObjectCount int // minimum object table length
	MaxDepth    int // deepest save stack
}

// AddTemporary allocates a slot for a value of type t and returns its index.
func (p *Program) AddTemporary(t reflect.Type) int {
	p.Temporaries = append(p.Temporaries, registry.Alloc(t))
	p.TemporaryTypes = append(p.TemporaryTypes, t)
	return len(p.Temporaries) - 1
}

// ObjectData is one object table entry. Value is applied only when
// Condition is nonzero.
type ObjectData struct {
	Condition int32
	Value     any
}

// NewObjectData returns an entry that applies v.
func NewObjectData(v any) ObjectData {
	return ObjectData{Condition: 1, Value: v}
}
