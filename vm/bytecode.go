package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/updater/registry"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is the kind of a single update operation.
type Opcode byte

const OpInvalid Opcode = 0x00 // never emitted

// Enter operations: push the cursor and move into a nested object
const (
	OpEnterObjectField    Opcode = 0x10 // follow a reference-typed field
	OpEnterObjectProperty Opcode = 0x11 // follow a reference-typed property
	OpEnterObjectCustom   Opcode = 0x12 // follow a custom accessor
	OpEnterStructProperty Opcode = 0x13 // load a value-typed property into a temporary slot
)

// Leave operations: pop the cursor
const (
	OpLeave                   Opcode = 0x20 // restore cursor
	OpLeaveCopyStructProperty Opcode = 0x21 // store the temporary slot back, then restore
)

// Blittable sets: condition word + payload from the data buffer
const (
	OpSetBlittableField4   Opcode = 0x30 // 4-byte raw copy
	OpSetBlittableField8   Opcode = 0x31 // 8-byte raw copy
	OpSetBlittableField12  Opcode = 0x32 // 12-byte raw copy
	OpSetBlittableField16  Opcode = 0x33 // 16-byte raw copy
	OpSetBlittableField    Opcode = 0x34 // raw copy of the field size
	OpSetBlittableProperty Opcode = 0x35 // through the typed setter
	OpSetBlittableCustom   Opcode = 0x36 // through a custom accessor
)

// Object sets: condition + value from the object table
const (
	OpSetObjectField    Opcode = 0x40 // reference-typed field
	OpSetStructField    Opcode = 0x41 // non-blittable value field, copied
	OpSetObjectProperty Opcode = 0x42 // reference-typed property
	OpSetStructProperty Opcode = 0x43 // non-blittable value property, copied
	OpSetObjectCustom   Opcode = 0x44 // custom accessor
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name        string // human-readable name
	StackEffect int    // net effect on the save stack
	UsesData    bool   // DataOffset indexes the data buffer
	UsesObjects bool   // DataOffset indexes the object table
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpEnterObjectField:    {"ENTER_OBJECT_FIELD", 1, false, false},
	OpEnterObjectProperty: {"ENTER_OBJECT_PROPERTY", 1, false, false},
	OpEnterObjectCustom:   {"ENTER_OBJECT_CUSTOM", 1, false, false},
	OpEnterStructProperty: {"ENTER_STRUCT_PROPERTY", 1, false, false},

	OpLeave:                   {"LEAVE", -1, false, false},
	OpLeaveCopyStructProperty: {"LEAVE_COPY_STRUCT_PROPERTY", -1, false, false},

	OpSetBlittableField4:   {"SET_BLITTABLE_FIELD4", 0, true, false},
	OpSetBlittableField8:   {"SET_BLITTABLE_FIELD8", 0, true, false},
	OpSetBlittableField12:  {"SET_BLITTABLE_FIELD12", 0, true, false},
	OpSetBlittableField16:  {"SET_BLITTABLE_FIELD16", 0, true, false},
	OpSetBlittableField:    {"SET_BLITTABLE_FIELD", 0, true, false},
	OpSetBlittableProperty: {"SET_BLITTABLE_PROPERTY", 0, true, false},
	OpSetBlittableCustom:   {"SET_BLITTABLE_CUSTOM", 0, true, false},

	OpSetObjectField:    {"SET_OBJECT_FIELD", 0, false, true},
	OpSetStructField:    {"SET_STRUCT_FIELD", 0, false, true},
	OpSetObjectProperty: {"SET_OBJECT_PROPERTY", 0, false, true},
	OpSetStructProperty: {"SET_STRUCT_PROPERTY", 0, false, true},
	OpSetObjectCustom:   {"SET_OBJECT_CUSTOM", 0, false, true},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// IsEnter reports whether op pushes a save entry.
func (op Opcode) IsEnter() bool {
	return op >= OpEnterObjectField && op <= OpEnterStructProperty
}

// IsLeave reports whether op pops a save entry.
func (op Opcode) IsLeave() bool {
	return op == OpLeave || op == OpLeaveCopyStructProperty
}

// SetBlittableFieldOp returns the fastest blittable field set for a value
// of the given size.
func SetBlittableFieldOp(size uintptr) Opcode {
	switch size {
	case 4:
		return OpSetBlittableField4
	case 8:
		return OpSetBlittableField8
	case 12:
		return OpSetBlittableField12
	case 16:
		return OpSetBlittableField16
	}
	return OpSetBlittableField
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleOperation renders a single operation.
func DisassembleOperation(pc int, op Operation) string {
	info := op.Op.Info()
	var b strings.Builder
	fmt.Fprintf(&b, "%04d  %s", pc, info.Name)
	if op.Member != nil {
		fmt.Fprintf(&b, " [%s]", registry.Describe(op.Member))
	}
	if op.AdjustOffset != 0 {
		fmt.Fprintf(&b, " adjust=%+d", op.AdjustOffset)
	}
	switch {
	case info.UsesData:
		fmt.Fprintf(&b, " data=%d", op.DataOffset)
	case info.UsesObjects:
		fmt.Fprintf(&b, " object=%d", op.DataOffset)
	case op.Op == OpEnterStructProperty || op.Op == OpLeaveCopyStructProperty:
		fmt.Fprintf(&b, " temp=%d", op.DataOffset)
	}
	if op.Expect != nil {
		fmt.Fprintf(&b, " expect=%s", op.Expect)
	}
	if op.Op.IsEnter() && op.Op != OpEnterStructProperty {
		fmt.Fprintf(&b, " (skip -> %04d)", op.Skip)
	}
	return b.String()
}

// Disassemble returns a full listing of a program's operations.
func Disassemble(p *Program) string {
	lines := make([]string, len(p.Operations))
	for i, op := range p.Operations {
		lines[i] = DisassembleOperation(i, op)
	}
	return strings.Join(lines, "\n")
}
