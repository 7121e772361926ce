package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"runtime"

	"github.com/chazu/updater/registry"
)

var (
	// ErrTarget is returned when the target is not a non-nil pointer to the
	// program's root type.
	ErrTarget = errors.New("invalid update target")
	// ErrShortData is returned when the data buffer is smaller than the
	// program requires.
	ErrShortData = errors.New("data buffer too short")
	// ErrShortObjects is returned when the object table has fewer entries
	// than the program requires.
	ErrShortObjects = errors.New("object table too short")
	// ErrObjectType is returned when an object table value cannot be stored
	// into its member.
	ErrObjectType = errors.New("object table value has wrong type")
)

// conditionSize is the width of the condition word that precedes every
// payload in the data buffer.
const conditionSize = 4

// ---------------------------------------------------------------------------
// Interpreter: update program execution
// ---------------------------------------------------------------------------

// Interpreter runs compiled update programs. It keeps its save stack between
// runs; an Interpreter must not be used by two goroutines at once.
type Interpreter struct {
	stack []registry.Ref
}

// NewInterpreter creates an interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{stack: make([]registry.Ref, 0, 8)}
}

// Run applies prog to target with a fresh interpreter.
func Run(target any, prog *Program, data []byte, objects []ObjectData) error {
	return NewInterpreter().Run(target, prog, data, objects)
}

func rootRef(target any, root reflect.Type) (registry.Ref, error) {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return registry.Ref{}, fmt.Errorf("%w: want non-nil *%s, got %T", ErrTarget, root, target)
	}
	if v.Type().Elem() != root {
		return registry.Ref{}, fmt.Errorf("%w: want *%s, got %T", ErrTarget, root, target)
	}
	return registry.RefFromPointer(v.UnsafePointer()), nil
}

// Run applies prog to target, which must be a pointer to prog.Root. data
// holds the condition words and blittable payloads, objects the values for
// every other leaf. Entries whose condition is zero are left alone. Paths
// running through a nil reference are skipped.
//
// Buffer sizes and the target type are checked before anything is written.
// An object table value of the wrong type stops the run with ErrObjectType;
// writes made before it remain.
func (in *Interpreter) Run(target any, prog *Program, data []byte, objects []ObjectData) error {
	root, err := rootRef(target, prog.Root)
	if err != nil {
		return err
	}
	if len(data) < prog.DataSize {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortData, len(data), prog.DataSize)
	}
	if len(objects) < prog.ObjectCount {
		return fmt.Errorf("%w: have %d entries, need %d", ErrShortObjects, len(objects), prog.ObjectCount)
	}

	err = in.run(root, prog, data, objects)

	// The root must stay reachable while only interior addresses of it
	// are held.
	runtime.KeepAlive(target)
	return err
}

func (in *Interpreter) run(cur registry.Ref, prog *Program, data []byte, objects []ObjectData) error {
	stack := in.stack[:0]
	defer func() {
		clear(stack)
		in.stack = stack[:0]
	}()

	ops := prog.Operations
	for pc := 0; pc < len(ops); pc++ {
		op := &ops[pc]
		cur = cur.Add(op.AdjustOffset)

		switch op.Op {
		// --- enter ---
		case OpEnterObjectField:
			stack = append(stack, cur)
			cur = op.Member.(*registry.Field).Object(cur, op.Expect)
			if cur.IsNil() {
				pc = op.Skip - 1
			}

		case OpEnterObjectProperty:
			stack = append(stack, cur)
			cur = op.Member.(*registry.Property).Object(cur, op.Expect)
			if cur.IsNil() {
				pc = op.Skip - 1
			}

		case OpEnterObjectCustom:
			stack = append(stack, cur)
			cur = op.Member.(registry.Custom).Enter(cur, op.Expect)
			if cur.IsNil() {
				pc = op.Skip - 1
			}

		case OpEnterStructProperty:
			stack = append(stack, cur)
			tmp := prog.Temporaries[op.DataOffset]
			op.Member.(*registry.Property).Load(cur, tmp)
			cur = tmp

		// --- leave ---
		case OpLeave:
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

		case OpLeaveCopyStructProperty:
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tmp := prog.Temporaries[op.DataOffset]
			op.Member.(*registry.Property).Store(cur, tmp)
			// The slot outlives the run; drop what it references.
			registry.Zero(prog.TemporaryTypes[op.DataOffset], tmp)

		// --- blittable sets ---
		case OpSetBlittableField4:
			if p, ok := payload(data, op.DataOffset); ok {
				*(*[4]byte)(cur.Pointer()) = [4]byte(p)
			}

		case OpSetBlittableField8:
			if p, ok := payload(data, op.DataOffset); ok {
				*(*[8]byte)(cur.Pointer()) = [8]byte(p)
			}

		case OpSetBlittableField12:
			if p, ok := payload(data, op.DataOffset); ok {
				*(*[12]byte)(cur.Pointer()) = [12]byte(p)
			}

		case OpSetBlittableField16:
			if p, ok := payload(data, op.DataOffset); ok {
				*(*[16]byte)(cur.Pointer()) = [16]byte(p)
			}

		case OpSetBlittableField:
			if p, ok := payload(data, op.DataOffset); ok {
				op.Member.(*registry.Field).SetBytes(cur, p)
			}

		case OpSetBlittableProperty:
			if p, ok := payload(data, op.DataOffset); ok {
				op.Member.(*registry.Property).SetBytes(cur, p)
			}

		case OpSetBlittableCustom:
			if p, ok := payload(data, op.DataOffset); ok {
				op.Member.(registry.Custom).SetValue(cur, p)
			}

		// --- object table sets ---
		case OpSetObjectField, OpSetStructField:
			if o := objects[op.DataOffset]; o.Condition != 0 {
				if !op.Member.(*registry.Field).SetObject(cur, o.Value) {
					return objectTypeError(op, o.Value)
				}
			}

		case OpSetObjectProperty, OpSetStructProperty:
			if o := objects[op.DataOffset]; o.Condition != 0 {
				if !op.Member.(*registry.Property).SetObject(cur, o.Value) {
					return objectTypeError(op, o.Value)
				}
			}

		case OpSetObjectCustom:
			if o := objects[op.DataOffset]; o.Condition != 0 {
				if !op.Member.(registry.Custom).SetObject(cur, o.Value) {
					return objectTypeError(op, o.Value)
				}
			}

		default:
			panic(fmt.Sprintf("unknown opcode: %02X (%s) at %d", byte(op.Op), op.Op, pc))
		}
	}
	return nil
}

// payload returns the bytes following the condition word at off, or false
// when the condition is zero. Zero as an int32 is also +0.0 as a float32.
func payload(data []byte, off int) ([]byte, bool) {
	if binary.NativeEndian.Uint32(data[off:]) == 0 {
		return nil, false
	}
	return data[off+conditionSize:], true
}

func objectTypeError(op *Operation, v any) error {
	return fmt.Errorf("%w: %T for %s (object %d)", ErrObjectType, v, registry.Describe(op.Member), op.DataOffset)
}
