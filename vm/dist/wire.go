package dist

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/updater/compiler/hash"
	"github.com/chazu/updater/vm"
)

var (
	// ErrBatchMismatch is returned when a frame was built for another binding.
	ErrBatchMismatch = errors.New("dist: frame does not match program")
	// ErrObjectSlot is returned when a frame carries a value for an object
	// entry the program never reads.
	ErrObjectSlot = errors.New("dist: unused object entry")
)

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalBinding serializes a Binding to CBOR bytes.
func MarshalBinding(b *Binding) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBinding deserializes a Binding from CBOR bytes.
func UnmarshalBinding(data []byte) (*Binding, error) {
	var b Binding
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("dist: unmarshal binding: %w", err)
	}
	return &b, nil
}

// MarshalFrame serializes a Frame to CBOR bytes.
func MarshalFrame(f *Frame) ([]byte, error) {
	return cborEncMode.Marshal(f)
}

// UnmarshalFrame deserializes a Frame from CBOR bytes.
func UnmarshalFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("dist: unmarshal frame: %w", err)
	}
	return &f, nil
}

// NewFrame packs one tick of update data for prog. Object values are
// encoded individually so they can be decoded back to the member types the
// program expects.
func NewFrame(prog *vm.Program, data []byte, objects []vm.ObjectData) (*Frame, error) {
	f := &Frame{
		Batch: hash.Program(prog),
		Data:  data,
	}
	if len(objects) > 0 {
		f.Objects = make([]Object, len(objects))
	}
	for i, o := range objects {
		f.Objects[i].Condition = o.Condition
		if o.Value == nil {
			continue
		}
		b, err := cborEncMode.Marshal(o.Value)
		if err != nil {
			return nil, fmt.Errorf("dist: encode object %d: %w", i, err)
		}
		f.Objects[i].Value = b
	}
	return f, nil
}

// Decode unpacks a frame for prog, decoding every object value into the
// member type recorded for its entry.
func (f *Frame) Decode(prog *vm.Program) ([]byte, []vm.ObjectData, error) {
	if want := hash.Program(prog); f.Batch != want {
		return nil, nil, fmt.Errorf("%w: frame %s, program %s", ErrBatchMismatch,
			hash.String(f.Batch)[:12], hash.String(want)[:12])
	}

	objects := make([]vm.ObjectData, len(f.Objects))
	for i, o := range f.Objects {
		objects[i].Condition = o.Condition
		if len(o.Value) == 0 {
			continue
		}
		var t reflect.Type
		if i < len(prog.ObjectTypes) {
			t = prog.ObjectTypes[i]
		}
		if t == nil {
			return nil, nil, fmt.Errorf("%w: %d", ErrObjectSlot, i)
		}
		v := reflect.New(t)
		if err := cbor.Unmarshal(o.Value, v.Interface()); err != nil {
			return nil, nil, fmt.Errorf("dist: decode object %d as %s: %w", i, t, err)
		}
		objects[i].Value = v.Elem().Interface()
	}
	return f.Data, objects, nil
}
