// Package compiler compiles batches of property paths into update programs.
//
// Paths in a batch share a root type. When consecutive paths share a
// prefix, the objects entered for that prefix are reused instead of being
// left and re-entered, so batches should be sorted by path.
package compiler

import (
	"errors"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/vm"
)

var log = commonlog.GetLogger("updater.compiler")

// conditionSize is the width of the condition word preceding every
// blittable payload in the data buffer.
const conditionSize = 4

// ---------------------------------------------------------------------------
// Compiler: path batches to update programs
// ---------------------------------------------------------------------------

// Compiler compiles path batches against a member registry. A Compiler holds
// no per-batch state and may be shared.
type Compiler struct {
	registry *registry.Registry
}

// New creates a compiler resolving members through reg.
func New(reg *registry.Registry) *Compiler {
	return &Compiler{registry: reg}
}

// Compile compiles entries against root using the default registry.
func Compile(root reflect.Type, entries []vm.PathEntry) (*vm.Program, error) {
	return New(registry.Default).Compile(root, entries)
}

// frame is one level of the path currently being compiled.
type frame struct {
	typ   reflect.Type // type whose members are visible at this depth
	start int          // path range this frame was parsed from
	end   int

	objectStart int // offset of this depth's data within the current object

	member      registry.Accessor
	leave       vm.Opcode // OpInvalid when leaving needs no operation
	leaveOffset int       // cursor offset restored by the leave
	enterPC     int       // enter operation to patch with the leave index, or -1
	temp        int       // temporary slot for struct round-trips
}

// state is the per-batch compilation state.
type state struct {
	c      *Compiler
	prog   *vm.Program
	frames []frame

	newOffset  int
	prevOffset int
	depth      int
}

// Compile compiles a batch of paths rooted at root, which may be given as
// T or *T. The program's Root is always the struct type T. No program is
// returned when any path fails to compile.
func (c *Compiler) Compile(root reflect.Type, entries []vm.PathEntry) (*vm.Program, error) {
	if root == nil {
		return nil, errors.New("compiler: nil root type")
	}
	root = registry.Target(root)

	s := &state{
		c: c,
		prog: &vm.Program{
			ID:      uuid.New(),
			Root:    root,
			Entries: slices.Clone(entries),
		},
		frames: []frame{{typ: root, enterPC: -1}},
	}

	prev := ""
	for _, e := range entries {
		if err := s.compileEntry(e, prev); err != nil {
			return nil, err
		}
		prev = e.Path
	}

	// Full unwind: flush the trailing leaves
	s.popFrames(0)

	log.Debugf("compiled %d paths on %s into %d operations (%d temporaries, depth %d)",
		len(entries), root, len(s.prog.Operations), len(s.prog.Temporaries), s.prog.MaxDepth)
	return s.prog, nil
}

func (s *state) top() *frame {
	return &s.frames[len(s.frames)-1]
}

func (s *state) compileEntry(e vm.PathEntry, prev string) error {
	path := e.Path
	if path == "" {
		return &PathError{Path: path, Err: ErrEmptyPath}
	}
	if e.DataOffset < 0 {
		return pathErrorf(path, 0, ErrBadDataOffset, "%d is negative", e.DataOffset)
	}

	// Keep the frames this path shares with the previous one; the root
	// frame is always kept.
	common := 1
	for common < len(s.frames) {
		f := s.frames[common]
		if !sharesFrame(path, prev, f.start, f.end) {
			break
		}
		common++
	}
	s.popFrames(common)

	pos := s.top().end
	s.newOffset = s.top().objectStart

	for pos < len(path) {
		seg, err := scanSegment(path, pos)
		if err != nil {
			return err
		}
		container := s.top().typ

		switch seg.kind {
		case segIndexer:
			a, err := s.c.registry.ResolveIndexer(container, seg.text)
			if err != nil {
				return &PathError{Path: path, Offset: seg.start, Err: err}
			}
			pos, err = s.processMember(e, seg, a)
			if err != nil {
				return err
			}

		case segCast:
			if err := s.processCast(path, seg); err != nil {
				return err
			}
			pos = seg.end

		default:
			a, err := s.c.registry.ResolveMember(container, seg.text)
			if err != nil {
				return &PathError{Path: path, Offset: seg.start, Err: err}
			}
			pos, err = s.processMember(e, seg, a)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// popFrames leaves frames until only n remain, emitting a leave for every
// frame that entered an object.
func (s *state) popFrames(n int) {
	for len(s.frames) > n {
		f := s.frames[len(s.frames)-1]
		s.frames = s.frames[:len(s.frames)-1]

		if f.leave == vm.OpInvalid {
			continue
		}
		if f.enterPC >= 0 {
			s.prog.Operations[f.enterPC].Skip = len(s.prog.Operations)
		}
		s.emit(vm.Operation{Op: f.leave, Member: f.member, DataOffset: f.temp})
		s.depth--

		// The leave restores the cursor the enter saved
		s.prevOffset = f.leaveOffset
	}
}

func (s *state) emit(op vm.Operation) int {
	s.prog.Operations = append(s.prog.Operations, op)
	return len(s.prog.Operations) - 1
}

// processCast handles a cast on a concrete type: a static retyping to the
// type itself or one of its embedded bases. Casts on interface members are
// folded into the enter by processMember.
func (s *state) processCast(path string, seg segment) error {
	t, ok := s.c.registry.ResolveType(seg.text)
	if !ok {
		return pathErrorf(path, seg.start, ErrUnresolvedType, "%s", seg.text)
	}
	t = registry.Target(t)
	cur := s.top().typ
	if !registry.IsBase(cur, t) {
		return pathErrorf(path, seg.start, ErrInvalidCast, "%s is not %s or one of its bases", t, cur)
	}
	if seg.end == len(path) {
		return pathErrorf(path, seg.start, ErrInvalidCast, "cast cannot end a path")
	}
	s.frames = append(s.frames, frame{
		typ:         t,
		start:       seg.start,
		end:         seg.end,
		objectStart: s.newOffset,
		enterPC:     -1,
	})
	return nil
}

// interfaceCast consumes the cast that must follow an interface-typed
// member. It returns the type to enter, the dynamic type to expect and the
// end of the cast segment.
func (s *state) interfaceCast(path string, seg segment, iface reflect.Type) (reflect.Type, reflect.Type, int, error) {
	next, err := scanSegment(path, seg.end)
	if err != nil {
		return nil, nil, 0, err
	}
	if next.kind != segCast {
		return nil, nil, 0, pathErrorf(path, next.start, ErrNotEnterable,
			"%s is an interface (%s) and must be followed by a cast", seg.text, iface)
	}
	t, ok := s.c.registry.ResolveType(next.text)
	if !ok {
		return nil, nil, 0, pathErrorf(path, next.start, ErrUnresolvedType, "%s", next.text)
	}
	expect := t
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	} else {
		expect = reflect.PointerTo(t)
	}
	if !expect.Implements(iface) {
		return nil, nil, 0, pathErrorf(path, next.start, ErrInvalidCast, "%s does not implement %s", expect, iface)
	}
	if next.end == len(path) {
		return nil, nil, 0, pathErrorf(path, next.start, ErrInvalidCast, "cast cannot end a path")
	}
	return t, expect, next.end, nil
}

// processMember emits the operations for one resolved segment and returns
// the position where parsing continues.
func (s *state) processMember(e vm.PathEntry, seg segment, a registry.Accessor) (int, error) {
	path := e.Path
	if seg.end == len(path) {
		return seg.end, s.processLeaf(e, seg, a)
	}

	memberType := a.MemberType()
	target := registry.Target(memberType)
	end := seg.end
	var expect reflect.Type
	if memberType.Kind() == reflect.Interface {
		var err error
		target, expect, end, err = s.interfaceCast(path, seg, memberType)
		if err != nil {
			return 0, err
		}
	}

	f := frame{
		typ:     target,
		start:   seg.start,
		end:     end,
		member:  a,
		enterPC: -1,
		temp:    -1,
	}

	enter := func(op vm.Opcode, dataOffset int) {
		f.enterPC = s.emit(vm.Operation{
			Op:           op,
			Member:       a,
			AdjustOffset: s.newOffset - s.prevOffset,
			DataOffset:   dataOffset,
			Expect:       expect,
		})
		f.leaveOffset = s.newOffset
		s.prevOffset, s.newOffset = 0, 0
		s.depth++
		s.prog.MaxDepth = max(s.prog.MaxDepth, s.depth)
	}

	switch m := a.(type) {
	case *registry.Field:
		s.newOffset += int(m.Offset)
		if registry.IsReference(memberType) {
			f.leave = vm.OpLeave
			enter(vm.OpEnterObjectField, 0)
		}
		// Inline values need no operation; the offset carries into them.

	case *registry.Property:
		if !m.CanGet() {
			return 0, pathErrorf(path, seg.start, ErrNotEnterable, "property %s has no getter", m.Name)
		}
		if registry.IsReference(memberType) {
			f.leave = vm.OpLeave
			enter(vm.OpEnterObjectProperty, 0)
			break
		}
		if !m.CanSet() {
			return 0, pathErrorf(path, seg.start, ErrNotSettable, "value property %s has no setter to copy back through", m.Name)
		}
		f.leave = vm.OpLeaveCopyStructProperty
		f.temp = s.prog.AddTemporary(memberType)
		enter(vm.OpEnterStructProperty, f.temp)
		// Struct enters never yield nil
		f.enterPC = -1

	case registry.Custom:
		f.leave = vm.OpLeave
		enter(vm.OpEnterObjectCustom, 0)

	default:
		return 0, pathErrorf(path, seg.start, ErrNotEnterable, "unsupported accessor %T", a)
	}

	f.objectStart = s.newOffset
	s.frames = append(s.frames, f)
	return end, nil
}

// processLeaf emits the set operation for the last segment of a path.
func (s *state) processLeaf(e vm.PathEntry, seg segment, a registry.Accessor) error {
	path := e.Path
	memberType := a.MemberType()
	blittable := registry.IsBlittable(memberType)

	var op vm.Opcode
	switch m := a.(type) {
	case *registry.Field:
		s.newOffset += int(m.Offset)
		switch {
		case blittable:
			op = vm.SetBlittableFieldOp(memberType.Size())
		case memberType.Kind() == reflect.Struct || memberType.Kind() == reflect.Array:
			op = vm.OpSetStructField
		default:
			op = vm.OpSetObjectField
		}

	case *registry.Property:
		if !m.CanSet() {
			return pathErrorf(path, seg.start, ErrNotSettable, "property %s has no setter", m.Name)
		}
		switch {
		case blittable:
			op = vm.OpSetBlittableProperty
		case memberType.Kind() == reflect.Struct || memberType.Kind() == reflect.Array:
			op = vm.OpSetStructProperty
		default:
			op = vm.OpSetObjectProperty
		}

	case registry.Custom:
		if blittable {
			op = vm.OpSetBlittableCustom
		} else {
			op = vm.OpSetObjectCustom
		}

	default:
		return pathErrorf(path, seg.start, ErrNotSettable, "unsupported accessor %T", a)
	}

	if blittable {
		s.prog.DataSize = max(s.prog.DataSize, e.DataOffset+conditionSize+int(memberType.Size()))
	} else if err := s.useObject(path, seg, e.DataOffset, memberType); err != nil {
		return err
	}

	s.emit(vm.Operation{
		Op:           op,
		Member:       a,
		AdjustOffset: s.newOffset - s.prevOffset,
		DataOffset:   e.DataOffset,
	})
	s.prevOffset = s.newOffset
	s.prog.LeafTypes = append(s.prog.LeafTypes, memberType)
	return nil
}

// useObject records that object table entry i feeds a member of type t.
func (s *state) useObject(path string, seg segment, i int, t reflect.Type) error {
	p := s.prog
	if i >= p.ObjectCount {
		p.ObjectCount = i + 1
		p.ObjectTypes = append(p.ObjectTypes, make([]reflect.Type, p.ObjectCount-len(p.ObjectTypes))...)
	}
	// Entries may feed several members; keep the most specific type.
	switch prev := p.ObjectTypes[i]; {
	case prev == nil || prev == t:
		p.ObjectTypes[i] = t
	case t.Kind() == reflect.Interface && prev.AssignableTo(t):
	case prev.Kind() == reflect.Interface && t.AssignableTo(prev):
		p.ObjectTypes[i] = t
	default:
		return pathErrorf(path, seg.start, ErrBadDataOffset, "object %d already holds %s, not %s", i, prev, t)
	}
	return nil
}
