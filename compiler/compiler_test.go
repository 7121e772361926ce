package compiler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/vm"
)

// ---------------------------------------------------------------------------
// Test object model
// ---------------------------------------------------------------------------

type nonBlittableStruct struct {
	TestClassField    *testClass
	testClassProperty *testClass
}

type testClass struct {
	IntField    int32
	intProperty int32

	ObjectField    any
	objectProperty any

	NonBlittableStructField    nonBlittableStruct
	nonBlittableStructProperty nonBlittableStruct

	IntArray       [4]int32
	TestClassArray [2]*testClass

	IntList       []int32
	TestClassList []*testClass

	propertySets int
}

func newTestClass() *testClass {
	return &testClass{
		IntList:       []int32{0, 0, 0, 0},
		TestClassList: []*testClass{nil, nil},
	}
}

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterStruct(reflect.TypeFor[testClass]())
	reg.RegisterProperty(registry.NewProperty("IntProperty",
		func(c *testClass) int32 { return c.intProperty },
		func(c *testClass, v int32) { c.intProperty = v }))
	reg.RegisterProperty(registry.NewProperty("ObjectProperty",
		func(c *testClass) any { return c.objectProperty },
		func(c *testClass, v any) { c.objectProperty = v }))
	reg.RegisterProperty(registry.NewProperty("NonBlittableStructProperty",
		func(c *testClass) nonBlittableStruct { return c.nonBlittableStructProperty },
		func(c *testClass, v nonBlittableStruct) {
			c.propertySets++
			c.nonBlittableStructProperty = v
		}))
	reg.RegisterProperty(registry.NewProperty("TestClassProperty",
		func(s *nonBlittableStruct) *testClass { return s.testClassProperty },
		func(s *nonBlittableStruct, v *testClass) { s.testClassProperty = v }))
	return reg
}

// testData packs (condition, value) pairs the way animation curves emit
// them: a float32 factor of 1 followed by the int32 value.
func testData(values ...int32) []byte {
	b := make([]byte, 8*len(values))
	for i, v := range values {
		binary.NativeEndian.PutUint32(b[8*i:], math.Float32bits(1))
		binary.NativeEndian.PutUint32(b[8*i+4:], uint32(v))
	}
	return b
}

func compileAndRun(t *testing.T, reg *registry.Registry, target *testClass, entries []vm.PathEntry, data []byte, objects []vm.ObjectData) *vm.Program {
	t.Helper()
	prog, err := New(reg).Compile(reflect.TypeFor[testClass](), entries)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := vm.Run(target, prog, data, objects); err != nil {
		t.Fatalf("Run: %v\n%s", err, vm.Disassemble(prog))
	}
	return prog
}

const testClassName = "compiler.testClass"

// ---------------------------------------------------------------------------
// Single member kinds
// ---------------------------------------------------------------------------

func TestIntField(t *testing.T) {
	test := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{{Path: "IntField", DataOffset: 0}}, testData(123), nil)
	if test.IntField != 123 {
		t.Errorf("IntField = %d, want 123", test.IntField)
	}
}

func TestIntProperty(t *testing.T) {
	test := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{{Path: "IntProperty", DataOffset: 0}}, testData(123), nil)
	if test.intProperty != 123 {
		t.Errorf("IntProperty = %d, want 123", test.intProperty)
	}
}

func TestObjectField(t *testing.T) {
	test, test2 := newTestClass(), newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{{Path: "ObjectField", DataOffset: 0}}, nil,
		[]vm.ObjectData{vm.NewObjectData(test2)})
	if test.ObjectField != test2 {
		t.Errorf("ObjectField = %v, want test2", test.ObjectField)
	}
}

func TestObjectProperty(t *testing.T) {
	test, test2 := newTestClass(), newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{{Path: "ObjectProperty", DataOffset: 0}}, nil,
		[]vm.ObjectData{vm.NewObjectData(test2)})
	if test.objectProperty != test2 {
		t.Errorf("ObjectProperty = %v, want test2", test.objectProperty)
	}
}

func TestCastQualifiedName(t *testing.T) {
	reg := testRegistry()
	qualified := reflect.TypeFor[testClass]().PkgPath() + ".testClass"

	test := newTestClass()
	test.ObjectField = newTestClass()
	test.objectProperty = newTestClass()
	compileAndRun(t, reg, test, []vm.PathEntry{
		{Path: "ObjectField.(" + qualified + ").IntField", DataOffset: 0},
		{Path: "ObjectProperty.(" + testClassName + ").IntField", DataOffset: 8},
	}, testData(123, 456), nil)

	if got := test.ObjectField.(*testClass).IntField; got != 123 {
		t.Errorf("ObjectField.IntField = %d, want 123", got)
	}
	if got := test.objectProperty.(*testClass).IntField; got != 456 {
		t.Errorf("ObjectProperty.IntField = %d, want 456", got)
	}
}

func TestCastDynamicTypeMismatchSkips(t *testing.T) {
	test := newTestClass()
	test.ObjectField = &nonBlittableStruct{}
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "IntField", DataOffset: 0},
		{Path: "ObjectField.(" + testClassName + ").IntField", DataOffset: 0},
	}, testData(7), nil)
	if test.IntField != 7 {
		t.Errorf("IntField = %d, want 7", test.IntField)
	}
}

type bcBase struct {
	X, Y int32
}

type bcDerived struct {
	bcBase
	Z int32
}

type bcRoot struct {
	D bcDerived
	P *bcDerived
}

func TestStaticBaseCast(t *testing.T) {
	reg := registry.New()
	reg.RegisterStruct(reflect.TypeFor[bcRoot]())

	prog, err := New(reg).Compile(reflect.TypeFor[bcRoot](), []vm.PathEntry{
		{Path: "D.(compiler.bcBase).Y", DataOffset: 0},
		{Path: "D.Z", DataOffset: 8},
		{Path: "P.(compiler.bcBase).X", DataOffset: 16},
		{Path: "P.Y", DataOffset: 24},
	})
	if err != nil {
		t.Fatal(err)
	}

	pOffset := int(unsafe.Offsetof(bcRoot{}.P))
	want := []struct {
		op     vm.Opcode
		adjust int
	}{
		{vm.OpSetBlittableField4, 4},         // D.Y
		{vm.OpSetBlittableField4, 4},         // D.Z, from D.Y
		{vm.OpEnterObjectField, pOffset - 8}, // P, from D.Z
		{vm.OpSetBlittableField4, 0},         // P.X
		{vm.OpSetBlittableField4, 4},         // P.Y through the base chain
		{vm.OpLeave, 0},
	}
	if len(prog.Operations) != len(want) {
		t.Fatalf("got %d operations, want %d:\n%s", len(prog.Operations), len(want), vm.Disassemble(prog))
	}
	for i, w := range want {
		op := prog.Operations[i]
		if op.Op != w.op || op.AdjustOffset != w.adjust {
			t.Errorf("op %d = %s adjust=%d, want %s adjust=%d", i, op.Op, op.AdjustOffset, w.op, w.adjust)
		}
	}

	r := &bcRoot{P: &bcDerived{}}
	if err := vm.Run(r, prog, testData(1, 2, 3, 4), nil); err != nil {
		t.Fatal(err)
	}
	if want := (bcDerived{bcBase: bcBase{X: 0, Y: 1}, Z: 2}); r.D != want {
		t.Errorf("D = %+v, want %+v", r.D, want)
	}
	if want := (bcDerived{bcBase: bcBase{X: 3, Y: 4}}); *r.P != want {
		t.Errorf("P = %+v, want %+v", *r.P, want)
	}
}

func TestIntArray(t *testing.T) {
	test := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "IntArray[0]", DataOffset: 0},
		{Path: "IntArray[2]", DataOffset: 0},
		{Path: "IntArray[3]", DataOffset: 8},
	}, testData(123, 456), nil)
	if want := [4]int32{123, 0, 123, 456}; test.IntArray != want {
		t.Errorf("IntArray = %v, want %v", test.IntArray, want)
	}
}

func TestIntList(t *testing.T) {
	test := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "IntList[0]", DataOffset: 0},
		{Path: "IntList[2]", DataOffset: 0},
		{Path: "IntList[3]", DataOffset: 8},
	}, testData(123, 456), nil)
	if want := []int32{123, 0, 123, 456}; !reflect.DeepEqual(test.IntList, want) {
		t.Errorf("IntList = %v, want %v", test.IntList, want)
	}
}

func TestNonBlittableStruct(t *testing.T) {
	test, test2 := newTestClass(), newTestClass()
	prog := compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "NonBlittableStructField.TestClassField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassProperty", DataOffset: 0},
		{Path: "NonBlittableStructProperty.TestClassField", DataOffset: 0},
		{Path: "NonBlittableStructProperty.TestClassProperty", DataOffset: 0},
	}, nil, []vm.ObjectData{vm.NewObjectData(test2)})

	checks := map[string]*testClass{
		"NonBlittableStructField.TestClassField":       test.NonBlittableStructField.TestClassField,
		"NonBlittableStructField.TestClassProperty":    test.NonBlittableStructField.testClassProperty,
		"NonBlittableStructProperty.TestClassField":    test.nonBlittableStructProperty.TestClassField,
		"NonBlittableStructProperty.TestClassProperty": test.nonBlittableStructProperty.testClassProperty,
	}
	for path, got := range checks {
		if got != test2 {
			t.Errorf("%s = %p, want %p", path, got, test2)
		}
	}
	if test.propertySets != 1 {
		t.Errorf("struct property set %d times, want once", test.propertySets)
	}

	// The copy-back slot must not keep test2 reachable from the program.
	if len(prog.Temporaries) != 1 {
		t.Fatalf("temporaries = %d, want 1", len(prog.Temporaries))
	}
	if got := *registry.Deref[nonBlittableStruct](prog.Temporaries[0]); got != (nonBlittableStruct{}) {
		t.Errorf("temporary after run = %+v, want zero", got)
	}
}

func TestTestClassArray(t *testing.T) {
	test, test2 := newTestClass(), newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "TestClassArray[0]", DataOffset: 0},
		{Path: "TestClassArray[0].IntField", DataOffset: 0},
		{Path: "TestClassArray[1]", DataOffset: 1},
		{Path: "TestClassArray[1].IntField", DataOffset: 8},
	}, testData(123, 456), []vm.ObjectData{vm.NewObjectData(test), vm.NewObjectData(test2)})

	if test.TestClassArray[0] != test || test.IntField != 123 {
		t.Errorf("TestClassArray[0] = %p (IntField %d), want self with 123", test.TestClassArray[0], test.IntField)
	}
	if test.TestClassArray[1] != test2 || test2.IntField != 456 {
		t.Errorf("TestClassArray[1] = %p (IntField %d), want test2 with 456", test.TestClassArray[1], test2.IntField)
	}
}

func TestTestClassList(t *testing.T) {
	reg := testRegistry()
	reg.RegisterResolver(registry.ListResolver[*testClass]())

	test, test2 := newTestClass(), newTestClass()
	compileAndRun(t, reg, test, []vm.PathEntry{
		{Path: "TestClassList[0]", DataOffset: 0},
		{Path: "TestClassList[0].IntField", DataOffset: 0},
		{Path: "TestClassList[1]", DataOffset: 1},
		{Path: "TestClassList[1].IntField", DataOffset: 8},
	}, testData(123, 456), []vm.ObjectData{vm.NewObjectData(test), vm.NewObjectData(test2)})

	if test.TestClassList[0] != test || test.IntField != 123 {
		t.Errorf("TestClassList[0] = %p (IntField %d)", test.TestClassList[0], test.IntField)
	}
	if test.TestClassList[1] != test2 || test2.IntField != 456 {
		t.Errorf("TestClassList[1] = %p (IntField %d)", test.TestClassList[1], test2.IntField)
	}
}

// ---------------------------------------------------------------------------
// Batches
// ---------------------------------------------------------------------------

func manyProperties() []vm.PathEntry {
	return []vm.PathEntry{
		{Path: "IntField", DataOffset: 0},
		{Path: "IntProperty", DataOffset: 8},
		{Path: "NonBlittableStructField.TestClassField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassProperty", DataOffset: 0},
		{Path: "NonBlittableStructProperty.TestClassField", DataOffset: 0},
		{Path: "NonBlittableStructProperty.TestClassProperty", DataOffset: 0},
		{Path: "ObjectField", DataOffset: 0},
		{Path: "ObjectProperty", DataOffset: 0},
		{Path: "IntArray[0]", DataOffset: 0},
		{Path: "IntArray[2]", DataOffset: 0},
		{Path: "IntArray[3]", DataOffset: 8},
		{Path: "IntList[0]", DataOffset: 0},
		{Path: "IntList[2]", DataOffset: 0},
		{Path: "IntList[3]", DataOffset: 8},
		{Path: "TestClassArray[0]", DataOffset: 0},
		{Path: "TestClassArray[0].IntField", DataOffset: 0},
		{Path: "TestClassArray[1]", DataOffset: 1},
		{Path: "TestClassArray[1].IntField", DataOffset: 8},
	}
}

func TestManyProperties(t *testing.T) {
	test, test2, test3 := newTestClass(), newTestClass(), newTestClass()
	compileAndRun(t, testRegistry(), test, manyProperties(), testData(123, 456),
		[]vm.ObjectData{vm.NewObjectData(test2), vm.NewObjectData(test3)})

	if test.IntField != 123 {
		t.Errorf("IntField = %d, want 123", test.IntField)
	}
	if test.intProperty != 456 {
		t.Errorf("IntProperty = %d, want 456", test.intProperty)
	}
	if test.NonBlittableStructField.TestClassField != test2 || test.NonBlittableStructField.testClassProperty != test2 {
		t.Error("NonBlittableStructField members not set")
	}
	if test.nonBlittableStructProperty.TestClassField != test2 || test.nonBlittableStructProperty.testClassProperty != test2 {
		t.Error("NonBlittableStructProperty members not set")
	}
	if test.ObjectField != test2 || test.objectProperty != test2 {
		t.Error("object members not set")
	}
	if want := [4]int32{123, 0, 123, 456}; test.IntArray != want {
		t.Errorf("IntArray = %v, want %v", test.IntArray, want)
	}
	if want := []int32{123, 0, 123, 456}; !reflect.DeepEqual(test.IntList, want) {
		t.Errorf("IntList = %v, want %v", test.IntList, want)
	}
	if test.TestClassArray[0] != test2 || test2.IntField != 123 {
		t.Errorf("TestClassArray[0] = %p (IntField %d)", test.TestClassArray[0], test2.IntField)
	}
	if test.TestClassArray[1] != test3 || test3.IntField != 456 {
		t.Errorf("TestClassArray[1] = %p (IntField %d)", test.TestClassArray[1], test3.IntField)
	}
}

func TestNullSkip(t *testing.T) {
	reg := testRegistry()
	reg.RegisterResolver(registry.ListResolver[*testClass]())

	entries := []vm.PathEntry{
		{Path: "NonBlittableStructField.TestClassField.IntField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassField.IntProperty", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassProperty.IntField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassProperty.IntProperty", DataOffset: 0},
		{Path: "ObjectField.(" + testClassName + ").IntField", DataOffset: 0},
		{Path: "ObjectProperty.(" + testClassName + ").IntField", DataOffset: 0},
		{Path: "IntArray[0]", DataOffset: 0},
		{Path: "IntArray[2]", DataOffset: 0},
		{Path: "IntArray[3]", DataOffset: 0},
		{Path: "IntField", DataOffset: 0},
		{Path: "IntList[0]", DataOffset: 0},
		{Path: "IntList[2]", DataOffset: 0},
		{Path: "IntList[3]", DataOffset: 0},
		{Path: "TestClassArray[0].IntField", DataOffset: 0},
		{Path: "TestClassArray[1].IntField", DataOffset: 0},
		{Path: "TestClassList[0].IntField", DataOffset: 0},
		{Path: "TestClassList[1].IntField", DataOffset: 0},
		{Path: "IntProperty", DataOffset: 0},
	}
	prog, err := New(reg).Compile(reflect.TypeFor[testClass](), entries)
	if err != nil {
		t.Fatal(err)
	}

	test := newTestClass()
	test.IntList = nil
	if err := vm.Run(test, prog, testData(123), nil); err != nil {
		t.Fatal(err)
	}
	if test.IntField != 123 || test.intProperty != 123 {
		t.Errorf("IntField = %d, IntProperty = %d, want 123", test.IntField, test.intProperty)
	}

	test.TestClassList = nil
	if err := vm.Run(test, prog, testData(456), nil); err != nil {
		t.Fatal(err)
	}
	if test.IntField != 456 || test.intProperty != 456 {
		t.Errorf("IntField = %d, IntProperty = %d, want 456", test.IntField, test.intProperty)
	}
}

// ---------------------------------------------------------------------------
// Properties of compiled programs
// ---------------------------------------------------------------------------

func rawBytes(c *testClass) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(c)), unsafe.Sizeof(*c))
}

func TestZeroConditionsLeaveTargetUnchanged(t *testing.T) {
	prog, err := New(testRegistry()).Compile(reflect.TypeFor[testClass](), manyProperties())
	if err != nil {
		t.Fatal(err)
	}

	test := newTestClass()
	test.TestClassArray[0] = newTestClass()
	test.TestClassArray[1] = newTestClass()
	before := bytes.Clone(rawBytes(test))
	listBefore := append([]int32(nil), test.IntList...)

	data := make([]byte, prog.DataSize)
	binary.NativeEndian.PutUint32(data[4:], 999)
	objects := []vm.ObjectData{{Value: newTestClass()}, {Value: newTestClass()}}
	if err := vm.Run(test, prog, data, objects); err != nil {
		t.Fatal(err)
	}

	// The struct property is written back even when nothing inside it
	// changed; compare everything except the set counter.
	test.propertySets = 0
	if !bytes.Equal(before, rawBytes(test)) {
		t.Error("target bytes changed with all conditions zero")
	}
	if !reflect.DeepEqual(listBefore, test.IntList) {
		t.Errorf("IntList changed: %v", test.IntList)
	}
}

func TestDeterministicCompile(t *testing.T) {
	c := New(testRegistry())
	p1, err := c.Compile(reflect.TypeFor[testClass](), manyProperties())
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Compile(reflect.TypeFor[testClass](), manyProperties())
	if err != nil {
		t.Fatal(err)
	}
	if vm.Disassemble(p1) != vm.Disassemble(p2) {
		t.Errorf("programs differ:\n%s\n---\n%s", vm.Disassemble(p1), vm.Disassemble(p2))
	}
	if p1.ID == p2.ID {
		t.Error("programs share an ID")
	}
	if p1.DataSize != 16 || p1.ObjectCount != 2 {
		t.Errorf("DataSize = %d, ObjectCount = %d, want 16, 2", p1.DataSize, p1.ObjectCount)
	}
	if p1.ObjectTypes[0] != reflect.TypeFor[*testClass]() {
		t.Errorf("ObjectTypes[0] = %v, want *testClass", p1.ObjectTypes[0])
	}
	if len(p1.LeafTypes) != len(p1.Entries) {
		t.Fatalf("LeafTypes = %d, want %d", len(p1.LeafTypes), len(p1.Entries))
	}
	if lt := p1.LeafTypes[0]; lt != reflect.TypeFor[int32]() {
		t.Errorf("LeafTypes[0] = %v, want int32", lt)
	}

	// Rerunning a fresh compile gives the same result
	for _, p := range []*vm.Program{p1, p2} {
		test := newTestClass()
		if err := vm.Run(test, p, testData(123, 456), []vm.ObjectData{vm.NewObjectData(newTestClass()), vm.NewObjectData(newTestClass())}); err != nil {
			t.Fatal(err)
		}
		if test.IntField != 123 || test.intProperty != 456 {
			t.Errorf("IntField = %d, IntProperty = %d", test.IntField, test.intProperty)
		}
	}
}

func countOps(p *vm.Program, op vm.Opcode) int {
	n := 0
	for _, o := range p.Operations {
		if o.Op == op {
			n++
		}
	}
	return n
}

func TestPrefixSharing(t *testing.T) {
	reg := testRegistry()
	test := newTestClass()
	child := newTestClass()
	test.NonBlittableStructField.TestClassField = child

	prog := compileAndRun(t, reg, test, []vm.PathEntry{
		{Path: "NonBlittableStructField.TestClassField.IntField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassField.IntProperty", DataOffset: 8},
	}, testData(1, 2), nil)

	if child.IntField != 1 || child.intProperty != 2 {
		t.Errorf("child IntField = %d, IntProperty = %d, want 1, 2", child.IntField, child.intProperty)
	}
	if n := countOps(prog, vm.OpEnterObjectField); n != 1 {
		t.Errorf("%d enters, want 1:\n%s", n, vm.Disassemble(prog))
	}
	if n := countOps(prog, vm.OpLeave); n != 1 {
		t.Errorf("%d leaves, want 1", n)
	}
	if prog.MaxDepth != 1 {
		t.Errorf("MaxDepth = %d, want 1", prog.MaxDepth)
	}
}

func TestUnsortedPathsStillCorrect(t *testing.T) {
	test := newTestClass()
	child := newTestClass()
	test.NonBlittableStructField.TestClassField = child

	prog := compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "NonBlittableStructField.TestClassField.IntField", DataOffset: 0},
		{Path: "IntField", DataOffset: 8},
		{Path: "NonBlittableStructField.TestClassField.IntProperty", DataOffset: 16},
	}, testData(1, 2, 3), nil)

	if child.IntField != 1 || test.IntField != 2 || child.intProperty != 3 {
		t.Errorf("child.IntField = %d, IntField = %d, child.IntProperty = %d", child.IntField, test.IntField, child.intProperty)
	}
	if n := countOps(prog, vm.OpEnterObjectField); n != 2 {
		t.Errorf("%d enters, want 2", n)
	}
}

func TestLeafThenDeeperPath(t *testing.T) {
	test := newTestClass()
	child := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "NonBlittableStructField.TestClassField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassField.IntField", DataOffset: 0},
	}, testData(5), []vm.ObjectData{vm.NewObjectData(child)})
	if test.NonBlittableStructField.TestClassField != child || child.IntField != 5 {
		t.Errorf("TestClassField = %p, IntField = %d", test.NonBlittableStructField.TestClassField, child.IntField)
	}
}

func TestNullSkipKeepsSiblings(t *testing.T) {
	test := newTestClass()
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "IntField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassField.IntField", DataOffset: 0},
		{Path: "NonBlittableStructField.TestClassField.TestClassArray[0].IntField", DataOffset: 0},
		{Path: "IntProperty", DataOffset: 8},
	}, testData(10, 20), nil)
	if test.IntField != 10 || test.intProperty != 20 {
		t.Errorf("IntField = %d, IntProperty = %d, want 10, 20", test.IntField, test.intProperty)
	}
}

func TestDataOffsetPerEntry(t *testing.T) {
	test := newTestClass()
	data := testData(0, 77)
	binary.NativeEndian.PutUint32(data[0:], 0) // first entry disabled
	compileAndRun(t, testRegistry(), test, []vm.PathEntry{
		{Path: "IntArray[0]", DataOffset: 0},
		{Path: "IntArray[1]", DataOffset: 8},
	}, data, nil)
	if want := [4]int32{0, 77, 0, 0}; test.IntArray != want {
		t.Errorf("IntArray = %v, want %v", test.IntArray, want)
	}
}

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		offset int
		want   error
	}{
		{"empty path", "", 0, ErrEmptyPath},
		{"unterminated indexer", "IntList[0", 7, ErrUnterminatedIndexer},
		{"unterminated cast", "ObjectField.(" + testClassName, 11, ErrUnterminatedCast},
		{"malformed indexer", "IntList[a]", 7, ErrBadIndexer},
		{"negative indexer", "IntList[-1]", 7, ErrBadIndexer},
		{"array index out of range", "IntArray[4]", 8, ErrBadIndexer},
		{"unresolved member", "Nope", 0, ErrUnresolvedMember},
		{"unresolved nested member", "NonBlittableStructField.Nope", 23, ErrUnresolvedMember},
		{"indexer on struct", "NonBlittableStructField[0]", 23, ErrUnresolvedMember},
		{"unresolved type", "ObjectField.(nope.T).IntField", 11, ErrUnresolvedType},
		{"interface without cast", "ObjectField.IntField", 11, ErrNotEnterable},
		{"cast ends path", "ObjectField.(" + testClassName + ")", 11, ErrInvalidCast},
		{"cast to unrelated type", "NonBlittableStructField.(" + testClassName + ").TestClassField", 23, ErrInvalidCast},
		{"empty member", "IntField.", 8, ErrEmptyMember},
	}

	c := New(testRegistry())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := c.Compile(reflect.TypeFor[testClass](), []vm.PathEntry{{Path: "IntField", DataOffset: 0}, {Path: tt.path, DataOffset: 0}})
			if prog != nil {
				t.Error("program returned with error")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var pe *PathError
			if !errors.As(err, &pe) {
				t.Fatalf("err %v is not a *PathError", err)
			}
			if pe.Path != tt.path || pe.Offset != tt.offset {
				t.Errorf("PathError at %q:%d, want %q:%d", pe.Path, pe.Offset, tt.path, tt.offset)
			}
		})
	}
}

func TestCompileRejectsBadEntries(t *testing.T) {
	c := New(testRegistry())
	_, err := c.Compile(reflect.TypeFor[testClass](), []vm.PathEntry{{Path: "IntField", DataOffset: -4}})
	if !errors.Is(err, ErrBadDataOffset) {
		t.Errorf("negative offset: err = %v", err)
	}

	_, err = c.Compile(reflect.TypeFor[testClass](), []vm.PathEntry{
		{Path: "TestClassArray[0]", DataOffset: 0},
		{Path: "IntList", DataOffset: 0},
	})
	if !errors.Is(err, ErrBadDataOffset) {
		t.Errorf("conflicting object types: err = %v", err)
	}

	reg := testRegistry()
	reg.RegisterProperty(registry.NewProperty[testClass, int32]("ReadOnly",
		func(c *testClass) int32 { return c.IntField }, nil))
	_, err = New(reg).Compile(reflect.TypeFor[testClass](), []vm.PathEntry{{Path: "ReadOnly", DataOffset: 0}})
	if !errors.Is(err, ErrNotSettable) {
		t.Errorf("read-only property: err = %v", err)
	}
}

func TestCompilePointerRoot(t *testing.T) {
	prog, err := New(testRegistry()).Compile(reflect.TypeFor[*testClass](), []vm.PathEntry{{Path: "IntField", DataOffset: 0}})
	if err != nil {
		t.Fatal(err)
	}
	if prog.Root != reflect.TypeFor[testClass]() {
		t.Errorf("Root = %s, want testClass", prog.Root)
	}
}

func TestCompileDefaultRegistry(t *testing.T) {
	type defaultRoot struct {
		Value float64
	}
	registry.Default.RegisterStruct(reflect.TypeFor[defaultRoot]())

	prog, err := Compile(reflect.TypeFor[defaultRoot](), []vm.PathEntry{{Path: "Value", DataOffset: 0}})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 12)
	binary.NativeEndian.PutUint32(data, 1)
	binary.NativeEndian.PutUint64(data[4:], math.Float64bits(2.5))

	r := &defaultRoot{}
	if err := vm.Run(r, prog, data, nil); err != nil {
		t.Fatal(err)
	}
	if r.Value != 2.5 {
		t.Errorf("Value = %v, want 2.5", r.Value)
	}
}
