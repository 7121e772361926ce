package registry

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Accessor describes how to reach one resolved path segment. The concrete
// variants are *Field, *Property and Custom.
type Accessor interface {
	// MemberType is the static type of the value reached through the accessor.
	MemberType() reflect.Type
}

// ---------------------------------------------------------------------------
// Field
// ---------------------------------------------------------------------------

// Field is a value stored at a fixed byte offset inside its owner. Field
// operations receive the address of the field itself, not of the owner.
type Field struct {
	Name   string
	Type   reflect.Type
	Offset uintptr
}

// NewField builds a Field from a struct field descriptor.
func NewField(f reflect.StructField) *Field {
	return &Field{Name: f.Name, Type: f.Type, Offset: f.Offset}
}

func (f *Field) MemberType() reflect.Type { return f.Type }

// Object returns the object referenced by the field at at. See ObjectRef.
func (f *Field) Object(at Ref, expect reflect.Type) Ref {
	return ObjectRef(f.Type, at, expect)
}

// SetBytes copies the raw bytes of a blittable value into the field.
func (f *Field) SetBytes(at Ref, src []byte) {
	copy(at.Bytes(f.Type.Size()), src)
}

// SetObject stores v into the field.
func (f *Field) SetObject(at Ref, v any) bool {
	return Assign(f.Type, at, v)
}

func (f *Field) String() string {
	return fmt.Sprintf("field %s %s +%d", f.Name, f.Type, f.Offset)
}

// ---------------------------------------------------------------------------
// Property
// ---------------------------------------------------------------------------

// Property is a value reached through a getter and setter on its owner.
// Property operations receive the address of the owner.
type Property struct {
	Name  string
	Owner reflect.Type
	Type  reflect.Type

	object   func(owner Ref, expect reflect.Type) Ref
	load     func(owner, dst Ref)
	store    func(owner, src Ref)
	setBytes func(owner Ref, src []byte)
	setAny   func(owner Ref, v any) bool
}

// NewProperty builds a Property of type T on owner type O. Either get or set
// may be nil for write-only or read-only properties.
func NewProperty[O, T any](name string, get func(*O) T, set func(*O, T)) *Property {
	p := &Property{
		Name:  name,
		Owner: reflect.TypeFor[O](),
		Type:  reflect.TypeFor[T](),
	}
	if get != nil {
		p.object = propertyObject(p.Type, get)
		p.load = func(owner, dst Ref) {
			*Deref[T](dst) = get(Deref[O](owner))
		}
	}
	if set != nil {
		p.store = func(owner, src Ref) {
			set(Deref[O](owner), *Deref[T](src))
		}
		p.setBytes = func(owner Ref, src []byte) {
			var v T
			copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)), src)
			set(Deref[O](owner), v)
		}
		p.setAny = func(owner Ref, v any) bool {
			if v == nil {
				var zero T
				if !isNillable(reflect.TypeFor[T]()) {
					return false
				}
				set(Deref[O](owner), zero)
				return true
			}
			tv, ok := v.(T)
			if !ok {
				return false
			}
			set(Deref[O](owner), tv)
			return true
		}
	}
	return p
}

// propertyObject builds the enter function of a property of type t. Pointer
// and interface results are read without boxing them on the heap.
func propertyObject[O, T any](t reflect.Type, get func(*O) T) func(Ref, reflect.Type) Ref {
	switch t.Kind() {
	case reflect.Pointer:
		return func(owner Ref, _ reflect.Type) Ref {
			v := get(Deref[O](owner))
			return Ref{p: *(*unsafe.Pointer)(unsafe.Pointer(&v))}
		}
	case reflect.Interface:
		return func(owner Ref, expect reflect.Type) Ref {
			v := any(get(Deref[O](owner)))
			if v == nil {
				return Ref{}
			}
			e := reflect.ValueOf(v)
			if expect != nil && e.Type() != expect {
				return Ref{}
			}
			if e.Kind() != reflect.Pointer {
				return Ref{}
			}
			return Ref{p: e.UnsafePointer()}
		}
	}
	return func(owner Ref, _ reflect.Type) Ref {
		v := new(T)
		*v = get(Deref[O](owner))
		return RefOf(v)
	}
}

func (p *Property) MemberType() reflect.Type { return p.Type }

// CanGet reports whether the property has a getter.
func (p *Property) CanGet() bool { return p.object != nil }

// CanSet reports whether the property has a setter.
func (p *Property) CanSet() bool { return p.store != nil }

// Object calls the getter and returns the object it references. See
// ObjectRef. For value types the result is a fresh copy.
func (p *Property) Object(owner Ref, expect reflect.Type) Ref {
	return p.object(owner, expect)
}

// Load copies the current property value into dst, which must address a T.
func (p *Property) Load(owner, dst Ref) { p.load(owner, dst) }

// Store sets the property from the T addressed by src.
func (p *Property) Store(owner, src Ref) { p.store(owner, src) }

// SetBytes sets the property from the raw bytes of a blittable value.
func (p *Property) SetBytes(owner Ref, src []byte) { p.setBytes(owner, src) }

// SetObject sets the property to v. It returns false when v is not a T.
func (p *Property) SetObject(owner Ref, v any) bool { return p.setAny(owner, v) }

func (p *Property) String() string {
	return fmt.Sprintf("property %s.%s %s", p.Owner, p.Name, p.Type)
}

// ---------------------------------------------------------------------------
// Custom accessors
// ---------------------------------------------------------------------------

// Custom is an accessor implemented by a resolver. Its operations receive
// the address of the container the segment was resolved against.
type Custom interface {
	Accessor

	// Enter returns the object reached through the accessor, or a nil Ref
	// when there is none (nil reference, missing element, or a dynamic type
	// other than expect).
	Enter(container Ref, expect reflect.Type) Ref

	// SetValue stores a blittable value given as raw bytes.
	SetValue(container Ref, src []byte)

	// SetObject stores v. It returns false when v has the wrong type.
	SetObject(container Ref, v any) bool
}

// SliceElement addresses one element of a slice. Indices are checked
// against the slice length on every access; out of range is a no-op.
type SliceElement struct {
	Index int
	Slice reflect.Type
}

func (e *SliceElement) MemberType() reflect.Type { return e.Slice.Elem() }

func (e *SliceElement) element(container Ref) (Ref, bool) {
	s := container.Value(e.Slice)
	if e.Index >= s.Len() {
		return Ref{}, false
	}
	return Ref{p: s.Index(e.Index).Addr().UnsafePointer()}, true
}

func (e *SliceElement) Enter(container Ref, expect reflect.Type) Ref {
	at, ok := e.element(container)
	if !ok {
		return Ref{}
	}
	return ObjectRef(e.Slice.Elem(), at, expect)
}

func (e *SliceElement) SetValue(container Ref, src []byte) {
	if at, ok := e.element(container); ok {
		copy(at.Bytes(e.Slice.Elem().Size()), src)
	}
}

func (e *SliceElement) SetObject(container Ref, v any) bool {
	at, ok := e.element(container)
	if !ok {
		return true
	}
	return Assign(e.Slice.Elem(), at, v)
}

func (e *SliceElement) String() string {
	return fmt.Sprintf("element %s[%d]", e.Slice, e.Index)
}

// Describe renders an accessor for disassembly listings.
func Describe(a Accessor) string {
	if a == nil {
		return "-"
	}
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T %s", a, a.MemberType())
}
