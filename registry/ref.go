package registry

import (
	"reflect"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Ref: address of a value inside a live object graph
// ---------------------------------------------------------------------------

// Ref is the address of a value inside a live object graph. The zero Ref is
// nil. Only accessor implementations should turn a Ref back into a typed
// pointer, via Deref.
type Ref struct {
	p unsafe.Pointer
}

// RefOf returns a Ref addressing *p.
func RefOf[T any](p *T) Ref {
	return Ref{p: unsafe.Pointer(p)}
}

// RefFromPointer wraps a raw address.
func RefFromPointer(p unsafe.Pointer) Ref {
	return Ref{p: p}
}

// Deref reinterprets r as a *T. The caller guarantees that r addresses a T.
func Deref[T any](r Ref) *T {
	return (*T)(r.p)
}

// Alloc allocates a zero value of type t and returns its address.
func Alloc(t reflect.Type) Ref {
	return Ref{p: reflect.New(t).UnsafePointer()}
}

// IsNil reports whether r addresses nothing.
func (r Ref) IsNil() bool {
	return r.p == nil
}

// Add returns r advanced by off bytes. off must keep the result inside the
// object r points into.
func (r Ref) Add(off int) Ref {
	if off == 0 {
		return r
	}
	return Ref{p: unsafe.Add(r.p, off)}
}

// Pointer returns the raw address.
func (r Ref) Pointer() unsafe.Pointer {
	return r.p
}

// Bytes returns the n bytes starting at r.
func (r Ref) Bytes(n uintptr) []byte {
	return unsafe.Slice((*byte)(r.p), n)
}

// Value returns the value of type t stored at r as an addressable
// reflect.Value.
func (r Ref) Value(t reflect.Type) reflect.Value {
	return reflect.NewAt(t, r.p).Elem()
}

// ---------------------------------------------------------------------------
// Type classification
// ---------------------------------------------------------------------------

// IsReference reports whether entering a member of type t follows a
// reference. Pointers and interfaces are references; everything else
// (structs, arrays, slice and map headers, scalars) is stored inline.
func IsReference(t reflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer || k == reflect.Interface
}

// IsBlittable reports whether values of t hold no Go pointers and can be
// copied as raw bytes.
func IsBlittable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || IsBlittable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !IsBlittable(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// Target returns the type whose members are visible after entering a member
// of type t: the pointee for pointers, t itself otherwise.
func Target(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// ObjectRef returns the base address of the object reached from the value of
// type t stored at at. For a pointer it is the pointee; for an interface it
// is the pointer held in the interface, provided its dynamic type is expect
// (when expect is non-nil). Inline values are their own base. A nil Ref
// means there is nothing to enter.
func ObjectRef(t reflect.Type, at Ref, expect reflect.Type) Ref {
	switch t.Kind() {
	case reflect.Pointer:
		return Ref{p: *(*unsafe.Pointer)(at.p)}
	case reflect.Interface:
		v := at.Value(t)
		if v.IsNil() {
			return Ref{}
		}
		e := v.Elem()
		if expect != nil && e.Type() != expect {
			return Ref{}
		}
		if e.Kind() != reflect.Pointer {
			return Ref{}
		}
		return Ref{p: e.UnsafePointer()}
	}
	return at
}

// Zero clears the value of type t at at.
func Zero(t reflect.Type, at Ref) {
	at.Value(t).SetZero()
}

// Assign stores v into the value of type t at at. A nil v clears nillable
// types. It returns false when v is not assignable to t.
func Assign(t reflect.Type, at Ref, v any) bool {
	dst := at.Value(t)
	if v == nil {
		if !isNillable(t) {
			return false
		}
		dst.SetZero()
		return true
	}
	src := reflect.ValueOf(v)
	if !src.Type().AssignableTo(t) {
		return false
	}
	dst.Set(src)
	return true
}
