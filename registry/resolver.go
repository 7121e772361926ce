package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	// ErrNotFound is returned when no accessor matches a member or indexer.
	ErrNotFound = errors.New("no accessor")
	// ErrBadIndex is returned when indexer text is not a base-10 integer.
	ErrBadIndex = errors.New("malformed indexer")
)

// Resolver resolves members and indexers for a container type that has no
// static field table, such as collections or entities with dynamic
// children. A resolver returns (nil, nil) when it does not handle a segment
// so that the next fallback is consulted.
type Resolver interface {
	// SupportedType is the type (concrete or interface) the resolver is
	// registered for.
	SupportedType() reflect.Type
	ResolveIndexer(container reflect.Type, index string) (Accessor, error)
	ResolveMember(container reflect.Type, name string) (Accessor, error)
}

// ParseIndex parses indexer text as an unsigned base-10 integer that fits
// in 31 bits.
func ParseIndex(text string) (int, error) {
	n, err := strconv.ParseUint(text, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadIndex, text)
	}
	return int(n), nil
}

// ---------------------------------------------------------------------------
// Built-in collection resolvers
// ---------------------------------------------------------------------------

type sliceResolver struct {
	t reflect.Type
}

// NewSliceResolver returns a resolver for integer indexers on slice type t.
func NewSliceResolver(t reflect.Type) Resolver {
	if t.Kind() != reflect.Slice {
		panic(fmt.Sprintf("registry: NewSliceResolver on %s", t))
	}
	return sliceResolver{t: t}
}

// ListResolver returns the slice resolver for []T.
func ListResolver[T any]() Resolver {
	return NewSliceResolver(reflect.TypeFor[[]T]())
}

func (r sliceResolver) SupportedType() reflect.Type { return r.t }

func (r sliceResolver) ResolveIndexer(_ reflect.Type, index string) (Accessor, error) {
	i, err := ParseIndex(index)
	if err != nil {
		return nil, err
	}
	return &SliceElement{Index: i, Slice: r.t}, nil
}

func (r sliceResolver) ResolveMember(reflect.Type, string) (Accessor, error) {
	return nil, nil
}

type arrayResolver struct {
	t reflect.Type
}

// NewArrayResolver returns a resolver for integer indexers on array type t.
// Elements resolve to fields, so out-of-range indices fail at resolution.
func NewArrayResolver(t reflect.Type) Resolver {
	if t.Kind() != reflect.Array {
		panic(fmt.Sprintf("registry: NewArrayResolver on %s", t))
	}
	return arrayResolver{t: t}
}

func (r arrayResolver) SupportedType() reflect.Type { return r.t }

func (r arrayResolver) ResolveIndexer(_ reflect.Type, index string) (Accessor, error) {
	i, err := ParseIndex(index)
	if err != nil {
		return nil, err
	}
	if i >= r.t.Len() {
		return nil, fmt.Errorf("%w: index %d out of range for %s", ErrBadIndex, i, r.t)
	}
	elem := r.t.Elem()
	return &Field{
		Name:   "[" + index + "]",
		Type:   elem,
		Offset: uintptr(i) * elem.Size(),
	}, nil
}

func (r arrayResolver) ResolveMember(reflect.Type, string) (Accessor, error) {
	return nil, nil
}

// builtinResolver returns the kind-based resolver for t, if any.
func builtinResolver(t reflect.Type) Resolver {
	switch t.Kind() {
	case reflect.Slice:
		return NewSliceResolver(t)
	case reflect.Array:
		return NewArrayResolver(t)
	}
	return nil
}
