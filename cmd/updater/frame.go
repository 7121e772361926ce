package main

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/vm"
)

const conditionSize = 4

// buildFrame lays out path=value assignments for prog. Paths without an
// assignment keep a zero condition and are left alone when the frame runs.
func buildFrame(prog *vm.Program, assignments []string) ([]byte, []vm.ObjectData, error) {
	data := make([]byte, prog.DataSize)
	objects := make([]vm.ObjectData, prog.ObjectCount)

	for _, as := range assignments {
		path, text, ok := strings.Cut(as, "=")
		if !ok {
			return nil, nil, fmt.Errorf("assignment %q: want path=value", as)
		}
		i := entryIndex(prog, path)
		if i < 0 {
			return nil, nil, fmt.Errorf("assignment %q: path is not in the binding", as)
		}
		t, off := prog.LeafTypes[i], prog.Entries[i].DataOffset

		if registry.IsBlittable(t) {
			b, err := encodeValue(t, text)
			if err != nil {
				return nil, nil, fmt.Errorf("assignment %q: %w", as, err)
			}
			binary.NativeEndian.PutUint32(data[off:], 1)
			copy(data[off+conditionSize:], b)
			continue
		}

		v, err := objectValue(t, text)
		if err != nil {
			return nil, nil, fmt.Errorf("assignment %q: %w", as, err)
		}
		objects[off] = vm.NewObjectData(v)
	}
	return data, objects, nil
}

func entryIndex(prog *vm.Program, path string) int {
	for i, e := range prog.Entries {
		if e.Path == path {
			return i
		}
	}
	return -1
}

// encodeValue parses text as a value of blittable type t and returns its
// in-memory bytes. Composite values are given as comma separated scalars
// in field order, e.g. "0,1.5,-2" for a Vec3.
func encodeValue(t reflect.Type, text string) ([]byte, error) {
	v := reflect.New(t).Elem()
	rest, err := fill(v, strings.Split(text, ","))
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%d extra values for %s", len(rest), t)
	}
	raw := registry.RefFromPointer(v.Addr().UnsafePointer()).Bytes(t.Size())
	return append([]byte(nil), raw...), nil
}

func fill(v reflect.Value, parts []string) ([]string, error) {
	switch v.Kind() {
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			var err error
			if parts, err = fill(v.Index(i), parts); err != nil {
				return nil, err
			}
		}
		return parts, nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				return nil, fmt.Errorf("%s has unexported field %s", v.Type(), v.Type().Field(i).Name)
			}
			var err error
			if parts, err = fill(v.Field(i), parts); err != nil {
				return nil, err
			}
		}
		return parts, nil
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("missing value for %s", v.Type())
	}
	s := strings.TrimSpace(parts[0])
	switch v.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	default:
		return nil, fmt.Errorf("cannot parse %s from text", v.Type())
	}
	return parts[1:], nil
}

// objectValue parses text for a non-blittable member. Only strings and nil
// have a text form.
func objectValue(t reflect.Type, text string) (any, error) {
	if text == "null" {
		return nil, nil
	}
	if t.Kind() == reflect.String {
		return reflect.ValueOf(text).Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("%s values cannot be given on the command line", t)
}
