package main

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/chazu/updater/compiler/hash"
	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/scene"
	"github.com/chazu/updater/vm"
)

// jsonBuilder accumulates sjson edits and keeps the first error.
type jsonBuilder struct {
	js  string
	err error
}

func (b *jsonBuilder) set(path string, v any) {
	if b.err != nil {
		return
	}
	b.js, b.err = sjson.Set(b.js, path, v)
}

func programJSON(name string, prog *vm.Program) (string, error) {
	b := &jsonBuilder{js: "{}"}
	b.set("binding", name)
	b.set("id", prog.ID.String())
	b.set("hash", hash.String(hash.Program(prog)))
	b.set("root", prog.Root.String())
	b.set("dataSize", prog.DataSize)
	b.set("objectCount", prog.ObjectCount)
	b.set("maxDepth", prog.MaxDepth)
	b.set("temporaries", len(prog.Temporaries))

	for i, e := range prog.Entries {
		p := fmt.Sprintf("entries.%d", i)
		b.set(p+".path", e.Path)
		b.set(p+".offset", e.DataOffset)
		b.set(p+".type", prog.LeafTypes[i].String())
		b.set(p+".blittable", registry.IsBlittable(prog.LeafTypes[i]))
	}

	for i, op := range prog.Operations {
		p := fmt.Sprintf("operations.%d", i)
		b.set(p+".op", op.Op.Name())
		if op.Member != nil {
			b.set(p+".member", registry.Describe(op.Member))
		}
		if op.AdjustOffset != 0 {
			b.set(p+".adjust", op.AdjustOffset)
		}
		if op.Op.Info().UsesData || op.Op.Info().UsesObjects {
			b.set(p+".data", op.DataOffset)
		}
		if op.Op.IsEnter() && op.Skip > 0 {
			b.set(p+".skip", op.Skip)
		}
		if op.Expect != nil {
			b.set(p+".expect", op.Expect.String())
		}
	}
	return b.js, b.err
}

// entityJSON renders an entity tree with its exported component state.
func entityJSON(e *scene.Entity) (string, error) {
	b := &jsonBuilder{js: "{}"}
	writeEntity(b, "", e)
	return b.js, b.err
}

func writeEntity(b *jsonBuilder, prefix string, e *scene.Entity) {
	b.set(prefix+"name", e.Name)
	b.set(prefix+"transform", e.Transform)
	for i, c := range e.Components() {
		p := fmt.Sprintf("%scomponents.%d", prefix, i)
		b.set(p+".type", reflect.TypeOf(c).Elem().String())
		b.set(p+".value", c)
	}
	for i, child := range e.Children() {
		writeEntity(b, fmt.Sprintf("%schildren.%d.", prefix, i), child)
	}
}

func printEntity(w io.Writer, e *scene.Entity, depth int) {
	indent := strings.Repeat("  ", depth)
	t := e.Transform
	fmt.Fprintf(w, "%s%s pos=%v rot=%v scale=%v\n", indent, e.Name, t.Position, t.Rotation, t.Scale)
	for _, c := range e.Components() {
		fmt.Fprintf(w, "%s  %T %+v\n", indent, c, reflect.ValueOf(c).Elem().Interface())
	}
	for _, child := range e.Children() {
		printEntity(w, child, depth+1)
	}
}
