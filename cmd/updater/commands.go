package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/updater/compiler"
	"github.com/chazu/updater/compiler/hash"
	"github.com/chazu/updater/manifest"
	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/scene"
	"github.com/chazu/updater/vm"
	"github.com/chazu/updater/vm/dist"
)

type app struct {
	manifest *manifest.Manifest
	types    *registry.Registry
	cache    *compiler.Cache
	json     bool
	output   string
	out      io.Writer
}

// program compiles binding b, reusing earlier compilations of the same batch.
// b.Root is left in canonical form.
func (a *app) program(b *manifest.Binding) (*vm.Program, error) {
	root, err := b.Resolve(a.types)
	if err != nil {
		return nil, err
	}
	prog, err := a.cache.Get(root, b.Entries())
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", b.Name, err)
	}
	return prog, nil
}

func (a *app) selectBindings(names []string) ([]manifest.Binding, error) {
	all, err := a.manifest.AllBindings()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return all, nil
	}
	var out []manifest.Binding
	for _, name := range names {
		b, err := a.manifest.FindBinding(name)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func (a *app) compile(args []string) error {
	bindings, err := a.selectBindings(args)
	if err != nil {
		return err
	}
	var failed []error
	for i := range bindings {
		prog, err := a.program(&bindings[i])
		if err != nil {
			failed = append(failed, err)
			continue
		}
		if a.json {
			js, err := programJSON(bindings[i].Name, prog)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, js)
			continue
		}
		fmt.Fprintf(a.out, "== %s (%s) ==\n", bindings[i].Name, hash.String(hash.Program(prog))[:12])
		fmt.Fprint(a.out, vm.Disassemble(prog))
	}
	return errors.Join(failed...)
}

func (a *app) hash(args []string) error {
	writeLock := len(args) > 0 && args[0] == "-lock"

	bindings, err := a.manifest.AllBindings()
	if err != nil {
		return err
	}
	for i := range bindings {
		if _, err := bindings[i].Resolve(a.types); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s  %s\n", hash.String(bindings[i].Hash()), bindings[i].Name)
	}

	if writeLock {
		return manifest.WriteLock(a.manifest.LockFilePath(), manifest.NewLockFile(bindings))
	}

	lock, err := manifest.ReadLock(a.manifest.LockFilePath())
	if err != nil {
		return err
	}
	if lock == nil {
		return nil
	}
	if stale := lock.Stale(bindings); len(stale) > 0 {
		return fmt.Errorf("bindings changed since updater.lock was written: %s", strings.Join(stale, ", "))
	}
	return nil
}

func (a *app) frame(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: updater frame <binding> <path=value>...")
	}
	b, err := a.manifest.FindBinding(args[0])
	if err != nil {
		return err
	}
	prog, err := a.program(b)
	if err != nil {
		return err
	}

	data, objects, err := buildFrame(prog, args[1:])
	if err != nil {
		return err
	}
	f, err := dist.NewFrame(prog, data, objects)
	if err != nil {
		return err
	}
	raw, err := dist.MarshalFrame(f)
	if err != nil {
		return err
	}
	return a.write(raw)
}

func (a *app) run(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: updater run <binding> <frame-file>")
	}
	b, err := a.manifest.FindBinding(args[0])
	if err != nil {
		return err
	}
	prog, err := a.program(b)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	f, err := dist.UnmarshalFrame(raw)
	if err != nil {
		return err
	}
	data, objects, err := f.Decode(prog)
	if err != nil {
		return err
	}

	root := scene.Demo()
	if err := vm.NewInterpreter().Run(root, prog, data, objects); err != nil {
		return err
	}

	if !a.json {
		printEntity(a.out, root, 0)
		return nil
	}
	js, err := entityJSON(root)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, js)
	return nil
}

func (a *app) export(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: updater export <binding>")
	}
	b, err := a.manifest.FindBinding(args[0])
	if err != nil {
		return err
	}
	// Compile first so that only valid bindings are handed out, with a
	// canonical root
	if _, err := a.program(b); err != nil {
		return err
	}
	raw, err := dist.MarshalBinding(dist.NewBinding(b.Name, b.Root, b.Entries()))
	if err != nil {
		return err
	}
	return a.write(raw)
}

func (a *app) write(raw []byte) error {
	if a.output == "" {
		_, err := a.out.Write(raw)
		return err
	}
	return os.WriteFile(a.output, raw, 0644)
}
