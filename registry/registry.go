package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("updater.registry")

// ---------------------------------------------------------------------------
// Registry: (owner type, name) -> accessor, plus resolvers and type names
// ---------------------------------------------------------------------------

type memberKey struct {
	owner reflect.Type
	name  string
}

// Registry maps member names to accessors. Registration is expected to
// finish before compilation starts; the lock only keeps the maps consistent
// if that is not the case. Later registrations for the same key win.
type Registry struct {
	mu        sync.RWMutex
	members   map[memberKey]Accessor
	resolvers map[reflect.Type]Resolver
	ifaces    []reflect.Type
	types     map[string]reflect.Type
	fallbacks map[reflect.Type][]reflect.Type
}

// Default is the process-wide registry used by package-level helpers.
var Default = New()

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		members:   make(map[memberKey]Accessor),
		resolvers: make(map[reflect.Type]Resolver),
		types:     make(map[string]reflect.Type),
		fallbacks: make(map[reflect.Type][]reflect.Type),
	}
}

// RegisterMember binds name on owner to a.
func (r *Registry) RegisterMember(owner reflect.Type, name string, a Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[memberKey{owner, name}] = a
}

// RegisterProperty binds p under its own owner and name.
func (r *Registry) RegisterProperty(p *Property) {
	r.RegisterMember(p.Owner, p.Name, p)
}

// RegisterResolver installs res for its supported type, replacing any
// previous resolver for that type.
func (r *Registry) RegisterResolver(res Resolver) {
	t := res.SupportedType()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resolvers[t]; !ok && t.Kind() == reflect.Interface {
		r.ifaces = append(r.ifaces, t)
	}
	r.resolvers[t] = res
	clear(r.fallbacks)
	log.Debugf("resolver registered for %s", t)
}

// RegisterType makes t resolvable by its short name (e.g. "scene.Light")
// and by its fully qualified name (e.g. "github.com/x/scene.Light").
func (r *Registry) RegisterType(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerTypeLocked(t)
}

func (r *Registry) registerTypeLocked(t reflect.Type) {
	r.types[t.String()] = t
	if t.Name() != "" && t.PkgPath() != "" {
		r.types[t.PkgPath()+"."+t.Name()] = t
	}
}

// RegisterStruct registers every exported field of struct type t as a
// Field accessor, along with its type name, then does the same for every
// struct type reachable through its fields.
func (r *Registry) RegisterStruct(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[reflect.Type]bool)
	r.registerStructLocked(t, seen)
}

func (r *Registry) registerStructLocked(t reflect.Type, seen map[reflect.Type]bool) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || seen[t] {
		return
	}
	seen[t] = true
	r.registerTypeLocked(t)

	n := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			if f.Anonymous {
				r.registerStructLocked(f.Type, seen)
			}
			continue
		}
		r.members[memberKey{t, f.Name}] = NewField(f)
		n++
		r.registerStructLocked(f.Type, seen)
	}
	log.Debugf("registered %d fields of %s", n, t)
}

// ResolveType looks up a type registered with RegisterType.
func (r *Registry) ResolveType(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Bases returns the embedding chain of t: the struct embedded anonymously
// at offset 0, then the one embedded in it, and so on.
func Bases(t reflect.Type) []reflect.Type {
	var bases []reflect.Type
	for t.Kind() == reflect.Struct && t.NumField() > 0 {
		f := t.Field(0)
		if !f.Anonymous || f.Offset != 0 || f.Type.Kind() != reflect.Struct {
			break
		}
		bases = append(bases, f.Type)
		t = f.Type
	}
	return bases
}

// IsBase reports whether base is t or appears in its embedding chain.
func IsBase(t, base reflect.Type) bool {
	if t == base {
		return true
	}
	for _, b := range Bases(t) {
		if b == base {
			return true
		}
	}
	return false
}

// Fallbacks returns the types consulted when resolving segments on t, in
// order: t, its embedding chain, then every interface with a registered
// resolver that t or *t implements. The result is memoized.
func (r *Registry) Fallbacks(t reflect.Type) []reflect.Type {
	r.mu.RLock()
	fb, ok := r.fallbacks[t]
	r.mu.RUnlock()
	if ok {
		return fb
	}

	fb = append([]reflect.Type{t}, Bases(t)...)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.ifaces {
		if t.Implements(it) || (t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(it)) {
			fb = append(fb, it)
		}
	}
	r.fallbacks[t] = fb
	return fb
}

func (r *Registry) lookup(t reflect.Type, name string) (Accessor, Resolver) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[memberKey{t, name}], r.resolvers[t]
}

// ResolveMember finds the accessor for name on owner. Registered members
// are tried first for each fallback type, then that type's resolver.
func (r *Registry) ResolveMember(owner reflect.Type, name string) (Accessor, error) {
	for _, t := range r.Fallbacks(owner) {
		a, res := r.lookup(t, name)
		if a != nil {
			return a, nil
		}
		if res == nil {
			continue
		}
		a, err := res.ResolveMember(owner, name)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w for member %s in type %s", ErrNotFound, name, owner)
}

// ResolveIndexer finds the accessor for [index] on container. Registered
// resolvers are tried along the fallback chain; slices and arrays without
// one use the built-in collection resolvers.
func (r *Registry) ResolveIndexer(container reflect.Type, index string) (Accessor, error) {
	for _, t := range r.Fallbacks(container) {
		_, res := r.lookup(t, "")
		if res == nil {
			continue
		}
		a, err := res.ResolveIndexer(container, index)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	if res := builtinResolver(container); res != nil {
		return res.ResolveIndexer(container, index)
	}
	return nil, fmt.Errorf("%w for index %s in type %s", ErrNotFound, index, container)
}
