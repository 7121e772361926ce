package scene

import (
	"fmt"
	"reflect"

	"github.com/tliron/commonlog"

	"github.com/chazu/updater/registry"
)

var log = commonlog.GetLogger("updater.scene")

var (
	entityType    = reflect.TypeFor[Entity]()
	entityPtrType = reflect.TypeFor[*Entity]()
	componentType = reflect.TypeFor[Component]()
)

// Register adds the scene types, their properties and the entity resolver
// to reg.
func Register(reg *registry.Registry) {
	reg.RegisterStruct(entityType)
	reg.RegisterStruct(reflect.TypeFor[Light]())
	reg.RegisterStruct(reflect.TypeFor[Model]())
	reg.RegisterProperty(registry.NewProperty("Range", (*Light).Range, (*Light).SetRange))
	reg.RegisterProperty(registry.NewProperty("Visible", (*Model).Visible, (*Model).SetVisible))
	reg.RegisterResolver(NewResolver(reg))
}

// Resolver resolves the dynamic members of an Entity. Member names that
// are not static fields address children by name; indexers hold a
// registered component type name.
type Resolver struct {
	types *registry.Registry
}

// NewResolver returns an entity resolver that looks component type names
// up in types.
func NewResolver(types *registry.Registry) *Resolver {
	return &Resolver{types: types}
}

func (r *Resolver) SupportedType() reflect.Type { return entityType }

func (r *Resolver) ResolveMember(_ reflect.Type, name string) (registry.Accessor, error) {
	return &ChildAccessor{Name: name}, nil
}

func (r *Resolver) ResolveIndexer(_ reflect.Type, index string) (registry.Accessor, error) {
	t, ok := r.types.ResolveType(index)
	if !ok {
		return nil, fmt.Errorf("%w: unknown component type %q", registry.ErrNotFound, index)
	}
	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}
	if !t.Implements(componentType) {
		return nil, fmt.Errorf("%w: %s is not a component", registry.ErrNotFound, t)
	}
	log.Debugf("component indexer %s", t)
	return &ComponentAccessor{Type: t}, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// ChildAccessor addresses the child entity called Name.
type ChildAccessor struct {
	Name string
}

func (a *ChildAccessor) MemberType() reflect.Type { return entityPtrType }

func (a *ChildAccessor) Enter(container registry.Ref, _ reflect.Type) registry.Ref {
	child := registry.Deref[Entity](container).Child(a.Name)
	if child == nil {
		return registry.Ref{}
	}
	return registry.RefOf(child)
}

// SetValue is never called: entities are not blittable.
func (a *ChildAccessor) SetValue(registry.Ref, []byte) {}

func (a *ChildAccessor) SetObject(container registry.Ref, v any) bool {
	var child *Entity
	if v != nil {
		var ok bool
		if child, ok = v.(*Entity); !ok {
			return false
		}
	}
	registry.Deref[Entity](container).ReplaceChild(a.Name, child)
	return true
}

func (a *ChildAccessor) String() string {
	return fmt.Sprintf("child %q", a.Name)
}

// ComponentAccessor addresses the component of dynamic type Type.
type ComponentAccessor struct {
	Type reflect.Type
}

func (a *ComponentAccessor) MemberType() reflect.Type { return a.Type }

func (a *ComponentAccessor) Enter(container registry.Ref, _ reflect.Type) registry.Ref {
	c := registry.Deref[Entity](container).Component(a.Type)
	if c == nil {
		return registry.Ref{}
	}
	return registry.RefFromPointer(reflect.ValueOf(c).UnsafePointer())
}

// SetValue is never called: components are pointers.
func (a *ComponentAccessor) SetValue(registry.Ref, []byte) {}

// SetObject attaches v, or removes the component when v is nil.
func (a *ComponentAccessor) SetObject(container registry.Ref, v any) bool {
	e := registry.Deref[Entity](container)
	if v == nil {
		e.Remove(a.Type)
		return true
	}
	if reflect.TypeOf(v) != a.Type {
		return false
	}
	e.Set(v.(Component))
	return true
}

func (a *ComponentAccessor) String() string {
	return fmt.Sprintf("component [%s]", a.Type.Elem())
}
