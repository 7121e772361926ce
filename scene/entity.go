// Package scene is a small entity/component model whose members are
// reachable through property paths. Entities expose their static fields
// (Name, Transform) as ordinary members, their children by name, and their
// components through type-name indexers:
//
//	lamp[scene.Light].Intensity
//	Transform.Position.Y
//	[scene.Model]
package scene

import (
	"reflect"
)

type Vec3 struct {
	X, Y, Z float32
}

type Quat struct {
	X, Y, Z, W float32
}

// Transform is the local placement of an entity.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// Component is implemented by everything that can be attached to an Entity.
// An entity holds at most one component per dynamic type.
type Component interface {
	component()
}

// Entity is a named node with a transform, child entities and components.
type Entity struct {
	Name      string
	Transform Transform

	children   []*Entity
	components []Component
}

// NewEntity returns an entity with an identity transform.
func NewEntity(name string, components ...Component) *Entity {
	e := &Entity{
		Name: name,
		Transform: Transform{
			Rotation: Quat{W: 1},
			Scale:    Vec3{1, 1, 1},
		},
	}
	for _, c := range components {
		e.Set(c)
	}
	return e
}

// AddChild appends child and returns it.
func (e *Entity) AddChild(child *Entity) *Entity {
	e.children = append(e.children, child)
	return child
}

// Child returns the first child called name, or nil.
func (e *Entity) Child(name string) *Entity {
	if i := e.childIndex(name); i >= 0 {
		return e.children[i]
	}
	return nil
}

// Children returns the child entities in insertion order.
func (e *Entity) Children() []*Entity {
	return e.children
}

// ReplaceChild puts child in place of the child called name, appending it
// when there is none. A nil child removes it.
func (e *Entity) ReplaceChild(name string, child *Entity) {
	i := e.childIndex(name)
	switch {
	case i < 0 && child != nil:
		e.children = append(e.children, child)
	case i >= 0 && child != nil:
		e.children[i] = child
	case i >= 0:
		e.children = append(e.children[:i], e.children[i+1:]...)
	}
}

func (e *Entity) childIndex(name string) int {
	for i, c := range e.children {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Component returns the component whose dynamic type is t, or nil.
func (e *Entity) Component(t reflect.Type) Component {
	if i := e.componentIndex(t); i >= 0 {
		return e.components[i]
	}
	return nil
}

// Components returns the attached components in insertion order.
func (e *Entity) Components() []Component {
	return e.components
}

// Set attaches c, replacing any component of the same type.
func (e *Entity) Set(c Component) {
	if i := e.componentIndex(reflect.TypeOf(c)); i >= 0 {
		e.components[i] = c
		return
	}
	e.components = append(e.components, c)
}

// Remove detaches the component of type t, if any.
func (e *Entity) Remove(t reflect.Type) {
	if i := e.componentIndex(t); i >= 0 {
		e.components = append(e.components[:i], e.components[i+1:]...)
	}
}

func (e *Entity) componentIndex(t reflect.Type) int {
	for i, c := range e.components {
		if reflect.TypeOf(c) == t {
			return i
		}
	}
	return -1
}

// Get returns e's component of type T, or the zero T.
func Get[T Component](e *Entity) T {
	c, _ := e.Component(reflect.TypeFor[T]()).(T)
	return c
}

// ---------------------------------------------------------------------------
// Components
// ---------------------------------------------------------------------------

// Light is a point light.
type Light struct {
	Intensity float32
	Color     [3]float32
	Enabled   bool

	rangeMeters float32
}

func (*Light) component() {}

// Range is the light's falloff distance in meters.
func (l *Light) Range() float32 { return l.rangeMeters }

// SetRange sets the falloff distance. Negative values clamp to zero.
func (l *Light) SetRange(r float32) { l.rangeMeters = max(r, 0) }

// Model renders a mesh.
type Model struct {
	Mesh string
	Tint [4]float32

	visible bool
	// Revision counts visibility changes.
	Revision int
}

func (*Model) component() {}

// Visible reports whether the model is drawn.
func (m *Model) Visible() bool { return m.visible }

func (m *Model) SetVisible(v bool) {
	if v != m.visible {
		m.visible = v
		m.Revision++
	}
}
