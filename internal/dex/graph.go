// Package dex models a class container as an arena: classes, fields and
// methods are addressed by integer IDs, and every reference (declaration or
// instruction operand) is an index into one of three pools: types, field
// refs and method refs. Renaming an entity is relabeling its pool entries.
package dex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnolang/pgrename/internal/descriptor"
)

type (
	TypeID      int32
	FieldRefID  int32
	MethodRefID int32
	ClassID     int32
)

// NoType marks an absent type, such as the superclass of java.lang.Object.
const NoType TypeID = -1

var (
	// ErrDuplicateClass is returned when a class is defined twice.
	ErrDuplicateClass = errors.New("duplicate class definition")
	// ErrCyclicHierarchy is returned when a class is its own supertype.
	ErrCyclicHierarchy = errors.New("cyclic class hierarchy")
)

// FieldRef is a field pool entry.
type FieldRef struct {
	Class TypeID
	Type  TypeID
	Name  string
}

// Proto is a method prototype over the type pool.
type Proto struct {
	Params []TypeID
	Return TypeID
}

// MethodRef is a method pool entry.
type MethodRef struct {
	Class TypeID
	Proto Proto
	Name  string
}

// Class is a class definition.
type Class struct {
	ID          ClassID
	Type        TypeID
	Access      AccessFlags
	Super       TypeID
	Interfaces  []TypeID
	Annotations []TypeID
	SourceFile  string
	Fields      []*Field
	Methods     []*Method
}

// Field is a field definition; Ref is its own pool entry.
type Field struct {
	Ref         FieldRefID
	Owner       ClassID
	Access      AccessFlags
	Annotations []TypeID
}

// Method is a method definition; Ref is its own pool entry.
type Method struct {
	Ref         MethodRefID
	Owner       ClassID
	Access      AccessFlags
	Annotations []TypeID
	Code        *Code
}

// IsConstructor reports whether m is an instance or static initializer.
func (m *Method) IsConstructor(g *Graph) bool {
	name := g.methodRefs[m.Ref].Name
	return name == "<init>" || name == "<clinit>"
}

// IsVirtual reports whether m takes part in overriding.
func (m *Method) IsVirtual(g *Graph) bool {
	return m.Access&(AccStatic|AccPrivate) == 0 && !m.IsConstructor(g)
}

// Graph is the in-memory class container.
type Graph struct {
	types       []string
	typeIndex   map[string]TypeID
	fieldRefs   []FieldRef
	fieldIndex  map[string]FieldRefID
	methodRefs  []MethodRef
	methodIndex map[string]MethodRefID
	classes     []*Class
	classIndex  map[TypeID]ClassID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		typeIndex:   make(map[string]TypeID),
		fieldIndex:  make(map[string]FieldRefID),
		methodIndex: make(map[string]MethodRefID),
		classIndex:  make(map[TypeID]ClassID),
	}
}

// Intern returns the type pool entry for desc, adding it if needed.
func (g *Graph) Intern(desc string) TypeID {
	if id, ok := g.typeIndex[desc]; ok {
		return id
	}
	id := TypeID(len(g.types))
	g.types = append(g.types, desc)
	g.typeIndex[desc] = id
	return id
}

// LookupType returns the pool entry currently spelled desc.
func (g *Graph) LookupType(desc string) (TypeID, bool) {
	id, ok := g.typeIndex[desc]
	return id, ok
}

// TypeDescriptor returns the current descriptor of a type pool entry.
func (g *Graph) TypeDescriptor(id TypeID) string {
	if id == NoType {
		return ""
	}
	return g.types[id]
}

// SetTypeDescriptor relabels a type pool entry. Lookup indices are stale
// until Reindex is called.
func (g *Graph) SetTypeDescriptor(id TypeID, desc string) {
	g.types[id] = desc
}

// InternField returns the field pool entry for owner.name:typ.
func (g *Graph) InternField(owner, name, typ string) FieldRefID {
	key := descriptor.Field(owner, name, typ)
	if id, ok := g.fieldIndex[key]; ok {
		return id
	}
	id := FieldRefID(len(g.fieldRefs))
	g.fieldRefs = append(g.fieldRefs, FieldRef{Class: g.Intern(owner), Type: g.Intern(typ), Name: name})
	g.fieldIndex[key] = id
	return id
}

// InternMethod returns the method pool entry for owner.name:proto.
func (g *Graph) InternMethod(owner, name string, proto descriptor.Proto) MethodRefID {
	key := descriptor.Method(owner, name, proto)
	if id, ok := g.methodIndex[key]; ok {
		return id
	}
	p := Proto{Return: g.Intern(proto.Return)}
	for _, param := range proto.Params {
		p.Params = append(p.Params, g.Intern(param))
	}
	id := MethodRefID(len(g.methodRefs))
	g.methodRefs = append(g.methodRefs, MethodRef{Class: g.Intern(owner), Proto: p, Name: name})
	g.methodIndex[key] = id
	return id
}

// LookupField returns the field pool entry currently spelled desc.
func (g *Graph) LookupField(desc string) (FieldRefID, bool) {
	id, ok := g.fieldIndex[desc]
	return id, ok
}

// LookupMethod returns the method pool entry currently spelled desc.
func (g *Graph) LookupMethod(desc string) (MethodRefID, bool) {
	id, ok := g.methodIndex[desc]
	return id, ok
}

func (g *Graph) FieldRef(id FieldRefID) FieldRef    { return g.fieldRefs[id] }
func (g *Graph) MethodRef(id MethodRefID) MethodRef { return g.methodRefs[id] }
func (g *Graph) NumTypes() int                      { return len(g.types) }
func (g *Graph) NumFieldRefs() int                  { return len(g.fieldRefs) }
func (g *Graph) NumMethodRefs() int                 { return len(g.methodRefs) }

// SetFieldName relabels a field pool entry.
func (g *Graph) SetFieldName(id FieldRefID, name string) {
	g.fieldRefs[id].Name = name
}

// SetMethodName relabels a method pool entry.
func (g *Graph) SetMethodName(id MethodRefID, name string) {
	g.methodRefs[id].Name = name
}

// SetFieldOwner points a field pool entry at another class.
func (g *Graph) SetFieldOwner(id FieldRefID, owner TypeID) {
	g.fieldRefs[id].Class = owner
}

// SetMethodOwner points a method pool entry at another class.
func (g *Graph) SetMethodOwner(id MethodRefID, owner TypeID) {
	g.methodRefs[id].Class = owner
}

// FieldDescriptor renders a field pool entry with current names.
func (g *Graph) FieldDescriptor(id FieldRefID) string {
	r := g.fieldRefs[id]
	return descriptor.Field(g.types[r.Class], r.Name, g.types[r.Type])
}

// ProtoDescriptor renders a prototype with current names.
func (g *Graph) ProtoDescriptor(p Proto) descriptor.Proto {
	out := descriptor.Proto{Return: g.types[p.Return]}
	for _, param := range p.Params {
		out.Params = append(out.Params, g.types[param])
	}
	return out
}

// MethodDescriptor renders a method pool entry with current names.
func (g *Graph) MethodDescriptor(id MethodRefID) string {
	r := g.methodRefs[id]
	return descriptor.Method(g.types[r.Class], r.Name, g.ProtoDescriptor(r.Proto))
}

// AddClass defines a class. super is "" for a class without superclass.
func (g *Graph) AddClass(desc string, access AccessFlags, super string, interfaces ...string) (*Class, error) {
	if !descriptor.IsClass(desc) {
		return nil, fmt.Errorf("class %w: %q", descriptor.ErrMalformed, desc)
	}
	t := g.Intern(desc)
	if _, ok := g.classIndex[t]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, desc)
	}
	c := &Class{
		ID:     ClassID(len(g.classes)),
		Type:   t,
		Access: access,
		Super:  NoType,
	}
	if super != "" {
		if !descriptor.IsClass(super) {
			return nil, fmt.Errorf("superclass of %s: %w: %q", desc, descriptor.ErrMalformed, super)
		}
		c.Super = g.Intern(super)
	}
	for _, iface := range interfaces {
		if !descriptor.IsClass(iface) {
			return nil, fmt.Errorf("interface of %s: %w: %q", desc, descriptor.ErrMalformed, iface)
		}
		c.Interfaces = append(c.Interfaces, g.Intern(iface))
	}
	g.classes = append(g.classes, c)
	g.classIndex[t] = c.ID
	return c, nil
}

// AddField declares a field on c.
func (g *Graph) AddField(c *Class, name, typ string, access AccessFlags) (*Field, error) {
	if err := descriptor.Validate(typ); err != nil || typ == "V" {
		return nil, fmt.Errorf("field %s of %s: %w", name, g.Name(c), descriptor.ErrMalformed)
	}
	if name == "" || strings.ContainsAny(name, ".;:/") {
		return nil, fmt.Errorf("field name %q of %s: %w", name, g.Name(c), descriptor.ErrMalformed)
	}
	f := &Field{
		Ref:    g.InternField(g.Name(c), name, typ),
		Owner:  c.ID,
		Access: access,
	}
	c.Fields = append(c.Fields, f)
	return f, nil
}

// AddMethod declares a method on c. proto is "(Params)Ret".
func (g *Graph) AddMethod(c *Class, name, proto string, access AccessFlags) (*Method, error) {
	p, err := descriptor.ParseProto(proto)
	if err != nil {
		return nil, fmt.Errorf("method %s of %s: %w", name, g.Name(c), err)
	}
	if name == "" || strings.ContainsAny(name, ".;:/") {
		return nil, fmt.Errorf("method name %q of %s: %w", name, g.Name(c), descriptor.ErrMalformed)
	}
	if name == "<init>" || name == "<clinit>" {
		access |= AccConstructor
	}
	m := &Method{
		Ref:    g.InternMethod(g.Name(c), name, p),
		Owner:  c.ID,
		Access: access,
	}
	c.Methods = append(c.Methods, m)
	return m, nil
}

// Classes returns class definitions in definition order.
func (g *Graph) Classes() []*Class {
	return g.classes
}

// CheckHierarchy reports a superclass or interface chain that leads back
// to a class already on it. Supertypes outside the graph end a chain.
func (g *Graph) CheckHierarchy() error {
	const (
		unvisited uint8 = iota
		active
		done
	)
	state := make([]uint8, len(g.classes))
	var visit func(c *Class, path []string) error
	visit = func(c *Class, path []string) error {
		path = append(path, g.Name(c))
		switch state[c.ID] {
		case active:
			return fmt.Errorf("%w: %s", ErrCyclicHierarchy, strings.Join(path, " -> "))
		case done:
			return nil
		}
		state[c.ID] = active
		supers := append([]TypeID{c.Super}, c.Interfaces...)
		for _, t := range supers {
			if s, ok := g.ClassByType(t); ok {
				if err := visit(s, path); err != nil {
					return err
				}
			}
		}
		state[c.ID] = done
		return nil
	}
	for _, c := range g.classes {
		if state[c.ID] == unvisited {
			if err := visit(c, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Class returns the class with the given ID.
func (g *Graph) Class(id ClassID) *Class {
	return g.classes[id]
}

// ClassByType returns the class defined for a type pool entry.
func (g *Graph) ClassByType(t TypeID) (*Class, bool) {
	if t == NoType {
		return nil, false
	}
	id, ok := g.classIndex[t]
	if !ok {
		return nil, false
	}
	return g.classes[id], true
}

// Name returns the current descriptor of c.
func (g *Graph) Name(c *Class) string {
	return g.types[c.Type]
}

// FieldName returns the current name of a declared field.
func (g *Graph) FieldName(f *Field) string {
	return g.fieldRefs[f.Ref].Name
}

// MethodName returns the current name of a declared method.
func (g *Graph) MethodName(m *Method) string {
	return g.methodRefs[m.Ref].Name
}

// Reindex rebuilds the descriptor lookups after pool entries were relabeled.
// Entries that now render identically keep the lowest ID in the lookup.
func (g *Graph) Reindex() {
	g.typeIndex = make(map[string]TypeID, len(g.types))
	for i, desc := range g.types {
		if _, ok := g.typeIndex[desc]; !ok {
			g.typeIndex[desc] = TypeID(i)
		}
	}
	g.fieldIndex = make(map[string]FieldRefID, len(g.fieldRefs))
	for i := range g.fieldRefs {
		key := g.FieldDescriptor(FieldRefID(i))
		if _, ok := g.fieldIndex[key]; !ok {
			g.fieldIndex[key] = FieldRefID(i)
		}
	}
	g.methodIndex = make(map[string]MethodRefID, len(g.methodRefs))
	for i := range g.methodRefs {
		key := g.MethodDescriptor(MethodRefID(i))
		if _, ok := g.methodIndex[key]; !ok {
			g.methodIndex[key] = MethodRefID(i)
		}
	}
}
