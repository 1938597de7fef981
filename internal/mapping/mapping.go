// Package mapping builds, writes and reads Proguard-style mapping files.
//
//	com.facebook.Alpha -> com.facebook.a:
//	    int wombat -> a
//	    void run(int,java.lang.String) -> a
//
// All names in a Map are kept as descriptors; the text form uses Java
// spelling.
package mapping

import (
	"slices"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/naming"
)

// Member is one renamed field or method.
type Member struct {
	Type   string   // field type or return type, original descriptor
	Name   string   // original name
	Params []string // nil for fields
	New    string
	Method bool
}

// Class groups the renamed members of one class. A class that was not
// renamed itself has Old == New.
type Class struct {
	Old     string
	New     string
	Fields  []Member
	Methods []Member
}

// Renamed reports whether the class name itself changed.
func (c *Class) Renamed() bool { return c.Old != c.New }

// Map is a parsed or built mapping.
type Map struct {
	Classes []*Class
	byOld   map[string]*Class
	byNew   map[string]*Class
}

func newMap() *Map {
	return &Map{byOld: make(map[string]*Class), byNew: make(map[string]*Class)}
}

func (m *Map) add(c *Class) {
	m.Classes = append(m.Classes, c)
	m.byOld[c.Old] = c
	m.byNew[c.New] = c
}

// Build collects the entries of rm for the classes of g. It must run before
// the graph is rewritten, while g still carries original names.
func Build(g *classgraph.Graph, rm *naming.RenameMap) *Map {
	d := g.Dex()
	m := newMap()
	for _, c := range g.Classes() {
		old := g.Name(c)
		mc := &Class{Old: old, New: old}
		if n, ok := rm.Class(old); ok {
			mc.New = n
		}
		for _, f := range c.Fields {
			if n, ok := rm.Field(d.FieldDescriptor(f.Ref)); ok {
				r := d.FieldRef(f.Ref)
				mc.Fields = append(mc.Fields, Member{Type: d.TypeDescriptor(r.Type), Name: r.Name, New: n})
			}
		}
		for _, meth := range c.Methods {
			if n, ok := rm.Method(d.MethodDescriptor(meth.Ref)); ok {
				r := d.MethodRef(meth.Ref)
				proto := d.ProtoDescriptor(r.Proto)
				params := proto.Params
				if params == nil {
					params = []string{}
				}
				mc.Methods = append(mc.Methods, Member{
					Type:   proto.Return,
					Name:   r.Name,
					Params: params,
					New:    n,
					Method: true,
				})
			}
		}
		if mc.Renamed() || len(mc.Fields) > 0 || len(mc.Methods) > 0 {
			m.add(mc)
		}
	}
	return m
}

// ClassNew returns the new descriptor of a renamed class.
func (m *Map) ClassNew(old string) (string, bool) {
	c, ok := m.byOld[old]
	if !ok || !c.Renamed() {
		return "", false
	}
	return c.New, true
}

// ClassOld returns the original descriptor of a renamed class.
func (m *Map) ClassOld(renamed string) (string, bool) {
	c, ok := m.byNew[renamed]
	if !ok || !c.Renamed() {
		return "", false
	}
	return c.Old, true
}

// OriginalType maps a possibly obfuscated type descriptor, array or not,
// back to its original spelling.
func (m *Map) OriginalType(desc string) string {
	if old, ok := m.ClassOld(descriptor.ElementType(desc)); ok {
		return descriptor.WithElement(desc, old)
	}
	return desc
}

// FieldNew returns the new name of field owner.name:typ, all original.
func (m *Map) FieldNew(owner, name, typ string) (string, bool) {
	c, ok := m.byOld[owner]
	if !ok {
		return "", false
	}
	for _, f := range c.Fields {
		if f.Name == name && f.Type == typ {
			return f.New, true
		}
	}
	return "", false
}

// MethodNew returns the new name of method owner.name:proto, all original.
func (m *Map) MethodNew(owner, name string, proto descriptor.Proto) (string, bool) {
	c, ok := m.byOld[owner]
	if !ok {
		return "", false
	}
	for _, meth := range c.Methods {
		if meth.Name == name && meth.Type == proto.Return && slices.Equal(meth.Params, proto.Params) {
			return meth.New, true
		}
	}
	return "", false
}

// Counts returns the number of renamed classes, fields and methods.
func (m *Map) Counts() (classes, fields, methods int) {
	for _, c := range m.Classes {
		if c.Renamed() {
			classes++
		}
		fields += len(c.Fields)
		methods += len(c.Methods)
	}
	return classes, fields, methods
}
