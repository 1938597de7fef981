package classgraph

import (
	"github.com/gnolang/pgrename/internal/dex"
)

// Resolution classifies the target of a reference.
type Resolution uint8

const (
	// Declared targets are defined by a class in the graph.
	Declared Resolution = iota
	// External targets live outside the graph, or the lookup crossed an
	// external supertype before finding a definition.
	External
	// Unresolved references have an in-graph owner and no definition
	// anywhere in a fully known hierarchy.
	Unresolved
)

func (r Resolution) String() string {
	switch r {
	case Declared:
		return "declared"
	case External:
		return "external"
	default:
		return "unresolved"
	}
}

// FieldTarget is the outcome of field resolution.
type FieldTarget struct {
	Kind  Resolution
	Class *dex.Class
	Field *dex.Field
}

// MethodTarget is the outcome of method resolution.
type MethodTarget struct {
	Kind   Resolution
	Class  *dex.Class
	Method *dex.Method
}

// ResolveField resolves a field reference the way the VM does: the owner,
// then its superinterfaces, then its superclass chain.
func (a *Graph) ResolveField(id dex.FieldRefID) FieldTarget {
	r := a.dex.FieldRef(id)
	owner, ok := a.dex.ClassByType(r.Class)
	if !ok {
		return FieldTarget{Kind: External}
	}
	key := memberKey{r.Name, a.dex.TypeDescriptor(r.Type)}
	external := false
	seen := make(map[dex.ClassID]bool)

	var lookup func(c *dex.Class) (FieldTarget, bool)
	lookup = func(c *dex.Class) (FieldTarget, bool) {
		if seen[c.ID] {
			return FieldTarget{}, false
		}
		seen[c.ID] = true
		if f, ok := a.fields[c.ID][key]; ok {
			return FieldTarget{Kind: Declared, Class: c, Field: f}, true
		}
		for _, t := range c.Interfaces {
			iface, ok := a.dex.ClassByType(t)
			if !ok {
				external = true
				continue
			}
			if ft, ok := lookup(iface); ok {
				return ft, true
			}
		}
		if c.Super == dex.NoType {
			return FieldTarget{}, false
		}
		super, ok := a.dex.ClassByType(c.Super)
		if !ok {
			external = true
			return FieldTarget{}, false
		}
		return lookup(super)
	}

	if ft, ok := lookup(owner); ok {
		return ft
	}
	if external {
		return FieldTarget{Kind: External}
	}
	return FieldTarget{Kind: Unresolved}
}

// ResolveMethod resolves a method reference: the owner and its superclass
// chain first, then every superinterface.
func (a *Graph) ResolveMethod(id dex.MethodRefID) MethodTarget {
	r := a.dex.MethodRef(id)
	owner, ok := a.dex.ClassByType(r.Class)
	if !ok {
		return MethodTarget{Kind: External}
	}
	key := memberKey{r.Name, a.dex.ProtoDescriptor(r.Proto).String()}
	external := false

	var chain []*dex.Class
	for c := owner; c != nil; {
		if m, ok := a.methods[c.ID][key]; ok {
			return MethodTarget{Kind: Declared, Class: c, Method: m}
		}
		chain = append(chain, c)
		if c.Super == dex.NoType {
			break
		}
		super, ok := a.dex.ClassByType(c.Super)
		if !ok {
			external = true
			break
		}
		c = super
	}

	seen := make(map[dex.ClassID]bool)
	queue := append([]*dex.Class(nil), chain...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, t := range c.Interfaces {
			iface, ok := a.dex.ClassByType(t)
			if !ok {
				external = true
				continue
			}
			if seen[iface.ID] {
				continue
			}
			seen[iface.ID] = true
			if m, ok := a.methods[iface.ID][key]; ok {
				return MethodTarget{Kind: Declared, Class: iface, Method: m}
			}
			queue = append(queue, iface)
		}
	}

	if external {
		return MethodTarget{Kind: External}
	}
	return MethodTarget{Kind: Unresolved}
}

// Operand is one instruction operand that references a pool entry.
type Operand struct {
	Class  *dex.Class
	Method *dex.Method
	Index  int
	Insn   *dex.Instruction
}

// Kind returns which pool the operand indexes.
func (o Operand) Kind() dex.RefKind { return o.Insn.Op.Ref() }

// Operands calls fn for every type, field and method operand, in class
// order. Iteration stops when fn returns false.
func (a *Graph) Operands(fn func(Operand) bool) {
	for _, c := range a.sorted {
		if !a.ClassOperands(c, fn) {
			return
		}
	}
}

// ClassOperands calls fn for the operands in the methods of c and reports
// whether iteration ran to completion.
func (a *Graph) ClassOperands(c *dex.Class, fn func(Operand) bool) bool {
	for _, m := range c.Methods {
		if m.Code == nil {
			continue
		}
		for i := range m.Code.Insns {
			insn := &m.Code.Insns[i]
			switch insn.Op.Ref() {
			case dex.RefType, dex.RefField, dex.RefMethod:
				if !fn(Operand{Class: c, Method: m, Index: i, Insn: insn}) {
					return false
				}
			}
		}
	}
	return true
}
