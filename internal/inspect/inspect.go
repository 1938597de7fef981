// Package inspect answers questions about a rewritten graph in terms of
// original names.
package inspect

import (
	"strings"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/mapping"
)

type Inspector struct {
	g *classgraph.Graph
	m *mapping.Map
}

// New returns an inspector over a rewritten graph and the mapping that
// produced it. A nil mapping means nothing was renamed.
func New(g *dex.Graph, m *mapping.Map) *Inspector {
	if m == nil {
		m = &mapping.Map{}
	}
	return &Inspector{g: classgraph.New(g), m: m}
}

// FindClassNamed returns the class originally named desc, or nil.
func (i *Inspector) FindClassNamed(desc string) *dex.Class {
	if n, ok := i.m.ClassNew(desc); ok {
		desc = n
	}
	c, err := i.g.ClassByName(desc)
	if err != nil {
		return nil
	}
	return c
}

// FieldFound reports whether one of fields renders as desc, with owner and
// type spelled with original class names and the field name as it is now.
func (i *Inspector) FieldFound(fields []*dex.Field, desc string) bool {
	d := i.g.Dex()
	for _, f := range fields {
		r := d.FieldRef(f.Ref)
		owner := i.m.OriginalType(d.TypeDescriptor(r.Class))
		typ := i.m.OriginalType(d.TypeDescriptor(r.Type))
		if descriptor.Field(owner, r.Name, typ) == desc {
			return true
		}
	}
	return false
}

// RefsToFieldFound reports whether any field operand's current descriptor
// contains fragment.
func (i *Inspector) RefsToFieldFound(fragment string) bool {
	d := i.g.Dex()
	found := false
	i.g.Operands(func(op classgraph.Operand) bool {
		if op.Kind() == dex.RefField && strings.Contains(d.FieldDescriptor(dex.FieldRefID(op.Insn.Index)), fragment) {
			found = true
		}
		return !found
	})
	return found
}
