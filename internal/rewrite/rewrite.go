// Package rewrite applies a rename map to a class graph and checks that
// every reference still reaches the entity it reached before.
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/naming"
)

// IncompleteRewriteError lists references that no longer resolve to their
// original target after relabeling.
type IncompleteRewriteError struct {
	Stale []string
}

func (e *IncompleteRewriteError) Error() string {
	if len(e.Stale) == 1 {
		return fmt.Sprintf("incomplete rewrite: stale reference %s", e.Stale[0])
	}
	return fmt.Sprintf("incomplete rewrite: %d stale references: %s", len(e.Stale), strings.Join(e.Stale, ", "))
}

// Options tunes a rewrite.
type Options struct {
	// Progress is called after each class is verified.
	Progress func(done, total int)
}

// Stats counts relabeled pool entries and verified operands.
type Stats struct {
	Types    int
	Fields   int
	Methods  int
	Operands int
}

type targets struct {
	fields     []*dex.Field
	methods    []*dex.Method
	extFields  []bool
	extMethods []bool
}

// Apply renames the classes, fields and methods of g listed in rm. Every
// field and method reference is resolved before anything is changed; an
// operand that cannot be resolved aborts with an UnresolvedReferenceError
// and g is left untouched. After relabeling, every operand and declaration
// is resolved again and must reach the same entity.
func Apply(ctx context.Context, g *classgraph.Graph, rm *naming.RenameMap, opts Options) (*Stats, error) {
	d := g.Dex()
	t, err := resolve(g)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := relabel(d, rm, t)
	d.Reindex()

	if err := verify(ctx, g, t, stats, opts.Progress); err != nil {
		return nil, err
	}
	return stats, nil
}

func resolve(g *classgraph.Graph) (*targets, error) {
	d := g.Dex()
	t := &targets{
		fields:     make([]*dex.Field, d.NumFieldRefs()),
		methods:    make([]*dex.Method, d.NumMethodRefs()),
		extFields:  make([]bool, d.NumFieldRefs()),
		extMethods: make([]bool, d.NumMethodRefs()),
	}
	for i := range t.fields {
		ft := g.ResolveField(dex.FieldRefID(i))
		t.fields[i] = ft.Field
		t.extFields[i] = ft.Kind == classgraph.External
	}
	for i := range t.methods {
		mt := g.ResolveMethod(dex.MethodRefID(i))
		t.methods[i] = mt.Method
		t.extMethods[i] = mt.Kind == classgraph.External
	}

	var err error
	g.Operands(func(op classgraph.Operand) bool {
		switch op.Kind() {
		case dex.RefField:
			id := dex.FieldRefID(op.Insn.Index)
			if t.fields[id] == nil && !t.extFields[id] {
				err = &classgraph.UnresolvedReferenceError{
					Ref:  d.FieldDescriptor(id),
					From: d.MethodDescriptor(op.Method.Ref),
				}
			}
		case dex.RefMethod:
			id := dex.MethodRefID(op.Insn.Index)
			if t.methods[id] == nil && !t.extMethods[id] {
				err = &classgraph.UnresolvedReferenceError{
					Ref:  d.MethodDescriptor(id),
					From: d.MethodDescriptor(op.Method.Ref),
				}
			}
		}
		return err == nil
	})
	return t, err
}

// relabel computes every new label from original names first, then
// applies them, so lookups never observe a half-renamed pool. A renamed
// member referenced through a subclass ("LAll;.hello") is rebound to its
// declaring class. Method references only move between classes of the
// same kind, since the invoke opcode depends on it.
func relabel(d *dex.Graph, rm *naming.RenameMap, t *targets) *Stats {
	types := make(map[dex.TypeID]string)
	for i := 0; i < d.NumTypes(); i++ {
		desc := d.TypeDescriptor(dex.TypeID(i))
		if n, ok := rm.Class(descriptor.ElementType(desc)); ok {
			types[dex.TypeID(i)] = descriptor.WithElement(desc, n)
		}
	}
	fields := make(map[dex.FieldRefID]string)
	fieldOwners := make(map[dex.FieldRefID]dex.TypeID)
	for i, f := range t.fields {
		if f == nil {
			continue
		}
		id := dex.FieldRefID(i)
		if n, ok := rm.Field(d.FieldDescriptor(f.Ref)); ok {
			fields[id] = n
			if decl := d.Class(f.Owner).Type; d.FieldRef(id).Class != decl {
				fieldOwners[id] = decl
			}
		}
	}
	methods := make(map[dex.MethodRefID]string)
	methodOwners := make(map[dex.MethodRefID]dex.TypeID)
	for i, m := range t.methods {
		if m == nil {
			continue
		}
		id := dex.MethodRefID(i)
		if n, ok := rm.Method(d.MethodDescriptor(m.Ref)); ok {
			methods[id] = n
			decl := d.Class(m.Owner)
			if ref := d.MethodRef(id).Class; ref != decl.Type && sameKind(d, ref, decl) {
				methodOwners[id] = decl.Type
			}
		}
	}

	for id, desc := range types {
		d.SetTypeDescriptor(id, desc)
	}
	for id, name := range fields {
		d.SetFieldName(id, name)
	}
	for id, name := range methods {
		d.SetMethodName(id, name)
	}
	for id, owner := range fieldOwners {
		d.SetFieldOwner(id, owner)
	}
	for id, owner := range methodOwners {
		d.SetMethodOwner(id, owner)
	}
	return &Stats{Types: len(types), Fields: len(fields), Methods: len(methods)}
}

// sameKind reports whether the class behind ref and decl are both
// interfaces or both classes.
func sameKind(d *dex.Graph, ref dex.TypeID, decl *dex.Class) bool {
	c, ok := d.ClassByType(ref)
	if !ok {
		return false
	}
	return c.Access.Has(dex.AccInterface) == decl.Access.Has(dex.AccInterface)
}

func verify(ctx context.Context, before *classgraph.Graph, t *targets, stats *Stats, progress func(int, int)) error {
	d := before.Dex()
	after := classgraph.New(d)
	var stale []string

	seen := make(map[string]bool)
	for _, c := range after.Classes() {
		name := after.Name(c)
		if seen[name] {
			stale = append(stale, name)
		}
		seen[name] = true
	}

	checkField := func(id dex.FieldRefID) {
		ft := after.ResolveField(id)
		switch {
		case t.fields[id] != nil && ft.Field != t.fields[id]:
			stale = append(stale, d.FieldDescriptor(id))
		case t.extFields[id] && ft.Kind != classgraph.External:
			stale = append(stale, d.FieldDescriptor(id))
		}
	}
	checkMethod := func(id dex.MethodRefID) {
		mt := after.ResolveMethod(id)
		switch {
		case t.methods[id] != nil && mt.Method != t.methods[id]:
			stale = append(stale, d.MethodDescriptor(id))
		case t.extMethods[id] && mt.Kind != classgraph.External:
			stale = append(stale, d.MethodDescriptor(id))
		}
	}

	classes := after.Classes()
	for i, c := range classes {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, f := range c.Fields {
			checkField(f.Ref)
		}
		for _, m := range c.Methods {
			checkMethod(m.Ref)
		}
		after.ClassOperands(c, func(op classgraph.Operand) bool {
			stats.Operands++
			switch op.Kind() {
			case dex.RefField:
				checkField(dex.FieldRefID(op.Insn.Index))
			case dex.RefMethod:
				checkMethod(dex.MethodRefID(op.Insn.Index))
			}
			return true
		})
		if progress != nil {
			progress(i+1, len(classes))
		}
	}

	if len(stale) > 0 {
		return &IncompleteRewriteError{Stale: stale}
	}
	return nil
}
