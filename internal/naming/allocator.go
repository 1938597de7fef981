package naming

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/lattice"
	"github.com/gnolang/pgrename/internal/matcher"
)

// Preferred supplies names from a previous run's mapping. Lookups take
// original descriptors and return the name the entity had then.
type Preferred interface {
	ClassNew(old string) (string, bool)
	FieldNew(owner, name, typ string) (string, bool)
	MethodNew(owner, name string, proto descriptor.Proto) (string, bool)
}

// Options tunes allocation.
type Options struct {
	// Preferred names are taken first when they are free.
	Preferred Preferred
	// UniqueMemberNames uses one field scope and one method scope per
	// parameter list for the whole graph.
	UniqueMemberNames bool
	// FoldCase makes class names that differ only in case collide.
	FoldCase bool
}

// objectNames are method names that must never be generated, so a renamed
// method cannot accidentally override java.lang.Object.
var objectNames = []string{
	"equals", "hashCode", "toString", "finalize", "clone",
	"getClass", "notify", "notifyAll", "wait",
}

type allocator struct {
	g    *classgraph.Graph
	d    *dex.Graph
	v    *matcher.Verdicts
	opts Options
	rm   *RenameMap

	classScopes  map[string]*Scope
	fieldScopes  map[string]*Scope
	methodScopes map[string]*Scope
	renamed      map[string]string
}

// Allocate assigns a new name to every renameable class, field and method
// of g. Frozen entities keep their names and reserve them.
func Allocate(g *classgraph.Graph, v *matcher.Verdicts, opts Options) (*RenameMap, error) {
	a := &allocator{
		g:            g,
		d:            g.Dex(),
		v:            v,
		opts:         opts,
		rm:           NewRenameMap(),
		classScopes:  make(map[string]*Scope),
		fieldScopes:  make(map[string]*Scope),
		methodScopes: make(map[string]*Scope),
		renamed:      make(map[string]string),
	}
	if err := a.classes(); err != nil {
		return nil, err
	}
	if err := a.fields(); err != nil {
		return nil, err
	}
	if err := a.methods(); err != nil {
		return nil, err
	}
	return a.rm, nil
}

func scope(m map[string]*Scope, id string, foldCase bool) *Scope {
	s, ok := m[id]
	if !ok {
		s = NewScope(id, foldCase)
		m[id] = s
	}
	return s
}

func next(s *Scope, entity string) (string, error) {
	name, err := s.Next()
	var ce *CollisionError
	if errors.As(err, &ce) {
		ce.Entity = entity
	}
	return name, err
}

// classPlace returns the scope a class name is allocated in and the name
// local to that scope. Nested classes of in-graph classes are allocated
// under their outer class; everything else under its package.
func (a *allocator) classPlace(desc string) (id, local, outer string) {
	if o, ok := descriptor.OuterClass(desc); ok {
		if _, err := a.g.ClassByName(o); err == nil {
			return "outer " + o, strings.TrimPrefix(descriptor.SimpleName(desc), descriptor.SimpleName(o)+"$"), o
		}
	}
	return "package " + descriptor.Package(desc), descriptor.SimpleName(desc), ""
}

func (a *allocator) reserveClass(desc string) {
	id, local, _ := a.classPlace(desc)
	scope(a.classScopes, id, a.opts.FoldCase).Reserve(local)
	head, _, _ := strings.Cut(descriptor.SimpleName(desc), "$")
	scope(a.classScopes, "package "+descriptor.Package(desc), a.opts.FoldCase).Reserve(head)
}

func (a *allocator) classes() error {
	for _, c := range a.g.Classes() {
		if !a.v.Class(c).Renameable() {
			a.reserveClass(a.g.Name(c))
		}
	}
	for id := 0; id < a.d.NumTypes(); id++ {
		elem := descriptor.ElementType(a.d.TypeDescriptor(dex.TypeID(id)))
		if descriptor.IsClass(elem) && a.g.IsExternal(elem) {
			a.reserveClass(elem)
		}
	}

	for _, c := range a.g.Classes() {
		if !a.v.Class(c).Renameable() {
			continue
		}
		old := a.g.Name(c)
		id, _, outer := a.classPlace(old)
		s := scope(a.classScopes, id, a.opts.FoldCase)

		var prefix string
		switch {
		case outer != "":
			newOuter := outer
			if n, ok := a.renamed[outer]; ok {
				newOuter = n
			}
			prefix = descriptor.ClassPath(newOuter) + "$"
		case descriptor.Package(old) != "":
			prefix = descriptor.Package(old) + "/"
		}

		local := ""
		if a.opts.Preferred != nil {
			if p, ok := a.opts.Preferred.ClassNew(old); ok {
				if l, ok := localIn(p, prefix); ok && s.Claim(l) {
					local = l
				}
			}
		}
		if local == "" {
			var err error
			if local, err = next(s, old); err != nil {
				return err
			}
		}
		if renamed := descriptor.FromClassPath(prefix + local); renamed != old {
			a.renamed[old] = renamed
			a.rm.SetClass(old, renamed)
		}
	}
	return nil
}

// localIn extracts the scope-local part of a preferred descriptor.
func localIn(preferred, prefix string) (string, bool) {
	path := descriptor.ClassPath(preferred)
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	l := path[len(prefix):]
	if l == "" || strings.ContainsAny(l, "/$") {
		return "", false
	}
	return l, true
}

func (a *allocator) memberScopeID(comp int, suffix string) string {
	if a.opts.UniqueMemberNames {
		return "global" + suffix
	}
	return fmt.Sprintf("component %d%s", comp, suffix)
}

func (a *allocator) fieldScope(comp int) *Scope {
	return scope(a.fieldScopes, a.memberScopeID(comp, ""), false)
}

func (a *allocator) fields() error {
	for _, c := range a.g.Classes() {
		for _, f := range c.Fields {
			if !a.v.Field(f).Renameable() {
				a.fieldScope(a.g.Component(c)).Reserve(a.d.FieldName(f))
			}
		}
	}
	for id := 0; id < a.d.NumFieldRefs(); id++ {
		r := a.d.FieldRef(dex.FieldRefID(id))
		owner, ok := a.d.ClassByType(r.Class)
		if ok && a.g.ResolveField(dex.FieldRefID(id)).Kind == classgraph.External {
			a.fieldScope(a.g.Component(owner)).Reserve(r.Name)
		}
	}

	for comp, classes := range a.g.Components() {
		var fields []*dex.Field
		for _, c := range classes {
			for _, f := range c.Fields {
				if a.v.Field(f).Renameable() {
					fields = append(fields, f)
				}
			}
		}
		sort.Slice(fields, func(i, j int) bool {
			return a.d.FieldDescriptor(fields[i].Ref) < a.d.FieldDescriptor(fields[j].Ref)
		})

		s := a.fieldScope(comp)
		for _, f := range fields {
			key := a.d.FieldDescriptor(f.Ref)
			r := a.d.FieldRef(f.Ref)
			name := ""
			if a.opts.Preferred != nil {
				owner := a.d.TypeDescriptor(r.Class)
				if p, ok := a.opts.Preferred.FieldNew(owner, r.Name, a.d.TypeDescriptor(r.Type)); ok && s.Claim(p) {
					name = p
				}
			}
			if name == "" {
				var err error
				if name, err = next(s, key); err != nil {
					return err
				}
			}
			if name != r.Name {
				a.rm.SetField(key, name)
			}
		}
	}
	return nil
}

func (a *allocator) methodScope(comp int, params string) *Scope {
	id := a.memberScopeID(comp, " "+params)
	if s, ok := a.methodScopes[id]; ok {
		return s
	}
	s := scope(a.methodScopes, id, false)
	for _, n := range objectNames {
		s.Reserve(n)
	}
	return s
}

func frozenGroup(v *matcher.Verdicts, grp classgraph.MethodGroup) bool {
	for _, m := range grp.Methods {
		if v.Method(m) == lattice.Frozen {
			return true
		}
	}
	return false
}

func (a *allocator) methods() error {
	groups := a.g.OverrideGroups()
	for _, grp := range groups {
		if frozenGroup(a.v, grp) {
			a.methodScope(grp.Component, grp.Params).Reserve(grp.Name)
		}
	}
	for id := 0; id < a.d.NumMethodRefs(); id++ {
		r := a.d.MethodRef(dex.MethodRefID(id))
		owner, ok := a.d.ClassByType(r.Class)
		if ok && a.g.ResolveMethod(dex.MethodRefID(id)).Kind == classgraph.External {
			params := a.d.ProtoDescriptor(r.Proto).ParamsKey()
			a.methodScope(a.g.Component(owner), params).Reserve(r.Name)
		}
	}

	for _, grp := range groups {
		if frozenGroup(a.v, grp) {
			continue
		}
		s := a.methodScope(grp.Component, grp.Params)
		name := ""
		if a.opts.Preferred != nil {
			for _, m := range grp.Methods {
				r := a.d.MethodRef(m.Ref)
				p, ok := a.opts.Preferred.MethodNew(a.d.TypeDescriptor(r.Class), r.Name, a.d.ProtoDescriptor(r.Proto))
				if ok && s.Claim(p) {
					name = p
					break
				}
			}
		}
		if name == "" {
			var err error
			if name, err = next(s, a.d.MethodDescriptor(grp.Methods[0].Ref)); err != nil {
				return err
			}
		}
		if name == grp.Name {
			continue
		}
		for _, m := range grp.Methods {
			a.rm.SetMethod(a.d.MethodDescriptor(m.Ref), name)
		}
	}
	return nil
}
