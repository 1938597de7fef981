// Package classgraph is the read-only view of a class container used by the
// matcher, the name allocator and the rewriter: name lookup, hierarchy
// queries, JVM member resolution and operand enumeration.
//
// A Graph snapshots names when it is built. After pool entries are
// relabeled, build a new Graph.
package classgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/trie"
)

// ErrClassNotFound is returned when a class is not defined in the graph.
var ErrClassNotFound = errors.New("class not found")

// UnresolvedReferenceError reports a reference to a class or member that
// the graph cannot resolve.
type UnresolvedReferenceError struct {
	Ref  string // descriptor or pattern that failed to resolve
	From string // where the reference was found
}

func (e *UnresolvedReferenceError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unresolved reference %s", e.Ref)
	}
	return fmt.Sprintf("%s: unresolved reference %s", e.From, e.Ref)
}

type memberKey struct {
	name string
	sig  string // field type or method proto
}

// Graph wraps a dex.Graph with hierarchy indices.
type Graph struct {
	dex     *dex.Graph
	sorted  []*dex.Class
	byName  map[string]*dex.Class
	subs    map[dex.ClassID][]*dex.Class
	fields  map[dex.ClassID]map[memberKey]*dex.Field
	methods map[dex.ClassID]map[memberKey]*dex.Method
	index   *trie.Trie
	comp    []int
	ncomp   int
}

// New builds the view over g.
func New(g *dex.Graph) *Graph {
	a := &Graph{
		dex:     g,
		byName:  make(map[string]*dex.Class),
		subs:    make(map[dex.ClassID][]*dex.Class),
		fields:  make(map[dex.ClassID]map[memberKey]*dex.Field),
		methods: make(map[dex.ClassID]map[memberKey]*dex.Method),
		index:   trie.New(),
	}
	a.sorted = append(a.sorted, g.Classes()...)
	sort.Slice(a.sorted, func(i, j int) bool {
		return descriptor.ClassPath(g.Name(a.sorted[i])) < descriptor.ClassPath(g.Name(a.sorted[j]))
	})

	for _, c := range a.sorted {
		name := g.Name(c)
		a.byName[name] = c
		a.index.Insert(descriptor.ClassPath(name), int(c.ID))

		fm := make(map[memberKey]*dex.Field, len(c.Fields))
		for _, f := range c.Fields {
			r := g.FieldRef(f.Ref)
			fm[memberKey{r.Name, g.TypeDescriptor(r.Type)}] = f
		}
		a.fields[c.ID] = fm

		mm := make(map[memberKey]*dex.Method, len(c.Methods))
		for _, m := range c.Methods {
			r := g.MethodRef(m.Ref)
			mm[memberKey{r.Name, g.ProtoDescriptor(r.Proto).String()}] = m
		}
		a.methods[c.ID] = mm
	}
	for _, c := range a.sorted {
		for _, s := range a.Supertypes(c) {
			a.subs[s.ID] = append(a.subs[s.ID], c)
		}
	}
	a.buildComponents()
	return a
}

// Dex returns the underlying container.
func (a *Graph) Dex() *dex.Graph { return a.dex }

// Classes returns all classes sorted by internal name. Outer classes sort
// before their nested classes.
func (a *Graph) Classes() []*dex.Class { return a.sorted }

// Name returns the descriptor of c.
func (a *Graph) Name(c *dex.Class) string { return a.dex.Name(c) }

// Fields returns the fields declared by c.
func (a *Graph) Fields(c *dex.Class) []*dex.Field { return c.Fields }

// Methods returns the methods declared by c.
func (a *Graph) Methods(c *dex.Class) []*dex.Method { return c.Methods }

// ClassByName looks a class up by descriptor ("Lcom/a/B;") or Java name
// ("com.a.B").
func (a *Graph) ClassByName(name string) (*dex.Class, error) {
	desc := name
	if !descriptor.IsClass(name) {
		desc = descriptor.InternalName(name)
	}
	if c, ok := a.byName[desc]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// ClassByType returns the class defined for a type pool entry.
func (a *Graph) ClassByType(t dex.TypeID) (*dex.Class, bool) {
	return a.dex.ClassByType(t)
}

// Under returns the classes whose internal name starts with prefix
// ("com/facebook/" or "com/facebook/Al"), in name order.
func (a *Graph) Under(prefix string) []*dex.Class {
	var segs []string
	if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
		segs = trie.Split(prefix[:i])
	}
	var out []*dex.Class
	for _, id := range a.index.Under(segs) {
		c := a.dex.Class(dex.ClassID(id))
		if strings.HasPrefix(descriptor.ClassPath(a.Name(c)), prefix) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return descriptor.ClassPath(a.Name(out[i])) < descriptor.ClassPath(a.Name(out[j]))
	})
	return out
}

// Super returns the in-graph superclass of c.
func (a *Graph) Super(c *dex.Class) (*dex.Class, bool) {
	return a.dex.ClassByType(c.Super)
}

// Supertypes returns the direct in-graph supertypes of c: superclass first,
// then interfaces in declaration order.
func (a *Graph) Supertypes(c *dex.Class) []*dex.Class {
	var out []*dex.Class
	if s, ok := a.dex.ClassByType(c.Super); ok {
		out = append(out, s)
	}
	for _, t := range c.Interfaces {
		if s, ok := a.dex.ClassByType(t); ok {
			out = append(out, s)
		}
	}
	return out
}

// Subtypes returns the in-graph classes that directly extend or implement c.
func (a *Graph) Subtypes(c *dex.Class) []*dex.Class {
	return a.subs[c.ID]
}

// Ancestors returns every in-graph transitive supertype of c, breadth first.
func (a *Graph) Ancestors(c *dex.Class) []*dex.Class {
	var out []*dex.Class
	seen := map[dex.ClassID]bool{c.ID: true}
	queue := []*dex.Class{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range a.Supertypes(cur) {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
				queue = append(queue, s)
			}
		}
	}
	return out
}

// SupertypeNames returns the descriptors of every transitive supertype of
// c, in-graph or external. The walk stops at external types, whose own
// supertypes are unknown.
func (a *Graph) SupertypeNames(c *dex.Class) []string {
	var out []string
	seen := make(map[dex.TypeID]bool)
	add := func(t dex.TypeID) {
		if t != dex.NoType && !seen[t] {
			seen[t] = true
			out = append(out, a.dex.TypeDescriptor(t))
		}
	}
	for _, cur := range append([]*dex.Class{c}, a.Ancestors(c)...) {
		add(cur.Super)
		for _, t := range cur.Interfaces {
			add(t)
		}
	}
	return out
}

// ExternalSupertypes returns the transitive supertypes of c that are not
// defined in the graph.
func (a *Graph) ExternalSupertypes(c *dex.Class) []string {
	var out []string
	for _, name := range a.SupertypeNames(c) {
		if _, ok := a.byName[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Implements reports whether any transitive supertype of c matches.
func (a *Graph) Implements(c *dex.Class, match func(desc string) bool) bool {
	for _, name := range a.SupertypeNames(c) {
		if match(name) {
			return true
		}
	}
	return false
}

// IsExternal reports whether a type descriptor names something outside
// the graph: primitives, arrays of them, and undefined classes.
func (a *Graph) IsExternal(desc string) bool {
	_, ok := a.byName[descriptor.ElementType(desc)]
	return !ok
}
