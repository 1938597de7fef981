package classgraph

import (
	"sort"

	"github.com/gnolang/pgrename/internal/dex"
)

// unionFind is a disjoint-set forest over dense integer IDs.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return
	}
	if rx < ry {
		u.parent[ry] = rx
	} else {
		u.parent[rx] = ry
	}
}

// buildComponents numbers hierarchy-connected components in class order.
func (a *Graph) buildComponents() {
	n := len(a.dex.Classes())
	u := newUnionFind(n)
	for _, c := range a.sorted {
		for _, s := range a.Supertypes(c) {
			u.union(int(c.ID), int(s.ID))
		}
	}
	a.comp = make([]int, n)
	ids := make(map[int]int)
	for _, c := range a.sorted {
		root := u.find(int(c.ID))
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		a.comp[c.ID] = id
	}
	a.ncomp = len(ids)
}

// Component returns the hierarchy component of c. Classes related by any
// chain of extends/implements edges share a component.
func (a *Graph) Component(c *dex.Class) int { return a.comp[c.ID] }

// NumComponents returns the number of hierarchy components.
func (a *Graph) NumComponents() int { return a.ncomp }

// Components returns the classes of each component, in class order.
func (a *Graph) Components() [][]*dex.Class {
	out := make([][]*dex.Class, a.ncomp)
	for _, c := range a.sorted {
		out[a.comp[c.ID]] = append(out[a.comp[c.ID]], c)
	}
	return out
}

// MethodGroup is a set of methods that override one another and must
// therefore share a name.
type MethodGroup struct {
	Name      string // shared original name
	Params    string // shared parameter key, e.g. "(ILjava/lang/String;)"
	Component int
	Methods   []*dex.Method
}

// OverrideGroups partitions every declared method into override groups.
// Virtual methods with the same name and parameter list are grouped when
// one class inherits from the other, directly or through an interface that
// a subclass implements. Static, private and constructor methods are
// singleton groups. Groups are ordered by component, then by where their
// first member appears in class order.
func (a *Graph) OverrideGroups() []MethodGroup {
	g := a.dex
	n := g.NumMethodRefs()
	u := newUnionFind(n)
	key := func(m *dex.Method) string {
		r := g.MethodRef(m.Ref)
		return r.Name + g.ProtoDescriptor(r.Proto).ParamsKey()
	}

	for _, c := range a.sorted {
		visible := make(map[string][]*dex.Method)
		for cur, ok := c, true; ok; cur, ok = a.Super(cur) {
			for _, m := range cur.Methods {
				if m.IsVirtual(g) {
					visible[key(m)] = append(visible[key(m)], m)
				}
			}
		}
		for _, ms := range visible {
			for _, m := range ms[1:] {
				u.union(int(ms[0].Ref), int(m.Ref))
			}
		}
		for _, anc := range a.Ancestors(c) {
			for _, m := range anc.Methods {
				if !m.IsVirtual(g) {
					continue
				}
				if ms, ok := visible[key(m)]; ok {
					u.union(int(ms[0].Ref), int(m.Ref))
				}
			}
		}
	}

	byRoot := make(map[int]*MethodGroup)
	var roots []int
	for _, c := range a.sorted {
		for _, m := range c.Methods {
			root := u.find(int(m.Ref))
			grp, ok := byRoot[root]
			if !ok {
				r := g.MethodRef(m.Ref)
				grp = &MethodGroup{
					Name:      r.Name,
					Params:    g.ProtoDescriptor(r.Proto).ParamsKey(),
					Component: a.comp[c.ID],
				}
				byRoot[root] = grp
				roots = append(roots, root)
			}
			grp.Methods = append(grp.Methods, m)
		}
	}

	out := make([]MethodGroup, 0, len(roots))
	for _, root := range roots {
		out = append(out, *byRoot[root])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Component < out[j].Component
	})
	return out
}
