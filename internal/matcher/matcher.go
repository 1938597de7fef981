// Package matcher evaluates keep rules against a class graph and produces
// a verdict for every class, field and method.
package matcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/lattice"
	"github.com/gnolang/pgrename/internal/proguard"
)

// Verdicts holds the folded verdict of every entity. Entities missing from
// a map are Unconstrained.
type Verdicts struct {
	Classes lattice.State[dex.ClassID]
	Fields  lattice.State[dex.FieldRefID]
	Methods lattice.State[dex.MethodRefID]
}

func newVerdicts() *Verdicts {
	return &Verdicts{
		Classes: make(lattice.State[dex.ClassID]),
		Fields:  make(lattice.State[dex.FieldRefID]),
		Methods: make(lattice.State[dex.MethodRefID]),
	}
}

func (v *Verdicts) Class(c *dex.Class) lattice.Verdict   { return v.Classes.Get(c.ID) }
func (v *Verdicts) Field(f *dex.Field) lattice.Verdict   { return v.Fields.Get(f.Ref) }
func (v *Verdicts) Method(m *dex.Method) lattice.Verdict { return v.Methods.Get(m.Ref) }

// Equal reports whether two verdict sets agree on every entity.
func (v *Verdicts) Equal(o *Verdicts) bool {
	return lattice.StateEqual(v.Classes, o.Classes) &&
		lattice.StateEqual(v.Fields, o.Fields) &&
		lattice.StateEqual(v.Methods, o.Methods)
}

// RuleStat counts what one rule matched.
type RuleStat struct {
	Rule    *proguard.KeepRule
	Classes int
	Members int
}

// Result is the outcome of matching.
type Result struct {
	Verdicts *Verdicts
	Stats    []RuleStat
	// Diagnostics are non-fatal problems, such as a rule naming a class
	// that is not in the graph.
	Diagnostics []error
}

// Options tunes matching.
type Options struct {
	// Workers bounds parallel class evaluation; zero or less means one.
	Workers int
}

type entityKind uint8

const (
	classEntity entityKind = iota
	fieldEntity
	methodEntity
)

type contribution struct {
	kind    entityKind
	id      int32
	verdict lattice.Verdict
}

// classResult is what evaluating every rule against one class produced.
type classResult struct {
	contribs []contribution
	classes  []int // rule indices that matched the class
	members  []int // per matching rule, members it protected
}

// Match evaluates every rule in cfg against g.
func Match(ctx context.Context, g *classgraph.Graph, cfg *proguard.Config, opts Options) (*Result, error) {
	rules := make([]*compiledRule, 0, len(cfg.Rules))
	for i := range cfg.Rules {
		cr, err := compileRule(i, &cfg.Rules[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", (&compiledRule{rule: &cfg.Rules[i]}).where(), err)
		}
		rules = append(rules, cr)
	}

	res := &Result{Verdicts: newVerdicts(), Stats: make([]RuleStat, len(rules))}
	for i, cr := range rules {
		res.Stats[i].Rule = cr.rule
		for _, lit := range cr.names.Literals() {
			if _, err := g.ClassByName(descriptor.FromClassPath(lit)); err != nil {
				res.Diagnostics = append(res.Diagnostics, &classgraph.UnresolvedReferenceError{
					Ref:  descriptor.ExternalName(descriptor.FromClassPath(lit)),
					From: cr.where(),
				})
			}
		}
	}

	candidates := candidateSets(g, rules)
	classes := g.Classes()
	results := make([]classResult, len(classes))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, c := range classes {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			results[i] = evalClass(g, c, rules, candidates)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	v := res.Verdicts
	for _, r := range results {
		for _, ct := range r.contribs {
			v.raise(ct)
		}
		for j, ri := range r.classes {
			res.Stats[ri].Classes++
			res.Stats[ri].Members += r.members[j]
		}
	}

	if cfg.DontObfuscate {
		freezeAll(g, v)
		return res, nil
	}
	freezeIntrinsic(g, v)
	propagateGroups(g, v)
	return res, nil
}

func (v *Verdicts) raise(ct contribution) {
	switch ct.kind {
	case classEntity:
		v.Classes.Raise(dex.ClassID(ct.id), ct.verdict)
	case fieldEntity:
		v.Fields.Raise(dex.FieldRefID(ct.id), ct.verdict)
	case methodEntity:
		v.Methods.Raise(dex.MethodRefID(ct.id), ct.verdict)
	}
}

// candidateSets prunes the classes each rule has to look at using the
// literal prefixes of its name patterns. A nil set means every class.
func candidateSets(g *classgraph.Graph, rules []*compiledRule) []map[dex.ClassID]bool {
	sets := make([]map[dex.ClassID]bool, len(rules))
	for i, cr := range rules {
		prefixes := cr.names.Prefixes()
		if len(prefixes) == 0 {
			sets[i] = map[dex.ClassID]bool{}
			continue
		}
		all := false
		for _, p := range prefixes {
			if p == "" {
				all = true
			}
		}
		if all {
			continue
		}
		set := make(map[dex.ClassID]bool)
		for _, p := range prefixes {
			for _, c := range g.Under(p) {
				set[c.ID] = true
			}
		}
		sets[i] = set
	}
	return sets
}

func evalClass(g *classgraph.Graph, c *dex.Class, rules []*compiledRule, candidates []map[dex.ClassID]bool) classResult {
	var out classResult
	for i, cr := range rules {
		if set := candidates[i]; set != nil && !set[c.ID] {
			continue
		}
		n, ok := cr.apply(g, c, &out.contribs)
		if ok {
			out.classes = append(out.classes, cr.index)
			out.members = append(out.members, n)
		}
	}
	return out
}

func (cr *compiledRule) matchClass(g *classgraph.Graph, c *dex.Class) bool {
	d := g.Dex()
	if !cr.rule.Class.Access.Match(c.Access) {
		return false
	}
	if !cr.names.Match(descriptor.ClassPath(g.Name(c))) {
		return false
	}
	if !anyAnnotation(d, cr.annotation, c.Annotations) {
		return false
	}
	if cr.extends == nil {
		return true
	}
	return g.Implements(c, func(desc string) bool {
		if !cr.extends.Match(desc) {
			return false
		}
		if cr.extendsAnn == nil {
			return true
		}
		t, ok := d.LookupType(desc)
		if !ok {
			return false
		}
		super, ok := d.ClassByType(t)
		return ok && anyAnnotation(d, cr.extendsAnn, super.Annotations)
	})
}

// apply evaluates the rule against c, appending contributions. It returns
// the number of members protected and whether the class matched.
func (cr *compiledRule) apply(g *classgraph.Graph, c *dex.Class, out *[]contribution) (int, bool) {
	if !cr.matchClass(g, c) {
		return 0, false
	}
	d := g.Dex()
	kind := cr.rule.Kind

	var fields []*dex.Field
	var methods []*dex.Method
	if len(cr.members) == 0 && !cr.rule.Class.HasMemberBlock {
		if kind.FreezesAllMembers() {
			fields, methods = c.Fields, c.Methods
		}
	} else {
		fieldHit := make(map[*dex.Field]bool)
		methodHit := make(map[*dex.Method]bool)
		for _, cm := range cr.members {
			matched := false
			for _, f := range c.Fields {
				if cm.matchField(d, f) {
					matched = true
					if !fieldHit[f] {
						fieldHit[f] = true
						fields = append(fields, f)
					}
				}
			}
			for _, m := range c.Methods {
				if cm.matchMethod(d, m) {
					matched = true
					if !methodHit[m] {
						methodHit[m] = true
						methods = append(methods, m)
					}
				}
			}
			if !matched && kind.RequiresAllMembers() {
				return 0, false
			}
		}
	}

	if kind.FreezesClass() {
		*out = append(*out, contribution{classEntity, int32(c.ID), cr.level})
	}
	for _, f := range fields {
		*out = append(*out, contribution{fieldEntity, int32(f.Ref), cr.level})
	}
	for _, m := range methods {
		*out = append(*out, contribution{methodEntity, int32(m.Ref), cr.level})
	}

	if cr.rule.Modifiers.IncludeDescriptorClasses {
		var descs []string
		for _, f := range fields {
			descs = append(descs, d.TypeDescriptor(d.FieldRef(f.Ref).Type))
		}
		for _, m := range methods {
			p := d.ProtoDescriptor(d.MethodRef(m.Ref).Proto)
			descs = append(descs, p.Return)
			descs = append(descs, p.Params...)
		}
		for _, desc := range descs {
			t, ok := d.LookupType(descriptor.ElementType(desc))
			if !ok {
				continue
			}
			if dc, ok := d.ClassByType(t); ok {
				*out = append(*out, contribution{classEntity, int32(dc.ID), cr.level})
			}
		}
	}
	return len(fields) + len(methods), true
}

func freezeAll(g *classgraph.Graph, v *Verdicts) {
	for _, c := range g.Classes() {
		v.Classes.Raise(c.ID, lattice.Frozen)
		for _, f := range c.Fields {
			v.Fields.Raise(f.Ref, lattice.Frozen)
		}
		for _, m := range c.Methods {
			v.Methods.Raise(m.Ref, lattice.Frozen)
		}
	}
}
