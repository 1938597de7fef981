package matcher

import (
	"fmt"
	"strings"

	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/lattice"
	"github.com/gnolang/pgrename/internal/pattern"
	"github.com/gnolang/pgrename/internal/proguard"
)

type compiledRule struct {
	index      int
	rule       *proguard.KeepRule
	names      *pattern.List
	annotation *pattern.Pattern
	extends    *pattern.Pattern
	extendsAnn *pattern.Pattern
	members    []compiledMember
	level      lattice.Verdict
}

type compiledMember struct {
	spec       *proguard.MemberSpec
	name       *pattern.Pattern
	typ        *pattern.Pattern
	params     *pattern.Params
	annotation *pattern.Pattern
}

func compileRule(i int, r *proguard.KeepRule) (*compiledRule, error) {
	cr := &compiledRule{index: i, rule: r, names: &pattern.List{}, level: lattice.Frozen}
	if r.Modifiers.AllowObfuscation {
		cr.level = lattice.AllowRename
	}
	for _, n := range r.Class.Names {
		src := n.Pattern
		if src == "*" {
			// A lone star names every class, whatever its package.
			src = "**"
		}
		p, err := pattern.ClassName(src)
		if err != nil {
			return nil, err
		}
		cr.names.Entries = append(cr.names.Entries, pattern.Entry{Negated: n.Negated, Pattern: p})
	}
	var err error
	if cr.annotation, err = typePattern(r.Class.Annotation); err != nil {
		return nil, err
	}
	if cr.extends, err = typePattern(r.Class.Extends); err != nil {
		return nil, err
	}
	if cr.extendsAnn, err = typePattern(r.Class.ExtendsAnnotation); err != nil {
		return nil, err
	}
	for j := range r.Class.Members {
		m, err := compileMember(&r.Class.Members[j])
		if err != nil {
			return nil, err
		}
		cr.members = append(cr.members, m)
	}
	return cr, nil
}

// typePattern compiles an optional class pattern to match descriptors.
func typePattern(java string) (*pattern.Pattern, error) {
	if java == "" {
		return nil, nil
	}
	return pattern.Type(java)
}

func compileMember(spec *proguard.MemberSpec) (compiledMember, error) {
	cm := compiledMember{spec: spec}
	var err error
	if cm.name, err = pattern.Member(spec.Name); err != nil {
		return cm, err
	}
	if spec.Type != "" {
		if cm.typ, err = pattern.Type(spec.Type); err != nil {
			return cm, err
		}
	}
	if spec.Kind == proguard.MemberMethod && spec.Params != nil {
		if cm.params, err = pattern.CompileParams(spec.Params); err != nil {
			return cm, err
		}
	}
	if cm.annotation, err = typePattern(spec.Annotation); err != nil {
		return cm, err
	}
	return cm, nil
}

// matchName applies a member name pattern. Wildcards never match the
// special names <init> and <clinit>; those only match themselves.
func (cm compiledMember) matchName(name string) bool {
	if strings.HasPrefix(name, "<") || strings.HasPrefix(cm.spec.Name, "<") {
		return name == cm.spec.Name
	}
	return cm.name.Match(name)
}

func anyAnnotation(g *dex.Graph, p *pattern.Pattern, anns []dex.TypeID) bool {
	if p == nil {
		return true
	}
	for _, t := range anns {
		if p.Match(g.TypeDescriptor(t)) {
			return true
		}
	}
	return false
}

func (cm compiledMember) matchField(g *dex.Graph, f *dex.Field) bool {
	if cm.spec.Kind == proguard.MemberMethod {
		return false
	}
	r := g.FieldRef(f.Ref)
	if !cm.matchName(r.Name) || !cm.spec.Access.Match(f.Access) {
		return false
	}
	if cm.typ != nil && !cm.typ.Match(g.TypeDescriptor(r.Type)) {
		return false
	}
	return anyAnnotation(g, cm.annotation, f.Annotations)
}

func (cm compiledMember) matchMethod(g *dex.Graph, m *dex.Method) bool {
	if cm.spec.Kind == proguard.MemberField {
		return false
	}
	r := g.MethodRef(m.Ref)
	if !cm.matchName(r.Name) || !cm.spec.Access.Match(m.Access) {
		return false
	}
	proto := g.ProtoDescriptor(r.Proto)
	if cm.typ != nil && !cm.typ.Match(proto.Return) {
		return false
	}
	if cm.params != nil && !cm.params.Match(proto.Params) {
		return false
	}
	return anyAnnotation(g, cm.annotation, m.Annotations)
}

func (cr *compiledRule) where() string {
	if cr.rule.File != "" {
		return fmt.Sprintf("%s:%d", cr.rule.File, cr.rule.Line)
	}
	return fmt.Sprintf("line %d", cr.rule.Line)
}
