package pattern

import (
	"fmt"
	"strings"

	"github.com/gnolang/pgrename/internal/descriptor"
)

// ClassName compiles a Java class name pattern ("com.example.**") to match
// slash-separated internal names ("com/example/foo/Bar").
func ClassName(java string) (*Pattern, error) {
	if java == "" {
		return nil, fmt.Errorf("empty class name pattern")
	}
	return Compile(strings.ReplaceAll(java, ".", "/"))
}

// Member compiles a field or method name pattern.
func Member(name string) (*Pattern, error) {
	if name == "" {
		return nil, fmt.Errorf("empty member name pattern")
	}
	return Compile(name)
}

// Type compiles a Java type pattern ("int", "java.lang.String[]", "**",
// "%", "***") to match type descriptors.
func Type(java string) (*Pattern, error) {
	java = strings.TrimSpace(java)
	if java == "***" {
		return Compile("***")
	}
	dims := 0
	for strings.HasSuffix(java, "[]") {
		dims++
		java = strings.TrimSpace(java[:len(java)-2])
	}
	if java == "" {
		return nil, fmt.Errorf("empty type pattern")
	}
	if strings.ContainsAny(java, "[]") {
		return nil, fmt.Errorf("type pattern %q: unbalanced brackets", java+strings.Repeat("[]", dims))
	}
	var elem string
	switch {
	case java == "%":
		elem = "%"
	case descriptor.IsPrimitiveName(java):
		d, err := descriptor.FromJavaType(java)
		if err != nil {
			return nil, err
		}
		elem = d
	case strings.Contains(java, "***"):
		return nil, fmt.Errorf("type pattern %q: '***' must stand alone", java)
	default:
		elem = "L" + strings.ReplaceAll(java, ".", "/") + ";"
	}
	if elem == "V" && dims > 0 {
		return nil, fmt.Errorf("type pattern %q: array of void", java)
	}
	p, err := Compile(strings.Repeat("[", dims) + elem)
	if err != nil {
		return nil, err
	}
	p.src = java + strings.Repeat("[]", dims)
	return p, nil
}

// Ellipsis matches any number of parameters of any type.
const Ellipsis = "..."

// Params matches a method parameter list.
type Params struct {
	items []*Pattern // nil item is an ellipsis
}

// CompileParams compiles Java parameter patterns; Ellipsis entries match
// any run of parameters.
func CompileParams(list []string) (*Params, error) {
	p := &Params{}
	for _, item := range list {
		if item == Ellipsis {
			p.items = append(p.items, nil)
			continue
		}
		t, err := Type(item)
		if err != nil {
			return nil, err
		}
		p.items = append(p.items, t)
	}
	return p, nil
}

// Match reports whether the parameter descriptors match.
func (p *Params) Match(params []string) bool {
	return matchParams(p.items, params)
}

func matchParams(items []*Pattern, params []string) bool {
	if len(items) == 0 {
		return len(params) == 0
	}
	if items[0] == nil {
		for k := 0; k <= len(params); k++ {
			if matchParams(items[1:], params[k:]) {
				return true
			}
		}
		return false
	}
	return len(params) > 0 && items[0].Match(params[0]) && matchParams(items[1:], params[1:])
}

func (p *Params) String() string {
	parts := make([]string, len(p.items))
	for i, item := range p.items {
		if item == nil {
			parts[i] = Ellipsis
		} else {
			parts[i] = item.String()
		}
	}
	return strings.Join(parts, ",")
}

// Entry is one element of a comma-separated name list.
type Entry struct {
	Negated bool
	Pattern *Pattern
}

// List is an ordered, possibly negated pattern list such as
// "!com.example.Internal,com.example.**". The first entry that matches
// decides; a negated entry rejects.
type List struct {
	Entries []Entry
}

// Match reports whether s is accepted by the list.
func (l *List) Match(s string) bool {
	for _, e := range l.Entries {
		if e.Pattern.Match(s) {
			return !e.Negated
		}
	}
	return false
}

// Prefixes returns the literal prefixes of the non-negated entries. A
// subject can only match if it starts with one of them.
func (l *List) Prefixes() []string {
	var out []string
	for _, e := range l.Entries {
		if !e.Negated {
			out = append(out, e.Pattern.LiteralPrefix())
		}
	}
	return out
}

// Literals returns the non-negated entries without wildcards.
func (l *List) Literals() []string {
	var out []string
	for _, e := range l.Entries {
		if !e.Negated && e.Pattern.IsLiteral() {
			out = append(out, e.Pattern.String())
		}
	}
	return out
}
