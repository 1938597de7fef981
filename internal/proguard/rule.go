package proguard

import (
	"strings"

	"github.com/gnolang/pgrename/internal/dex"
)

// KeepKind is the keep-family directive of a rule.
type KeepKind int

const (
	Keep KeepKind = iota
	KeepClassMembers
	KeepClassesWithMembers
	KeepNames
	KeepClassMemberNames
	KeepClassesWithMemberNames
)

var keepDirectives = [...]string{
	Keep:                       "-keep",
	KeepClassMembers:           "-keepclassmembers",
	KeepClassesWithMembers:     "-keepclasseswithmembers",
	KeepNames:                  "-keepnames",
	KeepClassMemberNames:       "-keepclassmembernames",
	KeepClassesWithMemberNames: "-keepclasseswithmembernames",
}

func keepKindOf(directive string) (KeepKind, bool) {
	for k, name := range keepDirectives {
		if name == directive {
			return KeepKind(k), true
		}
	}
	return 0, false
}

func (k KeepKind) String() string {
	if k < 0 || int(k) >= len(keepDirectives) {
		return "-keep?"
	}
	return keepDirectives[k]
}

// FreezesClass reports whether a match protects the class name.
func (k KeepKind) FreezesClass() bool {
	switch k {
	case Keep, KeepClassesWithMembers, KeepNames, KeepClassesWithMemberNames:
		return true
	}
	return false
}

// RequiresAllMembers reports whether every member spec must match before
// the rule applies to a class.
func (k KeepKind) RequiresAllMembers() bool {
	return k == KeepClassesWithMembers || k == KeepClassesWithMemberNames
}

// FreezesAllMembers reports whether a rule without a member block protects
// every declared member.
func (k KeepKind) FreezesAllMembers() bool {
	switch k {
	case Keep, KeepClassMembers, KeepClassesWithMembers:
		return true
	}
	return false
}

// Modifiers are the comma-joined options of a keep directive.
type Modifiers struct {
	AllowObfuscation         bool
	AllowShrinking           bool
	AllowOptimization        bool
	IncludeDescriptorClasses bool
}

// AccessPredicate constrains access flags: Required bits must be set,
// Forbidden bits must be clear.
type AccessPredicate struct {
	Required  dex.AccessFlags
	Forbidden dex.AccessFlags
}

// Match reports whether flags satisfy the predicate.
func (a AccessPredicate) Match(flags dex.AccessFlags) bool {
	return flags&a.Required == a.Required && flags&a.Forbidden == 0
}

func (a AccessPredicate) String() string {
	parts := a.Required.Names()
	for _, n := range a.Forbidden.Names() {
		parts = append(parts, "!"+n)
	}
	return strings.Join(parts, " ")
}

// NamePattern is one entry of a comma-separated class name list.
type NamePattern struct {
	Negated bool
	Pattern string // Java spelling, e.g. "com.example.**"
}

func (n NamePattern) String() string {
	if n.Negated {
		return "!" + n.Pattern
	}
	return n.Pattern
}

// ClassSpec selects classes.
type ClassSpec struct {
	Annotation        string
	Access            AccessPredicate
	Kind              string // class, interface, enum or @interface
	Names             []NamePattern
	ExtendsAnnotation string
	Extends           string // "" when absent
	Members           []MemberSpec
	HasMemberBlock    bool
}

// MemberKind says whether a member spec selects fields, methods or both.
type MemberKind int

const (
	MemberAny MemberKind = iota
	MemberField
	MemberMethod
)

// MemberSpec selects fields or methods inside a class.
type MemberSpec struct {
	Kind       MemberKind
	Annotation string
	Access     AccessPredicate
	Type       string   // field type or return type pattern; "" matches any
	Name       string   // name pattern
	Params     []string // method parameter patterns, "..." included
	Line       int
}

func (m MemberSpec) String() string {
	var sb strings.Builder
	if m.Annotation != "" {
		sb.WriteString("@" + m.Annotation + " ")
	}
	if acc := m.Access.String(); acc != "" {
		sb.WriteString(acc + " ")
	}
	switch {
	case m.Kind == MemberAny:
		sb.WriteString("*")
	case m.Kind == MemberField && m.Type == "" && m.Name == "*":
		sb.WriteString("<fields>")
	case m.Kind == MemberMethod && m.Type == "" && m.Name == "*":
		sb.WriteString("<methods>")
	default:
		if m.Type != "" {
			sb.WriteString(m.Type + " ")
		}
		sb.WriteString(m.Name)
		if m.Kind == MemberMethod {
			sb.WriteString("(" + strings.Join(m.Params, ",") + ")")
		}
	}
	sb.WriteString(";")
	return sb.String()
}

// KeepRule is one keep-family directive.
type KeepRule struct {
	Kind      KeepKind
	Modifiers Modifiers
	Class     ClassSpec
	File      string
	Line      int
}

// String renders the rule back to directive text on one line.
func (r KeepRule) String() string {
	var sb strings.Builder
	sb.WriteString(r.Kind.String())
	mods := []struct {
		on   bool
		name string
	}{
		{r.Modifiers.AllowObfuscation, "allowobfuscation"},
		{r.Modifiers.AllowShrinking, "allowshrinking"},
		{r.Modifiers.AllowOptimization, "allowoptimization"},
		{r.Modifiers.IncludeDescriptorClasses, "includedescriptorclasses"},
	}
	for _, m := range mods {
		if m.on {
			sb.WriteString("," + m.name)
		}
	}
	sb.WriteString(" ")
	c := r.Class
	if c.Annotation != "" {
		sb.WriteString("@" + c.Annotation + " ")
	}
	if acc := c.Access.String(); acc != "" {
		sb.WriteString(acc + " ")
	}
	sb.WriteString(c.Kind + " ")
	names := make([]string, len(c.Names))
	for i, n := range c.Names {
		names[i] = n.String()
	}
	sb.WriteString(strings.Join(names, ","))
	if c.Extends != "" {
		sb.WriteString(" extends ")
		if c.ExtendsAnnotation != "" {
			sb.WriteString("@" + c.ExtendsAnnotation + " ")
		}
		sb.WriteString(c.Extends)
	}
	if c.HasMemberBlock {
		sb.WriteString(" {")
		for _, m := range c.Members {
			sb.WriteString(" " + m.String())
		}
		sb.WriteString(" }")
	}
	return sb.String()
}

// Config is the parsed rule set with its global options.
type Config struct {
	Rules []KeepRule

	DontObfuscate              bool
	DontShrink                 bool
	DontOptimize               bool
	DontPreverify              bool
	Verbose                    bool
	IgnoreWarnings             bool
	DontUseMixedCaseClassNames bool
	UseUniqueClassMemberNames  bool
	OverloadAggressively       bool

	PrintMapping            string
	ApplyMapping            string
	BaseDirectory           string
	KeepAttributes          []string
	KeepPackageNames        []NamePattern
	RepackageClasses        *string
	FlattenPackageHierarchy *string

	Warnings []Warning
}

// Merge appends the rules and options of o, as an -include does.
func (c *Config) Merge(o *Config) {
	c.Rules = append(c.Rules, o.Rules...)
	c.DontObfuscate = c.DontObfuscate || o.DontObfuscate
	c.DontShrink = c.DontShrink || o.DontShrink
	c.DontOptimize = c.DontOptimize || o.DontOptimize
	c.DontPreverify = c.DontPreverify || o.DontPreverify
	c.Verbose = c.Verbose || o.Verbose
	c.IgnoreWarnings = c.IgnoreWarnings || o.IgnoreWarnings
	c.DontUseMixedCaseClassNames = c.DontUseMixedCaseClassNames || o.DontUseMixedCaseClassNames
	c.UseUniqueClassMemberNames = c.UseUniqueClassMemberNames || o.UseUniqueClassMemberNames
	c.OverloadAggressively = c.OverloadAggressively || o.OverloadAggressively
	if o.PrintMapping != "" {
		c.PrintMapping = o.PrintMapping
	}
	if o.ApplyMapping != "" {
		c.ApplyMapping = o.ApplyMapping
	}
	if o.BaseDirectory != "" {
		c.BaseDirectory = o.BaseDirectory
	}
	c.KeepAttributes = append(c.KeepAttributes, o.KeepAttributes...)
	c.KeepPackageNames = append(c.KeepPackageNames, o.KeepPackageNames...)
	if o.RepackageClasses != nil {
		c.RepackageClasses = o.RepackageClasses
	}
	if o.FlattenPackageHierarchy != nil {
		c.FlattenPackageHierarchy = o.FlattenPackageHierarchy
	}
	c.Warnings = append(c.Warnings, o.Warnings...)
}
