package proguard

import (
	"strings"

	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/pattern"
)

var classKinds = map[string]dex.AccessFlags{
	"class":     0,
	"interface": dex.AccInterface,
	"enum":      dex.AccEnum,
}

var classAccess = map[string]dex.AccessFlags{
	"public":    dex.AccPublic,
	"private":   dex.AccPrivate,
	"protected": dex.AccProtected,
	"static":    dex.AccStatic,
	"final":     dex.AccFinal,
	"abstract":  dex.AccAbstract,
	"synthetic": dex.AccSynthetic,
	"strictfp":  dex.AccStrict,
}

var memberAccess = map[string]dex.AccessFlags{
	"public":       dex.AccPublic,
	"private":      dex.AccPrivate,
	"protected":    dex.AccProtected,
	"static":       dex.AccStatic,
	"final":        dex.AccFinal,
	"synchronized": dex.AccSynchronized,
	"volatile":     dex.AccVolatile,
	"bridge":       dex.AccBridge,
	"transient":    dex.AccTransient,
	"varargs":      dex.AccVarargs,
	"native":       dex.AccNative,
	"abstract":     dex.AccAbstract,
	"strictfp":     dex.AccStrict,
	"synthetic":    dex.AccSynthetic,
}

var flagDirectives = map[string]func(*Config){
	"-dontobfuscate":              func(c *Config) { c.DontObfuscate = true },
	"-dontshrink":                 func(c *Config) { c.DontShrink = true },
	"-dontoptimize":               func(c *Config) { c.DontOptimize = true },
	"-dontpreverify":              func(c *Config) { c.DontPreverify = true },
	"-verbose":                    func(c *Config) { c.Verbose = true },
	"-ignorewarnings":             func(c *Config) { c.IgnoreWarnings = true },
	"-dontusemixedcaseclassnames": func(c *Config) { c.DontUseMixedCaseClassNames = true },
	"-useuniqueclassmembernames":  func(c *Config) { c.UseUniqueClassMemberNames = true },
	"-overloadaggressively":       func(c *Config) { c.OverloadAggressively = true },
}

// parser consumes the tokens of one file.
type parser struct {
	toks    []Token
	pos     int
	file    string
	cfg     *Config
	include func(tok Token) error
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t Token, msg string) error {
	return &SyntaxError{File: p.file, Line: t.Line, Col: t.Col, Token: t.Value, Msg: msg}
}

func (p *parser) punct(value string) bool {
	if p.peek().is(TokenPunct, value) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectPunct(value string) error {
	t := p.next()
	if !t.is(TokenPunct, value) {
		return p.errorf(t, "expected '"+value+"', found "+t.describe())
	}
	return nil
}

func (p *parser) expectWord(what string) (Token, error) {
	t := p.next()
	if t.Type != TokenWord {
		return t, p.errorf(t, "expected "+what+", found "+t.describe())
	}
	return t, nil
}

func (p *parser) parse() error {
	for p.peek().Type != TokenEOF {
		if err := p.directive(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) directive() error {
	t := p.next()
	if t.Type != TokenDirective {
		return p.errorf(t, "expected directive, found "+t.describe())
	}

	if kind, ok := keepKindOf(t.Value); ok {
		rule, err := p.keepRule(kind, t)
		if err != nil {
			return err
		}
		p.cfg.Rules = append(p.cfg.Rules, rule)
		return nil
	}
	if set, ok := flagDirectives[t.Value]; ok {
		set(p.cfg)
		return nil
	}

	switch t.Value {
	case "-printmapping", "-applymapping", "-basedirectory", "-include":
		arg, err := p.expectWord("file name")
		if err != nil {
			return err
		}
		switch t.Value {
		case "-printmapping":
			p.cfg.PrintMapping = arg.Value
		case "-applymapping":
			p.cfg.ApplyMapping = arg.Value
		case "-basedirectory":
			p.cfg.BaseDirectory = arg.Value
		case "-include":
			return p.include(arg)
		}
	case "-keepattributes":
		for _, w := range p.wordList() {
			p.cfg.KeepAttributes = append(p.cfg.KeepAttributes, w.Value)
		}
	case "-keeppackagenames":
		names, err := p.optionalNameList()
		if err != nil {
			return err
		}
		p.cfg.KeepPackageNames = append(p.cfg.KeepPackageNames, names...)
	case "-repackageclasses", "-flattenpackagehierarchy":
		pkg := ""
		if p.peek().Type == TokenWord {
			pkg = p.next().Value
		}
		if t.Value == "-repackageclasses" {
			p.cfg.RepackageClasses = &pkg
		} else {
			p.cfg.FlattenPackageHierarchy = &pkg
		}
	default:
		p.cfg.Warnings = append(p.cfg.Warnings, Warning{
			File: p.file,
			Line: t.Line,
			Msg:  "unsupported directive " + t.Value + " ignored",
		})
		for p.peek().Type != TokenDirective && p.peek().Type != TokenEOF {
			p.next()
		}
	}
	return nil
}

// wordList reads an optional comma-separated list of words.
func (p *parser) wordList() []Token {
	var out []Token
	for p.peek().Type == TokenWord {
		out = append(out, p.next())
		if !p.punct(",") {
			break
		}
	}
	return out
}

func (p *parser) keepRule(kind KeepKind, start Token) (KeepRule, error) {
	rule := KeepRule{Kind: kind, File: p.file, Line: start.Line}
	for p.punct(",") {
		mod, err := p.expectWord("keep option")
		if err != nil {
			return rule, err
		}
		switch mod.Value {
		case "allowobfuscation":
			rule.Modifiers.AllowObfuscation = true
		case "allowshrinking":
			rule.Modifiers.AllowShrinking = true
		case "allowoptimization":
			rule.Modifiers.AllowOptimization = true
		case "includedescriptorclasses":
			rule.Modifiers.IncludeDescriptorClasses = true
		default:
			return rule, p.errorf(mod, "unknown keep option")
		}
	}
	spec, err := p.classSpec()
	if err != nil {
		return rule, err
	}
	rule.Class = spec
	return rule, nil
}

func (p *parser) classSpec() (ClassSpec, error) {
	var spec ClassSpec
	for spec.Kind == "" {
		if p.punct("@") {
			t, err := p.expectWord("annotation type")
			if err != nil {
				return spec, err
			}
			if t.is(TokenWord, "interface") {
				spec.Kind = "@interface"
				spec.Access.Required |= dex.AccInterface | dex.AccAnnotation
				break
			}
			if err := checkClassPattern(p, t); err != nil {
				return spec, err
			}
			spec.Annotation = t.Value
			continue
		}

		negated := p.punct("!")
		t, err := p.expectWord("class, interface or enum")
		if err != nil {
			return spec, err
		}
		if flag, ok := classKinds[t.Value]; ok && !t.Quoted {
			if negated && flag == 0 {
				return spec, p.errorf(t, "'class' cannot be negated")
			}
			spec.Kind = t.Value
			if negated {
				spec.Kind = "!" + t.Value
				spec.Access.Forbidden |= flag
			} else {
				spec.Access.Required |= flag
			}
			break
		}
		flag, ok := classAccess[t.Value]
		if !ok || t.Quoted {
			return spec, p.errorf(t, "expected class, interface or enum")
		}
		if negated {
			spec.Access.Forbidden |= flag
		} else {
			spec.Access.Required |= flag
		}
	}

	names, err := p.nameList()
	if err != nil {
		return spec, err
	}
	spec.Names = names

	if t := p.peek(); t.is(TokenWord, "extends") || t.is(TokenWord, "implements") {
		p.next()
		if p.punct("@") {
			ann, err := p.expectWord("annotation type")
			if err != nil {
				return spec, err
			}
			if err := checkClassPattern(p, ann); err != nil {
				return spec, err
			}
			spec.ExtendsAnnotation = ann.Value
		}
		super, err := p.expectWord("class name")
		if err != nil {
			return spec, err
		}
		if err := checkClassPattern(p, super); err != nil {
			return spec, err
		}
		spec.Extends = super.Value
	}

	if !p.punct("{") {
		return spec, nil
	}
	spec.HasMemberBlock = true
	for !p.punct("}") {
		if p.peek().Type == TokenEOF || p.peek().Type == TokenDirective {
			return spec, p.errorf(p.peek(), "unterminated member block")
		}
		m, err := p.memberSpec()
		if err != nil {
			return spec, err
		}
		spec.Members = append(spec.Members, m)
	}
	return spec, nil
}

func checkClassPattern(p *parser, t Token) error {
	if _, err := pattern.ClassName(t.Value); err != nil {
		return p.errorf(t, "bad class name pattern: "+err.Error())
	}
	return nil
}

func (p *parser) nameList() ([]NamePattern, error) {
	var out []NamePattern
	for {
		negated := p.punct("!")
		t, err := p.expectWord("class name")
		if err != nil {
			return nil, err
		}
		if err := checkClassPattern(p, t); err != nil {
			return nil, err
		}
		out = append(out, NamePattern{Negated: negated, Pattern: t.Value})
		if !p.punct(",") {
			return out, nil
		}
	}
}

func (p *parser) optionalNameList() ([]NamePattern, error) {
	if t := p.peek(); t.Type != TokenWord && !t.is(TokenPunct, "!") {
		return nil, nil
	}
	return p.nameList()
}

func (p *parser) memberSpec() (MemberSpec, error) {
	m := MemberSpec{Line: p.peek().Line}

	// annotation and access prefix
	for {
		if p.punct("@") {
			ann, err := p.expectWord("annotation type")
			if err != nil {
				return m, err
			}
			if err := checkClassPattern(p, ann); err != nil {
				return m, err
			}
			m.Annotation = ann.Value
			continue
		}
		if p.punct("!") {
			t, err := p.expectWord("access modifier")
			if err != nil {
				return m, err
			}
			flag, ok := memberAccess[t.Value]
			if !ok || t.Quoted {
				return m, p.errorf(t, "expected access modifier")
			}
			m.Access.Forbidden |= flag
			continue
		}
		t := p.peek()
		if flag, ok := memberAccess[t.Value]; ok && t.Type == TokenWord && !t.Quoted {
			p.next()
			m.Access.Required |= flag
			continue
		}
		break
	}

	t, err := p.expectWord("member")
	if err != nil {
		return m, err
	}
	switch {
	case t.is(TokenWord, "*") && p.peek().is(TokenPunct, ";"):
		m.Kind, m.Name = MemberAny, "*"
		return m, p.expectPunct(";")
	case t.is(TokenWord, "<fields>"):
		m.Kind, m.Name = MemberField, "*"
		return m, p.expectPunct(";")
	case t.is(TokenWord, "<methods>"):
		m.Kind, m.Name = MemberMethod, "*"
		return m, p.expectPunct(";")
	case t.is(TokenWord, "<init>"), t.is(TokenWord, "<clinit>"):
		m.Kind, m.Name = MemberMethod, t.Value
		m.Params = []string{}
		if p.peek().is(TokenPunct, "(") {
			if m.Params, err = p.params(); err != nil {
				return m, err
			}
		} else if t.Value == "<init>" {
			m.Params = []string{pattern.Ellipsis}
		}
		return m, p.expectPunct(";")
	}

	if _, err := pattern.Type(t.Value); err != nil {
		return m, p.errorf(t, "bad type pattern: "+err.Error())
	}
	m.Type = t.Value
	name, err := p.expectWord("member name")
	if err != nil {
		return m, err
	}
	if strings.ContainsAny(name.Value, ".;:/[]") {
		return m, p.errorf(name, "bad member name")
	}
	m.Name = name.Value
	if p.peek().is(TokenPunct, "(") {
		m.Kind = MemberMethod
		if m.Params, err = p.params(); err != nil {
			return m, err
		}
	} else {
		m.Kind = MemberField
		if m.Type == "void" {
			return m, p.errorf(t, "field of type void")
		}
	}
	return m, p.expectPunct(";")
}

func (p *parser) params() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	out := []string{}
	if p.punct(")") {
		return out, nil
	}
	for {
		t, err := p.expectWord("parameter type")
		if err != nil {
			return nil, err
		}
		if t.Value != pattern.Ellipsis {
			if _, err := pattern.Type(t.Value); err != nil || t.Value == "void" {
				return nil, p.errorf(t, "bad parameter type")
			}
		}
		out = append(out, t.Value)
		if p.punct(")") {
			return out, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}
