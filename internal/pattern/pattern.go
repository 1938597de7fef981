// Package pattern compiles Proguard name wildcards into token automata.
//
//	?     one character except the package separator
//	*     zero or more characters except the package separator
//	**    zero or more characters, crossing separators
//	***   any type, primitives and arrays included
//	%     any primitive type except void
//
// Patterns are case-sensitive and always match the whole subject.
package pattern

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokAnyChar
	tokStar
	tokDoubleStar
	tokAnyType
	tokPrimitive
)

type token struct {
	kind tokenKind
	lit  byte
}

// Pattern is a compiled wildcard expression.
type Pattern struct {
	src    string
	toks   []token
	prefix string
}

const separator = '/'

// Compile compiles a wildcard expression over raw subject text.
func Compile(src string) (*Pattern, error) {
	p := &Pattern{src: src}
	for i := 0; i < len(src); {
		switch c := src[i]; c {
		case '*':
			n := 1
			for i+n < len(src) && src[i+n] == '*' {
				n++
			}
			switch n {
			case 1:
				p.toks = append(p.toks, token{kind: tokStar})
			case 2:
				p.toks = append(p.toks, token{kind: tokDoubleStar})
			case 3:
				p.toks = append(p.toks, token{kind: tokAnyType})
			default:
				return nil, fmt.Errorf("pattern %q: run of %d '*'", src, n)
			}
			i += n
		case '?':
			p.toks = append(p.toks, token{kind: tokAnyChar})
			i++
		case '%':
			p.toks = append(p.toks, token{kind: tokPrimitive})
			i++
		default:
			p.toks = append(p.toks, token{kind: tokLiteral, lit: c})
			i++
		}
	}
	for _, t := range p.toks {
		if t.kind != tokLiteral {
			break
		}
		p.prefix += string(t.lit)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) String() string { return p.src }

// LiteralPrefix returns the text every match starts with.
func (p *Pattern) LiteralPrefix() string { return p.prefix }

// IsLiteral reports whether the pattern contains no wildcard.
func (p *Pattern) IsLiteral() bool { return len(p.prefix) == len(p.toks) }

// Match reports whether s matches the whole pattern.
func (p *Pattern) Match(s string) bool {
	if p.IsLiteral() {
		return s == p.prefix
	}
	if !strings.HasPrefix(s, p.prefix) {
		return false
	}
	m := matcher{toks: p.toks, s: s, memo: make([]int8, (len(p.toks)+1)*(len(s)+1))}
	return m.match(0, 0)
}

type matcher struct {
	toks []token
	s    string
	memo []int8 // 0 unknown, 1 match, 2 no match
}

func (m *matcher) match(ti, si int) bool {
	key := ti*(len(m.s)+1) + si
	if v := m.memo[key]; v != 0 {
		return v == 1
	}
	ok := m.step(ti, si)
	if ok {
		m.memo[key] = 1
	} else {
		m.memo[key] = 2
	}
	return ok
}

func (m *matcher) step(ti, si int) bool {
	if ti == len(m.toks) {
		return si == len(m.s)
	}
	t := m.toks[ti]
	switch t.kind {
	case tokLiteral:
		return si < len(m.s) && m.s[si] == t.lit && m.match(ti+1, si+1)
	case tokAnyChar:
		return si < len(m.s) && m.s[si] != separator && m.match(ti+1, si+1)
	case tokPrimitive:
		return si < len(m.s) && strings.IndexByte("ZBSCIJFD", m.s[si]) >= 0 && m.match(ti+1, si+1)
	case tokStar:
		for j := si; ; j++ {
			if m.match(ti+1, j) {
				return true
			}
			if j == len(m.s) || m.s[j] == separator {
				return false
			}
		}
	case tokDoubleStar, tokAnyType:
		for j := si; j <= len(m.s); j++ {
			if m.match(ti+1, j) {
				return true
			}
		}
	}
	return false
}
