// Package naming assigns obfuscated names to renameable classes, fields and
// methods.
package naming

import (
	"fmt"
	"strings"
)

// MaxCandidates bounds the search for a free name in one scope.
const MaxCandidates = 1 << 20

// javaKeywords can never be used as identifiers.
var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true,
	"class": true, "const": true, "continue": true, "default": true,
	"do": true, "double": true, "else": true, "enum": true,
	"extends": true, "false": true, "final": true, "finally": true,
	"float": true, "for": true, "goto": true, "if": true,
	"implements": true, "import": true, "instanceof": true, "int": true,
	"interface": true, "long": true, "native": true, "new": true,
	"null": true, "package": true, "private": true, "protected": true,
	"public": true, "return": true, "short": true, "static": true,
	"strictfp": true, "super": true, "switch": true, "synchronized": true,
	"this": true, "throw": true, "throws": true, "transient": true,
	"true": true, "try": true, "void": true, "volatile": true,
	"while": true, "var": true, "yield": true, "record": true,
}

// IsKeyword reports whether name is a Java reserved word.
func IsKeyword(name string) bool { return javaKeywords[name] }

// Name returns the i-th name of the bijective base-26 sequence
// a, b, ..., z, aa, ab, ...
func Name(i int) string {
	var buf [16]byte
	pos := len(buf)
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		pos--
		buf[pos] = byte('a' + (n-1)%26)
	}
	return string(buf[pos:])
}

// Scope is one naming namespace. Names are handed out in generator order,
// skipping reserved names and keywords.
type Scope struct {
	id   string
	used map[string]bool
	fold bool
	next int
}

// NewScope returns an empty scope. With foldCase, names that differ only
// in case collide.
func NewScope(id string, foldCase bool) *Scope {
	return &Scope{id: id, used: make(map[string]bool), fold: foldCase}
}

func (s *Scope) key(name string) string {
	if s.fold {
		return strings.ToLower(name)
	}
	return name
}

// Reserve marks name as taken.
func (s *Scope) Reserve(name string) { s.used[s.key(name)] = true }

// Taken reports whether name is reserved in the scope.
func (s *Scope) Taken(name string) bool { return s.used[s.key(name)] }

// Claim reserves name if it is free and a legal identifier.
func (s *Scope) Claim(name string) bool {
	if name == "" || s.Taken(name) || IsKeyword(name) {
		return false
	}
	s.Reserve(name)
	return true
}

// Next returns and reserves the first free generated name.
func (s *Scope) Next() (string, error) {
	for tries := 0; tries < MaxCandidates; tries++ {
		name := Name(s.next)
		s.next++
		if s.Claim(name) {
			return name, nil
		}
	}
	return "", &CollisionError{Scope: s.id, Tried: MaxCandidates}
}

// CollisionError reports that no free name was found within the bound.
type CollisionError struct {
	Scope  string
	Entity string
	Tried  int
}

func (e *CollisionError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("name collision in scope %s: no free name after %d candidates", e.Scope, e.Tried)
	}
	return fmt.Sprintf("name collision in scope %s: no free name for %s after %d candidates", e.Scope, e.Entity, e.Tried)
}
