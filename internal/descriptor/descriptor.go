// Package descriptor handles DEX type descriptors, method prototypes and
// member descriptors, and converts between their internal and Java forms.
//
// Type descriptors follow the DEX encoding:
//
//	V Z B S C I J F D   void and primitives
//	Lcom/example/Foo;   class types
//	[I, [[Lfoo/Bar;     arrays
//
// Member descriptors name a field or method together with its owner:
//
//	Lcom/example/Foo;.count:I
//	Lcom/example/Foo;.run:(ILjava/lang/String;)V
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned (wrapped) for any descriptor that cannot be parsed.
var ErrMalformed = errors.New("malformed descriptor")

const primitives = "VZBSCIJFD"

var javaPrimitives = map[byte]string{
	'V': "void",
	'Z': "boolean",
	'B': "byte",
	'S': "short",
	'C': "char",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
}

var primitiveDescriptors = map[string]byte{
	"void":    'V',
	"boolean": 'Z',
	"byte":    'B',
	"short":   'S',
	"char":    'C',
	"int":     'I',
	"long":    'J',
	"float":   'F',
	"double":  'D',
}

func malformed(s string) error {
	return fmt.Errorf("%w: %q", ErrMalformed, s)
}

// IsPrimitive reports whether d is a primitive or void descriptor.
func IsPrimitive(d string) bool {
	return len(d) == 1 && strings.IndexByte(primitives, d[0]) >= 0
}

// IsPrimitiveName reports whether name is a Java primitive keyword, void included.
func IsPrimitiveName(name string) bool {
	_, ok := primitiveDescriptors[name]
	return ok
}

// IsClass reports whether d is a class descriptor (not an array).
func IsClass(d string) bool {
	return len(d) > 2 && d[0] == 'L' && d[len(d)-1] == ';'
}

// IsArray reports whether d is an array descriptor.
func IsArray(d string) bool {
	return len(d) > 1 && d[0] == '['
}

// ArrayDims returns the number of array dimensions of d.
func ArrayDims(d string) int {
	n := 0
	for n < len(d) && d[n] == '[' {
		n++
	}
	return n
}

// ElementType strips all array dimensions from d.
func ElementType(d string) string {
	return d[ArrayDims(d):]
}

// WithElement replaces the element type of d, keeping its array dimensions.
func WithElement(d, elem string) string {
	return d[:ArrayDims(d)] + elem
}

// Validate reports whether d is exactly one well-formed type descriptor.
func Validate(d string) error {
	n, err := typeLen(d)
	if err != nil {
		return err
	}
	if n != len(d) {
		return malformed(d)
	}
	return nil
}

// typeLen returns the length of the type descriptor at the start of s.
func typeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, malformed(s)
	}
	switch c := s[i]; {
	case c == 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return 0, malformed(s)
		}
		name := s[i+1 : i+end]
		if strings.ContainsAny(name, ".;[") {
			return 0, malformed(s)
		}
		return i + end + 1, nil
	case strings.IndexByte(primitives, c) >= 0:
		if c == 'V' && i > 0 {
			return 0, malformed(s)
		}
		return i + 1, nil
	}
	return 0, malformed(s)
}

// SplitTypes splits a concatenation of type descriptors, as found between
// the parentheses of a method prototype.
func SplitTypes(s string) ([]string, error) {
	var out []string
	for len(s) > 0 {
		n, err := typeLen(s)
		if err != nil {
			return nil, err
		}
		if s[:n] == "V" {
			return nil, malformed(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out, nil
}

// ClassPath returns the slash-separated internal name of a class descriptor,
// e.g. "com/example/Foo" for "Lcom/example/Foo;".
func ClassPath(d string) string {
	if !IsClass(d) {
		return d
	}
	return d[1 : len(d)-1]
}

// FromClassPath is the inverse of ClassPath.
func FromClassPath(path string) string {
	return "L" + path + ";"
}

// InternalName converts a Java class name ("com.example.Foo") to a class
// descriptor ("Lcom/example/Foo;").
func InternalName(external string) string {
	return FromClassPath(strings.ReplaceAll(external, ".", "/"))
}

// ExternalName converts a class descriptor to a Java class name.
func ExternalName(d string) string {
	return strings.ReplaceAll(ClassPath(d), "/", ".")
}

// Package returns the package path of a class descriptor ("com/example"),
// or "" for the default package.
func Package(d string) string {
	path := ClassPath(d)
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// SimpleName returns the class name without its package ("Foo", "Outer$Inner").
func SimpleName(d string) string {
	path := ClassPath(d)
	return path[strings.LastIndexByte(path, '/')+1:]
}

// WithSimpleName returns d moved to a new simple name in the same package.
func WithSimpleName(d, simple string) string {
	if pkg := Package(d); pkg != "" {
		return FromClassPath(pkg + "/" + simple)
	}
	return FromClassPath(simple)
}

// OuterClass returns the enclosing class of a nested class descriptor
// ("Lcom/a/Outer$Inner;" -> "Lcom/a/Outer;").
func OuterClass(d string) (string, bool) {
	simple := SimpleName(d)
	i := strings.LastIndexByte(simple, '$')
	if i <= 0 || i == len(simple)-1 {
		return "", false
	}
	return WithSimpleName(d, simple[:i]), true
}

// JavaType renders a type descriptor the way Java source and Proguard
// mappings spell it: "int", "java.lang.String[]".
func JavaType(d string) string {
	dims := ArrayDims(d)
	elem := d[dims:]
	var base string
	if IsPrimitive(elem) {
		base = javaPrimitives[elem[0]]
	} else {
		base = ExternalName(elem)
	}
	return base + strings.Repeat("[]", dims)
}

// FromJavaType is the inverse of JavaType.
func FromJavaType(java string) (string, error) {
	java = strings.TrimSpace(java)
	dims := 0
	for strings.HasSuffix(java, "[]") {
		dims++
		java = strings.TrimSpace(java[:len(java)-2])
	}
	if java == "" || strings.ContainsAny(java, "[]/; ") {
		return "", malformed(java)
	}
	var elem string
	if c, ok := primitiveDescriptors[java]; ok {
		if c == 'V' && dims > 0 {
			return "", malformed(java)
		}
		elem = string(c)
	} else {
		elem = InternalName(java)
	}
	return strings.Repeat("[", dims) + elem, nil
}
