package dex

import (
	"fmt"
	"strings"
)

// AccessFlags holds DEX access_flags bits.
type AccessFlags uint32

const (
	AccPublic       AccessFlags = 0x1
	AccPrivate      AccessFlags = 0x2
	AccProtected    AccessFlags = 0x4
	AccStatic       AccessFlags = 0x8
	AccFinal        AccessFlags = 0x10
	AccSynchronized AccessFlags = 0x20
	AccVolatile     AccessFlags = 0x40 // fields
	AccBridge       AccessFlags = 0x40 // methods
	AccTransient    AccessFlags = 0x80 // fields
	AccVarargs      AccessFlags = 0x80 // methods
	AccNative       AccessFlags = 0x100
	AccInterface    AccessFlags = 0x200
	AccAbstract     AccessFlags = 0x400
	AccStrict       AccessFlags = 0x800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccConstructor  AccessFlags = 0x10000
)

// flagNames lists keyword spellings. Bits shared between fields and methods
// have two spellings; both parse, and Names renders the field one.
var flagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccVolatile, "volatile"},
	{AccBridge, "bridge"},
	{AccTransient, "transient"},
	{AccVarargs, "varargs"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccStrict, "strictfp"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
	{AccConstructor, "constructor"},
}

// FlagByName returns the flag for an access keyword.
func FlagByName(name string) (AccessFlags, bool) {
	for _, f := range flagNames {
		if f.name == name {
			return f.flag, true
		}
	}
	return 0, false
}

// ParseAccess folds a list of access keywords into flags.
func ParseAccess(names []string) (AccessFlags, error) {
	var out AccessFlags
	for _, name := range names {
		f, ok := FlagByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown access flag %q", name)
		}
		out |= f
	}
	return out, nil
}

// Names renders the set flags as keywords, lowest bit first.
func (f AccessFlags) Names() []string {
	var out []string
	var seen AccessFlags
	for _, fn := range flagNames {
		if f&fn.flag != 0 && seen&fn.flag == 0 {
			out = append(out, fn.name)
			seen |= fn.flag
		}
	}
	return out
}

// Has reports whether every bit of x is set.
func (f AccessFlags) Has(x AccessFlags) bool {
	return f&x == x
}

func (f AccessFlags) String() string {
	return strings.Join(f.Names(), " ")
}
