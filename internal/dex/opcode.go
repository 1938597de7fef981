package dex

import "strings"

// Opcode is a Dalvik mnemonic such as "iget-object" or "invoke-virtual/range".
type Opcode string

// RefKind says which pool an instruction operand indexes.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefType
	RefField
	RefMethod
	RefString
)

func (k RefKind) String() string {
	switch k {
	case RefType:
		return "type"
	case RefField:
		return "field"
	case RefMethod:
		return "method"
	case RefString:
		return "string"
	default:
		return "none"
	}
}

// opcodes holds every mnemonic a container may use. Call-site and method
// handle constants are not modeled.
var opcodes = func() map[Opcode]bool {
	known := make(map[Opcode]bool)
	add := func(names ...string) {
		for _, n := range names {
			known[Opcode(n)] = true
		}
	}
	add("nop",
		"move", "move/from16", "move/16", "move-wide", "move-wide/from16", "move-wide/16",
		"move-object", "move-object/from16", "move-object/16",
		"move-result", "move-result-wide", "move-result-object", "move-exception",
		"return-void", "return", "return-wide", "return-object",
		"const/4", "const/16", "const", "const/high16",
		"const-wide/16", "const-wide/32", "const-wide", "const-wide/high16",
		"const-string", "const-string/jumbo", "const-class",
		"monitor-enter", "monitor-exit", "check-cast", "instance-of", "array-length",
		"new-instance", "new-array", "filled-new-array", "filled-new-array/range",
		"fill-array-data", "throw", "goto", "goto/16", "goto/32",
		"packed-switch", "sparse-switch",
		"cmpl-float", "cmpg-float", "cmpl-double", "cmpg-double", "cmp-long",
		"if-eq", "if-ne", "if-lt", "if-ge", "if-gt", "if-le",
		"if-eqz", "if-nez", "if-ltz", "if-gez", "if-gtz", "if-lez",
		"neg-int", "not-int", "neg-long", "not-long", "neg-float", "neg-double",
		"int-to-long", "int-to-float", "int-to-double", "long-to-int", "long-to-float",
		"long-to-double", "float-to-int", "float-to-long", "float-to-double",
		"double-to-int", "double-to-long", "double-to-float",
		"int-to-byte", "int-to-char", "int-to-short",
		"rsub-int", "rsub-int/lit8")
	for _, base := range []string{"aget", "aput", "iget", "iput", "sget", "sput"} {
		add(base)
		for _, suffix := range []string{"-wide", "-object", "-boolean", "-byte", "-char", "-short"} {
			add(base + suffix)
		}
	}
	for _, kind := range []string{"virtual", "super", "direct", "static", "interface", "polymorphic"} {
		add("invoke-"+kind, "invoke-"+kind+"/range")
	}
	arith := map[string][]string{
		"int":    {"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr", "ushr"},
		"long":   {"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr", "ushr"},
		"float":  {"add", "sub", "mul", "div", "rem"},
		"double": {"add", "sub", "mul", "div", "rem"},
	}
	for typ, ops := range arith {
		for _, op := range ops {
			add(op+"-"+typ, op+"-"+typ+"/2addr")
		}
	}
	for _, op := range []string{"add", "mul", "div", "rem", "and", "or", "xor"} {
		add(op+"-int/lit16", op+"-int/lit8")
	}
	add("shl-int/lit8", "shr-int/lit8", "ushr-int/lit8")
	return known
}()

// Known reports whether op is a mnemonic the container format supports.
func (op Opcode) Known() bool { return opcodes[op] }

var typeOps = map[Opcode]bool{
	"const-class":            true,
	"check-cast":             true,
	"instance-of":            true,
	"new-instance":           true,
	"new-array":              true,
	"filled-new-array":       true,
	"filled-new-array/range": true,
}

// Ref returns the kind of pool entry the opcode's operand refers to.
func (op Opcode) Ref() RefKind {
	s := string(op)
	switch {
	case typeOps[op]:
		return RefType
	case strings.HasPrefix(s, "iget"), strings.HasPrefix(s, "iput"),
		strings.HasPrefix(s, "sget"), strings.HasPrefix(s, "sput"):
		return RefField
	case strings.HasPrefix(s, "invoke-"):
		return RefMethod
	case strings.HasPrefix(s, "const-string"):
		return RefString
	}
	return RefNone
}

// Instruction is one decoded instruction. Index addresses the pool named by
// Op.Ref(); it is meaningless for other opcodes.
type Instruction struct {
	Op      Opcode
	Regs    []uint16
	Index   int32
	String  string
	Literal int64
}

// Code is a method body.
type Code struct {
	Registers uint16
	Insns     []Instruction
}
