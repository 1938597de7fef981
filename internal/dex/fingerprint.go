package dex

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// FingerprintMode selects what the structural hash covers.
type FingerprintMode uint8

const (
	// WithNames hashes every descriptor and member name.
	WithNames FingerprintMode = iota
	// ModuloNames ignores class and member names. Types are identified by
	// pool index, which renaming never changes, so a renamed graph has the
	// same fingerprint as the original. The owner of a member reference is
	// left out too: renaming may rebind it to the declaring class.
	ModuloNames
)

type hasher struct {
	h   *xxh3.Hasher
	buf []byte
}

func (h *hasher) int(v int64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf[:0], uint64(v))
	h.h.Write(h.buf)
}

func (h *hasher) str(s string) {
	h.int(int64(len(s)))
	h.h.WriteString(s)
}

// Fingerprint returns a structural hash of g: hierarchy, flags, member
// shapes and instruction streams.
func (g *Graph) Fingerprint(mode FingerprintMode) uint64 {
	h := &hasher{h: xxh3.New(), buf: make([]byte, 0, 8)}
	typ := func(id TypeID) {
		if mode == WithNames && id != NoType {
			h.str(g.types[id])
			return
		}
		h.int(int64(id))
	}
	name := func(s string) {
		if mode == WithNames {
			h.str(s)
		}
	}
	owner := func(id TypeID) {
		if mode == WithNames {
			h.str(g.types[id])
		}
	}

	h.int(int64(len(g.classes)))
	for _, c := range g.classes {
		typ(c.Type)
		h.int(int64(c.Access))
		typ(c.Super)
		h.int(int64(len(c.Interfaces)))
		for _, t := range c.Interfaces {
			typ(t)
		}
		h.int(int64(len(c.Fields)))
		for _, f := range c.Fields {
			r := g.fieldRefs[f.Ref]
			h.int(int64(f.Access))
			typ(r.Type)
			name(r.Name)
		}
		h.int(int64(len(c.Methods)))
		for _, m := range c.Methods {
			r := g.methodRefs[m.Ref]
			h.int(int64(m.Access))
			typ(r.Proto.Return)
			for _, p := range r.Proto.Params {
				typ(p)
			}
			name(r.Name)
			if m.Code == nil {
				h.int(-1)
				continue
			}
			h.int(int64(len(m.Code.Insns)))
			for _, insn := range m.Code.Insns {
				h.str(string(insn.Op))
				for _, reg := range insn.Regs {
					h.int(int64(reg))
				}
				h.int(insn.Literal)
				switch insn.Op.Ref() {
				case RefType:
					typ(TypeID(insn.Index))
				case RefField:
					r := g.fieldRefs[insn.Index]
					owner(r.Class)
					typ(r.Type)
					name(r.Name)
				case RefMethod:
					r := g.methodRefs[insn.Index]
					owner(r.Class)
					typ(r.Proto.Return)
					for _, p := range r.Proto.Params {
						typ(p)
					}
					name(r.Name)
				case RefString:
					h.str(insn.String)
				}
			}
		}
	}
	return h.h.Sum64()
}
