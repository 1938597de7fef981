package dex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/mod/semver"

	"github.com/gnolang/pgrename/internal/descriptor"
)

// FormatVersion is the container format this package writes. Readers accept
// any version with the same major.
const FormatVersion = "v1.0.0"

// ErrUnsupportedFormat is returned for containers with a missing, invalid or
// incompatible format version.
var ErrUnsupportedFormat = errors.New("unsupported container format")

type fileImage struct {
	Format  string       `json:"format"`
	Classes []classImage `json:"classes"`
}

type classImage struct {
	Name        string        `json:"name"`
	Access      []string      `json:"access,omitempty"`
	Super       string        `json:"super,omitempty"`
	Interfaces  []string      `json:"interfaces,omitempty"`
	Annotations []string      `json:"annotations,omitempty"`
	Source      string        `json:"source,omitempty"`
	Fields      []fieldImage  `json:"fields,omitempty"`
	Methods     []methodImage `json:"methods,omitempty"`
}

type fieldImage struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Access      []string `json:"access,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
}

type methodImage struct {
	Name        string      `json:"name"`
	Proto       string      `json:"proto"`
	Access      []string    `json:"access,omitempty"`
	Annotations []string    `json:"annotations,omitempty"`
	Registers   uint16      `json:"registers,omitempty"`
	Code        []insnImage `json:"code,omitempty"`
}

type insnImage struct {
	Op      string   `json:"op"`
	Regs    []uint16 `json:"regs,omitempty"`
	Type    string   `json:"type,omitempty"`
	Field   string   `json:"field,omitempty"`
	Method  string   `json:"method,omitempty"`
	String  string   `json:"string,omitempty"`
	Literal int64    `json:"literal,omitempty"`
}

// IsCompressed reports whether path names an LZ4-framed container.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".lz4")
}

// Load reads a container file.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Read(f, IsCompressed(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Read decodes a container, optionally LZ4-framed.
func Read(r io.Reader, compressed bool) (*Graph, error) {
	if compressed {
		r = lz4.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses a JSON container.
func Decode(data []byte) (*Graph, error) {
	var img fileImage
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("decode container: %w", err)
	}
	if err := checkFormat(img.Format); err != nil {
		return nil, err
	}

	g := New()
	// Declarations first so that operands referring to later classes
	// still intern the same pool entries.
	type pending struct {
		m    *Method
		img  methodImage
		name string
	}
	var bodies []pending
	for _, ci := range img.Classes {
		access, err := ParseAccess(ci.Access)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", ci.Name, err)
		}
		c, err := g.AddClass(ci.Name, access, ci.Super, ci.Interfaces...)
		if err != nil {
			return nil, err
		}
		c.SourceFile = ci.Source
		if c.Annotations, err = internTypes(g, ci.Annotations); err != nil {
			return nil, fmt.Errorf("class %s: %w", ci.Name, err)
		}
		for _, fi := range ci.Fields {
			access, err := ParseAccess(fi.Access)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", ci.Name, fi.Name, err)
			}
			f, err := g.AddField(c, fi.Name, fi.Type, access)
			if err != nil {
				return nil, err
			}
			if f.Annotations, err = internTypes(g, fi.Annotations); err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", ci.Name, fi.Name, err)
			}
		}
		for _, mi := range ci.Methods {
			access, err := ParseAccess(mi.Access)
			if err != nil {
				return nil, fmt.Errorf("method %s.%s: %w", ci.Name, mi.Name, err)
			}
			m, err := g.AddMethod(c, mi.Name, mi.Proto, access)
			if err != nil {
				return nil, err
			}
			if m.Annotations, err = internTypes(g, mi.Annotations); err != nil {
				return nil, fmt.Errorf("method %s.%s: %w", ci.Name, mi.Name, err)
			}
			if len(mi.Code) > 0 || mi.Registers > 0 {
				bodies = append(bodies, pending{m: m, img: mi, name: ci.Name + "." + mi.Name})
			}
		}
	}

	if err := g.CheckHierarchy(); err != nil {
		return nil, err
	}

	for _, b := range bodies {
		code := &Code{Registers: b.img.Registers}
		for i, ii := range b.img.Code {
			insn, err := decodeInsn(g, ii)
			if err != nil {
				return nil, fmt.Errorf("%s insn %d: %w", b.name, i, err)
			}
			code.Insns = append(code.Insns, insn)
		}
		b.m.Code = code
	}
	return g, nil
}

func checkFormat(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: version %q", ErrUnsupportedFormat, v)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return fmt.Errorf("%w: version %s, want %s.x", ErrUnsupportedFormat, v, semver.Major(FormatVersion))
	}
	return nil
}

func internTypes(g *Graph, descs []string) ([]TypeID, error) {
	var out []TypeID
	for _, d := range descs {
		if err := descriptor.Validate(d); err != nil {
			return nil, err
		}
		out = append(out, g.Intern(d))
	}
	return out, nil
}

func decodeInsn(g *Graph, ii insnImage) (Instruction, error) {
	op := Opcode(ii.Op)
	insn := Instruction{Op: op, Regs: ii.Regs, Literal: ii.Literal}
	if !op.Known() {
		return insn, fmt.Errorf("opcode %w: %q", descriptor.ErrMalformed, ii.Op)
	}
	switch op.Ref() {
	case RefType:
		if err := descriptor.Validate(ii.Type); err != nil {
			return insn, fmt.Errorf("%s: %w", op, err)
		}
		insn.Index = int32(g.Intern(ii.Type))
	case RefField:
		owner, name, typ, err := descriptor.ParseField(ii.Field)
		if err != nil {
			return insn, fmt.Errorf("%s: %w", op, err)
		}
		insn.Index = int32(g.InternField(owner, name, typ))
	case RefMethod:
		owner, name, proto, err := descriptor.ParseMethod(ii.Method)
		if err != nil {
			return insn, fmt.Errorf("%s: %w", op, err)
		}
		insn.Index = int32(g.InternMethod(owner, name, proto))
	case RefString:
		insn.String = ii.String
	}
	return insn, nil
}

// Save writes g to path, LZ4-framed when the path ends in ".lz4".
func Save(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, g, IsCompressed(path)); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes g to w, optionally LZ4-framed.
func Write(w io.Writer, g *Graph, compressed bool) error {
	data, err := g.Encode()
	if err != nil {
		return err
	}
	if !compressed {
		_, err = w.Write(data)
		return err
	}
	zw := lz4.NewWriter(w)
	if _, err := io.Copy(zw, bytes.NewReader(data)); err != nil {
		return err
	}
	return zw.Close()
}

// Encode renders g as an indented JSON container using current names.
func (g *Graph) Encode() ([]byte, error) {
	img := fileImage{Format: FormatVersion}
	for _, c := range g.classes {
		ci := classImage{
			Name:        g.Name(c),
			Access:      c.Access.Names(),
			Super:       g.TypeDescriptor(c.Super),
			Interfaces:  g.typeNames(c.Interfaces),
			Annotations: g.typeNames(c.Annotations),
			Source:      c.SourceFile,
		}
		for _, f := range c.Fields {
			r := g.fieldRefs[f.Ref]
			ci.Fields = append(ci.Fields, fieldImage{
				Name:        r.Name,
				Type:        g.types[r.Type],
				Access:      f.Access.Names(),
				Annotations: g.typeNames(f.Annotations),
			})
		}
		for _, m := range c.Methods {
			r := g.methodRefs[m.Ref]
			mi := methodImage{
				Name:        r.Name,
				Proto:       g.ProtoDescriptor(r.Proto).String(),
				Access:      (m.Access &^ AccConstructor).Names(),
				Annotations: g.typeNames(m.Annotations),
			}
			if m.Code != nil {
				mi.Registers = m.Code.Registers
				for _, insn := range m.Code.Insns {
					mi.Code = append(mi.Code, g.encodeInsn(insn))
				}
			}
			ci.Methods = append(ci.Methods, mi)
		}
		img.Classes = append(img.Classes, ci)
	}
	return json.MarshalIndent(img, "", "  ")
}

func (g *Graph) typeNames(ids []TypeID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, g.types[id])
	}
	return out
}

func (g *Graph) encodeInsn(insn Instruction) insnImage {
	ii := insnImage{Op: string(insn.Op), Regs: insn.Regs, Literal: insn.Literal}
	switch insn.Op.Ref() {
	case RefType:
		ii.Type = g.types[insn.Index]
	case RefField:
		ii.Field = g.FieldDescriptor(FieldRefID(insn.Index))
	case RefMethod:
		ii.Method = g.MethodDescriptor(MethodRefID(insn.Index))
	case RefString:
		ii.String = insn.String
	}
	return ii
}
