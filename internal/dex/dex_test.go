package dex_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/dex/dextest"
)

const alpha = "Lcom/facebook/redex/test/proguard/Alpha;"

func TestDecodeRedex(t *testing.T) {
	t.Parallel()

	g := dextest.Decode(t, dextest.Redex)
	require.Len(t, g.Classes(), 5)

	a := g.Classes()[0]
	assert.Equal(t, alpha, g.Name(a))
	assert.Equal(t, "Ljava/lang/Object;", g.TypeDescriptor(a.Super))
	require.Len(t, a.Fields, 4)
	assert.Equal(t, "wombat", g.FieldName(a.Fields[0]))
	assert.Equal(t, alpha+".wombat:I", g.FieldDescriptor(a.Fields[0].Ref))

	ctor := a.Methods[0]
	assert.True(t, ctor.Access.Has(dex.AccConstructor))
	assert.True(t, ctor.IsConstructor(g))
	assert.False(t, ctor.IsVirtual(g))
	assert.True(t, a.Methods[1].IsVirtual(g))

	// The operand in doubleWombat shares the declaration's pool entry.
	insn := a.Methods[1].Code.Insns[0]
	assert.Equal(t, dex.RefField, insn.Op.Ref())
	assert.Equal(t, int32(a.Fields[0].Ref), insn.Index)

	id, ok := g.LookupField("Lcom/facebook/redex/test/proguard/All;.hello:Ljava/lang/String;")
	require.True(t, ok)
	assert.Equal(t, "hello", g.FieldRef(id).Name)
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	g := dextest.Decode(t, dextest.Redex)
	data, err := g.Encode()
	require.NoError(t, err)

	back, err := dex.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, g.Fingerprint(dex.WithNames), back.Fingerprint(dex.WithNames))
}

func TestCompressedFile(t *testing.T) {
	t.Parallel()

	g := dextest.Decode(t, dextest.Redex)
	path := filepath.Join(t.TempDir(), "classes.json.lz4")
	require.NoError(t, dex.Save(g, path))

	back, err := dex.Load(path)
	require.NoError(t, err)
	assert.Equal(t, g.Fingerprint(dex.WithNames), back.Fingerprint(dex.WithNames))

	var buf bytes.Buffer
	require.NoError(t, dex.Write(&buf, g, false))
	plain, err := dex.Read(&buf, false)
	require.NoError(t, err)
	assert.Len(t, plain.Classes(), 5)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		target error
	}{
		{
			name:   "missing format",
			src:    `{"classes": []}`,
			target: dex.ErrUnsupportedFormat,
		},
		{
			name:   "future major",
			src:    `{"format": "v2.0.0", "classes": []}`,
			target: dex.ErrUnsupportedFormat,
		},
		{
			name:   "duplicate class",
			src:    `{"format": "v1.2.0", "classes": [{"name": "LA;"}, {"name": "LA;"}]}`,
			target: dex.ErrDuplicateClass,
		},
		{
			name:   "superclass cycle",
			src:    `{"format": "v1.0.0", "classes": [{"name": "LA;", "super": "LB;"}, {"name": "LB;", "super": "LA;"}]}`,
			target: dex.ErrCyclicHierarchy,
		},
		{
			name:   "own superclass",
			src:    `{"format": "v1.0.0", "classes": [{"name": "LA;", "super": "LA;"}]}`,
			target: dex.ErrCyclicHierarchy,
		},
		{
			name: "interface cycle",
			src: `{"format": "v1.0.0", "classes": [
				{"name": "LI;", "access": ["interface"], "interfaces": ["LJ;"]},
				{"name": "LJ;", "access": ["interface"], "interfaces": ["LI;"]}]}`,
			target: dex.ErrCyclicHierarchy,
		},
		{
			name: "unknown opcode",
			src: `{"format": "v1.0.0", "classes": [{"name": "LA;", "methods": [
				{"name": "m", "proto": "()V", "code": [{"op": "nope"}]}]}]}`,
			target: descriptor.ErrMalformed,
		},
		{
			name: "misspelled field op",
			src: `{"format": "v1.0.0", "classes": [{"name": "LA;", "fields": [{"name": "x", "type": "I"}], "methods": [
				{"name": "m", "proto": "()V", "code": [{"op": "iget-objet", "field": "LA;.x:I"}]}]}]}`,
			target: descriptor.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := dex.Decode([]byte(tt.src))
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := dex.Decode([]byte(`{"format": "v1.0.0", "classes": [{"name": "LA;", "access": ["sealed"]}]}`))
	assert.ErrorContains(t, err, `unknown access flag "sealed"`)

	_, err = dex.Decode([]byte(`{"format": "v1.0.0", "classes": [{"name": "LA;", "methods": [
		{"name": "m", "proto": "()V", "code": [{"op": "iget", "field": "LA;x:I"}]}]}]}`))
	assert.ErrorContains(t, err, "LA;.m insn 0")
}

func TestFingerprintModuloNames(t *testing.T) {
	t.Parallel()

	g := dextest.Decode(t, dextest.Redex)
	named := g.Fingerprint(dex.WithNames)
	structural := g.Fingerprint(dex.ModuloNames)

	a := g.Classes()[0]
	g.SetTypeDescriptor(a.Type, "Lcom/facebook/redex/test/proguard/a;")
	g.SetFieldName(a.Fields[0].Ref, "a")
	g.SetMethodName(a.Methods[1].Ref, "b")
	g.Reindex()

	assert.NotEqual(t, named, g.Fingerprint(dex.WithNames))
	assert.Equal(t, structural, g.Fingerprint(dex.ModuloNames))

	_, ok := g.LookupType(alpha)
	assert.False(t, ok)
	_, ok = g.LookupField("Lcom/facebook/redex/test/proguard/a;.a:I")
	assert.True(t, ok)

	c := g.Classes()[1]
	c.Fields[0].Access |= dex.AccVolatile
	assert.NotEqual(t, structural, g.Fingerprint(dex.ModuloNames))
}

func TestFingerprintIgnoresReboundOwner(t *testing.T) {
	t.Parallel()

	const p = "Lcom/facebook/redex/test/proguard/"
	g := dextest.Decode(t, dextest.Redex)
	named := g.Fingerprint(dex.WithNames)
	structural := g.Fingerprint(dex.ModuloNames)

	ref, ok := g.LookupField(p + "All;.hello:Ljava/lang/String;")
	require.True(t, ok)
	hello, ok := g.LookupType(p + "Hello;")
	require.True(t, ok)
	g.SetFieldOwner(ref, hello)
	g.Reindex()

	assert.Equal(t, p+"Hello;.hello:Ljava/lang/String;", g.FieldDescriptor(ref))
	assert.Equal(t, structural, g.Fingerprint(dex.ModuloNames))
	assert.NotEqual(t, named, g.Fingerprint(dex.WithNames))
}

func TestAccessFlags(t *testing.T) {
	t.Parallel()

	f, err := dex.ParseAccess([]string{"public", "static", "final"})
	require.NoError(t, err)
	assert.Equal(t, dex.AccPublic|dex.AccStatic|dex.AccFinal, f)
	assert.Equal(t, []string{"public", "static", "final"}, f.Names())
	assert.Equal(t, "public static final", f.String())
	assert.True(t, f.Has(dex.AccPublic|dex.AccStatic))
	assert.False(t, f.Has(dex.AccPrivate))

	bridge, ok := dex.FlagByName("bridge")
	require.True(t, ok)
	assert.Equal(t, dex.AccVolatile, bridge)
}

func TestOpcodeRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op   dex.Opcode
		want dex.RefKind
	}{
		{"iget-object", dex.RefField},
		{"sput-wide", dex.RefField},
		{"invoke-virtual/range", dex.RefMethod},
		{"new-instance", dex.RefType},
		{"const-class", dex.RefType},
		{"const-string/jumbo", dex.RefString},
		{"add-int/lit8", dex.RefNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.op.Ref())
		})
	}
}
