package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"primitive", "I", true},
		{"void", "V", true},
		{"class", "Ljava/lang/String;", true},
		{"array of class", "[[Lcom/a/B;", true},
		{"array of void", "[V", false},
		{"missing semicolon", "Lcom/a/B", false},
		{"dotted class", "Lcom.a.B;", false},
		{"trailing garbage", "II", false},
		{"empty class", "L;", false},
		{"unknown char", "Q", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformed)
			}
		})
	}
}

func TestJavaTypeConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		java string
	}{
		{"I", "int"},
		{"V", "void"},
		{"Z", "boolean"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"[I", "int[]"},
		{"[[Lcom/a/B$C;", "com.a.B$C[][]"},
	}

	for _, tt := range tests {
		t.Run(tt.java, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.java, JavaType(tt.desc))
			back, err := FromJavaType(tt.java)
			require.NoError(t, err)
			assert.Equal(t, tt.desc, back)
		})
	}

	_, err := FromJavaType("void[]")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestClassNames(t *testing.T) {
	t.Parallel()

	d := "Lcom/facebook/Outer$Inner;"
	assert.Equal(t, "com/facebook/Outer$Inner", ClassPath(d))
	assert.Equal(t, "com.facebook.Outer$Inner", ExternalName(d))
	assert.Equal(t, d, InternalName("com.facebook.Outer$Inner"))
	assert.Equal(t, "com/facebook", Package(d))
	assert.Equal(t, "Outer$Inner", SimpleName(d))
	assert.Equal(t, "Lcom/facebook/a;", WithSimpleName(d, "a"))

	outer, ok := OuterClass(d)
	require.True(t, ok)
	assert.Equal(t, "Lcom/facebook/Outer;", outer)

	_, ok = OuterClass("Lcom/facebook/Outer;")
	assert.False(t, ok)
	_, ok = OuterClass("Lcom/facebook/Trailing$;")
	assert.False(t, ok)

	assert.Equal(t, "", Package("LTop;"))
	assert.Equal(t, "LRenamed;", WithSimpleName("LTop;", "Renamed"))
}

func TestArrays(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, ArrayDims("[[I"))
	assert.Equal(t, "I", ElementType("[[I"))
	assert.Equal(t, "[[La;", WithElement("[[LAlpha;", "La;"))
	assert.True(t, IsArray("[I"))
	assert.False(t, IsClass("[LA;"))
}

func TestParseProto(t *testing.T) {
	t.Parallel()

	p, err := ParseProto("(I[Ljava/lang/String;J)V")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "[Ljava/lang/String;", "J"}, p.Params)
	assert.Equal(t, "V", p.Return)
	assert.Equal(t, "(I[Ljava/lang/String;J)", p.ParamsKey())
	assert.Equal(t, "int,java.lang.String[],long", p.JavaParams())
	assert.Equal(t, "(I[Ljava/lang/String;J)V", p.String())

	for _, bad := range []string{"", "()", "(V)V", "(I", "I)V", "(Lfoo)V"} {
		_, err := ParseProto(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestParseMember(t *testing.T) {
	t.Parallel()

	owner, name, typ, err := ParseField("Lcom/a/Alpha;.wombat:I")
	require.NoError(t, err)
	assert.Equal(t, "Lcom/a/Alpha;", owner)
	assert.Equal(t, "wombat", name)
	assert.Equal(t, "I", typ)
	assert.Equal(t, "Lcom/a/Alpha;.wombat:I", Field(owner, name, typ))

	owner, name, proto, err := ParseMethod("[I.clone:()Ljava/lang/Object;")
	require.NoError(t, err)
	assert.Equal(t, "[I", owner)
	assert.Equal(t, "clone", name)
	assert.Equal(t, "Ljava/lang/Object;", proto.Return)
	assert.Equal(t, "[I.clone:()Ljava/lang/Object;", Method(owner, name, proto))

	_, _, _, err = ParseField("Lcom/a/Alpha;.wombat:V")
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, _, err = ParseField("Lcom/a/Alpha;wombat:I")
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, _, err = ParseMethod("Lcom/a/Alpha;.run:I")
	assert.ErrorIs(t, err, ErrMalformed)
}
