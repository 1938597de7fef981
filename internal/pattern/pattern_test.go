package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		subject string
		want    bool
	}{
		{"exact", "com.a.Foo", "com/a/Foo", true},
		{"exact mismatch", "com.a.Foo", "com/a/Foo2", false},
		{"star in package", "com.a.*", "com/a/Foo", true},
		{"star stops at separator", "com.a.*", "com/a/b/Foo", false},
		{"star matches inner class", "com.a.*", "com/a/Foo$Bar", true},
		{"double star crosses", "com.a.**", "com/a/b/Foo", true},
		{"double star everything", "**", "Top", true},
		{"question mark", "com.a.Fo?", "com/a/Foo", true},
		{"question mark not separator", "com.a?Foo", "com/a/Foo", false},
		{"infix star", "com.*.Foo", "com/x/Foo", true},
		{"infix star deep", "com.*.Foo", "com/x/y/Foo", false},
		{"suffix", "**Activity", "com/a/MainActivity", true},
		{"case sensitive", "com.a.foo", "com/a/Foo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := ClassName(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.subject))
		})
	}
}

func TestType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		subject string
		want    bool
	}{
		{"int", "int", "I", true},
		{"int vs long", "int", "J", false},
		{"string", "java.lang.String", "Ljava/lang/String;", true},
		{"string array", "java.lang.String[]", "[Ljava/lang/String;", true},
		{"array mismatch", "java.lang.String[]", "Ljava/lang/String;", false},
		{"percent", "%", "Z", true},
		{"percent not void", "%", "V", false},
		{"percent not class", "%", "LA;", false},
		{"percent array", "%[]", "[I", true},
		{"triple star primitive", "***", "I", true},
		{"triple star array", "***", "[[LA;", true},
		{"double star class", "**", "Lcom/a/B;", true},
		{"double star not primitive", "**", "I", false},
		{"star no package", "*", "Lcom/a/B;", false},
		{"star default package", "*", "LB;", true},
		{"void", "void", "V", true},
		{"wild package", "java.util.*", "Ljava/util/List;", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Type(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.subject))
		})
	}

	for _, bad := range []string{"", "void[]", "java.***", "[]", "int[", "int]", "int[][", "java.lang.String[x]", "[]int"} {
		_, err := Type(bad)
		assert.Error(t, err, bad)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	_, err := Compile("a****")
	assert.ErrorContains(t, err, "run of 4")
	_, err = ClassName("")
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile("****") })
}

func TestLiteralPrefix(t *testing.T) {
	t.Parallel()

	p := MustCompile("com/a/*Foo")
	assert.Equal(t, "com/a/", p.LiteralPrefix())
	assert.False(t, p.IsLiteral())

	lit := MustCompile("com/a/Foo")
	assert.True(t, lit.IsLiteral())
	assert.Equal(t, "com/a/Foo", lit.LiteralPrefix())
}

func TestParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		params   []string
		want     bool
	}{
		{"empty", nil, nil, true},
		{"empty vs one", nil, []string{"I"}, false},
		{"exact", []string{"int", "java.lang.String"}, []string{"I", "Ljava/lang/String;"}, true},
		{"ellipsis matches none", []string{"..."}, nil, true},
		{"ellipsis matches many", []string{"..."}, []string{"I", "J", "Z"}, true},
		{"ellipsis tail", []string{"int", "..."}, []string{"I", "J"}, true},
		{"ellipsis head", []string{"...", "long"}, []string{"I", "J"}, true},
		{"ellipsis head mismatch", []string{"...", "long"}, []string{"J", "I"}, false},
		{"arity", []string{"int"}, []string{"I", "I"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := CompileParams(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.params))
		})
	}

	p, err := CompileParams([]string{"int", "..."})
	require.NoError(t, err)
	assert.Equal(t, "int,...", p.String())
}

func TestList(t *testing.T) {
	t.Parallel()

	mk := func(neg bool, s string) Entry {
		p, err := ClassName(s)
		require.NoError(t, err)
		return Entry{Negated: neg, Pattern: p}
	}
	l := &List{Entries: []Entry{
		mk(true, "com.a.Internal"),
		mk(false, "com.a.**"),
		mk(false, "org.b.Exact"),
	}}

	assert.True(t, l.Match("com/a/Public"))
	assert.False(t, l.Match("com/a/Internal"))
	assert.True(t, l.Match("org/b/Exact"))
	assert.False(t, l.Match("net/Other"))
	assert.Equal(t, []string{"com/a/", "org/b/Exact"}, l.Prefixes())
	assert.Equal(t, []string{"org/b/Exact"}, l.Literals())
}
