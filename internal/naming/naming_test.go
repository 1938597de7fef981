package naming

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/dex/dextest"
	"github.com/gnolang/pgrename/internal/matcher"
	"github.com/gnolang/pgrename/internal/proguard"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		i    int
		want string
	}{
		{"first", 0, "a"},
		{"last single", 25, "z"},
		{"first double", 26, "aa"},
		{"second double", 27, "ab"},
		{"last double", 701, "zz"},
		{"first triple", 702, "aaa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Name(tt.i))
		})
	}
}

func TestScopeSkipsKeywordsAndReserved(t *testing.T) {
	t.Parallel()

	s := NewScope("test", false)
	s.Reserve("b")
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name, err := s.Next()
		require.NoError(t, err)
		assert.False(t, IsKeyword(name), name)
		assert.False(t, seen[name], name)
		seen[name] = true
	}
	assert.True(t, seen["a"])
	assert.False(t, seen["b"])
	assert.False(t, seen["do"])
	assert.False(t, seen["if"])
	assert.True(t, seen["dp"])
}

func TestScopeClaim(t *testing.T) {
	t.Parallel()

	s := NewScope("test", true)
	s.Reserve("Keep")
	assert.False(t, s.Claim("keep"))
	assert.False(t, s.Claim("int"))
	assert.False(t, s.Claim(""))
	assert.True(t, s.Claim("x"))
	assert.False(t, s.Claim("X"))

	exact := NewScope("test", false)
	exact.Reserve("Keep")
	assert.True(t, exact.Claim("keep"))
}

func TestScopeCollision(t *testing.T) {
	if testing.Short() {
		t.Skip("exhausts a scope")
	}
	t.Parallel()

	s := NewScope("package com/x", false)
	for i := 0; i < MaxCandidates; i++ {
		s.Reserve(Name(i))
	}
	_, err := next(s, "Lcom/x/A;")
	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "package com/x", ce.Scope)
	assert.Equal(t, "Lcom/x/A;", ce.Entity)
	assert.Contains(t, err.Error(), "no free name for Lcom/x/A;")
}

func TestRenameMapSetTwicePanics(t *testing.T) {
	t.Parallel()

	rm := NewRenameMap()
	rm.SetClass("Lcom/x/A;", "Lcom/x/a;")
	rm.SetField("Lcom/x/A;.f:I", "a")
	rm.SetMethod("Lcom/x/A;.m:()V", "a")
	assert.Panics(t, func() { rm.SetClass("Lcom/x/A;", "Lcom/x/b;") })
	assert.Panics(t, func() { rm.SetField("Lcom/x/A;.f:I", "b") })

	c, f, m := rm.Counts()
	assert.Equal(t, []int{1, 1, 1}, []int{c, f, m})
	assert.Equal(t, 3, rm.Len())
	assert.Equal(t, []string{"Lcom/x/A;"}, rm.Classes())
}

const graph = `{
  "format": "v1.0.0",
  "classes": [
    {"name": "Lcom/x/Keep;", "super": "Ljava/lang/Object;"},
    {"name": "Lcom/x/b;", "super": "Ljava/lang/Object;",
     "fields": [{"name": "ref", "type": "Lcom/x/c;"}]},
    {"name": "Lcom/x/Outer;", "super": "Ljava/lang/Object;",
     "methods": [
       {"name": "go", "proto": "()V", "access": ["public"]},
       {"name": "go", "proto": "(I)V", "access": ["public"]},
       {"name": "stop", "proto": "()V", "access": ["public"]}
     ]},
    {"name": "Lcom/x/Outer$Inner;", "super": "Lcom/x/Outer;",
     "methods": [{"name": "go", "proto": "()V", "access": ["public"]}]},
    {"name": "Lcom/x/Y;", "super": "Ljava/lang/Object;"},
    {"name": "Lcom/x/Zeta;", "super": "Ljava/lang/Object;"},
    {"name": "Lcom/x/Base;", "super": "Lext/Parent;",
     "fields": [{"name": "a", "type": "I"}, {"name": "count", "type": "I"}]},
    {"name": "Lcom/x/Sub;", "super": "Lcom/x/Base;",
     "fields": [{"name": "size", "type": "I"}, {"name": "tail", "type": "I"}],
     "methods": [{"name": "peek", "proto": "()I", "code": [
       {"op": "iget", "regs": [0, 1], "field": "Lcom/x/Sub;.d:I"},
       {"op": "return", "regs": [0]}
     ]}]}
  ]
}`

const graphRules = `
-keepnames class com.x.Keep
-keepnames class com.x.b
-keepclassmembernames class com.x.Base { int a; }
`

type preferred struct {
	classes map[string]string
	fields  map[string]string
	methods map[string]string
}

func (p preferred) ClassNew(old string) (string, bool) {
	n, ok := p.classes[old]
	return n, ok
}

func (p preferred) FieldNew(owner, name, typ string) (string, bool) {
	n, ok := p.fields[descriptor.Field(owner, name, typ)]
	return n, ok
}

func (p preferred) MethodNew(owner, name string, proto descriptor.Proto) (string, bool) {
	n, ok := p.methods[descriptor.Method(owner, name, proto)]
	return n, ok
}

func allocate(t *testing.T, src, rules string, opts Options) *RenameMap {
	t.Helper()
	g := classgraph.New(dextest.Decode(t, src))
	cfg, err := proguard.Parse(rules)
	require.NoError(t, err)
	res, err := matcher.Match(context.Background(), g, cfg, matcher.Options{Workers: 2})
	require.NoError(t, err)
	rm, err := Allocate(g, res.Verdicts, opts)
	require.NoError(t, err)
	return rm
}

func lookup(rm *RenameMap, kind, key string) string {
	var n string
	switch kind {
	case "class":
		n, _ = rm.Class(key)
	case "field":
		n, _ = rm.Field(key)
	case "method":
		n, _ = rm.Method(key)
	}
	return n
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	rm := allocate(t, graph, graphRules, Options{})
	tests := []struct {
		name string
		kind string
		key  string
		want string
	}{
		{"first class", "class", "Lcom/x/Base;", "Lcom/x/a;"},
		{"skips frozen and external names", "class", "Lcom/x/Outer;", "Lcom/x/d;"},
		{"nested under renamed outer", "class", "Lcom/x/Outer$Inner;", "Lcom/x/d$a;"},
		{"continues package scope", "class", "Lcom/x/Sub;", "Lcom/x/e;"},
		{"last class", "class", "Lcom/x/Zeta;", "Lcom/x/g;"},
		{"frozen class", "class", "Lcom/x/Keep;", ""},
		{"skips frozen field name", "field", "Lcom/x/Base;.count:I", "b"},
		{"shares component scope", "field", "Lcom/x/Sub;.size:I", "c"},
		{"skips externally resolved name", "field", "Lcom/x/Sub;.tail:I", "e"},
		{"frozen field", "field", "Lcom/x/Base;.a:I", ""},
		{"separate component", "field", "Lcom/x/b;.ref:Lcom/x/c;", "a"},
		{"override group root", "method", "Lcom/x/Outer;.go:()V", "a"},
		{"override group member", "method", "Lcom/x/Outer$Inner;.go:()V", "a"},
		{"other params reuse names", "method", "Lcom/x/Outer;.go:(I)V", "a"},
		{"same params", "method", "Lcom/x/Outer;.stop:()V", "b"},
		{"external supertype freezes", "method", "Lcom/x/Sub;.peek:()I", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, lookup(rm, tt.kind, tt.key))
		})
	}
}

func TestAllocateDeterministic(t *testing.T) {
	t.Parallel()

	first := allocate(t, graph, graphRules, Options{})
	for i := 0; i < 5; i++ {
		again := allocate(t, graph, graphRules, Options{})
		assert.Equal(t, first, again)
	}
}

func TestAllocatePreferred(t *testing.T) {
	t.Parallel()

	p := preferred{
		classes: map[string]string{
			"Lcom/x/Y;":    "Lcom/x/q;",
			"Lcom/x/Zeta;": "Lcom/x/Keep;",
			"Lcom/x/Sub;":  "Lorg/elsewhere/z;",
		},
		fields:  map[string]string{"Lcom/x/Base;.count:I": "z"},
		methods: map[string]string{"Lcom/x/Outer$Inner;.go:()V": "run"},
	}
	rm := allocate(t, graph, graphRules, Options{Preferred: p})

	assert.Equal(t, "Lcom/x/q;", lookup(rm, "class", "Lcom/x/Y;"))
	// Taken or out-of-scope preferences fall back to the generator.
	assert.Equal(t, "Lcom/x/f;", lookup(rm, "class", "Lcom/x/Zeta;"))
	assert.Equal(t, "Lcom/x/e;", lookup(rm, "class", "Lcom/x/Sub;"))
	assert.Equal(t, "z", lookup(rm, "field", "Lcom/x/Base;.count:I"))
	assert.Equal(t, "b", lookup(rm, "field", "Lcom/x/Sub;.size:I"))
	assert.Equal(t, "run", lookup(rm, "method", "Lcom/x/Outer;.go:()V"))
	assert.Equal(t, "run", lookup(rm, "method", "Lcom/x/Outer$Inner;.go:()V"))
}

func TestAllocateUniqueMemberNames(t *testing.T) {
	t.Parallel()

	rm := allocate(t, graph, graphRules, Options{UniqueMemberNames: true})
	assert.Equal(t, "b", lookup(rm, "field", "Lcom/x/Base;.count:I"))
	assert.Equal(t, "f", lookup(rm, "field", "Lcom/x/b;.ref:Lcom/x/c;"))
}

func TestAllocateRedex(t *testing.T) {
	t.Parallel()

	rm := allocate(t, dextest.Redex, dextest.RedexRules, Options{})
	const p = "Lcom/facebook/redex/test/proguard/"
	assert.Equal(t, []string{p + "All;"}, rm.Classes())
	assert.Equal(t, p+"a;", lookup(rm, "class", p+"All;"))
	assert.Equal(t, "a", lookup(rm, "field", p+"Hello;.hello:Ljava/lang/String;"))
	assert.Equal(t, "b", lookup(rm, "field", p+"World;.world:Ljava/lang/String;"))
	assert.Equal(t, "d", lookup(rm, "field", p+"Alpha;.wombat:I"))
	assert.Equal(t, "", lookup(rm, "field", p+"Beta;.wombatBeta:I"))
	assert.Equal(t, "a", lookup(rm, "method", p+"Alpha;.doubleWombat:()I"))
	assert.Equal(t, "b", lookup(rm, "method", p+"Beta;.all:()Ljava/lang/String;"))
}
