package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildTrie(paths ...string) *Trie {
	t := New()
	for i, path := range paths {
		t.Insert(path, i)
	}
	return t
}

func TestUnder(t *testing.T) {
	t.Parallel()

	tr := buildTrie(
		"com/facebook/redex/Alpha",
		"com/facebook/redex/Beta",
		"com/facebook/other/Gamma",
		"org/example/Delta",
		"Top",
	)

	tests := []struct {
		name   string
		prefix []string
		want   []int
	}{
		{"root", nil, []int{0, 1, 2, 3, 4}},
		{"package", []string{"com", "facebook", "redex"}, []int{0, 1}},
		{"outer package", []string{"com", "facebook"}, []int{0, 1, 2}},
		{"exact class", []string{"org", "example", "Delta"}, []int{3}},
		{"missing", []string{"net"}, nil},
		{"partial segment", []string{"com", "face"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tr.Under(tt.prefix))
		})
	}
}

func TestDirectArenaOperations(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	sequences := [][]string{
		{"a", "b", "c"},
		{"a", "b", "d"},
		{"a", "e"},
		{"f"},
	}
	for i, seq := range sequences {
		arena.Insert(seq, i)
	}

	idx, ok := arena.Find([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1}, arena.Collect(idx))

	idx, ok = arena.Find([]string{"a"})
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, arena.Collect(idx))

	_, ok = arena.Find([]string{"a", "x"})
	assert.False(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, arena.Collect(0))
}

func TestDuplicateValues(t *testing.T) {
	t.Parallel()

	tr := buildTrie("a/b", "a/c", "a/c")
	assert.Equal(t, []int{1, 2}, tr.Under([]string{"a", "c"}))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Split(""))
	assert.Equal(t, []string{"com", "a", "B"}, Split("com/a/B"))
}
