package trie

import (
	"sort"
	"strings"
)

/*
Arena-based Trie Implementation

The trie indexes class IDs by their package segments ("com", "facebook", "Alpha") so
that a pattern with a literal package prefix only has to look at the classes under
that prefix.

Nodes live in a single slice and are referenced by index rather than by pointer:
	- one growing allocation instead of one per node, which keeps GC pressure low,
	- children of a node are stored next to each other, which helps locality,
	- indices are smaller than pointers on 64-bit systems.

Every node carries the values inserted at exactly its path. Collect gathers the
values of a whole subtree.
*/

// NodeIndex represents the index of a trie node.
type NodeIndex int

// Arena is a memory pool that stores all trie nodes.
type Arena struct {
	// nodes is a slice that stores all trie nodes.
	nodes []arenaNode
}

// arenaNode is the internal representation of a trie node stored in the arena.
type arenaNode struct {
	// children stores child nodes. key is the path segment, value is the index of the child node.
	children map[string]NodeIndex
	// values holds the payloads inserted at this exact path.
	values []int
}

// NewArena creates a new arena.
func NewArena() *Arena {
	arena := &Arena{
		nodes: make([]arenaNode, 0, 256),
	}
	// root node (index 0)
	arena.newNode()
	return arena
}

// newNode adds a new node to the arena and returns its index.
func (a *Arena) newNode() NodeIndex {
	idx := NodeIndex(len(a.nodes))
	a.nodes = append(a.nodes, arenaNode{
		children: make(map[string]NodeIndex),
	})
	return idx
}

// Insert stores value at the path given by sequence.
func (a *Arena) Insert(sequence []string, value int) {
	current := NodeIndex(0) // root node

	for _, part := range sequence {
		node := &a.nodes[current]
		childIdx, exists := node.children[part]

		if !exists {
			childIdx = a.newNode()
			// newNode may have grown the slice, so index again.
			a.nodes[current].children[part] = childIdx
		}

		current = childIdx
	}

	a.nodes[current].values = append(a.nodes[current].values, value)
}

// Find returns the node at the end of prefix.
func (a *Arena) Find(prefix []string) (NodeIndex, bool) {
	current := NodeIndex(0)
	for _, part := range prefix {
		child, ok := a.nodes[current].children[part]
		if !ok {
			return 0, false
		}
		current = child
	}
	return current, true
}

// Collect returns every value stored in the subtree rooted at idx, sorted.
func (a *Arena) Collect(idx NodeIndex) []int {
	var out []int
	stack := []NodeIndex{idx}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := a.nodes[n]
		out = append(out, node.values...)
		for _, child := range node.children {
			stack = append(stack, child)
		}
	}
	sort.Ints(out)
	return out
}

// Trie indexes integer IDs by slash-separated paths.
type Trie struct {
	arena *Arena
}

// New returns an initialized Trie.
func New() *Trie {
	return &Trie{
		arena: NewArena(),
	}
}

// Split breaks a slash-separated path into trie segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Insert stores value under the given slash-separated path.
func (t *Trie) Insert(path string, value int) {
	t.arena.Insert(Split(path), value)
}

// Under returns the values stored at or below the given segment prefix.
func (t *Trie) Under(prefix []string) []int {
	idx, ok := t.arena.Find(prefix)
	if !ok {
		return nil
	}
	return t.arena.Collect(idx)
}
