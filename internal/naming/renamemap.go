package naming

import (
	"fmt"
	"sort"
)

// RenameMap records the new name of every renamed entity, keyed by its
// original descriptor. Class values are full descriptors; field and method
// values are bare names.
type RenameMap struct {
	classes map[string]string
	fields  map[string]string
	methods map[string]string
}

// NewRenameMap returns an empty map.
func NewRenameMap() *RenameMap {
	return &RenameMap{
		classes: make(map[string]string),
		fields:  make(map[string]string),
		methods: make(map[string]string),
	}
}

func set(m map[string]string, kind, key, val string) {
	if prev, ok := m[key]; ok {
		panic(fmt.Sprintf("naming: %s %s renamed twice (%s, %s)", kind, key, prev, val))
	}
	m[key] = val
}

// SetClass records a class rename, "Lcom/a/B;" -> "Lcom/a/c;". Setting a
// key twice panics.
func (r *RenameMap) SetClass(old, renamed string) { set(r.classes, "class", old, renamed) }

// SetField records a field rename. key is "LOwner;.name:Type".
func (r *RenameMap) SetField(key, name string) { set(r.fields, "field", key, name) }

// SetMethod records a method rename. key is "LOwner;.name:(Params)Ret".
func (r *RenameMap) SetMethod(key, name string) { set(r.methods, "method", key, name) }

func (r *RenameMap) Class(old string) (string, bool) {
	n, ok := r.classes[old]
	return n, ok
}

func (r *RenameMap) Field(key string) (string, bool) {
	n, ok := r.fields[key]
	return n, ok
}

func (r *RenameMap) Method(key string) (string, bool) {
	n, ok := r.methods[key]
	return n, ok
}

// Len returns the number of renamed entities.
func (r *RenameMap) Len() int { return len(r.classes) + len(r.fields) + len(r.methods) }

// Counts returns the number of renamed classes, fields and methods.
func (r *RenameMap) Counts() (classes, fields, methods int) {
	return len(r.classes), len(r.fields), len(r.methods)
}

// Classes returns the renamed class descriptors, sorted.
func (r *RenameMap) Classes() []string { return sortedKeys(r.classes) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
