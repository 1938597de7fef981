package lattice

// Verdict models the rename lattice for a class, field or method.
//
//	Unconstrained < AllowRename < Frozen
//
// Everything below Frozen may be renamed.
type Verdict uint8

const (
	Unconstrained Verdict = iota // no rule matched
	AllowRename                  // matched with allowobfuscation
	Frozen                       // original name must survive
)

func (v Verdict) String() string {
	switch v {
	case Unconstrained:
		return "Unconstrained"
	case AllowRename:
		return "AllowRename"
	case Frozen:
		return "Frozen"
	default:
		return "Unknown"
	}
}

// Renameable reports whether an entity with this verdict may get a new name.
func (v Verdict) Renameable() bool {
	return v < Frozen
}

// Join returns the least upper bound in the lattice.
// Frozen is absorbing.
func Join(a, b Verdict) Verdict {
	if a > b {
		return a
	}
	return b
}

// Fold joins all verdicts, starting from Unconstrained.
func Fold(vs ...Verdict) Verdict {
	out := Unconstrained
	for _, v := range vs {
		out = Join(out, v)
	}
	return out
}

// State maps entities to their verdict.
// Missing entries are interpreted as Unconstrained.
type State[K comparable] map[K]Verdict

// Get returns the stored verdict or Unconstrained when absent.
func (s State[K]) Get(key K) Verdict {
	if v, ok := s[key]; ok {
		return v
	}
	return Unconstrained
}

// Raise joins v into the entry for key and returns the new value.
// Unconstrained entries are never stored.
func (s State[K]) Raise(key K, v Verdict) Verdict {
	joined := Join(s.Get(key), v)
	if joined != Unconstrained {
		s[key] = joined
	}
	return joined
}

// StateEqual reports whether two states hold the same verdicts.
func StateEqual[K comparable](a, b State[K]) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b.Get(k) != v {
			return false
		}
	}
	return true
}
