package matcher

import (
	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/lattice"
)

const objectType = "Ljava/lang/Object;"

// objectMethods are the overridable methods of java.lang.Object, keyed by
// name and proto.
var objectMethods = map[string]bool{
	"equals(Ljava/lang/Object;)Z":  true,
	"hashCode()I":                  true,
	"toString()Ljava/lang/String;": true,
	"finalize()V":                  true,
	"clone()Ljava/lang/Object;":    true,
	"getClass()Ljava/lang/Class;":  true,
	"notify()V":                    true,
	"notifyAll()V":                 true,
	"wait()V":                      true,
	"wait(J)V":                     true,
	"wait(JI)V":                    true,
}

// freezeIntrinsic freezes the methods whose names are bound outside the
// graph: constructors and initializers, native methods, overrides of
// Object, and virtual methods of classes that have an external supertype
// other than Object, whose declared methods are unknown.
func freezeIntrinsic(g *classgraph.Graph, v *Verdicts) {
	d := g.Dex()
	for _, c := range g.Classes() {
		opaque := false
		for _, s := range g.ExternalSupertypes(c) {
			if s != objectType {
				opaque = true
				break
			}
		}
		for _, m := range c.Methods {
			r := d.MethodRef(m.Ref)
			switch {
			case m.IsConstructor(d), m.Access.Has(dex.AccNative):
				v.Methods.Raise(m.Ref, lattice.Frozen)
			case m.IsVirtual(d) && objectMethods[r.Name+d.ProtoDescriptor(r.Proto).String()]:
				v.Methods.Raise(m.Ref, lattice.Frozen)
			case m.IsVirtual(d) && opaque:
				v.Methods.Raise(m.Ref, lattice.Frozen)
			}
		}
	}
}

// propagateGroups gives every method of an override group the join of the
// group's verdicts, so a Frozen member freezes the whole group.
func propagateGroups(g *classgraph.Graph, v *Verdicts) {
	for _, grp := range g.OverrideGroups() {
		if len(grp.Methods) < 2 {
			continue
		}
		verdicts := make([]lattice.Verdict, len(grp.Methods))
		for i, m := range grp.Methods {
			verdicts[i] = v.Method(m)
		}
		joined := lattice.Fold(verdicts...)
		for _, m := range grp.Methods {
			v.Methods.Raise(m.Ref, joined)
		}
	}
}
