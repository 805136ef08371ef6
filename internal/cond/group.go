package cond

import (
	"slices"
	"strings"
)

// Group is a disjunction of Configurations: a line tagged with a Group is
// valid whenever any member holds. The zero Group is unconditional.
type Group struct {
	confs []Configuration
}

// NewGroup returns a Group of the given configurations in sorted order.
// Duplicates are kept until Simplify.
func NewGroup(confs ...Configuration) Group {
	sorted := slices.Clone(confs)
	slices.SortFunc(sorted, Configuration.Compare)
	return Group{confs: sorted}
}

// IsUnconditional reports whether the group places no restriction.
func (g Group) IsUnconditional() bool {
	return len(g.confs) == 0
}

// Configurations returns a copy of the members in sorted order.
func (g Group) Configurations() []Configuration {
	return slices.Clone(g.confs)
}

// Len returns the number of member configurations.
func (g Group) Len() int {
	return len(g.confs)
}

// Union concatenates both groups. An unconditional operand absorbs the
// other.
func (g Group) Union(o Group) Group {
	if g.IsUnconditional() || o.IsUnconditional() {
		return Group{}
	}
	return NewGroup(append(slices.Clone(g.confs), o.confs...)...)
}

// Compact drops duplicate members. Groups with the same members compact
// to equal groups whatever order they were built in.
func (g Group) Compact() Group {
	return Group{confs: slices.CompactFunc(slices.Clone(g.confs), Configuration.Equal)}
}

// Key is a canonical string; equal groups have equal keys.
func (g Group) Key() string {
	var b strings.Builder
	for _, c := range g.confs {
		b.WriteString(c.Key())
		b.WriteByte('\x1e')
	}
	return b.String()
}

// Equal reports whether both groups hold the same configurations.
func (g Group) Equal(o Group) bool {
	return slices.EqualFunc(g.confs, o.confs, Configuration.Equal)
}

// String renders the group as an #if expression: "(a && b) || (c)".
func (g Group) String() string {
	parts := make([]string, len(g.confs))
	for i, c := range g.confs {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, " || ")
}

// ExactReverse reports whether g and o are single-condition complements
// such as (X) and (!X). The regenerator uses it to emit #else.
func (g Group) ExactReverse(o Group) bool {
	if len(g.confs) != 1 || len(o.confs) != 1 {
		return false
	}
	a, b := g.confs[0], o.confs[0]
	if a.Len() != 1 || b.Len() != 1 {
		return false
	}
	return a.conds[0] == b.conds[0].Inverted()
}

// Simplify minimises the group to a fixpoint: identical members are
// merged, and two members that differ only in the truth value of one
// condition are replaced by their common remainder. If a remainder is
// empty the group is unconditional.
func (g Group) Simplify() Group {
	confs := slices.Clone(g.confs)
	for {
		next, changed, always := simplifyStep(confs)
		if always {
			return Group{}
		}
		if !changed {
			return NewGroup(next...)
		}
		confs = next
	}
}

func simplifyStep(confs []Configuration) (next []Configuration, changed, always bool) {
	for i := 0; i < len(confs); i++ {
		for j := i + 1; j < len(confs); j++ {
			if confs[i].Equal(confs[j]) {
				return slices.Delete(slices.Clone(confs), j, j+1), true, false
			}
			rest, adjacent, empty := combine(confs[i], confs[j])
			if !adjacent {
				continue
			}
			if empty {
				return nil, true, true
			}
			out := make([]Configuration, 0, len(confs)-1)
			for k, c := range confs {
				if k != i && k != j {
					out = append(out, c)
				}
			}
			return append(out, rest), true, false
		}
	}
	return confs, false, false
}

// combine reports whether a and b differ in exactly one condition's
// truth value and returns what they share.
func combine(a, b Configuration) (rest Configuration, adjacent, empty bool) {
	if a.Len() != b.Len() {
		return Configuration{}, false, false
	}
	var diff []Condition
	for _, c := range a.conds {
		if !b.Contains(c) {
			diff = append(diff, c)
		}
	}
	if len(diff) != 1 || !b.Contains(diff[0].Inverted()) {
		return Configuration{}, false, false
	}
	rest, ok := a.Difference(diff[0])
	return rest, true, !ok
}
