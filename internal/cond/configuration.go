package cond

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrEmpty is returned when a Configuration would have no conditions.
var ErrEmpty = errors.New("empty configurations not allowed")

// Configuration is a non-empty conjunction of Conditions held in
// canonical (sorted, deduplicated) order.
type Configuration struct {
	conds []Condition
	key   string
}

// NewConfiguration canonicalises conds into a Configuration.
func NewConfiguration(conds ...Condition) (Configuration, error) {
	if len(conds) == 0 {
		return Configuration{}, ErrEmpty
	}
	sorted := slices.Clone(conds)
	slices.SortFunc(sorted, Condition.Compare)
	sorted = slices.Compact(sorted)
	return Configuration{conds: sorted, key: keyOf(sorted)}, nil
}

// MustConfiguration is like NewConfiguration but panics on empty input.
func MustConfiguration(conds ...Condition) Configuration {
	c, err := NewConfiguration(conds...)
	if err != nil {
		panic(err)
	}
	return c
}

func keyOf(conds []Condition) string {
	var b strings.Builder
	for _, c := range conds {
		b.WriteString(c.Name)
		if c.Value {
			b.WriteString("\x00T\x1f")
		} else {
			b.WriteString("\x00F\x1f")
		}
	}
	return b.String()
}

// Conditions returns a copy of the conditions in canonical order.
func (c Configuration) Conditions() []Condition {
	return slices.Clone(c.conds)
}

// Len returns the number of conditions.
func (c Configuration) Len() int {
	return len(c.conds)
}

// Key is a canonical string; equal configurations have equal keys.
func (c Configuration) Key() string {
	return c.key
}

// Equal reports structural equality.
func (c Configuration) Equal(o Configuration) bool {
	return c.key == o.key
}

// Compare is a total order: lexicographic over the canonical conditions.
func (c Configuration) Compare(o Configuration) int {
	return slices.CompareFunc(c.conds, o.conds, Condition.Compare)
}

// Contains reports whether cond is one of the conjuncts.
func (c Configuration) Contains(cond Condition) bool {
	_, found := slices.BinarySearchFunc(c.conds, cond, Condition.Compare)
	return found
}

// Union returns the conjunction of both configurations.
func (c Configuration) Union(o Configuration) Configuration {
	return MustConfiguration(append(slices.Clone(c.conds), o.conds...)...)
}

// Difference removes the given conditions. ok is false when nothing would
// remain.
func (c Configuration) Difference(remove ...Condition) (rest Configuration, ok bool) {
	kept := make([]Condition, 0, len(c.conds))
	for _, cond := range c.conds {
		if !slices.Contains(remove, cond) {
			kept = append(kept, cond)
		}
	}
	if len(kept) == 0 {
		return Configuration{}, false
	}
	return Configuration{conds: kept, key: keyOf(kept)}, true
}

// Names returns the distinct condition names, sorted.
func (c Configuration) Names() []string {
	names := make([]string, 0, len(c.conds))
	for _, cond := range c.conds {
		if len(names) == 0 || names[len(names)-1] != cond.Name {
			names = append(names, cond.Name)
		}
	}
	return names
}

// IsImpossible reports whether some name appears both true and false.
func (c Configuration) IsImpossible() bool {
	for i := 1; i < len(c.conds); i++ {
		if c.conds[i].Name == c.conds[i-1].Name {
			return true
		}
	}
	return false
}

// String renders the conjunction as "a && !b".
func (c Configuration) String() string {
	parts := make([]string, len(c.conds))
	for i, cond := range c.conds {
		parts[i] = cond.String()
	}
	return strings.Join(parts, " && ")
}

// Interner maps canonical keys to a single shared Configuration value.
// It is scoped to one enumeration or merge session.
type Interner struct {
	mu    sync.Mutex
	table map[string]Configuration
}

// NewInterner returns an empty interning table.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]Configuration)}
}

// Intern returns the canonical value equal to c and whether it was
// already present.
func (in *Interner) Intern(c Configuration) (Configuration, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.table[c.key]; ok {
		return existing, true
	}
	in.table[c.key] = c
	return c, false
}

// Values returns every interned Configuration in sorted order.
func (in *Interner) Values() []Configuration {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Configuration, 0, len(in.table))
	for _, c := range in.table {
		out = append(out, c)
	}
	slices.SortFunc(out, Configuration.Compare)
	return out
}

// Len returns the number of interned configurations.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.table)
}
