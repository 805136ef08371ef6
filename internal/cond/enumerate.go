package cond

import (
	"bufio"
	"io"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bimmerbailey/ppmerge/internal/directive"
)

const maxLineSize = 1024 * 1024

// Observe scans the input for conditional directives and returns every
// distinct directive stack that encloses at least one non-directive line.
// The result may contain impossible configurations, e.g. from a nested
// #if X inside the #else of X.
func Observe(file string, r io.Reader) ([]Configuration, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	seen := NewInterner()
	var stack []Condition
	var opened []int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		d, ok := directive.Match(scanner.Text())
		if !ok {
			if len(stack) > 0 {
				seen.Intern(MustConfiguration(stack...))
			}
			continue
		}

		switch d.Kind {
		case directive.If:
			stack = append(stack, Condition{Name: d.Param, Value: true})
			opened = append(opened, lineNo)
		case directive.Else:
			if len(stack) == 0 {
				return nil, directive.Errorf(file, lineNo, `unexpected "#else"`)
			}
			top := stack[len(stack)-1]
			if !top.Value {
				return nil, directive.Errorf(file, lineNo, `duplicate "#else" for %q`, top.Name)
			}
			stack[len(stack)-1] = top.Inverted()
		case directive.Endif:
			if len(stack) == 0 {
				return nil, directive.Errorf(file, lineNo, `unexpected "#endif"`)
			}
			stack = stack[:len(stack)-1]
			opened = opened[:len(opened)-1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(opened) > 0 {
		return nil, directive.Errorf(file, opened[len(opened)-1], `unterminated "#if"`)
	}
	return seen.Values(), nil
}

// Permutations returns every consistent combination of the observed
// configurations: the union of each non-empty subset, excluding the
// impossible ones. A union containing a contradiction stays contradictory
// however much is added to it, so such unions are dropped as soon as they
// appear.
func Permutations(observed []Configuration) []Configuration {
	unions := NewInterner()
	for _, c := range observed {
		if c.IsImpossible() {
			continue
		}
		next := []Configuration{c}
		for _, u := range unions.Values() {
			if m := u.Union(c); !m.IsImpossible() {
				next = append(next, m)
			}
		}
		for _, n := range next {
			unions.Intern(n)
		}
	}
	return unions.Values()
}

// Names returns every condition name used by confs, sorted.
func Names(confs []Configuration) []string {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, c := range confs {
		names.Append(c.Names()...)
	}
	out := names.ToSlice()
	slices.Sort(out)
	return out
}

// Complete makes every configuration assign every name used anywhere in
// confs, filling the missing ones with false. Configurations that become
// equal collapse into one.
func Complete(confs []Configuration) []Configuration {
	all := mapset.NewThreadUnsafeSet(Names(confs)...)
	complete := NewInterner()
	for _, c := range confs {
		conds := c.Conditions()
		missing := all.Difference(mapset.NewThreadUnsafeSet(c.Names()...))
		for name := range missing.Iter() {
			conds = append(conds, Condition{Name: name, Value: false})
		}
		complete.Intern(MustConfiguration(conds...))
	}
	return complete.Values()
}

// Enumerate returns the complete configurations of the input, sorted.
func Enumerate(file string, r io.Reader) ([]Configuration, error) {
	observed, err := Observe(file, r)
	if err != nil {
		return nil, err
	}
	return Complete(Permutations(observed)), nil
}
