// Package cond implements the Boolean model ppmerge uses to describe where
// a line of output is valid.
//
// A Condition is one directive parameter with a truth value. A
// Configuration is a conjunction of Conditions: one concrete environment.
// A Group is a disjunction of Configurations and is the tag attached to a
// line of merged output; the empty Group means the line is unconditional.
//
// All three are immutable values with structural equality. Key returns a
// canonical string usable as a map key.
package cond

import "strings"

// Condition is a directive parameter paired with a truth value,
// e.g. {Name: "defined(_WIN32)", Value: false}.
type Condition struct {
	Name  string
	Value bool
}

// Inverted returns the Condition with the same name and opposite value.
func (c Condition) Inverted() Condition {
	return Condition{Name: c.Name, Value: !c.Value}
}

// String renders the condition as it appears in an #if expression.
func (c Condition) String() string {
	if c.Value {
		return c.Name
	}
	return "!" + c.Name
}

// Compare orders conditions by name, then false before true.
func (c Condition) Compare(o Condition) int {
	if n := strings.Compare(c.Name, o.Name); n != 0 {
		return n
	}
	switch {
	case c.Value == o.Value:
		return 0
	case !c.Value:
		return -1
	default:
		return 1
	}
}
