package cond

import "strings"

// IsTrue evaluates an #if parameter under c.
//
// A parameter naming one of the conditions evaluates to that condition's
// value; an unknown name is false. Otherwise the parameter is read in the
// form Group.String produces, "(a && !b) || (c)", so that regenerated
// output can be preprocessed again.
func (c Configuration) IsTrue(expr string) bool {
	expr = strings.TrimSpace(expr)
	for _, cond := range c.conds {
		if cond.Name == expr {
			return cond.Value
		}
	}
	for _, alt := range splitTop(expr, "||") {
		if c.conjunctionTrue(alt) {
			return true
		}
	}
	return false
}

func (c Configuration) conjunctionTrue(expr string) bool {
	for _, atom := range splitTop(stripParens(expr), "&&") {
		atom = strings.TrimSpace(atom)
		negated := strings.HasPrefix(atom, "!")
		if negated {
			atom = strings.TrimSpace(atom[1:])
		}
		if c.Contains(Condition{Name: atom, Value: true}) == negated {
			return false
		}
	}
	return true
}

// splitTop splits s on sep outside parentheses.
func splitTop(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(s[i:], sep) {
				parts = append(parts, s[start:i])
				start = i + len(sep)
				i += len(sep) - 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripParens removes one pair of parentheses enclosing all of s.
func stripParens(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return s
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return strings.TrimSpace(s[1 : len(s)-1])
}
