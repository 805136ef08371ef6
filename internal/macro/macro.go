// Package macro holds #define tables and expands macro invocations.
//
// Expansion substitutes one invocation at a time and rescans the whole
// text, so macros used inside macro bodies are expanded too. It stops at a
// fixpoint or fails after MaxIterations substitutions.
package macro

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// MaxIterations bounds the number of substitutions for one line.
const MaxIterations = 20000

var (
	ErrRecursion    = errors.New("infinite recursion")
	ErrArgCount     = errors.New("invalid number of arguments")
	ErrInvalidParam = errors.New("invalid parameter name")
)

var paramNameRe = regexp.MustCompile(`^[a-zA-Z_]\w*$`)

// Definition is one macro. Params is nil for a parameter-less macro.
type Definition struct {
	Name   string
	Params []string
	Lines  []string
}

// Body joins the definition lines.
func (d *Definition) Body() string {
	return strings.Join(d.Lines, "\n")
}

// Table maps macro names to definitions. The zero value is not usable;
// use NewTable.
type Table struct {
	defs map[string]*Definition
	re   *regexp.Regexp
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{defs: make(map[string]*Definition)}
}

// Define adds or replaces a macro with its first body line.
func (t *Table) Define(name string, params []string, body string) {
	t.defs[name] = &Definition{Name: name, Params: params, Lines: []string{body}}
	t.re = nil
}

// AppendLine adds a continuation line to an existing macro.
func (t *Table) AppendLine(name, line string) {
	if d, ok := t.defs[name]; ok {
		d.Lines = append(d.Lines, line)
	}
}

// Lookup returns the definition of name.
func (t *Table) Lookup(name string) (*Definition, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// Len returns the number of defined macros.
func (t *Table) Len() int {
	return len(t.defs)
}

// ParseParams parses a parenthesised parameter list such as "(a, b)".
func ParseParams(s string) ([]string, error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParam, s)
	}
	var params []string
	for _, p := range strings.Split(s[1:len(s)-1], ",") {
		p = strings.TrimSpace(p)
		if !paramNameRe.MatchString(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidParam, p)
		}
		params = append(params, p)
	}
	return params, nil
}

// invocation finds macro names on identifier boundaries. A "##" on either
// side is part of the match so that it is consumed.
func (t *Table) invocation() *regexp.Regexp {
	if t.re != nil {
		return t.re
	}
	names := make([]string, 0, len(t.defs))
	for name := range t.defs {
		names = append(names, name)
	}
	// longest first so that AB wins over A; ties alphabetical
	slices.SortFunc(names, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	for i, name := range names {
		names[i] = regexp.QuoteMeta(name)
	}
	t.re = regexp.MustCompile(`(^|##|[^\w])(` + strings.Join(names, "|") + `)(##|$|[^\w])`)
	return t.re
}

// Expand rewrites every macro invocation in code.
func Expand(code string, t *Table) (string, error) {
	if t == nil || t.Len() == 0 {
		return code, nil
	}
	for range MaxIterations {
		next, name, err := t.replaceFirst(code)
		if err != nil {
			return "", err
		}
		if next == code {
			if name != "" {
				return "", fmt.Errorf("%w expanding %s", ErrRecursion, name)
			}
			return next, nil
		}
		code = next
	}
	return "", fmt.Errorf("%w: more than %d substitutions", ErrRecursion, MaxIterations)
}

// replaceFirst substitutes the leftmost invocation. name is empty when
// there was none.
func (t *Table) replaceFirst(code string) (string, string, error) {
	m := t.invocation().FindStringSubmatchIndex(code)
	if m == nil {
		return code, "", nil
	}
	before := code[m[2]:m[3]]
	name := code[m[4]:m[5]]
	after := code[m[6]:m[7]]
	end := m[1]
	def := t.defs[name]

	var result string
	if def.Params == nil {
		result = def.Body()
		if after != "##" {
			result += after
		}
	} else {
		args, argsEnd, ok := callArgs(code, m[6], after)
		if !ok || len(args) != len(def.Params) {
			return "", name, fmt.Errorf("%w for macro %s: expected %d, got %d",
				ErrArgCount, name, len(def.Params), len(args))
		}
		values := make(map[string]string, len(args))
		for i, p := range def.Params {
			values[p] = args[i]
		}
		result = substitute(def.Body(), values)
		end = argsEnd
	}
	if before != "##" {
		result = before + result
	}
	return code[:m[0]] + result + code[end:], name, nil
}

// callArgs reads the argument list starting at code[open]. Arguments are
// split on commas outside nested parentheses and string or character
// literals, and trimmed; "()" has none.
func callArgs(code string, open int, after string) ([]string, int, bool) {
	if after != "(" {
		return nil, 0, false
	}
	depth := 0
	start := open + 1
	var args []string
	for i := open; i < len(code); i++ {
		switch code[i] {
		case '"', '\'':
			// An unclosed quote is an ordinary character.
			if end := skipQuoted(code, i); end >= 0 {
				i = end
			}
		case '(':
			depth++
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(code[start:i]))
				start = i + 1
			}
		case ')':
			depth--
			if depth == 0 {
				last := strings.TrimSpace(code[start:i])
				if len(args) > 0 || last != "" {
					args = append(args, last)
				}
				return args, i + 1, true
			}
		}
	}
	return nil, 0, false
}

// skipQuoted returns the index of the quote closing the literal that
// starts at code[i], or -1 if it is not closed.
func skipQuoted(code string, i int) int {
	quote := code[i]
	for j := i + 1; j < len(code); j++ {
		switch code[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return -1
}

// substitute replaces parameter names in body with their values in a
// single pass. A "##" next to a parameter is removed, pasting the value
// onto its neighbour.
func substitute(body string, values map[string]string) string {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); {
		if !isIdentStart(body[i]) || (i > 0 && isIdentPart(body[i-1])) {
			out = append(out, body[i])
			i++
			continue
		}
		j := i + 1
		for j < len(body) && isIdentPart(body[j]) {
			j++
		}
		word := body[i:j]
		value, ok := values[word]
		if !ok {
			out = append(out, word...)
			i = j
			continue
		}
		if n := len(out); n >= 2 && out[n-1] == '#' && out[n-2] == '#' {
			out = out[:n-2]
		}
		out = append(out, value...)
		i = j
		if strings.HasPrefix(body[i:], "##") {
			i += 2
		}
	}
	return string(out)
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
