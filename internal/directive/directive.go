// Package directive recognises the preprocessor lines ppmerge understands:
// the conditional directives (#if, #ifdef, #else, #endif) and macro
// definitions (#define, with optional parameters and line continuation).
package directive

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies a conditional directive.
type Kind int

const (
	If Kind = iota
	Else
	Endif
)

// String returns the directive keyword.
func (k Kind) String() string {
	switch k {
	case If:
		return "#if"
	case Else:
		return "#else"
	case Endif:
		return "#endif"
	default:
		return "#?"
	}
}

// Directive is a parsed conditional directive. Param is empty for #else
// and #endif. #ifdef NAME is normalised to If with Param "defined(NAME)".
type Directive struct {
	Kind  Kind
	Param string
}

// Any directive may end in a /* ... */ comment, such as the one the
// regenerator writes after #else and #endif. It is not part of Param.
var conditionRe = regexp.MustCompile(`^#(?:(ifdef|if)\s+(.+?)|(else|endif))\s*(?:/\*.*\*/\s*)?$`)

// Match reports whether line is a conditional directive.
// Lines ending in ':' are never directives.
func Match(line string) (Directive, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "#") || strings.HasSuffix(s, ":") {
		return Directive{}, false
	}
	m := conditionRe.FindStringSubmatch(s)
	if m == nil {
		return Directive{}, false
	}
	switch {
	case m[1] == "ifdef":
		return Directive{Kind: If, Param: Defined(strings.TrimSpace(m[2]))}, true
	case m[1] == "if":
		return Directive{Kind: If, Param: strings.TrimSpace(m[2])}, true
	case m[3] == "else":
		return Directive{Kind: Else}, true
	default:
		return Directive{Kind: Endif}, true
	}
}

// Defined returns the condition parameter #ifdef name is equivalent to.
func Defined(name string) string {
	return fmt.Sprintf("defined(%s)", name)
}

// First line of a macro definition.
var defineRe = regexp.MustCompile(`^#define\s+([a-zA-Z_]\w*)(\((?:[^,)]+,)*[^,)]+\))?\s+(.*)$`)

// Define is the head line of a #define.
type Define struct {
	Name string
	// Params is the raw parenthesised parameter list, or "" for a
	// parameter-less macro.
	Params string
	Body   string
	// Continued is set when the body ends with a backslash and the
	// following raw lines belong to it.
	Continued bool
}

// ParseDefine parses a stripped #define line. A #define without a body
// does not match.
func ParseDefine(line string) (Define, bool) {
	m := defineRe.FindStringSubmatch(line)
	if m == nil {
		return Define{}, false
	}
	body, more := trimContinuation(strings.TrimSpace(m[3]))
	return Define{Name: m[1], Params: m[2], Body: body, Continued: more}, true
}

// Continuation returns the body text carried by a raw continuation line
// and whether the definition continues past it.
func Continuation(raw string) (string, bool) {
	return trimContinuation(strings.TrimRight(raw, " \t\r\n"))
}

func trimContinuation(s string) (string, bool) {
	if !strings.HasSuffix(s, `\`) {
		return s, false
	}
	return strings.TrimRight(s[:len(s)-1], " \t"), true
}
