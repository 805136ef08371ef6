package preprocess

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/ppmerge/internal/directive"
	"github.com/bimmerbailey/ppmerge/internal/macro"
)

const maxLineSize = 1024 * 1024

// Evaluator decides whether the parameter of an #if holds.
type Evaluator interface {
	IsTrue(param string) bool
}

type allFalse struct{}

func (allFalse) IsTrue(string) bool { return false }

// AllFalse treats every #if as false.
var AllFalse Evaluator = allFalse{}

// Line is one emitted line and the zero-based number of the source line
// that produced it.
type Line struct {
	Text   string
	Source int
}

// Preprocessor runs the directive stack and macro expansion over one input.
type Preprocessor struct {
	eval     Evaluator
	filename string
	logger   *slog.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithEvaluator sets the conditional policy. A nil evaluator keeps
// conditional directives in the output.
func WithEvaluator(e Evaluator) Option {
	return func(p *Preprocessor) {
		p.eval = e
	}
}

// WithFilename sets the name used in diagnostics.
func WithFilename(name string) Option {
	return func(p *Preprocessor) {
		p.filename = name
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Preprocessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Preprocessor. Without options it runs in passthrough mode.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		filename: "<input>",
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reads the whole input and returns the emitted lines. Macro
// definitions are local to one call.
func (p *Preprocessor) Process(r io.Reader) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	defs := macro.NewTable()
	conds := newCondStack()
	var result []Line
	continuing := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")

		if continuing != "" {
			body, more := directive.Continuation(raw)
			defs.AppendLine(continuing, body)
			if !more {
				continuing = ""
			}
			continue
		}

		stripped := strings.TrimSpace(raw)
		if conds.Active() {
			if d, ok := directive.ParseDefine(stripped); ok {
				if err := p.define(defs, d); err != nil {
					return nil, directive.At(p.filename, lineNo, err)
				}
				if d.Continued {
					continuing = d.Name
				}
				continue
			}
		}

		if p.eval != nil {
			if d, ok := directive.Match(stripped); ok {
				if err := p.conditional(conds, d, lineNo); err != nil {
					return nil, err
				}
				continue
			}
		}

		if !conds.Active() {
			continue
		}
		if strings.HasPrefix(stripped, "#") {
			result = append(result, Line{Text: raw, Source: lineNo - 1})
			continue
		}
		expanded, err := macro.Expand(raw, defs)
		if err != nil {
			return nil, directive.At(p.filename, lineNo, err)
		}
		for _, text := range strings.Split(expanded, "\n") {
			result = append(result, Line{Text: text, Source: lineNo - 1})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if conds.Depth() > 0 {
		return nil, directive.Errorf(p.filename, conds.UnclosedLine(), `unterminated "#if"`)
	}
	return result, nil
}

func (p *Preprocessor) define(defs *macro.Table, d directive.Define) error {
	var params []string
	if d.Params != "" {
		var err error
		if params, err = macro.ParseParams(d.Params); err != nil {
			return err
		}
	}
	defs.Define(d.Name, params, d.Body)
	p.logger.Debug("adding definition", "name", d.Name, "params", params)
	return nil
}

func (p *Preprocessor) conditional(conds *condStack, d directive.Directive, lineNo int) error {
	switch d.Kind {
	case directive.If:
		conds.Push(p.eval.IsTrue(d.Param), lineNo)
	case directive.Else:
		if conds.Depth() == 0 {
			return directive.Errorf(p.filename, lineNo, `unexpected "#else"`)
		}
		if !conds.Else() {
			return directive.Errorf(p.filename, lineNo, `duplicate "#else"`)
		}
	case directive.Endif:
		if conds.Depth() == 0 {
			return directive.Errorf(p.filename, lineNo, `unexpected "#endif"`)
		}
		conds.Pop()
	}
	return nil
}

// ---------------- Conditionals ----------------

type condStack struct {
	stack []condFrame
}

type condFrame struct {
	parentActive bool
	active       bool
	elsed        bool
	line         int
}

func newCondStack() *condStack  { return &condStack{} }
func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Active() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1].active
}

func (c *condStack) Push(cond bool, line int) {
	parent := c.Active()
	c.stack = append(c.stack, condFrame{
		parentActive: parent,
		active:       parent && cond,
		line:         line,
	})
}

// Else flips the innermost frame. It reports false if the frame already
// had an #else.
func (c *condStack) Else() bool {
	top := &c.stack[len(c.stack)-1]
	if top.elsed {
		return false
	}
	top.elsed = true
	top.active = top.parentActive && !top.active
	return true
}

func (c *condStack) Pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *condStack) UnclosedLine() int {
	if len(c.stack) == 0 {
		return 0
	}
	return c.stack[len(c.stack)-1].line
}
