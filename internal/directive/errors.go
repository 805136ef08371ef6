package directive

import (
	"errors"
	"fmt"
)

// SyntaxError is a fatal error tied to a position in the input file.
// Line is 1-based.
type SyntaxError struct {
	File string
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Errorf builds a SyntaxError for file:line.
func Errorf(file string, line int, format string, args ...any) error {
	return &SyntaxError{File: file, Line: line, Err: fmt.Errorf(format, args...)}
}

// At attaches file:line to err unless it already carries a position.
func At(file string, line int, err error) error {
	if err == nil {
		return nil
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return &SyntaxError{File: file, Line: line, Err: err}
}
