package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bimmerbailey/ppmerge/internal/directive"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w any) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// ColorizeLine applies color to an entire line based on a severity.
func ColorizeLine(level slog.Level, line string) string {
	switch {
	case level < slog.LevelInfo:
		return colorGray + line + colorReset
	case level < slog.LevelWarn:
		return line
	case level < slog.LevelError:
		return colorYellow + line + colorReset
	default:
		return colorRed + line + colorReset
	}
}

// detailer is implemented by errors that carry extra diagnostic lines.
type detailer interface {
	Details() []string
}

// FormatDiagnostic renders err for the terminal. A source position is
// printed in bold ahead of the message; extra details follow on their own
// lines.
func FormatDiagnostic(err error, colorize bool) string {
	var b strings.Builder

	var se *directive.SyntaxError
	if errors.As(err, &se) {
		loc := fmt.Sprintf("%s:%d:", se.File, se.Line)
		msg := se.Err.Error()
		if colorize {
			loc = colorBold + loc + colorReset
			msg = ColorizeLine(slog.LevelError, msg)
		}
		fmt.Fprintf(&b, "%s %s\n", loc, msg)
	} else {
		msg := err.Error()
		if colorize {
			msg = ColorizeLine(slog.LevelError, msg)
		}
		fmt.Fprintf(&b, "%s\n", msg)
	}

	var d detailer
	if errors.As(err, &d) {
		for _, line := range d.Details() {
			if colorize {
				line = ColorizeLine(slog.LevelDebug, line)
			}
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

// WriteDiagnostic writes err to w, colored according to mode.
func WriteDiagnostic(w io.Writer, err error, mode ColorMode) error {
	_, werr := io.WriteString(w, FormatDiagnostic(err, shouldColorize(mode, w)))
	return werr
}
