package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Runner executes a generator command line.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// ExecRunner runs the command as a child process. Nil writers discard the
// child's output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// RunError reports a failed generator run together with the environment
// that was used to find the executable.
type RunError struct {
	Argv     []string
	Path     string
	BinDir   string
	BinFiles []string
	Err      error
}

func newRunError(argv []string, err error) *RunError {
	e := &RunError{Argv: argv, Path: os.Getenv("PATH"), Err: err}
	if exe, xerr := os.Executable(); xerr == nil {
		e.BinDir = filepath.Dir(exe)
		if entries, rerr := os.ReadDir(e.BinDir); rerr == nil {
			for _, entry := range entries {
				e.BinFiles = append(e.BinFiles, entry.Name())
			}
		}
	}
	return e
}

func (e *RunError) Error() string {
	return fmt.Sprintf("running %s: %v", shellquote.Join(e.Argv...), e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Details lists the search path and the contents of the directory of the
// running executable.
func (e *RunError) Details() []string {
	details := []string{"PATH: " + e.Path}
	if e.BinDir != "" {
		details = append(details, fmt.Sprintf("Bin: %s files: %s", e.BinDir, strings.Join(e.BinFiles, " ")))
	}
	return details
}
