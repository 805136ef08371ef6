// Package config provides configuration types and helpers for ppmerge.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Defaults for keys that are not set in the config file, the environment
// or on the command line.
const (
	DefaultFormat        = "text"
	DefaultLogLevel      = "error"
	DefaultOutputExt     = ".c"
	DefaultReferenceExt  = ".pyx"
	DefaultCommand       = "cython"
	DefaultHeaderPattern = `(?i)^/\* (generated by cython [^\s*]+)[^*]+\*/$`
)

// DefaultArgs places the generator input and output on the command line.
var DefaultArgs = []string{"-o", "{output}", "{input}"}

// Config holds the application-wide configuration.
type Config struct {
	Format            string          `mapstructure:"format"`
	Verbose           bool            `mapstructure:"verbose"`
	Debug             bool            `mapstructure:"debug"`
	LogLevel          string          `mapstructure:"log_level"`
	Workers           int             `mapstructure:"workers"`
	OutputExt         string          `mapstructure:"output_ext"`
	ReferenceExt      string          `mapstructure:"reference_ext"`
	WriteIntermediate bool            `mapstructure:"write_intermediate"`
	IntermediateDir   string          `mapstructure:"intermediate_dir"`
	Generator         GeneratorConfig `mapstructure:"generator"`
}

// GeneratorConfig describes the external code generator.
type GeneratorConfig struct {
	// Command is split with shell quoting rules, e.g. "python -m cython".
	Command string `mapstructure:"command"`

	// Args may use the {input} and {output} placeholders.
	Args []string `mapstructure:"args"`

	// IncludeDirs are passed as -I <dir> before Args.
	IncludeDirs []string `mapstructure:"include_dirs"`

	// HeaderPattern matches the first line of generated output. Its first
	// group replaces that line so that timestamps do not differ between runs.
	HeaderPattern string `mapstructure:"header_pattern"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format:       DefaultFormat,
		LogLevel:     DefaultLogLevel,
		Workers:      runtime.NumCPU(),
		OutputExt:    DefaultOutputExt,
		ReferenceExt: DefaultReferenceExt,
		Generator: GeneratorConfig{
			Command:       DefaultCommand,
			Args:          append([]string(nil), DefaultArgs...),
			HeaderPattern: DefaultHeaderPattern,
		},
	}
}

// Level returns the slog level. --debug and --verbose win over log_level.
func (c Config) Level() slog.Level {
	switch {
	case c.Debug:
		return slog.LevelDebug
	case c.Verbose:
		return slog.LevelInfo
	default:
		return ParseLevel(c.LogLevel)
	}
}

// ParseLevel converts a string to a slog level. Unknown names give
// slog.LevelError.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "info", "inf":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Argv splits the generator command.
func (g GeneratorConfig) Argv() ([]string, error) {
	argv, err := shellquote.Split(g.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing generator command %q: %w", g.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("generator command is empty")
	}
	return argv, nil
}

// Paths are the files involved in processing one input.
type Paths struct {
	Input string
	// Output receives the merged result.
	Output string
	// Reference receives the macro-expanded input with directives kept. Its
	// base name is also the name the generator sees as its input.
	Reference string
}

// WriteReference reports whether the reference text gets its own file.
func (p Paths) WriteReference() bool {
	return p.Reference != p.Input && p.Reference != p.Output
}

// DerivePaths computes the paths for input. An empty output selects the
// input path with its extension replaced by OutputExt.
func DerivePaths(input, output string, cfg Config) (Paths, error) {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if output == "" {
		output = base + cfg.OutputExt
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return Paths{}, fmt.Errorf("output %q would overwrite the input", output)
	}
	return Paths{
		Input:     input,
		Output:    output,
		Reference: base + cfg.ReferenceExt,
	}, nil
}
