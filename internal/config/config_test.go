package config

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		// Lowercase
		{"debug lowercase", "debug", slog.LevelDebug},
		{"info lowercase", "info", slog.LevelInfo},
		{"warn lowercase", "warn", slog.LevelWarn},
		{"warning lowercase", "warning", slog.LevelWarn},
		{"error lowercase", "error", slog.LevelError},

		// Uppercase
		{"DEBUG uppercase", "DEBUG", slog.LevelDebug},
		{"INFO uppercase", "INFO", slog.LevelInfo},
		{"WARNING uppercase", "WARNING", slog.LevelWarn},

		// Abbreviations
		{"dbg abbrev", "dbg", slog.LevelDebug},
		{"inf abbrev", "inf", slog.LevelInfo},

		// Unknown
		{"empty string", "", slog.LevelError},
		{"invalid", "invalid", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want slog.Level
	}{
		{"default", Default(), slog.LevelError},
		{"verbose", Config{Verbose: true}, slog.LevelInfo},
		{"debug wins", Config{Verbose: true, Debug: true}, slog.LevelDebug},
		{"log level", Config{LogLevel: "warn"}, slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeneratorArgv(t *testing.T) {
	tests := []struct {
		command string
		want    []string
		wantErr bool
	}{
		{"cython", []string{"cython"}, false},
		{"python -m cython", []string{"python", "-m", "cython"}, false},
		{`"/opt/my tools/cython" --fast-fail`, []string{"/opt/my tools/cython", "--fast-fail"}, false},
		{"", nil, true},
		{`cython "unterminated`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, err := GeneratorConfig{Command: tt.command}.Argv()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Argv() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Argv() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Argv() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Argv()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDerivePaths(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name          string
		input, output string
		want          Paths
		writeRef      bool
	}{
		{
			name:     "defaults",
			input:    "src/core.ppyx",
			want:     Paths{Input: "src/core.ppyx", Output: "src/core.c", Reference: "src/core.pyx"},
			writeRef: true,
		},
		{
			name:     "explicit output",
			input:    "core.ppyx",
			output:   "build/out.c",
			want:     Paths{Input: "core.ppyx", Output: "build/out.c", Reference: "core.pyx"},
			writeRef: true,
		},
		{
			name:     "input is already the reference",
			input:    "core.pyx",
			want:     Paths{Input: "core.pyx", Output: "core.c", Reference: "core.pyx"},
			writeRef: false,
		},
		{
			name:     "output is the reference",
			input:    "core.ppyx",
			output:   "core.pyx",
			want:     Paths{Input: "core.ppyx", Output: "core.pyx", Reference: "core.pyx"},
			writeRef: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DerivePaths(tt.input, tt.output, cfg)
			if err != nil {
				t.Fatalf("DerivePaths() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DerivePaths() = %+v, want %+v", got, tt.want)
			}
			if got.WriteReference() != tt.writeRef {
				t.Errorf("WriteReference() = %v, want %v", got.WriteReference(), tt.writeRef)
			}
		})
	}

	if _, err := DerivePaths("core.c", "", cfg); err == nil {
		t.Error("expected error when the output would overwrite the input")
	}
}
