package cond

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bimmerbailey/ppmerge/internal/directive"
)

func strs(confs []Configuration) []string {
	out := make([]string, len(confs))
	for i, c := range confs {
		out[i] = c.String()
	}
	return out
}

func TestEnumerateSingleCondition(t *testing.T) {
	src := strings.Join([]string{
		"#define GREETING(name) hello name",
		"#if defined(X)",
		"GREETING(world)",
		"#else",
		"GREETING(everyone)",
		"#endif",
	}, "\n")

	got, err := Enumerate("in.ppyx", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	want := []string{"!defined(X)", "defined(X)"}
	if diff := cmp.Diff(want, strs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateNested(t *testing.T) {
	src := strings.Join([]string{
		"#if A",
		"a",
		"#ifdef B",
		"ab",
		"#endif",
		"#else",
		"not a",
		"#endif",
		"always",
	}, "\n")

	got, err := Enumerate("in.ppyx", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	want := []string{
		"!A && !defined(B)",
		"A && !defined(B)",
		"A && defined(B)",
	}
	if diff := cmp.Diff(want, strs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	for _, c := range got {
		if c.IsImpossible() {
			t.Errorf("impossible configuration %v enumerated", c)
		}
	}
}

func TestEnumerateIndependentConditions(t *testing.T) {
	src := strings.Join([]string{
		"#if A",
		"a",
		"#endif",
		"#if B",
		"b",
		"#else",
		"not b",
		"#endif",
	}, "\n")

	got, err := Enumerate("in.ppyx", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	// {A}, {B}, {!B}, {A,B}, {A,!B}; completing {B} and {!B} with !A
	// gives four distinct configurations.
	want := []string{
		"!A && !B",
		"!A && B",
		"A && !B",
		"A && B",
	}
	if diff := cmp.Diff(want, strs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateCompletionCollapses(t *testing.T) {
	// Without #else, !A is never observed: completion turns {B} into
	// {!A, B} and nothing else produces it.
	src := "#if A\na\n#endif\n#if B\nb\n#endif\n"
	got, err := Enumerate("in.ppyx", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	want := []string{"!A && B", "A && !B", "A && B"}
	if diff := cmp.Diff(want, strs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateNoConditions(t *testing.T) {
	got, err := Enumerate("in.ppyx", strings.NewReader("a\nb\n"))
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no configurations, got %v", got)
	}
}

func TestObserveErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"stray else", "a\n#else\n", `in.ppyx:2: unexpected "#else"`},
		{"stray endif", "#endif\n", `in.ppyx:1: unexpected "#endif"`},
		{"double else", "#if A\n#else\n#else\n#endif\n", `in.ppyx:3: duplicate "#else" for "A"`},
		{"unterminated", "x\n#if A\n#if B\n#endif\n", `in.ppyx:2: unterminated "#if"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Observe("in.ppyx", strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			var se *directive.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *directive.SyntaxError, got %T", err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	got := Names([]Configuration{
		conf(c("B", true)),
		conf(c("A", false), c("B", false)),
	})
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
