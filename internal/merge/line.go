// Package merge combines the generated text of many configurations into a
// single text whose lines carry the configurations they belong to, and
// renders that text back with #if/#else/#endif blocks.
package merge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bimmerbailey/ppmerge/internal/cond"
)

// ErrInvariant reports inputs that break an assumption of the merge, such
// as two variants with the same hash but different lengths.
var ErrInvariant = errors.New("merge invariant violated")

// Line is a line of text valid under Tags. The string operations keep the
// tags.
type Line struct {
	Text string
	Tags cond.Group
}

func (l Line) Concat(s string) Line { return Line{Text: l.Text + s, Tags: l.Tags} }
func (l Line) Slice(i, j int) Line { return Line{Text: l.Text[i:j], Tags: l.Tags} }
func (l Line) Upper() Line { return Line{Text: strings.ToUpper(l.Text), Tags: l.Tags} }
func (l Line) Lower() Line { return Line{Text: strings.ToLower(l.Text), Tags: l.Tags} }
func (l Line) Replace(old, new string) Line { return Line{Text: strings.ReplaceAll(l.Text, old, new), Tags: l.Tags} }
func (l Line) String() string { return l.Text }

// Attach splits text into lines tagged with tags. A final newline does
// not start another line.
func Attach(text string, tags cond.Group) []Line {
	if text == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]Line, len(parts))
	for i, p := range parts {
		lines[i] = Line{Text: p, Tags: tags}
	}
	return lines
}

// Variant is the generated text of one or more configurations. Hash
// identifies the generator input.
type Variant struct {
	Hash  string
	Lines []Line
}

// Combine folds variants with equal hashes into one, whose line tags are
// the union of theirs. Tags are left unsimplified for Merge. Variants keep the order in which their
// hash first appears.
func Combine(variants []Variant) ([]Variant, error) {
	index := make(map[string]int, len(variants))
	var out []Variant
	for _, v := range variants {
		i, ok := index[v.Hash]
		if !ok {
			index[v.Hash] = len(out)
			out = append(out, Variant{Hash: v.Hash, Lines: slices.Clone(v.Lines)})
			continue
		}
		prev := out[i].Lines
		if len(prev) != len(v.Lines) {
			return nil, fmt.Errorf("%w: variants with hash %s have %d and %d lines",
				ErrInvariant, v.Hash, len(prev), len(v.Lines))
		}
		for j := range prev {
			prev[j].Tags = prev[j].Tags.Union(v.Lines[j].Tags).Compact()
		}
	}
	return out, nil
}
