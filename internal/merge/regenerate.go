package merge

import (
	"strings"

	"github.com/bimmerbailey/ppmerge/internal/cond"
	"github.com/bimmerbailey/ppmerge/internal/generator"
)

// Regenerate wraps runs of lines with equal tags in conditional
// directives. A run whose tags are the exact complement of the previous
// run continues the same block with #else.
func Regenerate(lines []Line) []string {
	out := make([]string, 0, len(lines))
	var state cond.Group
	for _, l := range lines {
		if !l.Tags.Equal(state) {
			if l.Tags.ExactReverse(state) {
				out = append(out, "#else /* "+state.String()+" */")
			} else {
				if !state.IsUnconditional() {
					out = append(out, "#endif /* "+state.String()+" */")
				}
				if !l.Tags.IsUnconditional() {
					out = append(out, "#if "+l.Tags.String())
				}
			}
			state = l.Tags
		}
		out = append(out, l.Text)
	}
	if !state.IsUnconditional() {
		out = append(out, "#endif /* "+state.String()+" */")
	}
	return out
}

// Render regenerates the directives and returns the final text, with
// flattened comments restored to multiple lines.
func Render(lines []Line) string {
	regenerated := Regenerate(lines)
	if len(regenerated) == 0 {
		return ""
	}
	text := strings.Join(regenerated, "\n") + "\n"
	return strings.ReplaceAll(text, generator.NewlineToken, "\n")
}
