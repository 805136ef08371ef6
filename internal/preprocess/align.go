package preprocess

import "strings"

// Padding is the Source of blank lines inserted by Align.
const Padding = -1

// Align pads the sequences with blank lines so that lines coming from the
// same source line sit on the same row in every sequence. All returned
// sequences have the same length.
func Align[K comparable](seqs map[K][]Line) map[K][]Line {
	out := make(map[K][]Line, len(seqs))
	pos := make(map[K]int, len(seqs))
	for k := range seqs {
		out[k] = []Line{}
	}

	for {
		next, found := 0, false
		for k, lines := range seqs {
			if i := pos[k]; i < len(lines) && (!found || lines[i].Source < next) {
				next, found = lines[i].Source, true
			}
		}
		if !found {
			break
		}

		rows := 0
		for k, lines := range seqs {
			for pos[k] < len(lines) && lines[pos[k]].Source <= next {
				out[k] = append(out[k], lines[pos[k]])
				pos[k]++
			}
			rows = max(rows, len(out[k]))
		}
		for k := range seqs {
			for len(out[k]) < rows {
				out[k] = append(out[k], Line{Source: Padding})
			}
		}
	}
	return out
}

// Text joins the lines, each terminated by a newline.
func Text(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
