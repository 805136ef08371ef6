package generator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// NewlineToken stands in for the line breaks of a flattened multi-line
// comment. merge.Render turns it back into newlines.
const NewlineToken = " <ppmerge: REPLACE WITH NEWLINE!> "

// Postprocess prepares generated text for merging. It adds the banner
// comment, normalises the tool's own header line with header, strips
// trailing whitespace and turns every multi-line "/* " comment into a
// single line.
func Postprocess(raw, banner string, header *regexp.Regexp) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/* %s */\n", banner)
	if raw == "" {
		return b.String()
	}

	lines := strings.SplitAfter(raw, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	first := lines[0]
	if m := matchHeader(header, strings.TrimSpace(first)); m != "" {
		fmt.Fprintf(&b, "/* %s */\n", m)
	} else {
		b.WriteString(first)
		if !strings.HasSuffix(first, "\n") {
			b.WriteByte('\n')
		}
	}

	inComment := false
	for _, line := range lines[1:] {
		if text, ok := strings.CutSuffix(line, "\n"); ok {
			line = strings.TrimRightFunc(text, unicode.IsSpace) + "\n"
		}
		switch {
		case inComment && strings.Contains(line, "*/"):
			inComment = false
			b.WriteString(line)
		case inComment:
			b.WriteString(strings.ReplaceAll(line, "\n", NewlineToken))
		case strings.HasPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), "/* ") && !strings.Contains(line, "*/"):
			line = strings.TrimLeftFunc(line, unicode.IsSpace)
			b.WriteString(strings.ReplaceAll(line, "\n", NewlineToken))
			inComment = true
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

func matchHeader(header *regexp.Regexp, line string) string {
	if header == nil {
		return ""
	}
	m := header.FindStringSubmatch(line)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
