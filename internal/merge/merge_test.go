package merge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimmerbailey/ppmerge/internal/cond"
	"github.com/bimmerbailey/ppmerge/internal/generator"
	"github.com/bimmerbailey/ppmerge/internal/preprocess"
)

func conf(pairs ...any) cond.Configuration {
	var conds []cond.Condition
	for i := 0; i < len(pairs); i += 2 {
		conds = append(conds, cond.Condition{Name: pairs[i].(string), Value: pairs[i+1].(bool)})
	}
	return cond.MustConfiguration(conds...)
}

func group(c cond.Configuration) cond.Group {
	return cond.NewGroup(c)
}

// admits reports whether a line tagged g belongs to the text of c.
func admits(g cond.Group, c cond.Configuration) bool {
	if g.IsUnconditional() {
		return true
	}
	for _, m := range g.Configurations() {
		all := true
		for _, cd := range m.Conditions() {
			if !c.Contains(cd) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func view(lines []Line, c cond.Configuration) []string {
	var out []string
	for _, l := range lines {
		if admits(l.Tags, c) {
			out = append(out, l.Text)
		}
	}
	return out
}

type variant struct {
	conf cond.Configuration
	text string
}

func helloWorld() []variant {
	const h, w = "defined(hello)", "defined(world)"
	return []variant{
		{conf(h, true, w, true), "hello\nworld\n"},
		{conf(h, false, w, true), "goodbye\nworld\n"},
		{conf(h, true, w, false), "hello\neveryone\n"},
		{conf(h, false, w, false), "goodbye\neveryone\n"},
	}
}

func sources(vs []variant) [][]Line {
	out := make([][]Line, len(vs))
	for i, v := range vs {
		out[i] = Attach(v.text, group(v.conf))
	}
	return out
}

func TestAttach(t *testing.T) {
	tags := group(conf("A", true))
	lines := Attach("a\n\nb\n", tags)
	require.Len(t, lines, 3)
	assert.Equal(t, "", lines[1].Text)
	for _, l := range lines {
		assert.True(t, l.Tags.Equal(tags))
	}
	assert.Empty(t, Attach("", tags))
	assert.Len(t, Attach("no newline", tags), 1)
}

func TestLineOperationsKeepTags(t *testing.T) {
	l := Line{Text: "Hello", Tags: group(conf("A", true))}
	for _, got := range []Line{l.Concat("!"), l.Slice(0, 2), l.Upper(), l.Lower(), l.Replace("l", "L")} {
		assert.True(t, got.Tags.Equal(l.Tags), "tags lost for %q", got.Text)
	}
	assert.Equal(t, "Hello!", l.Concat("!").Text)
	assert.Equal(t, "He", l.Slice(0, 2).Text)
	assert.Equal(t, "HELLO", l.Upper().Text)
	assert.Equal(t, "hello", l.Lower().Text)
	assert.Equal(t, "HeLLo", l.Replace("l", "L").Text)
	assert.Equal(t, "Hello", l.String())
}

func TestMergeTwoConfigurations(t *testing.T) {
	x := conf("defined(X)", true)
	notX := conf("defined(X)", false)
	merged := Merge([][]Line{
		Attach("/* banner */\nhello everyone\nint end;\n", group(notX)),
		Attach("/* banner */\nhello world\nint end;\n", group(x)),
	}, 2)

	want := strings.Join([]string{
		"/* banner */",
		"#if (defined(X))",
		"hello world",
		"#else /* (defined(X)) */",
		"hello everyone",
		"#endif /* (!defined(X)) */",
		"int end;",
		"",
	}, "\n")
	assert.Equal(t, want, Render(merged))
}

func TestMergeFourConfigurations(t *testing.T) {
	vs := helloWorld()
	merged := Merge(sources(vs), 0)

	got := make([]string, len(merged))
	for i, l := range merged {
		got[i] = fmt.Sprintf("%s %s", l.Text, l.Tags)
	}
	assert.Equal(t, []string{
		"goodbye (!defined(hello))",
		"hello (defined(hello))",
		"world (defined(world))",
		"everyone (!defined(world))",
	}, got)

	for _, v := range vs {
		assert.Equal(t, strings.Fields(v.text), view(merged, v.conf), "view of %s", v.conf)
	}
}

func TestMergeIndependentOfWorkers(t *testing.T) {
	vs := helloWorld()
	vs = append(vs, variant{conf("defined(hello)", true, "defined(world)", true, "Z", true), "hello\nzzz\nworld\n"})

	serial := Merge(sources(vs), 1)
	parallel := Merge(sources(vs), 8)
	assert.Equal(t, Render(serial), Render(parallel))
}

// tagsOf returns the tags of the first line with each text.
func tagsOf(lines []Line) map[string]string {
	out := make(map[string]string)
	for _, l := range lines {
		if _, ok := out[l.Text]; !ok {
			out[l.Text] = l.Tags.String()
		}
	}
	return out
}

func TestMergeIndependentOfPairing(t *testing.T) {
	pq := group(conf("P", true, "Q", true))
	pNotQ := group(conf("P", true, "Q", false))
	neither := group(conf("P", false, "Q", false))
	a := Attach("x\nA1\ny\n", pq)
	b := Attach("x\nB1\ny\n", pNotQ)
	c := Attach("x\nA1\nz\ny\n", neither)
	all := pq.Union(pNotQ).Union(neither).Compact()

	tags := newTagCache()
	left := tags.finish(mergePair(mergePair(a, b, tags), c, tags), all)
	right := tags.finish(mergePair(a, mergePair(b, c, tags), tags), all)

	l, r := tagsOf(left), tagsOf(right)
	for _, text := range []string{"x", "A1", "B1", "z", "y"} {
		assert.Equal(t, l[text], r[text], "tags of %q", text)
	}
	assert.Equal(t, "", l["x"], "x is shared by every configuration")
	assert.Equal(t, "(!P && !Q)", l["z"])
}

func TestMergeSharedLinesUnconditional(t *testing.T) {
	// Three configurations that do not form a full truth table: the
	// union of all three cannot be simplified to nothing.
	vs := []variant{
		{conf("A", true, "B", true), "start\nab\nend\n"},
		{conf("A", true, "B", false), "start\na\nend\n"},
		{conf("A", false, "C", true), "start\nc\nend\n"},
	}
	merged := Merge(sources(vs), 2)

	got := tagsOf(merged)
	assert.Equal(t, "", got["start"])
	assert.Equal(t, "", got["end"])
	assert.Equal(t, "(A && B)", got["ab"])

	text := Render(merged)
	assert.True(t, strings.HasPrefix(text, "start\n#if "), text)
	assert.True(t, strings.HasSuffix(text, "\nend\n"), text)
}

func TestMergeSingleAndEmpty(t *testing.T) {
	assert.Nil(t, Merge(nil, 4))

	one := Attach("a\nb\n", cond.Group{})
	merged := Merge([][]Line{one}, 4)
	assert.Equal(t, "a\nb\n", Render(merged))
}

func TestMergeRoundTrip(t *testing.T) {
	vs := helloWorld()
	text := Render(Merge(sources(vs), 4))

	for _, v := range vs {
		lines, err := preprocess.New(preprocess.WithEvaluator(v.conf)).Process(strings.NewReader(text))
		require.NoError(t, err, "re-preprocessing under %s", v.conf)

		var got []string
		for _, l := range lines {
			got = append(got, l.Text)
		}
		assert.Equal(t, strings.Fields(v.text), got, "round trip of %s", v.conf)
	}
}

func TestCombine(t *testing.T) {
	a := conf("A", true, "B", false)
	b := conf("A", false, "B", false)
	c := conf("B", true)

	combined, err := Combine([]Variant{
		{Hash: "h1", Lines: Attach("same\ntext\n", group(a))},
		{Hash: "h2", Lines: Attach("other\n", group(c))},
		{Hash: "h1", Lines: Attach("same\ntext\n", group(b))},
	})
	require.NoError(t, err)
	require.Len(t, combined, 2)
	assert.Equal(t, "h1", combined[0].Hash)
	assert.Equal(t, "h2", combined[1].Hash)
	for _, l := range combined[0].Lines {
		assert.Equal(t, 2, l.Tags.Len(), "combined tags stay unsimplified")
	}

	merged := Merge([][]Line{combined[0].Lines, combined[1].Lines}, 2)
	assert.Equal(t, 1, strings.Count(Render(merged), "same\n"))
	require.NotEmpty(t, merged)
	assert.Equal(t, "same", merged[0].Text)
	assert.Equal(t, "(!B)", merged[0].Tags.String())
}

func TestCombineLengthMismatch(t *testing.T) {
	_, err := Combine([]Variant{
		{Hash: "h", Lines: Attach("a\n", group(conf("A", true)))},
		{Hash: "h", Lines: Attach("a\nb\n", group(conf("A", false)))},
	})
	require.ErrorIs(t, err, ErrInvariant)
}

func TestRegenerate(t *testing.T) {
	x := group(conf("X", true))
	notX := group(conf("X", false))
	y := group(conf("Y", true))

	tests := []struct {
		name  string
		lines []Line
		want  []string
	}{
		{
			name:  "unconditional only",
			lines: []Line{{Text: "a"}, {Text: "b"}},
			want:  []string{"a", "b"},
		},
		{
			name:  "block closed at end",
			lines: []Line{{Text: "a"}, {Text: "x", Tags: x}},
			want:  []string{"a", "#if (X)", "x", "#endif /* (X) */"},
		},
		{
			name:  "unrelated blocks",
			lines: []Line{{Text: "x", Tags: x}, {Text: "y", Tags: y}, {Text: "z"}},
			want:  []string{"#if (X)", "x", "#endif /* (X) */", "#if (Y)", "y", "#endif /* (Y) */", "z"},
		},
		{
			name:  "else branch",
			lines: []Line{{Text: "x", Tags: x}, {Text: "not x", Tags: notX}},
			want:  []string{"#if (X)", "x", "#else /* (X) */", "not x", "#endif /* (!X) */"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Regenerate(tt.lines))
		})
	}
}

func TestRenderRestoresComments(t *testing.T) {
	lines := []Line{{Text: "/* first" + generator.NewlineToken + " * second" + generator.NewlineToken + " */"}}
	assert.Equal(t, "/* first\n * second\n */\n", Render(lines))
	assert.Equal(t, "", Render(nil))
}
