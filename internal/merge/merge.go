package merge

import (
	"slices"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/conc/iter"

	"github.com/bimmerbailey/ppmerge/internal/cond"
)

// Merge reduces sources to a single tagged sequence. Sources are merged
// pairwise, taking pairs from the end of the list; the pairs of one round
// run on up to workers goroutines (0 means GOMAXPROCS). Lines that every
// input of a pair shares are kept once with the union of their tags.
//
// While merging, tags are plain sets of configurations, so the result does
// not depend on how sources were paired. They are simplified once at the
// end; a line present under every configuration of the sources becomes
// unconditional.
func Merge(sources [][]Line, workers int) []Line {
	if len(sources) == 0 {
		return nil
	}
	tags := newTagCache()
	work := slices.Clone(sources)

	for len(work) > 1 {
		var pairs [][2][]Line
		for len(work) >= 2 {
			n := len(work)
			pairs = append(pairs, [2][]Line{work[n-1], work[n-2]})
			work = work[:n-2]
		}
		mapper := iter.Mapper[[2][]Line, []Line]{MaxGoroutines: workers}
		merged := mapper.Map(pairs, func(p *[2][]Line) []Line {
			return mergePair(p[0], p[1], tags)
		})
		work = append(work, merged...)
	}
	return tags.finish(work[0], universe(sources, tags))
}

// universe is the set of every configuration the sources carry.
func universe(sources [][]Line, tags *tagCache) cond.Group {
	seen := make(map[string]bool)
	var all cond.Group
	first := true
	for _, src := range sources {
		for _, l := range src {
			key := l.Tags.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			if first {
				all, first = l.Tags.Compact(), false
				continue
			}
			all = tags.union(all, l.Tags)
		}
	}
	return all
}

// mergePair aligns a and b. Equal runs are emitted once; for other runs
// the lines of a come before the lines of b.
func mergePair(a, b []Line, tags *tagCache) []Line {
	m := difflib.NewMatcher(texts(a), texts(b))
	out := make([]Line, 0, max(len(a), len(b)))
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			for k := 0; k < op.I2-op.I1; k++ {
				la, lb := a[op.I1+k], b[op.J1+k]
				out = append(out, Line{Text: la.Text, Tags: tags.union(la.Tags, lb.Tags)})
			}
			continue
		}
		out = append(out, a[op.I1:op.I2]...)
		out = append(out, b[op.J1:op.J2]...)
	}
	return out
}

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// tagCache memoises unions and simplifications. Most lines of a pair
// share the same two tag groups.
type tagCache struct {
	mu     sync.Mutex
	unions map[[2]string]cond.Group
	simple map[string]cond.Group
}

func newTagCache() *tagCache {
	return &tagCache{
		unions: make(map[[2]string]cond.Group),
		simple: make(map[string]cond.Group),
	}
}

// union returns the deduplicated, unsimplified union of a and b.
func (c *tagCache) union(a, b cond.Group) cond.Group {
	key := [2]string{a.Key(), b.Key()}
	c.mu.Lock()
	g, ok := c.unions[key]
	c.mu.Unlock()
	if ok {
		return g
	}
	g = a.Union(b).Compact()
	c.mu.Lock()
	c.unions[key] = g
	c.mu.Unlock()
	return g
}

func (c *tagCache) simplify(g cond.Group) cond.Group {
	key := g.Key()
	c.mu.Lock()
	s, ok := c.simple[key]
	c.mu.Unlock()
	if ok {
		return s
	}
	s = g.Simplify()
	c.mu.Lock()
	c.simple[key] = s
	c.mu.Unlock()
	return s
}

// finish simplifies the tags of merged lines. Lines tagged with all of
// the configurations become unconditional.
func (c *tagCache) finish(lines []Line, all cond.Group) []Line {
	out := slices.Clone(lines)
	for i := range out {
		if out[i].Tags.Equal(all) {
			out[i].Tags = cond.Group{}
			continue
		}
		out[i].Tags = c.simplify(out[i].Tags)
	}
	return out
}
