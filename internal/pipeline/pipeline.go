// Package pipeline runs one input file through enumeration, preprocessing,
// generation and merging, and writes the results.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bimmerbailey/ppmerge/internal/cond"
	"github.com/bimmerbailey/ppmerge/internal/config"
	"github.com/bimmerbailey/ppmerge/internal/generator"
	"github.com/bimmerbailey/ppmerge/internal/merge"
	"github.com/bimmerbailey/ppmerge/internal/output"
	"github.com/bimmerbailey/ppmerge/internal/preprocess"
)

// referenceKey marks the passthrough sequence among the aligned ones.
const referenceKey = -1

// Options configure a run.
type Options struct {
	Config config.Config
	Runner generator.Runner
	Logger *slog.Logger
	// Now stamps the banner. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Result describes a finished run.
type Result struct {
	Paths          config.Paths
	Configurations []cond.Configuration
	// Variants is the number of distinct generator inputs.
	Variants int
	Text     string
	// Hash is the md5 of the merged text after its four header lines.
	Hash string
}

type job struct {
	label string
	tags  cond.Group
	eval  preprocess.Evaluator
}

// Process runs the whole pipeline for paths.Input. Nothing is written
// unless every stage succeeds.
func Process(ctx context.Context, paths config.Paths, opts Options) (*Result, error) {
	logger := opts.logger()
	src, err := os.ReadFile(paths.Input)
	if err != nil {
		return nil, err
	}

	confs, err := cond.Enumerate(paths.Input, bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	logger.Info("enumerated configurations", "file", paths.Input, "count", len(confs))

	jobs := make([]job, len(confs))
	for i, c := range confs {
		jobs[i] = job{label: c.String(), tags: cond.NewGroup(c), eval: c}
	}
	if len(jobs) == 0 {
		jobs = []job{{label: "unconditional", eval: preprocess.AllFalse}}
	}

	aligned, err := preprocessAll(paths.Input, src, jobs, opts.Config.Workers, logger)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	banner := fmt.Sprintf("Generated by ppmerge on %s", now().Format(time.DateTime))

	gen, err := newGenerator(paths, banner, opts, logger)
	if err != nil {
		return nil, err
	}
	variants, err := generateAll(ctx, gen, jobs, aligned, opts.Config.Workers)
	if err != nil {
		return nil, err
	}

	combined, err := merge.Combine(variants)
	if err != nil {
		return nil, err
	}
	sources := make([][]merge.Line, len(combined))
	for i, v := range combined {
		sources[i] = v.Lines
	}
	logger.Info("merging", "variants", len(sources))
	text := merge.Render(merge.Merge(sources, opts.Config.Workers))

	res := &Result{
		Paths:          paths,
		Configurations: confs,
		Variants:       len(combined),
		Text:           text,
		Hash:           bodyHash(text),
	}
	if err := output.AtomicWrite(paths.Output, []byte(text)); err != nil {
		return nil, err
	}
	logger.Info("wrote file", "path", paths.Output, "bytes", len(text), "hash", res.Hash)

	if paths.WriteReference() {
		ref := "# " + banner + "\n" + preprocess.Text(aligned[referenceKey])
		if err := output.AtomicWrite(paths.Reference, []byte(ref)); err != nil {
			return nil, err
		}
		logger.Info("wrote file", "path", paths.Reference, "bytes", len(ref))
	}
	return res, nil
}

// preprocessAll runs every job and the passthrough reference, then aligns
// the results. The reference is stored under referenceKey.
func preprocessAll(file string, src []byte, jobs []job, workers int, logger *slog.Logger) (map[int][]preprocess.Line, error) {
	results := make([][]preprocess.Line, len(jobs)+1)
	var g errgroup.Group
	g.SetLimit(limit(workers))
	for i := range results {
		g.Go(func() error {
			opts := []preprocess.Option{preprocess.WithFilename(file), preprocess.WithLogger(logger)}
			if i < len(jobs) {
				opts = append(opts, preprocess.WithEvaluator(jobs[i].eval))
			}
			lines, err := preprocess.New(opts...).Process(bytes.NewReader(src))
			if err != nil {
				return err
			}
			results[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seqs := make(map[int][]preprocess.Line, len(results))
	for i := range jobs {
		seqs[i] = results[i]
	}
	seqs[referenceKey] = results[len(jobs)]
	return preprocess.Align(seqs), nil
}

func newGenerator(paths config.Paths, banner string, opts Options, logger *slog.Logger) (*generator.Generator, error) {
	gc := opts.Config.Generator
	argv, err := gc.Argv()
	if err != nil {
		return nil, err
	}
	var dir string
	if opts.Config.WriteIntermediate {
		dir = opts.Config.IntermediateDir
		if dir == "" {
			dir = filepath.Dir(paths.Output)
		}
	}
	runner := opts.Runner
	if runner == nil {
		runner = generator.ExecRunner{Stdout: os.Stderr, Stderr: os.Stderr}
	}
	return generator.New(generator.Options{
		Command:         argv,
		Args:            gc.Args,
		IncludeDirs:     gc.IncludeDirs,
		HeaderPattern:   gc.HeaderPattern,
		InputName:       filepath.Base(paths.Reference),
		OutputName:      filepath.Base(paths.Output),
		Banner:          banner,
		IntermediateDir: dir,
	}, runner, logger)
}

// generateAll runs the generator for every job. The first failure cancels
// the jobs that have not finished.
func generateAll(ctx context.Context, gen *generator.Generator, jobs []job, aligned map[int][]preprocess.Line, workers int) ([]merge.Variant, error) {
	variants := make([]merge.Variant, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers))
	for i, j := range jobs {
		g.Go(func() error {
			out, err := gen.Generate(gctx, generator.Job{Label: j.label, Text: preprocess.Text(aligned[i])})
			if err != nil {
				return fmt.Errorf("generating %s: %w", j.label, err)
			}
			variants[i] = merge.Variant{Hash: out.Hash, Lines: merge.Attach(out.Text, j.tags)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

func limit(workers int) int {
	if workers <= 0 {
		return -1
	}
	return workers
}

func bodyHash(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 4 {
		return generator.Hash("")
	}
	return generator.Hash(strings.Join(lines[4:], ""))
}

// ListConditions returns the condition names used by the input's
// conditional directives.
func ListConditions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	observed, err := cond.Observe(path, f)
	if err != nil {
		return nil, err
	}
	return cond.Names(observed), nil
}

// ListConfigurations returns the complete configurations of the input.
func ListConfigurations(path string) ([]cond.Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cond.Enumerate(path, f)
}

// ExpandOnly writes the input to w with macros expanded and every
// conditional branch treated as false.
func ExpandOnly(path string, w io.Writer, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	lines, err := preprocess.New(
		preprocess.WithFilename(path),
		preprocess.WithEvaluator(preprocess.AllFalse),
		preprocess.WithLogger(logger),
	).Process(f)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, preprocess.Text(lines))
	return err
}
