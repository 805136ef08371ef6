// Package generator runs the external code generator over preprocessed
// variants and caches its output by content hash.
package generator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/singleflight"

	"github.com/bimmerbailey/ppmerge/internal/output"
)

// Options configure a Generator.
type Options struct {
	// Command is the generator executable and its leading arguments.
	Command []string
	// Args follow the include flags; {input} and {output} are replaced
	// with the temporary file paths.
	Args        []string
	IncludeDirs []string
	// HeaderPattern recognises the generator's own first line. Empty
	// disables header normalisation.
	HeaderPattern string

	// InputName and OutputName are relative names used inside the
	// temporary directory. Some generators derive symbol names from them.
	InputName  string
	OutputName string

	Banner string

	// IntermediateDir, when set, receives a copy of every generator input
	// and post-processed output.
	IntermediateDir string
}

// Job is one variant to generate.
type Job struct {
	// Label names the configuration in logs and intermediate files.
	Label string
	Text  string
}

// Output is the post-processed generator output for a Job.
type Output struct {
	Hash string
	Text string
	// Cached is set when the text came from an earlier run.
	Cached bool
}

// Generator runs jobs through a Runner. It is safe for concurrent use.
type Generator struct {
	opts   Options
	header *regexp.Regexp
	runner Runner
	logger *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]string
}

// New validates opts and creates a Generator.
func New(opts Options, runner Runner, logger *slog.Logger) (*Generator, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("generator command is empty")
	}
	for _, name := range []string{opts.InputName, opts.OutputName} {
		if name == "" || filepath.IsAbs(name) {
			return nil, fmt.Errorf("generator file name %q must be relative", name)
		}
	}
	if filepath.Clean(opts.InputName) == filepath.Clean(opts.OutputName) {
		return nil, fmt.Errorf("generator input and output are both %q", opts.InputName)
	}
	var header *regexp.Regexp
	if opts.HeaderPattern != "" {
		var err error
		if header, err = regexp.Compile(opts.HeaderPattern); err != nil {
			return nil, fmt.Errorf("compiling header pattern: %w", err)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		opts:   opts,
		header: header,
		runner: runner,
		logger: logger,
		cache:  make(map[string]string),
	}, nil
}

// Hash returns the hex md5 of text.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Generate runs the generator for job unless text with the same hash was
// already generated. Concurrent jobs with equal text share one run.
func (g *Generator) Generate(ctx context.Context, job Job) (Output, error) {
	hash := Hash(job.Text)
	if text, ok := g.cached(hash); ok {
		g.logger.Info("reusing cached output", "configuration", job.Label, "hash", hash)
		return Output{Hash: hash, Text: text, Cached: true}, nil
	}

	v, err, _ := g.group.Do(hash, func() (any, error) {
		if text, ok := g.cached(hash); ok {
			return text, nil
		}
		text, err := g.run(ctx, hash, job)
		if err != nil {
			return "", err
		}
		g.mu.Lock()
		g.cache[hash] = text
		g.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Hash: hash, Text: v.(string)}, nil
}

func (g *Generator) cached(hash string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	text, ok := g.cache[hash]
	return text, ok
}

func (g *Generator) run(ctx context.Context, hash string, job Job) (string, error) {
	dir, err := os.MkdirTemp("", "ppmerge-")
	if err != nil {
		return "", fmt.Errorf("creating temporary directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, g.opts.InputName)
	out := filepath.Join(dir, g.opts.OutputName)
	for _, p := range []string{input, out} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(input, []byte("# "+g.opts.Banner+"\n"+job.Text), 0o644); err != nil {
		return "", fmt.Errorf("writing generator input: %w", err)
	}

	comment := fmt.Sprintf("%s hash:%s", job.Label, hash)
	if err := g.intermediate(g.opts.InputName, hash, fmt.Sprintf("# %s (%s)\n%s", g.opts.Banner, comment, job.Text)); err != nil {
		return "", err
	}

	argv := g.argv(input, out)
	g.logger.Info("running generator", "command", shellquote.Join(argv...), "configuration", job.Label, "hash", hash)
	if err := g.runner.Run(ctx, argv); err != nil {
		re := newRunError(argv, err)
		g.logger.Error("generator failed",
			"command", shellquote.Join(argv...),
			"path", re.Path,
			"bin", re.BinDir,
			"files", strings.Join(re.BinFiles, " "))
		return "", re
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("reading generator output: %w", err)
	}
	text := Postprocess(string(raw), g.opts.Banner, g.header)
	if err := g.intermediate(g.opts.OutputName, hash, text); err != nil {
		return "", err
	}
	g.logger.Debug("generator done", "configuration", job.Label, "bytes", len(text))
	return text, nil
}

func (g *Generator) argv(input, out string) []string {
	r := strings.NewReplacer("{input}", input, "{output}", out)
	argv := append([]string(nil), g.opts.Command...)
	for _, dir := range g.opts.IncludeDirs {
		argv = append(argv, "-I", dir)
	}
	for _, a := range g.opts.Args {
		argv = append(argv, r.Replace(a))
	}
	return argv
}

func (g *Generator) intermediate(name, hash, data string) error {
	if g.opts.IntermediateDir == "" {
		return nil
	}
	path := filepath.Join(g.opts.IntermediateDir, fmt.Sprintf("%s.%s.deb", filepath.Base(name), hash[:8]))
	if err := output.AtomicWrite(path, []byte(data)); err != nil {
		return fmt.Errorf("writing intermediate file: %w", err)
	}
	g.logger.Debug("wrote intermediate file", "path", path)
	return nil
}
