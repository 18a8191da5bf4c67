// Package semantic is the engine facade: it wires the source catalog, the
// parse stage, and the analyzers into a single Analyze call that returns a
// self-contained report. The engine holds no state between runs and performs
// no writes; every run is a pure function of the directory snapshot and the
// configured options.
package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/whynotshrutz/helix/internal/fileproc"
	"github.com/whynotshrutz/helix/internal/scanner"
	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/analyzer/complexity"
	"github.com/whynotshrutz/helix/pkg/analyzer/graph"
	"github.com/whynotshrutz/helix/pkg/analyzer/vulnscan"
	"github.com/whynotshrutz/helix/pkg/report"
)

// DefaultFileTimeout bounds a single file's parse.
const DefaultFileTimeout = 5 * time.Second

// Option configures an Analyzer.
type Option func(*options)

type options struct {
	include     []string
	excludeDirs []string
	gitignore   bool
	maxFiles    int
	maxFileSize int64
	complexity  []complexity.Option
	concurrency int
	fileTimeout time.Duration
}

// WithIncludePatterns restricts the catalog to files matching the given
// doublestar globs. Default: every recognized source extension.
func WithIncludePatterns(globs ...string) Option {
	return func(o *options) { o.include = append(o.include, globs...) }
}

// WithExcludeDirs replaces the default excluded directory names.
func WithExcludeDirs(names ...string) Option {
	return func(o *options) { o.excludeDirs = append([]string{}, names...) }
}

// WithGitignore enables .gitignore-based exclusion when the root sits in a
// git work tree.
func WithGitignore() Option {
	return func(o *options) { o.gitignore = true }
}

// WithMaxFiles caps the catalog size. Default 100.
func WithMaxFiles(n int) Option {
	return func(o *options) { o.maxFiles = n }
}

// WithMaxFileSize marks larger files failed without reading them.
// Default 1 MiB.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithComplexityThreshold flags functions at or above the given cyclomatic
// complexity. Default 10.
func WithComplexityThreshold(n int) Option {
	return func(o *options) { o.complexity = append(o.complexity, complexity.WithComplexityThreshold(n)) }
}

// WithMaxFunctionLines flags functions whose body reaches the given line
// count. Default 50.
func WithMaxFunctionLines(n int) Option {
	return func(o *options) { o.complexity = append(o.complexity, complexity.WithMaxFunctionLines(n)) }
}

// WithConcurrency caps parallel file parses. Default NumCPU times two.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithFileTimeout bounds a single file's parse. Zero disables the bound.
// Default 5s.
func WithFileTimeout(d time.Duration) Option {
	return func(o *options) { o.fileTimeout = d }
}

// Analyzer runs the full pipeline. Safe for sequential reuse; one Analyze
// call runs at a time.
type Analyzer struct {
	scanner *scanner.Scanner
	vulns   *vulnscan.Analyzer
	metrics *complexity.Analyzer
	graph   *graph.Analyzer
	workers int
	timeout time.Duration
}

// New builds an Analyzer from the given options.
func New(opts ...Option) (*Analyzer, error) {
	o := options{fileTimeout: DefaultFileTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fileTimeout < 0 {
		return nil, fmt.Errorf("file timeout must not be negative: %v", o.fileTimeout)
	}

	return &Analyzer{
		scanner: scanner.New(scanner.Options{
			Include:     o.include,
			ExcludeDirs: o.excludeDirs,
			Gitignore:   o.gitignore,
			MaxFiles:    o.maxFiles,
			MaxFileSize: o.maxFileSize,
		}),
		vulns:   vulnscan.New(),
		metrics: complexity.New(o.complexity...),
		graph:   graph.New(),
		workers: o.concurrency,
		timeout: o.fileTimeout,
	}, nil
}

// Analyze scans root, parses every catalog file, runs the analyzers, and
// merges their results. A missing or unreadable root is the only hard
// failure besides context cancellation; everything else degrades per file.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*report.Report, error) {
	cat, err := a.scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	if t := analyzer.TrackerFromContext(ctx); t != nil {
		t.SetTotal(len(cat.Files))
	}

	files, err := fileproc.ParseAll(ctx, cat.Files, fileproc.Options{
		Workers:     a.workers,
		FileTimeout: a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("parse stage: %w", err)
	}

	vulns, err := a.vulns.Analyze(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("vulnerability scan: %w", err)
	}
	metrics, err := a.metrics.Analyze(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("complexity metrics: %w", err)
	}
	deps, err := a.graph.Analyze(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("dependency graph: %w", err)
	}

	return report.Build(report.Input{
		Files:      files,
		Truncated:  cat.Truncated,
		Vulns:      vulns,
		Complexity: metrics,
		Graph:      deps,
	}), nil
}

// Close releases analyzer resources. The Analyzer must not be used after.
func (a *Analyzer) Close() {
	a.vulns.Close()
	a.metrics.Close()
	a.graph.Close()
}
