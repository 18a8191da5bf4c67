// Package complexity derives per-function metrics from definitions
// extracted at parse time. Branch counting already happened in the
// adapters, so this stage never re-walks a syntax tree.
package complexity

import (
	"context"
	"sort"

	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/parser"
	"github.com/whynotshrutz/helix/pkg/stats"
)

// Default thresholds above which a function is flagged as complex.
const (
	DefaultCyclomaticThreshold = 10
	DefaultMaxFunctionLines    = 50
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Result] = (*Analyzer)(nil)

// Analyzer computes cyclomatic complexity and length metrics.
type Analyzer struct {
	cyclomaticThreshold int
	maxFunctionLines    int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithComplexityThreshold sets the cyclomatic complexity at or above which
// a function is flagged. Values below one keep the default.
func WithComplexityThreshold(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.cyclomaticThreshold = n
		}
	}
}

// WithMaxFunctionLines sets the body line count at or above which a
// function is flagged. Values below one keep the default.
func WithMaxFunctionLines(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxFunctionLines = n
		}
	}
}

// New creates a new complexity analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		cyclomaticThreshold: DefaultCyclomaticThreshold,
		maxFunctionLines:    DefaultMaxFunctionLines,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze derives one metric per definition across all files.
func (a *Analyzer) Analyze(ctx context.Context, files []*analyzer.ParsedFile) (*Result, error) {
	res := &Result{}
	for _, pf := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for _, def := range pf.Syntax.Definitions {
			res.Functions = append(res.Functions, a.metricFor(pf.File.Path, def))
		}
	}
	res.Distribution = distribution(res.Functions)
	return res, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

func (a *Analyzer) metricFor(path string, def parser.Definition) FunctionMetric {
	cyclomatic := 1 + def.BranchCount
	lines := def.BodyLineCount()
	return FunctionMetric{
		Name:         def.Name,
		Kind:         def.Kind,
		File:         path,
		StartLine:    def.StartLine,
		EndLine:      def.EndLine,
		Cyclomatic:   cyclomatic,
		BodyLines:    lines,
		ParamCount:   def.ParamCount,
		HasDocstring: def.HasDocstring,
		IsComplex:    cyclomatic >= a.cyclomaticThreshold || lines >= a.maxFunctionLines,
	}
}

func distribution(functions []FunctionMetric) Distribution {
	if len(functions) == 0 {
		return Distribution{}
	}
	values := make([]float64, 0, len(functions))
	for _, fn := range functions {
		values = append(values, float64(fn.Cyclomatic))
	}
	sort.Float64s(values)
	return Distribution{
		Average: stats.Mean(values),
		Median:  stats.Percentile(values, 50),
		P90:     stats.Percentile(values, 90),
		Max:     int(stats.Max(values)),
	}
}
