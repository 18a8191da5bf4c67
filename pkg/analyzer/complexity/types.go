package complexity

import (
	"sort"

	"github.com/whynotshrutz/helix/pkg/parser"
)

// FunctionMetric is the measured view of one extracted definition. Every
// definition yields exactly one metric; none are dropped.
type FunctionMetric struct {
	Name         string         `json:"name" toon:"name"`
	Kind         parser.DefKind `json:"kind" toon:"kind"`
	File         string         `json:"file" toon:"file"`
	StartLine    int            `json:"start_line" toon:"start_line"`
	EndLine      int            `json:"end_line" toon:"end_line"`
	Cyclomatic   int            `json:"cyclomatic_complexity" toon:"cyclomatic_complexity"`
	BodyLines    int            `json:"body_line_count" toon:"body_line_count"`
	ParamCount   int            `json:"param_count" toon:"param_count"`
	HasDocstring bool           `json:"has_docstring" toon:"has_docstring"`
	IsComplex    bool           `json:"is_complex" toon:"is_complex"`
}

// Distribution summarizes cyclomatic complexity across all functions.
type Distribution struct {
	Average float64 `json:"average" toon:"average"`
	Median  float64 `json:"median" toon:"median"`
	P90     float64 `json:"p90" toon:"p90"`
	Max     int     `json:"max" toon:"max"`
}

// Result is the metrics stage output. Functions keep catalog order, then
// source order within a file.
type Result struct {
	Functions    []FunctionMetric `json:"functions" toon:"functions"`
	Distribution Distribution     `json:"distribution" toon:"distribution"`
}

// Complex returns the flagged functions ordered by cyclomatic complexity
// descending, ties broken by file then start line.
func (r *Result) Complex() []FunctionMetric {
	var out []FunctionMetric
	for _, fn := range r.Functions {
		if fn.IsComplex {
			out = append(out, fn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cyclomatic != out[j].Cyclomatic {
			return out[i].Cyclomatic > out[j].Cyclomatic
		}
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out
}

// DocstringCoverage returns the documented share of functions in [0, 1].
// Returns 0 when no functions were extracted.
func (r *Result) DocstringCoverage() float64 {
	if len(r.Functions) == 0 {
		return 0
	}
	documented := 0
	for _, fn := range r.Functions {
		if fn.HasDocstring {
			documented++
		}
	}
	return float64(documented) / float64(len(r.Functions))
}
