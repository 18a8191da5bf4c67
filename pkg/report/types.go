// Package report assembles the per-file analysis results into the final
// aggregate. The report is built once per run, never mutated afterwards, and
// contains no timestamps or other run-varying values: the same input tree
// and configuration always serialize to the same bytes.
package report

import (
	"github.com/whynotshrutz/helix/pkg/analyzer/complexity"
	"github.com/whynotshrutz/helix/pkg/analyzer/graph"
	"github.com/whynotshrutz/helix/pkg/analyzer/vulnscan"
	"github.com/whynotshrutz/helix/pkg/source"
)

// SeverityCounts breaks findings down by severity.
type SeverityCounts struct {
	Critical int `json:"critical" toon:"critical"`
	High     int `json:"high" toon:"high"`
	Medium   int `json:"medium" toon:"medium"`
	Low      int `json:"low" toon:"low"`
}

// LanguageCount is one row of the language histogram, sorted by language
// name so the histogram serializes identically across runs.
type LanguageCount struct {
	Language string `json:"language" toon:"language"`
	Files    int    `json:"files" toon:"files"`
}

// Summary carries the aggregate counts and derived statistics.
type Summary struct {
	TotalFiles        int     `json:"total_files" toon:"total_files"`
	FilesFailed       int     `json:"files_failed" toon:"files_failed"`
	FilesPartial      int     `json:"files_partial" toon:"files_partial"`
	Truncated         bool    `json:"truncated" toon:"truncated"`
	TotalImports      int     `json:"total_imports" toon:"total_imports"`
	UnresolvedImports int     `json:"unresolved_imports" toon:"unresolved_imports"`
	TotalDefinitions  int     `json:"total_definitions" toon:"total_definitions"`
	TotalFindings     int     `json:"total_findings" toon:"total_findings"`
	CycleCount        int     `json:"cycle_count" toon:"cycle_count"`
	UnusedImports     int     `json:"unused_imports" toon:"unused_imports"`
	ComplexFunctions  int     `json:"complex_functions" toon:"complex_functions"`
	RulesSkipped      int     `json:"rules_skipped" toon:"rules_skipped"`
	AvgFileLines      float64 `json:"avg_file_lines" toon:"avg_file_lines"`
	AvgImportsPerFile float64 `json:"avg_imports_per_file" toon:"avg_imports_per_file"`
	DocstringCoverage float64 `json:"docstring_coverage" toon:"docstring_coverage"`

	FindingsBySeverity SeverityCounts          `json:"findings_by_severity" toon:"findings_by_severity"`
	Languages          []LanguageCount         `json:"languages" toon:"languages"`
	Complexity         complexity.Distribution `json:"complexity" toon:"complexity"`

	// InputDigest hashes the sorted per-file content digests. Two runs over
	// identical trees share a digest even when file order differed on disk.
	InputDigest string `json:"input_digest" toon:"input_digest"`
}

// DegradedFile records a file that did not parse cleanly.
type DegradedFile struct {
	Path   string             `json:"path" toon:"path"`
	Status source.ParseStatus `json:"status" toon:"status"`
	Reason string             `json:"reason,omitempty" toon:"reason,omitempty"`
}

// Recommendation is one actionable suggestion. The text is static per rule;
// threshold logic lives in the builder's rule table.
type Recommendation struct {
	Title       string `json:"title" toon:"title"`
	Description string `json:"description" toon:"description"`
}

// Report is the terminal aggregate for one analysis run. All lists are
// complete and deterministically sorted; any top-N truncation belongs to the
// presentation layer.
type Report struct {
	Summary           Summary                     `json:"summary" toon:"summary"`
	Findings          []vulnscan.Finding          `json:"findings" toon:"findings"`
	Cycles            []graph.Cycle               `json:"cycles" toon:"cycles"`
	UnusedImports     []graph.UnusedImport        `json:"unused_imports" toon:"unused_imports"`
	UnresolvedImports []graph.UnresolvedImport    `json:"unresolved_imports" toon:"unresolved_imports"`
	ComplexFunctions  []complexity.FunctionMetric `json:"complex_functions" toon:"complex_functions"`
	DegradedFiles     []DegradedFile              `json:"degraded_files" toon:"degraded_files"`
	Graph             graph.Metrics               `json:"graph" toon:"graph"`
	Recommendations   []Recommendation            `json:"recommendations" toon:"recommendations"`
}
