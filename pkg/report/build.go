package report

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/analyzer/complexity"
	"github.com/whynotshrutz/helix/pkg/analyzer/graph"
	"github.com/whynotshrutz/helix/pkg/analyzer/vulnscan"
	"github.com/whynotshrutz/helix/pkg/source"
)

// Input carries the stage outputs the builder merges. Files keep catalog
// order; the analyzer results are already internally sorted.
type Input struct {
	Files      []*analyzer.ParsedFile
	Truncated  bool
	Vulns      *vulnscan.Result
	Complexity *complexity.Result
	Graph      *graph.Result
}

// AvgFileLinesThreshold is the average file length above which the builder
// recommends splitting files.
const AvgFileLinesThreshold = 400

// recommendationRule maps a summary condition to its static text. Rules are
// evaluated in table order so the recommendation list is stable.
type recommendationRule struct {
	applies func(s *Summary) bool
	rec     Recommendation
}

var recommendationRules = []recommendationRule{
	{
		applies: func(s *Summary) bool { return s.FindingsBySeverity.Critical > 0 },
		rec: Recommendation{
			Title:       "Fix critical vulnerabilities",
			Description: "Critical security issues were found. Address these immediately before deploying to production.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.CycleCount > 0 },
		rec: Recommendation{
			Title:       "Break circular dependencies",
			Description: "Circular dependencies were found. Consider refactoring to break these cycles using dependency injection or moving shared code to a separate module.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.UnusedImports > 10 },
		rec: Recommendation{
			Title:       "Remove unused imports",
			Description: "A large number of unused imports were found. Run a linter to remove them automatically.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.ComplexFunctions > 0 },
		rec: Recommendation{
			Title:       "Decompose complex functions",
			Description: "Consider breaking down functions with high cyclomatic complexity into smaller, more testable units.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.TotalDefinitions > 0 && s.DocstringCoverage < 0.5 },
		rec: Recommendation{
			Title:       "Add missing documentation",
			Description: "Most functions lack docstrings. Add documentation to improve code maintainability.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.TotalFiles > 20 && s.AvgImportsPerFile > 5 },
		rec: Recommendation{
			Title:       "Reduce coupling",
			Description: "High coupling detected across the codebase. Consider applying SOLID principles to reduce the average number of dependencies per file.",
		},
	},
	{
		applies: func(s *Summary) bool { return s.AvgFileLines > AvgFileLinesThreshold },
		rec: Recommendation{
			Title:       "Split long files",
			Description: "Files are long on average. Consider splitting large files into smaller, focused modules.",
		},
	},
}

// Build merges the stage outputs into the final report. Pure: the same
// input always yields a byte-identical serialized report.
func Build(in Input) *Report {
	s := buildSummary(in)

	rep := &Report{
		Summary:           s,
		Findings:          in.Vulns.Findings,
		Cycles:            in.Graph.Cycles,
		UnusedImports:     in.Graph.Unused,
		UnresolvedImports: in.Graph.Unresolved,
		ComplexFunctions:  in.Complexity.Complex(),
		DegradedFiles:     degradedFiles(in.Files),
		Graph:             in.Graph.Metrics,
		Recommendations:   recommend(&s),
	}

	if rep.Findings == nil {
		rep.Findings = []vulnscan.Finding{}
	}
	return rep
}

func buildSummary(in Input) Summary {
	s := Summary{
		TotalFiles:        len(in.Files),
		Truncated:         in.Truncated,
		UnresolvedImports: len(in.Graph.Unresolved),
		TotalFindings:     len(in.Vulns.Findings),
		CycleCount:        len(in.Graph.Cycles),
		UnusedImports:     len(in.Graph.Unused),
		ComplexFunctions:  len(in.Complexity.Complex()),
		RulesSkipped:      in.Vulns.RulesSkipped,
		DocstringCoverage: in.Complexity.DocstringCoverage(),
		Complexity:        in.Complexity.Distribution,
		InputDigest:       inputDigest(in.Files),
	}

	languages := make(map[string]int)
	totalLines := 0
	for _, pf := range in.Files {
		switch pf.File.Status {
		case source.StatusFailed:
			s.FilesFailed++
		case source.StatusPartial:
			s.FilesPartial++
		}
		s.TotalImports += len(pf.Syntax.Imports)
		s.TotalDefinitions += len(pf.Syntax.Definitions)
		totalLines += pf.File.Lines
		languages[pf.File.Language]++
	}
	if len(in.Files) > 0 {
		s.AvgFileLines = float64(totalLines) / float64(len(in.Files))
		s.AvgImportsPerFile = float64(s.TotalImports) / float64(len(in.Files))
	}

	for _, f := range in.Vulns.Findings {
		switch f.Severity {
		case vulnscan.SeverityCritical:
			s.FindingsBySeverity.Critical++
		case vulnscan.SeverityHigh:
			s.FindingsBySeverity.High++
		case vulnscan.SeverityMedium:
			s.FindingsBySeverity.Medium++
		default:
			s.FindingsBySeverity.Low++
		}
	}

	s.Languages = make([]LanguageCount, 0, len(languages))
	for lang, n := range languages {
		s.Languages = append(s.Languages, LanguageCount{Language: lang, Files: n})
	}
	sort.Slice(s.Languages, func(i, j int) bool {
		return s.Languages[i].Language < s.Languages[j].Language
	})

	return s
}

// inputDigest hashes the sorted per-file content digests, making the value
// independent of catalog traversal order.
func inputDigest(files []*analyzer.ParsedFile) string {
	digests := make([]uint64, len(files))
	for i, pf := range files {
		digests[i] = pf.File.Digest
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i] < digests[j] })

	h := xxhash.New()
	var buf [8]byte
	for _, d := range digests {
		binary.BigEndian.PutUint64(buf[:], d)
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func degradedFiles(files []*analyzer.ParsedFile) []DegradedFile {
	var out []DegradedFile
	for _, pf := range files {
		if pf.File.Status == source.StatusOK {
			continue
		}
		out = append(out, DegradedFile{
			Path:   pf.File.Path,
			Status: pf.File.Status,
			Reason: pf.File.Reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func recommend(s *Summary) []Recommendation {
	var out []Recommendation
	for _, rule := range recommendationRules {
		if rule.applies(s) {
			out = append(out, rule.rec)
		}
	}
	return out
}
