package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/whynotshrutz/helix/internal/output"
)

// RenderData returns the report itself for structured serialization.
func (r *Report) RenderData() any { return r }

// RenderText writes the human-readable rendering. Display truncation (top-N
// tables) happens here only; the report value stays complete.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	return r.renderable(colored).RenderText(w, colored)
}

// RenderMarkdown writes the markdown rendering.
func (r *Report) RenderMarkdown(w io.Writer) error {
	return r.renderable(false).RenderMarkdown(w)
}

const maxTableRows = 20

func (r *Report) renderable(colored bool) *output.Report {
	rep := &output.Report{
		Title: "Semantic Analysis",
		Data:  r,
	}

	rep.Sections = append(rep.Sections, r.summaryTable())
	if len(r.Findings) > 0 {
		rep.Sections = append(rep.Sections, r.findingsTable(colored))
	}
	if len(r.Cycles) > 0 {
		rep.Sections = append(rep.Sections, r.cyclesSection())
	}
	if len(r.UnusedImports) > 0 {
		rep.Sections = append(rep.Sections, r.unusedTable())
	}
	if len(r.ComplexFunctions) > 0 {
		rep.Sections = append(rep.Sections, r.complexTable())
	}
	if len(r.DegradedFiles) > 0 {
		rep.Sections = append(rep.Sections, r.degradedTable())
	}
	if len(r.Recommendations) > 0 {
		rep.Sections = append(rep.Sections, r.recommendationsSection())
	}
	return rep
}

func (r *Report) summaryTable() *output.Table {
	s := r.Summary
	rows := [][]string{
		{"Files analyzed", strconv.Itoa(s.TotalFiles)},
		{"Failed / partial", fmt.Sprintf("%d / %d", s.FilesFailed, s.FilesPartial)},
		{"Imports", strconv.Itoa(s.TotalImports)},
		{"Definitions", strconv.Itoa(s.TotalDefinitions)},
		{"Findings", strconv.Itoa(s.TotalFindings)},
		{"Circular dependencies", strconv.Itoa(s.CycleCount)},
		{"Unused imports", strconv.Itoa(s.UnusedImports)},
		{"Unresolved imports", strconv.Itoa(s.UnresolvedImports)},
		{"Complex functions", strconv.Itoa(s.ComplexFunctions)},
		{"Avg complexity", fmt.Sprintf("%.1f", s.Complexity.Average)},
		{"Docstring coverage", fmt.Sprintf("%.0f%%", s.DocstringCoverage*100)},
	}
	if s.Truncated {
		rows = append(rows, []string{"Truncated", "yes"})
	}
	return output.NewTable("Summary", []string{"Metric", "Value"}, rows, nil, nil)
}

func (r *Report) findingsTable(colored bool) *output.Table {
	rows := make([][]string, 0, len(r.Findings))
	for i, f := range r.Findings {
		if i == maxTableRows {
			break
		}
		sev := string(f.Severity)
		if colored {
			sev = output.SeverityColor(sev, sev)
		}
		rows = append(rows, []string{
			sev,
			string(f.Category),
			fmt.Sprintf("%s:%d", f.File, f.Line),
			f.Title,
		})
	}
	var footer []string
	if len(r.Findings) > maxTableRows {
		footer = []string{"", "", "", fmt.Sprintf("and %d more", len(r.Findings)-maxTableRows)}
	}
	return output.NewTable("Security Findings", []string{"Severity", "Category", "Location", "Issue"}, rows, footer, nil)
}

func (r *Report) cyclesSection() *output.Section {
	var b strings.Builder
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "  %s -> %s\n", c.Key(), c.Files[0])
	}
	return &output.Section{Title: "Circular Dependencies", Content: strings.TrimRight(b.String(), "\n")}
}

func (r *Report) unusedTable() *output.Table {
	rows := make([][]string, 0, len(r.UnusedImports))
	for i, u := range r.UnusedImports {
		if i == maxTableRows {
			break
		}
		rows = append(rows, []string{fmt.Sprintf("%s:%d", u.File, u.Line), u.Name, u.Spec})
	}
	var footer []string
	if len(r.UnusedImports) > maxTableRows {
		footer = []string{"", "", fmt.Sprintf("and %d more", len(r.UnusedImports)-maxTableRows)}
	}
	return output.NewTable("Unused Imports", []string{"Location", "Name", "Import"}, rows, footer, nil)
}

func (r *Report) complexTable() *output.Table {
	rows := make([][]string, 0, len(r.ComplexFunctions))
	for i, fn := range r.ComplexFunctions {
		if i == maxTableRows {
			break
		}
		rows = append(rows, []string{
			fn.Name,
			fmt.Sprintf("%s:%d", fn.File, fn.StartLine),
			strconv.Itoa(fn.Cyclomatic),
			strconv.Itoa(fn.BodyLines),
		})
	}
	var footer []string
	if len(r.ComplexFunctions) > maxTableRows {
		footer = []string{"", "", "", fmt.Sprintf("and %d more", len(r.ComplexFunctions)-maxTableRows)}
	}
	return output.NewTable("Complex Functions", []string{"Function", "Location", "Complexity", "Lines"}, rows, footer, nil)
}

func (r *Report) degradedTable() *output.Table {
	rows := make([][]string, 0, len(r.DegradedFiles))
	for _, d := range r.DegradedFiles {
		rows = append(rows, []string{d.Path, string(d.Status), d.Reason})
	}
	return output.NewTable("Degraded Files", []string{"File", "Status", "Reason"}, rows, nil, nil)
}

func (r *Report) recommendationsSection() *output.Section {
	sec := &output.Section{Title: "Recommendations"}
	for _, rec := range r.Recommendations {
		sec.Sections = append(sec.Sections, output.Section{
			Title:   rec.Title,
			Content: rec.Description,
		})
	}
	return sec
}
