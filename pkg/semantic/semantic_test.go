package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whynotshrutz/helix/pkg/analyzer/vulnscan"
	"github.com/whynotshrutz/helix/pkg/report"
	"github.com/whynotshrutz/helix/pkg/source"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func analyze(t *testing.T, root string, opts ...Option) *report.Report {
	t.Helper()
	a, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	rep, err := a.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return rep
}

func TestAnalyzeMissingRoot(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Analyze on a missing root should fail")
	}
}

func TestAnalyzeEmptyDirectory(t *testing.T) {
	rep := analyze(t, t.TempDir())
	if rep.Summary.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", rep.Summary.TotalFiles)
	}
	if len(rep.Recommendations) != 0 {
		t.Errorf("Recommendations = %+v, want none", rep.Recommendations)
	}
}

func TestEvalFindingOnLineTen(t *testing.T) {
	var b strings.Builder
	for i := 1; i < 10; i++ {
		fmt.Fprintf(&b, "# filler line %d\n", i)
	}
	b.WriteString("eval(user_input)\n")

	root := writeTree(t, map[string]string{"app.py": b.String()})
	rep := analyze(t, root)

	var critical []vulnscan.Finding
	for _, f := range rep.Findings {
		if f.Severity == vulnscan.SeverityCritical {
			critical = append(critical, f)
		}
	}
	if len(critical) != 1 {
		t.Fatalf("critical findings = %+v, want exactly one", critical)
	}
	f := critical[0]
	if f.Category != vulnscan.CategoryEvalUsage || f.Line != 10 || f.File != "app.py" {
		t.Errorf("finding = %+v, want eval_usage at app.py:10", f)
	}
}

func TestThreeFileCycle(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "import b\n\n\ndef use():\n    return b.use()\n",
		"b.py": "import c\n\n\ndef use():\n    return c.use()\n",
		"c.py": "import a\n\n\ndef use():\n    return a.use()\n",
	})
	rep := analyze(t, root)

	if len(rep.Cycles) != 1 {
		t.Fatalf("Cycles = %+v, want exactly one", rep.Cycles)
	}
	want := []string{"a.py", "b.py", "c.py"}
	got := rep.Cycles[0].Files
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("cycle = %v, want %v", got, want)
	}
	if rep.Summary.CycleCount != 1 {
		t.Errorf("CycleCount = %d, want 1", rep.Summary.CycleCount)
	}
}

func TestUnusedImportFlagged(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":    "import helper\nimport spare\n\n\ndef main():\n    return helper.run()\n",
		"helper.py": "def run():\n    return 1\n",
		"spare.py":  "def idle():\n    return 0\n",
	})
	rep := analyze(t, root)

	if len(rep.UnusedImports) != 1 {
		t.Fatalf("UnusedImports = %+v, want exactly one", rep.UnusedImports)
	}
	u := rep.UnusedImports[0]
	if u.File != "app.py" || u.Name != "spare" || u.Line != 2 {
		t.Errorf("unused = %+v, want spare at app.py:2", u)
	}
}

func TestUnresolvedImportReported(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "import numpy\n\n\ndef main():\n    return numpy.zeros(3)\n",
	})
	rep := analyze(t, root)

	found := false
	for _, u := range rep.UnresolvedImports {
		if u.File == "app.py" && u.Spec == "numpy" {
			found = true
		}
	}
	if !found {
		t.Errorf("UnresolvedImports = %+v, want numpy entry", rep.UnresolvedImports)
	}
	if len(rep.UnusedImports) != 0 {
		t.Errorf("UnusedImports = %+v, want none for unresolved-only file", rep.UnusedImports)
	}
}

func TestComplexFunctionMetric(t *testing.T) {
	var b strings.Builder
	b.WriteString("def branchy(x):\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "    if x == %d:\n        return %d\n", i, i)
	}
	b.WriteString("    return -1\n")

	root := writeTree(t, map[string]string{"calc.py": b.String()})
	rep := analyze(t, root)

	if len(rep.ComplexFunctions) != 1 {
		t.Fatalf("ComplexFunctions = %+v, want exactly one", rep.ComplexFunctions)
	}
	fn := rep.ComplexFunctions[0]
	if fn.Name != "branchy" || fn.Cyclomatic != 13 || !fn.IsComplex {
		t.Errorf("metric = %+v, want branchy with cyclomatic 13", fn)
	}
}

func TestComplexityThresholdOption(t *testing.T) {
	content := "def f(x):\n    if x:\n        return 1\n    if not x:\n        return 2\n    return 0\n"
	root := writeTree(t, map[string]string{"f.py": content})

	rep := analyze(t, root)
	if len(rep.ComplexFunctions) != 0 {
		t.Fatalf("ComplexFunctions = %+v, want none at default threshold", rep.ComplexFunctions)
	}

	rep = analyze(t, root, WithComplexityThreshold(3))
	if len(rep.ComplexFunctions) != 1 {
		t.Errorf("ComplexFunctions = %+v, want one at threshold 3", rep.ComplexFunctions)
	}
}

func TestTruncationKeepsFirstHundred(t *testing.T) {
	files := make(map[string]string, 150)
	for i := 0; i < 150; i++ {
		files[fmt.Sprintf("f%03d.py", i)] = "x = 1\n"
	}
	root := writeTree(t, files)
	rep := analyze(t, root)

	if rep.Summary.TotalFiles != 100 {
		t.Errorf("TotalFiles = %d, want 100", rep.Summary.TotalFiles)
	}
	if !rep.Summary.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestOneBadFileAmongFifty(t *testing.T) {
	files := make(map[string]string, 50)
	for i := 0; i < 49; i++ {
		files[fmt.Sprintf("ok%02d.py", i)] = "x = 1\n"
	}
	files["bad.py"] = "x\x00y\x00z"
	root := writeTree(t, files)

	rep := analyze(t, root)
	if rep.Summary.TotalFiles != 50 {
		t.Errorf("TotalFiles = %d, want 50", rep.Summary.TotalFiles)
	}
	if rep.Summary.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", rep.Summary.FilesFailed)
	}
	if len(rep.DegradedFiles) != 1 || rep.DegradedFiles[0].Path != "bad.py" {
		t.Fatalf("DegradedFiles = %+v, want bad.py only", rep.DegradedFiles)
	}
	if rep.DegradedFiles[0].Status != source.StatusFailed {
		t.Errorf("Status = %s, want failed", rep.DegradedFiles[0].Status)
	}
}

func TestIdempotentReports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":      "import b\n\n\ndef run():\n    return b.helper()\n",
		"b.py":      "import a\n\n\ndef helper():\n    eval(input())\n",
		"lib/c.js":  "const x = document.write('<b>hi</b>')\n",
		"unused.py": "import a\n",
		"README.md": "# demo\n",
		"blob.py":   "\x00\x01\x02",
	})

	marshal := func() []byte {
		rep := analyze(t, root)
		b, err := json.Marshal(rep)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	first := marshal()
	for i := 0; i < 3; i++ {
		if !bytes.Equal(first, marshal()) {
			t.Fatal("reports differ across runs on an unchanged tree")
		}
	}
}

func TestIncludePatternOption(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "x = 1\n",
		"b.js": "const x = 1\n",
	})
	rep := analyze(t, root, WithIncludePatterns("**/*.py"))

	if rep.Summary.TotalFiles != 1 {
		t.Fatalf("TotalFiles = %d, want 1", rep.Summary.TotalFiles)
	}
	if rep.Summary.Languages[0].Language != "python" {
		t.Errorf("Languages = %+v, want python only", rep.Summary.Languages)
	}
}

func TestExcludeDirsOption(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.py":       "x = 1\n",
		"generated/b.py": "x = 2\n",
	})
	rep := analyze(t, root, WithExcludeDirs("generated"))

	if rep.Summary.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", rep.Summary.TotalFiles)
	}
}

func TestNegativeTimeoutRejected(t *testing.T) {
	if _, err := New(WithFileTimeout(-1)); err == nil {
		t.Error("New should reject a negative file timeout")
	}
}
