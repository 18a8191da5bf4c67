package vulnscan

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/source"
)

func parsedFile(path, content string) *analyzer.ParsedFile {
	f := source.NewFile(path, []byte(content))
	return &analyzer.ParsedFile{File: &f}
}

func scan(t *testing.T, path, content string) *Result {
	t.Helper()
	res, err := New().Analyze(context.Background(), []*analyzer.ParsedFile{parsedFile(path, content)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return res
}

func findByCategory(findings []Finding, c Category) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

func TestAnalyzeEvalUsage(t *testing.T) {
	src := strings.Repeat("x = 1\n", 9) + "    eval(payload)\n"
	res := scan(t, "app.py", src)

	found := findByCategory(res.Findings, CategoryEvalUsage)
	if len(found) != 1 {
		t.Fatalf("eval findings = %d, want 1", len(found))
	}
	f := found[0]
	if f.Line != 10 {
		t.Errorf("Line = %d, want 10", f.Line)
	}
	if f.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", f.Severity, SeverityCritical)
	}
	if f.Snippet != "eval(payload)" {
		t.Errorf("Snippet = %q, want %q", f.Snippet, "eval(payload)")
	}
	if f.Title == "" || f.Remediation == "" {
		t.Error("expected title and remediation to be set")
	}
	if res.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", res.FilesScanned)
	}
}

func TestAnalyzeHardcodedSecret(t *testing.T) {
	src := `PASSWORD = "hunter2"
api_key: 'abc123xy'
token := "deadbeefcafe"
password = os.environ["DB_PASS"]
if password == "hunter2":
    pass
secret = "abc"
`
	res := scan(t, "settings.py", src)

	found := findByCategory(res.Findings, CategoryHardcodedSecret)
	if len(found) != 3 {
		t.Fatalf("secret findings = %d, want 3: %+v", len(found), found)
	}
	wantLines := []uint32{1, 2, 3}
	for i, f := range found {
		if f.Line != wantLines[i] {
			t.Errorf("finding %d line = %d, want %d", i, f.Line, wantLines[i])
		}
		if f.Severity != SeverityCritical {
			t.Errorf("finding %d severity = %v, want %v", i, f.Severity, SeverityCritical)
		}
	}
}

func TestAnalyzeSQLConcatenation(t *testing.T) {
	src := `query = "SELECT * FROM users WHERE name = '" + name
q = f"SELECT * FROM users WHERE id = {uid}"
cur.execute("SELECT * FROM t WHERE id = %s", (uid,))
rows = db.exec(stmt)
`
	res := scan(t, "repo.py", src)

	found := findByCategory(res.Findings, CategorySQLInjection)
	if len(found) != 2 {
		t.Fatalf("sql findings = %d, want 2: %+v", len(found), found)
	}
	if found[0].Line != 1 || found[1].Line != 2 {
		t.Errorf("sql finding lines = %d, %d, want 1, 2", found[0].Line, found[1].Line)
	}
}

func TestAnalyzeSQLTemplateLiteral(t *testing.T) {
	src := "const q = `SELECT id FROM accounts WHERE owner = ${user}`;\n" +
		"const all = `SELECT id FROM accounts`;\n"
	res := scan(t, "db.js", src)

	found := findByCategory(res.Findings, CategorySQLInjection)
	if len(found) != 1 {
		t.Fatalf("sql findings = %d, want 1: %+v", len(found), found)
	}
	if found[0].Line != 1 {
		t.Errorf("Line = %d, want 1", found[0].Line)
	}
}

func TestAnalyzeXSSSuppression(t *testing.T) {
	src := `el.innerHTML = userInput;
el.innerHTML = DOMPurify.sanitize(userInput);
document.write(data);
el.innerHTML += chunk;
if (el.innerHTML == cached) return;
`
	res := scan(t, "view.js", src)

	found := findByCategory(res.Findings, CategoryXSSSink)
	if len(found) != 3 {
		t.Fatalf("xss findings = %d, want 3: %+v", len(found), found)
	}
	wantLines := []uint32{1, 3, 4}
	for i, f := range found {
		if f.Line != wantLines[i] {
			t.Errorf("finding %d line = %d, want %d", i, f.Line, wantLines[i])
		}
	}
}

func TestAnalyzeWeakHash(t *testing.T) {
	src := `h = hashlib.md5(data)
sum := sha1.Sum(data)
mac = crypto.createHash('md5')
strong = sha256.Sum256(data)
`
	res := scan(t, "digest.py", src)

	found := findByCategory(res.Findings, CategoryWeakHash)
	if len(found) != 3 {
		t.Fatalf("weak hash findings = %d, want 3: %+v", len(found), found)
	}
	for _, f := range found {
		if f.Line == 4 {
			t.Errorf("sha256 flagged as weak: %+v", f)
		}
	}
}

func TestAnalyzeShellInjection(t *testing.T) {
	src := `subprocess.run(cmd, shell=True)
os.system("rm -rf " + path)
subprocess.run(["ls", "-l"])
`
	res := scan(t, "runner.py", src)

	found := findByCategory(res.Findings, CategoryShellInjection)
	if len(found) != 2 {
		t.Fatalf("shell findings = %d, want 2: %+v", len(found), found)
	}
}

func TestAnalyzeDeserialization(t *testing.T) {
	src := `obj = pickle.loads(blob)
cfg = yaml.load(f)
safe = yaml.load(f, Loader=yaml.SafeLoader)
other = yaml.safe_load(f)
data = Marshal.load(blob)
`
	res := scan(t, "loader.py", src)

	found := findByCategory(res.Findings, CategoryUnsafeDeserialization)
	if len(found) != 3 {
		t.Fatalf("deserialization findings = %d, want 3: %+v", len(found), found)
	}
	wantLines := []uint32{1, 2, 5}
	for i, f := range found {
		if f.Line != wantLines[i] {
			t.Errorf("finding %d line = %d, want %d", i, f.Line, wantLines[i])
		}
	}
}

func TestAnalyzePathTraversal(t *testing.T) {
	src := `data = open(request.args["file"]).read()
fs.readFile(req.query.path, cb)
cfg = open("settings.toml")
`
	res := scan(t, "files.py", src)

	found := findByCategory(res.Findings, CategoryPathTraversal)
	if len(found) != 2 {
		t.Fatalf("path findings = %d, want 2: %+v", len(found), found)
	}
}

func TestAnalyzeInsecureTransport(t *testing.T) {
	src := `url = "http://api.example.com/v1"
base = "http://localhost:8080"
local = "http://127.0.0.1:9000"
ok = "https://api.example.com"
`
	res := scan(t, "client.py", src)

	found := findByCategory(res.Findings, CategoryInsecureTransport)
	if len(found) != 1 {
		t.Fatalf("transport findings = %d, want 1: %+v", len(found), found)
	}
	if found[0].Line != 1 {
		t.Errorf("Line = %d, want 1", found[0].Line)
	}
	if found[0].Severity != SeverityLow {
		t.Errorf("Severity = %v, want %v", found[0].Severity, SeverityLow)
	}
}

func TestAnalyzeMultipleCategoriesPerLine(t *testing.T) {
	res := scan(t, "mixed.py", `u = eval("http://api.example.com")`+"\n")

	if len(findByCategory(res.Findings, CategoryEvalUsage)) != 1 {
		t.Error("expected eval finding")
	}
	if len(findByCategory(res.Findings, CategoryInsecureTransport)) != 1 {
		t.Error("expected transport finding")
	}
	for _, f := range res.Findings {
		if f.Line != 1 {
			t.Errorf("Line = %d, want 1", f.Line)
		}
	}
}

func TestFindingsSorted(t *testing.T) {
	files := []*analyzer.ParsedFile{
		parsedFile("b.py", "eval(x)\nh = hashlib.md5(d)\n"),
		parsedFile("a.py", `u = "http://api.example.com"`+"\neval(y)\n"),
	}
	res, err := New().Analyze(context.Background(), files)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Findings) != 4 {
		t.Fatalf("findings = %d, want 4: %+v", len(res.Findings), res.Findings)
	}

	type key struct {
		file     string
		category Category
	}
	want := []key{
		{"a.py", CategoryEvalUsage},
		{"b.py", CategoryEvalUsage},
		{"b.py", CategoryWeakHash},
		{"a.py", CategoryInsecureTransport},
	}
	for i, w := range want {
		f := res.Findings[i]
		if f.File != w.file || f.Category != w.category {
			t.Errorf("finding %d = %s/%s, want %s/%s", i, f.File, f.Category, w.file, w.category)
		}
	}
}

func TestRuleSkippedOnPanic(t *testing.T) {
	a := New()
	a.rules = append(a.rules, rule{
		category: Category("boom"),
		severity: SeverityLow,
		title:    "Boom",
		pattern:  regexp.MustCompile(`eval`),
		suppress: func(string) bool { panic("boom") },
	})

	res, err := a.Analyze(context.Background(), []*analyzer.ParsedFile{parsedFile("a.py", "eval(x)\n")})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.RulesSkipped != 1 {
		t.Errorf("RulesSkipped = %d, want 1", res.RulesSkipped)
	}
	if len(findByCategory(res.Findings, CategoryEvalUsage)) != 1 {
		t.Error("panicking rule should not drop findings from other rules")
	}
	if len(findByCategory(res.Findings, Category("boom"))) != 0 {
		t.Error("panicking rule should emit no findings")
	}
}

func TestAddRule(t *testing.T) {
	a := New()
	err := a.AddRule(`(?i)\bdebugger\b`, Category("debugger_statement"), SeverityLow, "Debugger statement", "Remove debugger statements before shipping.")
	if err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	res, err := a.Analyze(context.Background(), []*analyzer.ParsedFile{parsedFile("a.js", "debugger;\n")})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(findByCategory(res.Findings, Category("debugger_statement"))) != 1 {
		t.Error("expected custom rule finding")
	}

	if err := a.AddRule(`(unclosed`, Category("bad"), SeverityLow, "Bad", ""); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Analyze(ctx, []*analyzer.ParsedFile{parsedFile("a.py", "eval(x)\n")})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestContextDigest(t *testing.T) {
	d1 := contextDigest(CategoryEvalUsage, "a.py", "eval(x)")
	d2 := contextDigest(CategoryEvalUsage, "a.py", "eval(x)")
	if d1 != d2 {
		t.Errorf("digest not stable: %s != %s", d1, d2)
	}
	if len(d1) != 16 {
		t.Errorf("digest length = %d, want 16", len(d1))
	}
	if d3 := contextDigest(CategoryEvalUsage, "b.py", "eval(x)"); d3 == d1 {
		t.Error("digest should change with path")
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := truncate(long, 160)
	if utf8.RuneCountInString(got) != 160 {
		t.Errorf("truncated length = %d, want 160", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated snippet missing ellipsis: %q", got[len(got)-8:])
	}

	if got := truncate("short", 160); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate(long, 0); got != long {
		t.Errorf("width 0 should leave input unchanged")
	}

	multi := strings.Repeat("é", 10)
	got = truncate(multi, 5)
	if utf8.RuneCountInString(got) != 5 {
		t.Errorf("multibyte truncated length = %d, want 5", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
}
