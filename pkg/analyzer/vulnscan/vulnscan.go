// Package vulnscan flags likely security defects with line-oriented rules.
//
// Rules are biased toward coverage: a match is cheap to dismiss in review, a
// miss is expensive to find later. Matching never fails a run; a rule that
// panics on a file is dropped for that file and counted in the result.
package vulnscan

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/whynotshrutz/helix/pkg/analyzer"
)

const defaultSnippetWidth = 160

// rule pairs a compiled pattern with the finding metadata it emits.
type rule struct {
	category    Category
	severity    Severity
	title       string
	pattern     *regexp.Regexp
	remediation string
	// suppress drops a matched line. RE2 has no lookaround, so negative
	// conditions live here instead of in the pattern.
	suppress func(line string) bool
}

// Analyzer scans cataloged files line by line against an ordered rule table.
type Analyzer struct {
	rules        []rule
	snippetWidth int
}

// Analyzer implements the FileAnalyzer interface.
var _ analyzer.FileAnalyzer[*Result] = (*Analyzer)(nil)

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithSnippetWidth caps finding snippets at width runes.
func WithSnippetWidth(width int) Option {
	return func(a *Analyzer) {
		if width > 0 {
			a.snippetWidth = width
		}
	}
}

// New creates a vulnerability scanner with the default rule table.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		rules:        defaultRules(),
		snippetWidth: defaultSnippetWidth,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddRule compiles and appends a custom rule. It runs after the default
// table on every subsequent Analyze call.
func (a *Analyzer) AddRule(expr string, category Category, severity Severity, title, remediation string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("compile rule %q: %w", category, err)
	}
	a.rules = append(a.rules, rule{
		category:    category,
		severity:    severity,
		title:       title,
		pattern:     re,
		remediation: remediation,
	})
	return nil
}

// Analyze scans every file, including degraded and failed ones. Text in the
// catalog is already valid UTF-8, so scanning a lossy file is safe and can
// still surface a hardcoded secret.
func (a *Analyzer) Analyze(ctx context.Context, files []*analyzer.ParsedFile) (*Result, error) {
	res := &Result{}
	for _, pf := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		findings, skipped := a.scanFile(pf.File.Path, pf.File.Text)
		res.Findings = append(res.Findings, findings...)
		res.RulesSkipped += skipped
		res.FilesScanned++
	}
	sortFindings(res.Findings)
	return res, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

func (a *Analyzer) scanFile(path, text string) ([]Finding, int) {
	lines := strings.Split(text, "\n")
	var findings []Finding
	skipped := 0
	for _, r := range a.rules {
		matches, ok := applyRule(r, path, lines, a.snippetWidth)
		if !ok {
			skipped++
			continue
		}
		findings = append(findings, matches...)
	}
	return findings, skipped
}

// applyRule runs one rule over a file. ok is false when the rule panicked,
// in which case its partial findings are discarded.
func applyRule(r rule, path string, lines []string, width int) (findings []Finding, ok bool) {
	defer func() {
		if recover() != nil {
			findings = nil
			ok = false
		}
	}()
	for i, line := range lines {
		if !r.pattern.MatchString(line) {
			continue
		}
		if r.suppress != nil && r.suppress(line) {
			continue
		}
		snippet := truncate(strings.TrimSpace(line), width)
		findings = append(findings, Finding{
			Category:      r.category,
			Severity:      r.severity,
			Title:         r.title,
			File:          path,
			Line:          uint32(i + 1),
			Snippet:       snippet,
			Remediation:   r.remediation,
			ContextDigest: contextDigest(r.category, path, snippet),
		})
	}
	return findings, true
}

// sortFindings orders by severity weight descending, then file, line, and
// category, so equal inputs always serialize identically.
func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Category < b.Category
	})
}

// contextDigest hashes the category, path, and snippet so a finding keeps
// its identity when unrelated edits shift line numbers.
func contextDigest(category Category, path, snippet string) string {
	sum := blake3.Sum256([]byte(string(category) + "\x00" + path + "\x00" + snippet))
	return hex.EncodeToString(sum[:])[:16]
}

// truncate caps a snippet at width runes without splitting a multibyte rune.
func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func defaultRules() []rule {
	return []rule{
		{
			category:    CategoryEvalUsage,
			severity:    SeverityCritical,
			title:       "Dynamic code execution",
			pattern:     regexp.MustCompile(`(?i)\b(?:eval|exec)\s*\(`),
			remediation: "Replace eval/exec with a dispatch table over validated input.",
		},
		{
			category:    CategoryUnsafeDeserialization,
			severity:    SeverityHigh,
			title:       "Unsafe deserialization",
			pattern:     regexp.MustCompile(`(?i)(?:\b(?:pickle|marshal)\.loads?\s*\(|\byaml\.load\s*\()`),
			remediation: "Deserialize untrusted data with a safe loader.",
			suppress: func(line string) bool {
				return strings.Contains(line, "SafeLoader")
			},
		},
		{
			category:    CategoryShellInjection,
			severity:    SeverityHigh,
			title:       "Shell command injection",
			pattern:     regexp.MustCompile(`(?i)(?:\bshell\s*=\s*true\b|\bos\.system\s*\()`),
			remediation: "Pass an argument vector instead of a shell string.",
		},
		{
			category: CategoryHardcodedSecret,
			severity: SeverityCritical,
			title:    "Hardcoded credential",
			// (?::=|[:=]) accepts = and := but not ==, keeping comparisons out.
			pattern:     regexp.MustCompile(`(?i)\b(?:password|passwd|api[_-]?key|secret|token)\b["']?\s*(?::=|[:=])\s*["'][^"']{4,}["']`),
			remediation: "Load credentials from the environment or a secret store.",
		},
		{
			category: CategorySQLInjection,
			severity: SeverityHigh,
			title:    "SQL string concatenation",
			// Three shapes: a quoted statement followed by + or %, an
			// f-string with an interpolation brace, and a template literal
			// with ${. \x60 is a backtick, which a raw string cannot hold.
			pattern:     regexp.MustCompile("(?i)(?:\\b(?:select|insert|update|delete)\\b[^;]*\\b(?:where|values|set)\\b[^;]*[\"']\\s*[+%]|\\bf[\"'][^\"']*\\b(?:select|insert|update|delete)\\b[^\"']*\\{|\\x60[^\\x60]*\\b(?:select|insert|update|delete)\\b[^\\x60]*\\$\\{)"),
			remediation: "Use parameterized queries instead of string building.",
		},
		{
			category: CategoryXSSSink,
			severity: SeverityMedium,
			title:    "Unescaped HTML sink",
			// [+]?=[^=] accepts = and += but not ==.
			pattern:     regexp.MustCompile(`(?i)(?:\.innerhtml\s*[+]?=[^=]|document\.write\s*\()`),
			remediation: "Escape or sanitize values before writing them into the DOM.",
			suppress: func(line string) bool {
				l := strings.ToLower(line)
				for _, safe := range []string{"escapehtml", "sanitize", "dompurify", "encodeuricomponent"} {
					if strings.Contains(l, safe) {
						return true
					}
				}
				return false
			},
		},
		{
			category:    CategoryWeakHash,
			severity:    SeverityMedium,
			title:       "Weak hash algorithm",
			pattern:     regexp.MustCompile(`(?i)(?:\b(?:md5|sha1)\s*\(|\b(?:md5|sha1)\.(?:new|sum)\b|\bcreatehash\s*\(\s*["'](?:md5|sha1)["']|\bgetinstance\s*\(\s*["'](?:md5|sha-?1)["'])`),
			remediation: "Use SHA-256 or stronger; never hash passwords without a KDF.",
		},
		{
			category:    CategoryPathTraversal,
			severity:    SeverityHigh,
			title:       "Path built from external input",
			pattern:     regexp.MustCompile(`(?i)\b(?:open|readfile|file_get_contents|sendfile|path\.join|filepath\.join)\s*\([^)]*\b(?:request|req|params|argv|query)\b`),
			remediation: "Resolve against a fixed base directory and reject escapes.",
		},
		{
			category:    CategoryInsecureTransport,
			severity:    SeverityLow,
			title:       "Plaintext HTTP endpoint",
			pattern:     regexp.MustCompile("[\"'\\x60]http://"),
			remediation: "Use https for anything beyond loopback traffic.",
			suppress: func(line string) bool {
				return strings.Contains(line, "localhost") || strings.Contains(line, "127.0.0.1")
			},
		},
	}
}
