package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/whynotshrutz/helix/pkg/source"
)

// HeuristicAdapter extracts syntax with line-oriented regular expressions.
// It covers languages without a bundled grammar and backstops structural
// parse failures. The rules are biased toward false negatives: a missed
// definition costs less than a phantom one polluting the graph.
type HeuristicAdapter struct {
	lang Language
}

var (
	// The star stays inside the capture so greedy matching can't strand a
	// trailing dot; wildcard detection happens on the captured spec.
	kotlinImportRe = regexp.MustCompile(`^\s*import\s+([\w.*]+)(?:\s+as\s+(\w+))?`)
	swiftImportRe  = regexp.MustCompile(`^\s*import\s+(?:(?:class|struct|enum|protocol|typealias|func|var|let)\s+)?([\w.]+)`)
	scalaImportRe  = regexp.MustCompile(`^\s*import\s+(.+)`)
	csharpUsingRe  = regexp.MustCompile(`^\s*using\s+(?:static\s+)?(?:(\w+)\s*=\s*)?([\w.]+)\s*;`)
	phpUseRe       = regexp.MustCompile(`^\s*use\s+([\w\\]+)(?:\s+as\s+(\w+))?\s*;`)
	phpRequireRe   = regexp.MustCompile(`^\s*(?:require|include)(?:_once)?\s*\(?\s*['"]([^'"]+)['"]`)
	shellSourceRe  = regexp.MustCompile(`^\s*(?:source|\.)\s+(\S+)`)

	// Generic forms for files that fell through a failed structural parse.
	genericFromRe   = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s+(.+)`)
	genericImportRe = regexp.MustCompile(`^\s*import\s+(\S+)`)

	heuristicFuncRe  = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|open|final|override|abstract|suspend|inline|operator|infix|tailrec|external|static|async|export|default)\s+)*(?:fun|func|function|def)\s+([A-Za-z_]\w*)`)
	csharpMethodRe   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|virtual|override|sealed|async|partial|extern|new|abstract)\s+)+[\w<>\[\],.?\s]+?\s+([A-Za-z_]\w*)\s*\(`)
	shellFuncWordRe  = regexp.MustCompile(`^\s*function\s+([A-Za-z_][\w-]*)`)
	shellFuncParenRe = regexp.MustCompile(`^\s*([A-Za-z_][\w-]*)\s*\(\s*\)\s*\{?`)
	heuristicClassRe = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|open|final|abstract|sealed|static|partial|case|data)\s+)*(?:class|interface|trait|object|struct|enum|record)\s+([A-Za-z_]\w*)`)

	heuristicBranchRe = regexp.MustCompile(`(^|[^\w.])(if|elif|elsif|while|for|foreach|when|case|catch|rescue|except|guard)\b|&&|\|\|`)
)

// Parse implements Adapter. Heuristic extraction cannot detect syntax
// errors, so the status is ok unless the caller overrides it.
func (a *HeuristicAdapter) Parse(_ context.Context, f *source.File) FileSyntax {
	lines := splitLines(f.Text)
	syn := FileSyntax{
		Tokens: Tokenize(f.Text),
		Status: source.StatusOK,
	}

	for i, text := range lines {
		lineNo := i + 1
		if imp, ok := a.matchImport(text, lineNo); ok {
			imp.EndLine = lineNo // line-based matching never spans statements
			syn.Imports = append(syn.Imports, imp)
			continue
		}
		if def, ok := a.matchDefinition(lines, text, lineNo); ok {
			syn.Definitions = append(syn.Definitions, def)
		}
	}
	return syn
}

func (a *HeuristicAdapter) matchImport(text string, line int) (Import, bool) {
	switch a.lang {
	case LangKotlin:
		if m := kotlinImportRe.FindStringSubmatch(text); m != nil {
			spec := m[1]
			if strings.HasSuffix(spec, ".*") {
				return Import{Spec: strings.TrimSuffix(spec, ".*"), Line: line, Wildcard: true}, true
			}
			name := m[2]
			if name == "" {
				name = dottedTail(spec)
			}
			return Import{Spec: spec, Names: []string{name}, Line: line}, true
		}
	case LangSwift:
		if m := swiftImportRe.FindStringSubmatch(text); m != nil {
			return Import{Spec: m[1], Names: []string{dottedTail(m[1])}, Line: line}, true
		}
	case LangScala:
		if m := scalaImportRe.FindStringSubmatch(text); m != nil {
			rest := strings.TrimSpace(m[1])
			if idx := strings.Index(rest, "{"); idx >= 0 {
				spec := strings.TrimSuffix(strings.TrimSpace(rest[:idx]), ".")
				return Import{Spec: spec, Line: line, Wildcard: true}, true
			}
			spec := strings.TrimSuffix(strings.Fields(rest)[0], ";")
			if strings.HasSuffix(spec, "._") {
				return Import{Spec: strings.TrimSuffix(spec, "._"), Line: line, Wildcard: true}, true
			}
			return Import{Spec: spec, Names: []string{dottedTail(spec)}, Line: line}, true
		}
	case LangCSharp:
		if m := csharpUsingRe.FindStringSubmatch(text); m != nil {
			name := m[1]
			if name == "" {
				name = dottedTail(m[2])
			}
			return Import{Spec: m[2], Names: []string{name}, Line: line}, true
		}
	case LangPHP:
		if m := phpUseRe.FindStringSubmatch(text); m != nil {
			spec := strings.ReplaceAll(m[1], `\`, "/")
			name := m[2]
			if name == "" {
				name = pathTail(spec)
			}
			return Import{Spec: spec, Names: []string{name}, Line: line}, true
		}
		if m := phpRequireRe.FindStringSubmatch(text); m != nil {
			return Import{Spec: m[1], Line: line, Wildcard: true}, true
		}
	case LangShell:
		if m := shellSourceRe.FindStringSubmatch(text); m != nil {
			return Import{Spec: strings.Trim(m[1], `"'`), Line: line, Wildcard: true}, true
		}
	default:
		if m := genericFromRe.FindStringSubmatch(text); m != nil {
			imp := Import{Spec: m[1], Line: line}
			for _, part := range strings.Split(m[2], ",") {
				name := strings.TrimSpace(part)
				if idx := strings.Index(name, " as "); idx >= 0 {
					name = strings.TrimSpace(name[idx+4:])
				}
				if name == "*" {
					imp.Wildcard = true
					continue
				}
				if name != "" && name != "(" {
					imp.Names = append(imp.Names, strings.Trim(name, "()"))
				}
			}
			return imp, true
		}
		if m := genericImportRe.FindStringSubmatch(text); m != nil {
			spec := strings.Trim(m[1], `"';`)
			if spec == "" || spec == "(" {
				return Import{}, false
			}
			return Import{Spec: spec, Names: []string{dottedHead(spec)}, Line: line}, true
		}
	}
	return Import{}, false
}

func (a *HeuristicAdapter) matchDefinition(lines []string, text string, lineNo int) (Definition, bool) {
	if m := heuristicClassRe.FindStringSubmatch(text); m != nil {
		end := findBlockEnd(lines, lineNo)
		return Definition{
			Kind:         KindClass,
			Name:         m[1],
			StartLine:    lineNo,
			EndLine:      end,
			BranchCount:  countKeywordBranches(lines, lineNo, end),
			HasDocstring: hasLeadingComment(lines, lineNo, a.lang),
		}, true
	}

	var name string
	switch a.lang {
	case LangShell:
		if m := shellFuncWordRe.FindStringSubmatch(text); m != nil {
			name = m[1]
		} else if m := shellFuncParenRe.FindStringSubmatch(text); m != nil {
			name = m[1]
		}
	case LangCSharp:
		// Requires a modifier keyword, so local functions go undetected
		// rather than misfiring on call sites.
		if m := csharpMethodRe.FindStringSubmatch(text); m != nil && !strings.Contains(text, ";") {
			name = m[1]
		}
	default:
		if m := heuristicFuncRe.FindStringSubmatch(text); m != nil {
			name = m[1]
		}
	}
	if name == "" {
		return Definition{}, false
	}

	end := findBlockEnd(lines, lineNo)
	return Definition{
		Kind:         KindFunction,
		Name:         name,
		StartLine:    lineNo,
		EndLine:      end,
		ParamCount:   countHeaderParams(text),
		BranchCount:  countKeywordBranches(lines, lineNo, end),
		HasDocstring: hasLeadingComment(lines, lineNo, a.lang),
	}, true
}

// findBlockEnd tracks brace depth from the start line and returns the line
// where the block closes. Definitions without braces span a single line.
func findBlockEnd(lines []string, startLine int) int {
	depth := 0
	opened := false
	for i := startLine - 1; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth <= 0 {
					return i + 1
				}
			}
		}
		// A header with no opening brace within two lines is expression-bodied.
		if !opened && i >= startLine {
			return startLine
		}
	}
	if opened {
		return len(lines)
	}
	return startLine
}

func countKeywordBranches(lines []string, startLine, endLine int) int {
	if endLine > len(lines) {
		endLine = len(lines)
	}
	count := 0
	for i := startLine - 1; i < endLine; i++ {
		count += len(heuristicBranchRe.FindAllString(lines[i], -1))
	}
	return count
}

// countHeaderParams counts comma-separated parameters in the first
// parenthesis group of the header line.
func countHeaderParams(text string) int {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return 0
	}
	depth := 0
	inner := ""
	for _, r := range text[open:] {
		if r == '(' {
			depth++
			if depth == 1 {
				continue
			}
		}
		if r == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
		if depth >= 1 {
			inner += string(r)
		}
	}
	if strings.TrimSpace(inner) == "" {
		return 0
	}
	depth = 0
	count := 1
	for _, r := range inner {
		switch r {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '>', '}':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}
