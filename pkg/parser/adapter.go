package parser

import (
	"context"
	"strings"

	"github.com/whynotshrutz/helix/pkg/source"
)

// Adapter extracts syntax from one file. Implementations are total: they
// never return an error for malformed input, they degrade the status instead.
type Adapter interface {
	Parse(ctx context.Context, f *source.File) FileSyntax
}

// AdapterFor returns the adapter for a language tag. Languages with a wired
// tree-sitter grammar get the structural adapter, recognized languages
// without one get the line-oriented heuristic, everything else gets the
// token-only fallback.
func AdapterFor(lang Language) Adapter {
	switch lang {
	case LangGo, LangRust, LangPython, LangTypeScript, LangJavaScript,
		LangTSX, LangJava, LangC, LangCPP, LangRuby, LangCSharp, LangPHP,
		LangShell:
		return &StructuralAdapter{lang: lang}
	case LangKotlin, LangSwift, LangScala:
		return &HeuristicAdapter{lang: lang}
	default:
		return &FallbackAdapter{}
	}
}

// splitLines splits text for line-oriented checks. Line n of the file is
// lines[n-1].
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// hasLeadingComment reports whether the line immediately above startLine is
// a comment in the language's doc convention.
func hasLeadingComment(lines []string, startLine int, lang Language) bool {
	idx := startLine - 2
	if idx < 0 || idx >= len(lines) {
		return false
	}
	trimmed := strings.TrimSpace(lines[idx])
	if trimmed == "" {
		return false
	}
	for _, prefix := range commentPrefixes(lang) {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func commentPrefixes(lang Language) []string {
	switch lang {
	case LangPython, LangRuby, LangShell:
		return []string{"#"}
	case LangPHP:
		return []string{"//", "/*", "*", "#"}
	default:
		return []string{"//", "/*", "*"}
	}
}

// pathTail returns the trailing segment of a slash- or ::-separated spec,
// used as the default bound name when the statement binds no explicit alias.
// A dotted suffix (gopkg.in/yaml.v2 style) is trimmed to the package name.
func pathTail(spec string) string {
	spec = strings.TrimRight(spec, "/")
	if idx := strings.LastIndex(spec, "/"); idx >= 0 {
		spec = spec[idx+1:]
	}
	if idx := strings.LastIndex(spec, "::"); idx >= 0 {
		spec = spec[idx+2:]
	}
	if idx := strings.Index(spec, "."); idx > 0 {
		spec = spec[:idx]
	}
	return spec
}

// dottedTail returns the last dot-separated segment (java.util.List -> List).
func dottedTail(spec string) string {
	if idx := strings.LastIndex(spec, "."); idx >= 0 {
		return spec[idx+1:]
	}
	return spec
}

// dottedHead returns the first dot-separated segment. A plain Python
// "import os.path" binds os, not path.
func dottedHead(spec string) string {
	if idx := strings.Index(spec, "."); idx > 0 {
		return spec[:idx]
	}
	return spec
}
