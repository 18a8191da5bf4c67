package parser

import "github.com/whynotshrutz/helix/pkg/source"

// DefKind classifies an extracted definition.
type DefKind string

const (
	KindFunction DefKind = "function"
	KindMethod   DefKind = "method"
	KindClass    DefKind = "class"
)

// String returns the string representation.
func (k DefKind) String() string {
	return string(k)
}

// Import is one import statement as written in a file. Resolution to a
// catalog entry happens later in the graph builder; adapters only record
// the raw spec and the names the statement binds.
type Import struct {
	// Spec is the import target exactly as written (quotes stripped).
	Spec string `json:"spec" toon:"spec"`
	// Names are the identifiers the import binds in this file: an alias,
	// the imported symbols, or the module's trailing segment by default.
	Names []string `json:"names,omitempty" toon:"names,omitempty"`
	// Line is the 1-based line the statement starts on.
	Line int `json:"line" toon:"line"`
	// EndLine is the 1-based line the statement ends on. Equal to Line for
	// single-line statements; multi-line forms (parenthesized Python
	// imports, wrapped JS destructuring) span Line through EndLine, and the
	// unused check must ignore every line in that span.
	EndLine int `json:"end_line,omitempty" toon:"end_line,omitempty"`
	// Wildcard marks imports that bind no checkable name (import *,
	// blank imports, side-effect requires). These skip the unused check.
	Wildcard bool `json:"wildcard,omitempty" toon:"wildcard,omitempty"`
}

// Definition is one extracted function, method, or class. Immutable after
// extraction; branch counting happens here so later stages never re-walk
// the syntax tree.
type Definition struct {
	Kind         DefKind `json:"kind" toon:"kind"`
	Name         string  `json:"name" toon:"name"`
	StartLine    int     `json:"start_line" toon:"start_line"`
	EndLine      int     `json:"end_line" toon:"end_line"`
	ParamCount   int     `json:"param_count" toon:"param_count"`
	BranchCount  int     `json:"branch_count" toon:"branch_count"`
	HasDocstring bool    `json:"has_docstring" toon:"has_docstring"`
}

// BodyLineCount returns the inclusive line span of the definition.
func (d Definition) BodyLineCount() int {
	if d.EndLine < d.StartLine {
		return 0
	}
	return d.EndLine - d.StartLine + 1
}

// FileSyntax is the per-file adapter output consumed by the graph builder
// and the metrics engine. Adapters are total: malformed input produces a
// best-effort partial result, never an error.
type FileSyntax struct {
	Imports     []Import           `json:"imports" toon:"imports"`
	Definitions []Definition       `json:"definitions" toon:"definitions"`
	Tokens      *TokenIndex        `json:"-" toon:"-"`
	Status      source.ParseStatus `json:"status" toon:"status"`
	// Reason explains a partial or failed status.
	Reason string `json:"reason,omitempty" toon:"reason,omitempty"`
}
