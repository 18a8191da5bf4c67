// Package analyzer defines the contract between the parse stage and the
// analysis stages. Parsing fans out per file; analyzers run after the join
// barrier over the full parsed set.
package analyzer

import (
	"context"

	"github.com/whynotshrutz/helix/pkg/parser"
	"github.com/whynotshrutz/helix/pkg/source"
)

// ParsedFile pairs a catalog entry with its extracted syntax. The parse
// stage produces one per catalog file, even for failed parses, so analyzers
// always see the whole catalog.
type ParsedFile struct {
	File   *source.File
	Syntax parser.FileSyntax
}

// FileAnalyzer is implemented by every analysis stage. Analyzers must not
// mutate the parsed files; the same slice is handed to each of them.
type FileAnalyzer[T any] interface {
	// Analyze processes the parsed catalog and returns the stage result.
	// Per-file problems belong in the result, not in the error: only a
	// cancelled context or invalid input should fail the stage.
	Analyze(ctx context.Context, files []*ParsedFile) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
