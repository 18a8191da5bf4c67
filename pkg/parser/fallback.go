package parser

import (
	"context"

	"github.com/whynotshrutz/helix/pkg/source"
)

// FallbackAdapter handles unrecognized languages. It indexes tokens so the
// unused-import check still sees cross-file identifiers, but extracts no
// imports or definitions.
type FallbackAdapter struct{}

// Parse implements Adapter.
func (a *FallbackAdapter) Parse(_ context.Context, f *source.File) FileSyntax {
	return FileSyntax{
		Tokens: Tokenize(f.Text),
		Status: source.StatusOK,
	}
}
