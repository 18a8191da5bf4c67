// Package fileproc runs the parse stage: it fans the catalog out across a
// bounded worker pool and joins the results back in catalog order.
package fileproc

import (
	"context"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/parser"
	"github.com/whynotshrutz/helix/pkg/source"
)

// DefaultWorkerMultiplier is applied to NumCPU for the worker count.
// 2x suits the mixed CGO and pure-Go parsing workload.
const DefaultWorkerMultiplier = 2

// Options bound the parse stage.
type Options struct {
	// Workers caps concurrent parses. Values below one fall back to
	// NumCPU times DefaultWorkerMultiplier.
	Workers int
	// FileTimeout bounds a single file's parse. Zero disables the bound.
	FileTimeout time.Duration
}

// ParseAll parses every catalog file and returns one result per input, in
// input order. Files the catalog already failed are passed through without
// parsing. Only context cancellation produces an error; malformed files
// degrade their own status instead.
func ParseAll(ctx context.Context, files []source.File, opts Options) ([]*analyzer.ParsedFile, error) {
	if len(files) == 0 {
		return nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	tracker := analyzer.TrackerFromContext(ctx)
	results := make([]*analyzer.ParsedFile, len(files))

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i := range files {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			f := files[i]
			results[i] = parseOne(ctx, f, opts.FileTimeout)
			if tracker != nil {
				tracker.Tick(f.Path)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// parseOne runs the language adapter for a single file and folds the parse
// outcome into the file's status.
func parseOne(ctx context.Context, f source.File, timeout time.Duration) *analyzer.ParsedFile {
	if f.Status == source.StatusFailed {
		return &analyzer.ParsedFile{
			File:   &f,
			Syntax: parser.FileSyntax{Tokens: parser.NewTokenIndex(), Status: f.Status, Reason: f.Reason},
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	adapter := parser.AdapterFor(parser.Language(f.Language))
	syn := adapter.Parse(ctx, &f)

	switch syn.Status {
	case source.StatusFailed:
		f = f.Fail(syn.Reason)
	case source.StatusPartial:
		f = f.Degrade(syn.Reason)
	}

	return &analyzer.ParsedFile{File: &f, Syntax: syn}
}
