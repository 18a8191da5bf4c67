package parser

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// TokenIndex maps identifier tokens to the 1-based lines where they occur.
// All adapter tiers build one per file; the unused-import check queries it.
// Built single-threaded during parsing and read-only afterwards.
type TokenIndex struct {
	lines map[string]*roaring.Bitmap
}

// NewTokenIndex creates an empty index.
func NewTokenIndex() *TokenIndex {
	return &TokenIndex{lines: make(map[string]*roaring.Bitmap)}
}

// Add records an occurrence of token on line.
func (ix *TokenIndex) Add(token string, line uint32) {
	bm, ok := ix.lines[token]
	if !ok {
		bm = roaring.New()
		ix.lines[token] = bm
	}
	bm.Add(line)
}

// Contains reports whether token occurs anywhere in the file.
func (ix *TokenIndex) Contains(token string) bool {
	bm, ok := ix.lines[token]
	return ok && !bm.IsEmpty()
}

// Lines returns the sorted lines where token occurs.
func (ix *TokenIndex) Lines(token string) []uint32 {
	bm, ok := ix.lines[token]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

// OccursOutsideRange reports whether token occurs on any line outside the
// inclusive [start, end] span. The unused-import check excludes the import
// statement's full span so binding tokens on continuation lines of a
// multi-line statement don't count as uses.
func (ix *TokenIndex) OccursOutsideRange(token string, start, end uint32) bool {
	bm, ok := ix.lines[token]
	if !ok || bm.IsEmpty() {
		return false
	}
	if end < start {
		start, end = end, start
	}
	rest := bm.Clone()
	rest.RemoveRange(uint64(start), uint64(end)+1)
	return !rest.IsEmpty()
}

// Distinct returns the number of distinct identifiers in the index.
func (ix *TokenIndex) Distinct() int {
	return len(ix.lines)
}

// Tokenize builds a token index over text using the shared identifier shape
// [A-Za-z_][A-Za-z0-9_]*. Number literals are skipped whole so hex digits
// don't surface as identifiers.
func Tokenize(text string) *TokenIndex {
	ix := NewTokenIndex()
	line := uint32(1)

	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\n':
			line++
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			ix.Add(text[i:j], line)
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			i = j
		default:
			i++
		}
	}

	return ix
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
