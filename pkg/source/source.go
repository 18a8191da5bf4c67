// Package source defines the file entities produced by the catalog and the
// content access seam shared by the analyzers.
package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// ParseStatus records how far a file made it through analysis.
type ParseStatus string

const (
	// StatusOK means the file decoded and parsed cleanly.
	StatusOK ParseStatus = "ok"
	// StatusPartial means structural parsing degraded but token-level
	// analysis still ran.
	StatusPartial ParseStatus = "partial"
	// StatusFailed means the file was excluded from structural analysis
	// (binary content, oversize, timeout). It still counts in summaries.
	StatusFailed ParseStatus = "failed"
)

// String returns the string representation.
func (s ParseStatus) String() string {
	return string(s)
}

// File is one catalog entry. Identity is the slash-normalized path relative
// to the analysis root. Files are handed out by value; analysis stages work
// on their own copies and never mutate the catalog's slice.
type File struct {
	Path     string      `json:"path" toon:"path"`
	Language string      `json:"language" toon:"language"`
	Size     int64       `json:"bytes" toon:"bytes"`
	Lines    int         `json:"lines" toon:"lines"`
	Status   ParseStatus `json:"status" toon:"status"`
	Reason   string      `json:"reason,omitempty" toon:"reason,omitempty"`

	// Text is the decoded content. Lossily decoded when the raw bytes are
	// not valid UTF-8 so byte and line accounting still work.
	Text string `json:"-" toon:"-"`

	// Digest is a 64-bit content hash. It feeds the report's input digest
	// and never affects analysis results.
	Digest uint64 `json:"-" toon:"-"`
}

// NewFile builds a catalog entry from raw content. Binary or invalid-UTF-8
// content marks the file failed with a lossy decode retained for accounting.
func NewFile(path string, content []byte) File {
	f := File{
		Path:   path,
		Size:   int64(len(content)),
		Lines:  countLines(content),
		Status: StatusOK,
		Digest: xxhash.Sum64(content),
	}

	switch {
	case bytes.IndexByte(content, 0) >= 0:
		f.Status = StatusFailed
		f.Reason = "binary content"
		f.Text = strings.ToValidUTF8(string(content), "�")
	case !utf8.Valid(content):
		f.Status = StatusFailed
		f.Reason = "invalid encoding"
		f.Text = strings.ToValidUTF8(string(content), "�")
	default:
		f.Text = string(content)
	}

	return f
}

// Fail returns a copy of the file marked failed with the given reason.
// A file that already failed keeps its original reason.
func (f File) Fail(reason string) File {
	if f.Status == StatusFailed {
		return f
	}
	f.Status = StatusFailed
	f.Reason = reason
	return f
}

// Degrade returns a copy marked partial unless the file already failed.
func (f File) Degrade(reason string) File {
	if f.Status == StatusFailed {
		return f
	}
	f.Status = StatusPartial
	f.Reason = reason
	return f
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// Sized is implemented by sources that can report a file's size without
// reading it, letting callers reject oversize files before the read.
type Sized interface {
	Size(path string) (int64, error)
}

// FilesystemSource reads files from the local filesystem, resolving
// slash-normalized relative paths against a root directory.
type FilesystemSource struct {
	root string
}

// NewFilesystem creates a source that reads from the filesystem.
// An empty root resolves paths as-is.
func NewFilesystem(root string) *FilesystemSource {
	return &FilesystemSource{root: root}
}

// Read implements ContentSource.
func (s *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(s.resolve(path))
}

// Size implements Sized via a stat, without reading the file.
func (s *FilesystemSource) Size(path string) (int64, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FilesystemSource) resolve(path string) string {
	if s.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.root, filepath.FromSlash(path))
	}
	return path
}

// MemorySource serves content from an in-memory map. Used by tests and by
// re-analysis loops that already hold file content.
type MemorySource struct {
	files map[string][]byte
}

// NewMemory creates a source over the given path -> content map.
func NewMemory(files map[string][]byte) *MemorySource {
	return &MemorySource{files: files}
}

// Read implements ContentSource.
func (s *MemorySource) Read(path string) ([]byte, error) {
	content, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return content, nil
}

// Size implements Sized.
func (s *MemorySource) Size(path string) (int64, error) {
	content, ok := s.files[path]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(len(content)), nil
}
