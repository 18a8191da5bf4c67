package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile(t *testing.T) {
	f := NewFile("pkg/app.py", []byte("import os\nprint(1)\n"))

	assert.Equal(t, "pkg/app.py", f.Path)
	assert.Equal(t, 2, f.Lines)
	assert.Equal(t, int64(19), f.Size)
	assert.Equal(t, StatusOK, f.Status)
	assert.NotZero(t, f.Digest)
}

func TestNewFile_NoTrailingNewline(t *testing.T) {
	f := NewFile("a.go", []byte("package a\nvar x = 1"))
	assert.Equal(t, 2, f.Lines)
}

func TestNewFile_Empty(t *testing.T) {
	f := NewFile("empty.go", nil)
	assert.Equal(t, 0, f.Lines)
	assert.Equal(t, StatusOK, f.Status)
}

func TestNewFile_Binary(t *testing.T) {
	f := NewFile("blob.py", []byte("abc\x00def"))

	require.Equal(t, StatusFailed, f.Status)
	assert.Equal(t, "binary content", f.Reason)
	assert.Equal(t, int64(7), f.Size)
}

func TestNewFile_InvalidEncoding(t *testing.T) {
	f := NewFile("latin1.py", []byte{'c', 'a', 'f', 0xe9, '\n'})

	require.Equal(t, StatusFailed, f.Status)
	assert.Equal(t, "invalid encoding", f.Reason)
	// Lossy decode keeps line accounting intact.
	assert.Equal(t, 1, f.Lines)
}

func TestNewFile_DigestDeterministic(t *testing.T) {
	a := NewFile("a.py", []byte("x = 1\n"))
	b := NewFile("b.py", []byte("x = 1\n"))
	c := NewFile("c.py", []byte("x = 2\n"))

	assert.Equal(t, a.Digest, b.Digest, "identical content should hash identically")
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestFileFail(t *testing.T) {
	f := NewFile("a.py", []byte("x = 1\n"))
	failed := f.Fail("timeout")

	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "timeout", failed.Reason)
	assert.Equal(t, StatusOK, f.Status, "Fail should not mutate the original")

	// Already-failed files keep their first reason.
	binary := NewFile("b.py", []byte{0x00})
	assert.Equal(t, "binary content", binary.Fail("timeout").Reason)
}

func TestFileDegrade(t *testing.T) {
	f := NewFile("a.rb", []byte("def x; end\n"))

	partial := f.Degrade("parse error")
	assert.Equal(t, StatusPartial, partial.Status)

	failed := f.Fail("oversize").Degrade("parse error")
	assert.Equal(t, StatusFailed, failed.Status, "Degrade should not resurrect a failed file")
}

func TestFilesystemSource(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))

	src := NewFilesystem(tmpDir)

	content, err := src.Read("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(content))

	n, err := src.Size("main.go")
	require.NoError(t, err)
	assert.Equal(t, int64(len("package main\n")), n)

	_, err = src.Read("missing.go")
	assert.Error(t, err)
	_, err = src.Size("missing.go")
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	src := NewMemory(map[string][]byte{
		"a.py": []byte("x = 1\n"),
	})

	content, err := src.Read("a.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))

	n, err := src.Size("a.py")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = src.Read("b.py")
	assert.True(t, os.IsNotExist(err))
}

func TestContentSourceImplementations(t *testing.T) {
	var _ ContentSource = (*FilesystemSource)(nil)
	var _ ContentSource = (*MemorySource)(nil)
	var _ Sized = (*FilesystemSource)(nil)
	var _ Sized = (*MemorySource)(nil)
}
