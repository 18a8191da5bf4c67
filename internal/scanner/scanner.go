// Package scanner builds the source catalog for an analysis run: it walks a
// root directory, applies include globs and exclusion rules, reads content
// with a lossy fallback, and returns a sorted, capped file list.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/whynotshrutz/helix/pkg/parser"
	"github.com/whynotshrutz/helix/pkg/source"
)

// DefaultMaxFiles caps how many files one run analyzes.
const DefaultMaxFiles = 100

// DefaultMaxFileSize is the size above which a file is marked failed
// without reading it into the analysis.
const DefaultMaxFileSize = 1 << 20

// DefaultExcludeDirs are directory names skipped during the walk.
var DefaultExcludeDirs = []string{
	"node_modules", "vendor", "venv", ".venv", "__pycache__",
	"dist", "build", "target", ".git", "tmp",
}

// Options controls catalog construction. The zero value takes every default.
type Options struct {
	// Include holds doublestar globs matched against root-relative slash
	// paths. Empty means every recognized source extension.
	Include []string
	// ExcludeDirs lists directory names to skip. Nil means the defaults;
	// an explicit empty slice disables directory exclusion.
	ExcludeDirs []string
	// Gitignore enables .gitignore-based exclusion when the root sits in
	// a git work tree.
	Gitignore bool
	// MaxFiles caps the catalog. Values below one fall back to the default.
	MaxFiles int
	// MaxFileSize marks larger files failed without reading them.
	// Values below one fall back to the default.
	MaxFileSize int64
	// Contents overrides where file bytes come from. Nil reads the
	// filesystem under the scan root. The walk that selects paths always
	// runs against the filesystem; only content reads go through here.
	Contents source.ContentSource
}

// Catalog is the deduplicated, sorted set of files selected for one run.
type Catalog struct {
	// Root is the absolute analysis root all file paths are relative to.
	Root string
	// Files are ordered by path, ascending, byte-wise.
	Files []source.File
	// Truncated records that the candidate set exceeded MaxFiles.
	Truncated bool
}

// Scanner finds and reads source files for one analysis run.
type Scanner struct {
	opts     Options
	matchers []gitignore.Matcher
}

// New creates a scanner. Nil option fields keep their defaults.
func New(opts Options) *Scanner {
	if opts.ExcludeDirs == nil {
		opts.ExcludeDirs = DefaultExcludeDirs
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns the catalog. A missing or unreadable root is
// the only hard failure; unreadable files inside the tree degrade to failed
// catalog entries instead.
func (s *Scanner) Scan(root string) (*Catalog, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}
	// Resolve symlinks once so containment checks compare real paths.
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	s.loadGitignore(absRoot)

	paths, err := s.collect(absRoot)
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)

	cat := &Catalog{Root: absRoot}
	if len(paths) > s.opts.MaxFiles {
		paths = paths[:s.opts.MaxFiles]
		cat.Truncated = true
	}

	contents := s.opts.Contents
	if contents == nil {
		contents = source.NewFilesystem(absRoot)
	}
	for _, rel := range paths {
		cat.Files = append(cat.Files, s.readFile(contents, rel))
	}
	return cat, nil
}

// collect walks the tree and returns candidate paths relative to root,
// slash-separated. Walk errors on subtrees are skipped, not fatal.
func (s *Scanner) collect(absRoot string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		// Symlinks may only point back inside the root.
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !within(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.excludeDir(d.Name()) || s.ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.ignored(rel, false) || !s.include(rel) {
			return nil
		}
		if !seen[rel] {
			seen[rel] = true
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}
	return paths, nil
}

// readFile builds the catalog entry for one relative path. Read errors and
// oversizes become failed entries so the run keeps its full file count.
func (s *Scanner) readFile(contents source.ContentSource, rel string) source.File {
	f := source.File{Path: rel, Language: parser.DetectLanguage(rel).String()}

	// Sources that know sizes up front let oversize files fail unread.
	if sized, ok := contents.(source.Sized); ok {
		n, err := sized.Size(rel)
		if err != nil {
			return f.Fail("unreadable")
		}
		if n > s.opts.MaxFileSize {
			f.Size = n
			return f.Fail("file too large")
		}
	}

	content, err := contents.Read(rel)
	if err != nil {
		return f.Fail("unreadable")
	}
	if int64(len(content)) > s.opts.MaxFileSize {
		f.Size = int64(len(content))
		return f.Fail("file too large")
	}
	read := source.NewFile(rel, content)
	read.Language = f.Language
	return read
}

// include reports whether a relative slash path matches the include set.
func (s *Scanner) include(rel string) bool {
	if len(s.opts.Include) == 0 {
		return parser.DetectLanguage(rel) != parser.LangUnknown
	}
	for _, pattern := range s.opts.Include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *Scanner) excludeDir(name string) bool {
	for _, dir := range s.opts.ExcludeDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// loadGitignore wires up gitignore matchers when enabled. Patterns come from
// every .gitignore under the enclosing git work tree, same as git itself.
// Matchers are rebuilt on every call so a reused scanner never carries one
// root's patterns into the next scan.
func (s *Scanner) loadGitignore(root string) {
	s.matchers = nil
	if !s.opts.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(patterns) == 0 {
		return
	}
	s.matchers = []gitignore.Matcher{gitignore.NewMatcher(patterns)}
}

func (s *Scanner) ignored(rel string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// within reports whether path is contained in root after normalization.
func within(path, root string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	root = filepath.Clean(root)
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}
