// Package graph builds the cross-file dependency graph: it resolves import
// specs to catalog entries, enumerates circular dependencies, and classifies
// imports as unused or unresolved.
//
// Resolution is structural, not semantic. Path-like specs resolve relative
// to the importing file; bare module names match catalog paths by suffix.
// Everything that matches nothing stays in the graph as an unresolved edge,
// excluded from cycle detection but visible in the result.
//
// Cycle enumeration is a bounded DFS, not an exhaustive simple-cycle
// listing: on densely chorded graphs a cycle can be subsumed by the detour
// cycles found first. Every file on a cycle still appears in some reported
// cycle, and the strongly-connected-component count in Metrics is exact.
package graph

import (
	"context"
	"path"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/whynotshrutz/helix/pkg/analyzer"
)

// resolveSuffixes are the filename completions tried when a spec names a
// module rather than an exact file. Order matters for nothing: ambiguity
// resolves by shortest path, then lexicographic.
var resolveSuffixes = []string{
	"", ".py", ".go", ".js", ".ts", ".tsx", ".jsx", ".mjs", ".cjs",
	".rb", ".java", ".rs", ".c", ".h", ".cpp", ".hpp", ".cs", ".php",
	".kt", ".swift", ".scala", ".sh",
}

// indexNames are directory entry points tried after the plain suffixes.
var indexNames = []string{"__init__.py", "index.js", "index.ts", "index.jsx", "index.tsx"}

// Analyzer builds the dependency graph over a parsed catalog.
type Analyzer struct{}

var _ analyzer.FileAnalyzer[*Result] = (*Analyzer)(nil)

// New creates a graph analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze resolves every import edge against the catalog, detects cycles
// over the resolved subgraph, and classifies unused and unresolved imports.
// Runs single-threaded after the parse join; only cancellation errors.
func (a *Analyzer) Analyze(ctx context.Context, files []*analyzer.ParsedFile) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	res := &Result{}
	idx := newCatalogIndex(files)

	for _, pf := range files {
		for _, edge := range dedupeEdges(pf) {
			edge.Resolved = idx.resolve(pf.File.Path, edge.Spec)
			res.Edges = append(res.Edges, edge)

			if edge.Resolved == "" {
				res.Unresolved = append(res.Unresolved, UnresolvedImport{
					File: edge.From, Spec: edge.Spec, Line: edge.Line,
				})
				continue
			}
			if unused, name := isUnused(pf, edge); unused {
				res.Unused = append(res.Unused, UnusedImport{
					File: edge.From, Spec: edge.Spec, Name: name, Line: edge.Line,
				})
			}
		}
	}

	adj := adjacency(idx.paths, res.Edges)
	res.Cycles = findCycles(idx.paths, adj)
	res.Metrics = metrics(idx.paths, res.Edges)

	sortResult(res)
	return res, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// dedupeEdges collapses duplicate (from, spec) pairs, keeping the first
// line an import of that spec appears on.
func dedupeEdges(pf *analyzer.ParsedFile) []ImportEdge {
	var edges []ImportEdge
	seen := make(map[string]int) // spec -> index into edges

	for _, imp := range pf.Syntax.Imports {
		if imp.Spec == "" {
			continue
		}
		if i, ok := seen[imp.Spec]; ok {
			// Keep the earliest statement's span whole; merging disjoint
			// spans would hide uses between two duplicate statements.
			if imp.Line < edges[i].Line {
				edges[i].Line = imp.Line
				edges[i].EndLine = imp.EndLine
			}
			continue
		}
		seen[imp.Spec] = len(edges)
		edges = append(edges, ImportEdge{
			From:     pf.File.Path,
			Spec:     imp.Spec,
			Names:    imp.Names,
			Line:     imp.Line,
			EndLine:  imp.EndLine,
			Wildcard: imp.Wildcard,
		})
	}
	return edges
}

// isUnused reports whether none of the edge's bound names occur outside the
// import statement's own lines. The whole statement span is excluded so a
// multi-line statement's continuation lines don't count their own binding
// tokens as uses. Wildcard edges bind nothing checkable and are exempt.
func isUnused(pf *analyzer.ParsedFile, edge ImportEdge) (bool, string) {
	if edge.Wildcard || len(edge.Names) == 0 || pf.Syntax.Tokens == nil {
		return false, ""
	}
	end := edge.EndLine
	if end < edge.Line {
		end = edge.Line
	}
	for _, name := range edge.Names {
		if pf.Syntax.Tokens.OccursOutsideRange(name, uint32(edge.Line), uint32(end)) {
			return false, ""
		}
	}
	return true, edge.Names[0]
}

// catalogIndex resolves import specs against the catalog's path set.
type catalogIndex struct {
	paths  []string        // sorted catalog paths
	exists map[string]bool // path membership
}

func newCatalogIndex(files []*analyzer.ParsedFile) *catalogIndex {
	idx := &catalogIndex{exists: make(map[string]bool, len(files))}
	for _, pf := range files {
		idx.paths = append(idx.paths, pf.File.Path)
		idx.exists[pf.File.Path] = true
	}
	sort.Strings(idx.paths)
	return idx
}

// resolve maps a raw spec to a catalog path, or "" when nothing matches.
func (ix *catalogIndex) resolve(from, spec string) string {
	if isPathLike(spec) {
		return ix.resolveRelative(from, spec)
	}
	return ix.resolveName(spec)
}

// isPathLike reports whether the spec is written as a filesystem path.
func isPathLike(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/") || strings.Contains(spec, "/")
}

// resolveRelative resolves a path-like spec against the importing file's
// directory, trying the raw path, each recognized extension, and the
// directory index conventions.
func (ix *catalogIndex) resolveRelative(from, spec string) string {
	base := path.Dir(from)
	joined := path.Clean(path.Join(base, spec))
	if strings.HasPrefix(joined, "..") {
		// Escapes the analysis root; try the spec as root-relative too.
		joined = path.Clean(strings.TrimPrefix(spec, "/"))
	}

	for _, candidate := range []string{joined, path.Clean(strings.TrimPrefix(spec, "/"))} {
		for _, suffix := range resolveSuffixes {
			if ix.exists[candidate+suffix] {
				return candidate + suffix
			}
		}
		for _, index := range indexNames {
			p := candidate + "/" + index
			if ix.exists[p] {
				return p
			}
		}
	}
	return ""
}

// resolveName matches a bare or dotted module name against catalog paths by
// suffix. Multiple matches resolve deterministically: shortest path first,
// then lexicographic.
func (ix *catalogIndex) resolveName(spec string) string {
	slashed := strings.ReplaceAll(strings.ReplaceAll(spec, ".", "/"), "::", "/")

	var candidates []string
	for _, suffix := range resolveSuffixes[1:] {
		target := slashed + suffix
		if ix.exists[target] {
			candidates = append(candidates, target)
		}
		tail := "/" + target
		for _, p := range ix.paths {
			if strings.HasSuffix(p, tail) {
				candidates = append(candidates, p)
			}
		}
	}
	for _, index := range indexNames {
		target := slashed + "/" + index
		if ix.exists[target] {
			candidates = append(candidates, target)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// adjacency builds sorted, deduplicated neighbor lists over resolved edges.
// Every catalog path gets an entry, so traversal is total over the set.
func adjacency(nodes []string, edges []ImportEdge) map[string][]string {
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		adj[n] = nil
	}
	seen := make(map[string]bool)
	for _, e := range edges {
		if e.Resolved == "" || e.Resolved == e.From {
			continue
		}
		key := e.From + "\x00" + e.Resolved
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[e.From] = append(adj[e.From], e.Resolved)
	}
	for n := range adj {
		sort.Strings(adj[n])
	}
	return adj
}

// dfsFrame is one level of the explicit DFS stack.
type dfsFrame struct {
	node string
	next int
}

// findCycles enumerates closed walks with an iterative depth-first search.
// Each catalog node seeds a fresh traversal; neighbors iterate in sorted
// order, so the reported set is independent of file-processing order.
// Emitted cycles are canonicalized and deduplicated by canonical form.
func findCycles(nodes []string, adj map[string][]string) []Cycle {
	starts := append([]string(nil), nodes...)
	sort.Strings(starts)

	var cycles []Cycle
	emitted := make(map[string]bool)

	for _, start := range starts {
		visited := map[string]bool{start: true}
		onPath := map[string]bool{start: true}
		pathStack := []string{start}
		stack := []dfsFrame{{node: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := adj[top.node]

			if top.next >= len(neighbors) {
				onPath[top.node] = false
				pathStack = pathStack[:len(pathStack)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			n := neighbors[top.next]
			top.next++

			if onPath[n] {
				// Closed walk: the path suffix from n to the current node.
				for i, p := range pathStack {
					if p != n {
						continue
					}
					c := canonicalize(pathStack[i:])
					if len(c.Files) >= 2 && !emitted[c.Key()] {
						emitted[c.Key()] = true
						cycles = append(cycles, c)
					}
					break
				}
				continue
			}
			if visited[n] {
				continue
			}
			visited[n] = true
			onPath[n] = true
			pathStack = append(pathStack, n)
			stack = append(stack, dfsFrame{node: n})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Key() < cycles[j].Key()
	})
	return cycles
}

// canonicalize rotates a cycle to start at its lexicographically smallest
// path, deduplicating equivalent rotations.
func canonicalize(walk []string) Cycle {
	if len(walk) == 0 {
		return Cycle{}
	}
	smallest := 0
	for i, p := range walk {
		if p < walk[smallest] {
			smallest = i
		}
	}
	files := make([]string, 0, len(walk))
	files = append(files, walk[smallest:]...)
	files = append(files, walk[:smallest]...)
	return Cycle{Files: files}
}

// metrics mirrors the resolved edges onto a gonum directed graph and
// derives the descriptive summary block.
func metrics(nodes []string, edges []ImportEdge) Metrics {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		ids[n] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}

	edgeCount := 0
	seen := make(map[string]bool)
	for _, e := range edges {
		if e.Resolved == "" || e.Resolved == e.From {
			continue
		}
		key := e.From + "\x00" + e.Resolved
		if seen[key] {
			continue
		}
		seen[key] = true
		g.SetEdge(simple.Edge{F: simple.Node(ids[e.From]), T: simple.Node(ids[e.Resolved])})
		edgeCount++
	}

	m := Metrics{Nodes: len(nodes), Edges: edgeCount}
	if len(nodes) > 1 {
		m.Density = float64(edgeCount) / float64(len(nodes)*(len(nodes)-1))
	}
	if len(nodes) > 0 {
		m.AvgDegree = float64(edgeCount) / float64(len(nodes))
	}
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) >= 2 {
			m.StronglyConnected++
		}
	}
	return m
}

// sortResult fixes every list's order so equal inputs serialize identically.
func sortResult(res *Result) {
	sort.Slice(res.Edges, func(i, j int) bool {
		a, b := res.Edges[i], res.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Spec < b.Spec
	})
	sort.Slice(res.Unused, func(i, j int) bool {
		a, b := res.Unused[i], res.Unused[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Spec < b.Spec
	})
	sort.Slice(res.Unresolved, func(i, j int) bool {
		a, b := res.Unresolved[i], res.Unresolved[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Spec < b.Spec
	})
}
