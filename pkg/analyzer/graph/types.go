package graph

import "strings"

// ImportEdge is one import statement mapped onto the catalog. From and
// Resolved are root-relative slash paths; Resolved is empty until the
// builder matches the spec to a catalog entry.
type ImportEdge struct {
	From     string   `json:"from" toon:"from"`
	Spec     string   `json:"spec" toon:"spec"`
	Names    []string `json:"names,omitempty" toon:"names,omitempty"`
	Line     int      `json:"line" toon:"line"`
	EndLine  int      `json:"end_line,omitempty" toon:"end_line,omitempty"`
	Wildcard bool     `json:"wildcard,omitempty" toon:"wildcard,omitempty"`
	Resolved string   `json:"resolved,omitempty" toon:"resolved,omitempty"`
}

// Cycle is a closed walk of at least two distinct files, rotated so the
// lexicographically smallest path comes first. The rotation makes equal
// cycles compare equal regardless of where detection entered them.
type Cycle struct {
	Files []string `json:"files" toon:"files"`
}

// Key returns the canonical identity used for deduplication.
func (c Cycle) Key() string {
	return strings.Join(c.Files, " -> ")
}

// UnusedImport is a resolved import whose bound names never occur outside
// the import statement itself. The check is syntactic: re-exports and
// side-effect imports surface here as accepted false positives.
type UnusedImport struct {
	File string `json:"file" toon:"file"`
	Spec string `json:"spec" toon:"spec"`
	Name string `json:"name" toon:"name"`
	Line int    `json:"line" toon:"line"`
}

// UnresolvedImport is an import whose spec matched no catalog entry,
// typically an external package. Distinct from unused: an edge that never
// resolves is never reported as unused.
type UnresolvedImport struct {
	File string `json:"file" toon:"file"`
	Spec string `json:"spec" toon:"spec"`
	Line int    `json:"line" toon:"line"`
}

// Metrics is the descriptive summary block computed over the resolved-edge
// graph. The Cycles list on Result stays authoritative; these numbers only
// characterize the graph's shape.
type Metrics struct {
	Nodes             int     `json:"nodes" toon:"nodes"`
	Edges             int     `json:"edges" toon:"edges"`
	Density           float64 `json:"density" toon:"density"`
	AvgDegree         float64 `json:"avg_degree" toon:"avg_degree"`
	StronglyConnected int     `json:"strongly_connected_components" toon:"strongly_connected_components"`
}

// Result is the graph stage output.
type Result struct {
	Edges      []ImportEdge       `json:"edges" toon:"edges"`
	Cycles     []Cycle            `json:"cycles" toon:"cycles"`
	Unused     []UnusedImport     `json:"unused_imports" toon:"unused_imports"`
	Unresolved []UnresolvedImport `json:"unresolved_imports" toon:"unresolved_imports"`
	Metrics    Metrics            `json:"metrics" toon:"metrics"`
}
