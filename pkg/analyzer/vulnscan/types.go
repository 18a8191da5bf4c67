package vulnscan

// Category is the stable rule identifier attached to findings.
type Category string

// String implements fmt.Stringer for toon serialization.
func (c Category) String() string {
	return string(c)
}

const (
	CategoryEvalUsage             Category = "eval_usage"             // eval(, exec(
	CategoryUnsafeDeserialization Category = "unsafe_deserialization" // pickle.load, yaml.load, Marshal.load
	CategoryShellInjection        Category = "shell_injection"        // shell=True, os.system
	CategoryHardcodedSecret       Category = "hardcoded_secret"       // credential bound to a literal
	CategorySQLInjection          Category = "sql_injection"          // query built by concatenation
	CategoryXSSSink               Category = "xss_sink"               // innerHTML, document.write
	CategoryWeakHash              Category = "weak_hash"              // md5, sha1 constructors
	CategoryPathTraversal         Category = "path_traversal"         // file access over external input
	CategoryInsecureTransport     Category = "insecure_transport"     // http:// endpoints
)

// Severity ranks how urgently a finding needs attention.
type Severity string

// String implements fmt.Stringer for toon serialization.
func (s Severity) String() string {
	return string(s)
}

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns a numeric weight for sorting, highest first.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is a single rule match. Immutable once emitted; the same line may
// carry findings from several categories but never two from one category.
type Finding struct {
	Category    Category `json:"category" toon:"category"`
	Severity    Severity `json:"severity" toon:"severity"`
	Title       string   `json:"title" toon:"title"`
	File        string   `json:"file" toon:"file"`
	Line        uint32   `json:"line" toon:"line"`
	Snippet     string   `json:"snippet" toon:"snippet"`
	Remediation string   `json:"remediation" toon:"remediation"`
	// ContextDigest identifies this finding across runs. It hashes the
	// category, path, and snippet, so line drift doesn't break identity.
	ContextDigest string `json:"context_digest" toon:"context_digest"`
}

// Result is the scanner stage output.
type Result struct {
	Findings     []Finding `json:"findings" toon:"findings"`
	FilesScanned int       `json:"files_scanned" toon:"files_scanned"`
	// RulesSkipped counts rule/file pairs abandoned after a rule panic.
	RulesSkipped int `json:"rules_skipped,omitempty" toon:"rules_skipped,omitempty"`
}
