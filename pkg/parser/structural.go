package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/whynotshrutz/helix/pkg/source"
)

// StructuralAdapter extracts syntax by walking a real tree-sitter parse
// tree, driven by per-language node-type tables.
type StructuralAdapter struct {
	lang Language
}

// Parse implements Adapter. A grammar-level parse failure downgrades to the
// heuristic adapter with partial status; a context expiry fails the file.
func (a *StructuralAdapter) Parse(ctx context.Context, f *source.File) FileSyntax {
	content := []byte(f.Text)

	p := New()
	defer p.Close()

	tree, err := p.Parse(ctx, content, a.lang)
	if err != nil {
		if ctx.Err() != nil {
			return FileSyntax{
				Tokens: NewTokenIndex(),
				Status: source.StatusFailed,
				Reason: "parse timeout",
			}
		}
		h := &HeuristicAdapter{lang: a.lang}
		syn := h.Parse(ctx, f)
		syn.Status = source.StatusPartial
		syn.Reason = "structural parse failed"
		return syn
	}

	ext := newExtractor(a.lang, content, splitLines(f.Text))
	syn := ext.extract(tree.RootNode())
	syn.Tokens = Tokenize(f.Text)

	if tree.RootNode().HasError() {
		syn.Status = source.StatusPartial
		syn.Reason = "syntax errors"
	} else {
		syn.Status = source.StatusOK
	}
	return syn
}

// extractor performs a single typed walk collecting imports and definitions.
type extractor struct {
	lang        Language
	source      []byte
	lines       []string
	importTypes map[string]bool
	funcTypes   map[string]bool
	classTypes  map[string]bool
	branchTypes map[string]bool
}

func newExtractor(lang Language, src []byte, lines []string) *extractor {
	return &extractor{
		lang:        lang,
		source:      src,
		lines:       lines,
		importTypes: makeSet(importNodeTypes(lang)),
		funcTypes:   makeSet(functionNodeTypes(lang)),
		classTypes:  makeSet(classNodeTypes(lang)),
		branchTypes: makeSet(branchNodeTypes(lang)),
	}
}

func (e *extractor) extract(root *sitter.Node) FileSyntax {
	syn := FileSyntax{}

	WalkTyped(root, e.source, func(node *sitter.Node, nodeType string, src []byte) bool {
		if e.importTypes[nodeType] {
			imps := e.extractImports(node)
			end := int(node.EndPoint().Row) + 1
			for i := range imps {
				imps[i].EndLine = end
			}
			syn.Imports = append(syn.Imports, imps...)
		}
		switch {
		case e.funcTypes[nodeType]:
			if def, ok := e.extractFunction(node, nodeType); ok {
				syn.Definitions = append(syn.Definitions, def)
			}
		case e.classTypes[nodeType]:
			if def, ok := e.extractClass(node, nodeType); ok {
				syn.Definitions = append(syn.Definitions, def)
			}
		}
		return true
	})

	return syn
}

// importNodeTypes returns the AST node types carrying import statements.
func importNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_spec"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"import_statement"}
	case LangJava:
		return []string{"import_declaration"}
	case LangRuby:
		return []string{"call"} // require, require_relative, load are method calls
	case LangRust:
		return []string{"use_declaration"}
	case LangC, LangCPP:
		return []string{"preproc_include"}
	case LangCSharp:
		return []string{"using_directive"}
	case LangPHP:
		return []string{
			"namespace_use_declaration", "require_expression",
			"require_once_expression", "include_expression", "include_once_expression",
		}
	case LangShell:
		return []string{"command"} // source and . are ordinary commands
	default:
		return nil
	}
}

func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangPython:
		return []string{"function_definition"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"function_declaration", "generator_function_declaration", "method_definition", "variable_declarator"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangRuby:
		return []string{"method", "singleton_method"}
	case LangRust:
		return []string{"function_item"}
	case LangC, LangCPP:
		return []string{"function_definition"}
	case LangCSharp:
		return []string{"method_declaration", "constructor_declaration", "local_function_statement"}
	case LangPHP:
		return []string{"function_definition", "method_declaration"}
	case LangShell:
		return []string{"function_definition"}
	default:
		return nil
	}
}

func classNodeTypes(lang Language) []string {
	switch lang {
	case LangPython:
		return []string{"class_definition"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"class_declaration"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration"}
	case LangRuby:
		return []string{"class", "module"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item"}
	case LangCPP:
		return []string{"class_specifier"}
	case LangCSharp:
		return []string{"class_declaration", "interface_declaration", "struct_declaration"}
	case LangPHP:
		return []string{"class_declaration", "interface_declaration", "trait_declaration"}
	default:
		return nil
	}
}

// branchNodeTypes returns the constructs that add a decision path. Switch
// arms count per case so a three-way switch contributes three paths.
func branchNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"if_statement", "for_statement", "expression_case", "type_case", "communication_case"}
	case LangPython:
		return []string{"if_statement", "elif_clause", "while_statement", "for_statement", "except_clause", "conditional_expression", "if_clause"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"if_statement", "while_statement", "do_statement", "for_statement", "for_in_statement", "switch_case", "catch_clause", "ternary_expression"}
	case LangJava:
		return []string{"if_statement", "while_statement", "do_statement", "for_statement", "enhanced_for_statement", "switch_label", "catch_clause", "ternary_expression"}
	case LangRuby:
		return []string{
			"if", "elsif", "unless", "while", "until", "for", "when", "rescue", "conditional",
			"if_modifier", "unless_modifier", "while_modifier", "until_modifier", "rescue_modifier",
		}
	case LangRust:
		return []string{
			"if_expression", "if_let_expression", "while_expression",
			"while_let_expression", "loop_expression", "for_expression", "match_arm",
		}
	case LangC:
		return []string{"if_statement", "while_statement", "do_statement", "for_statement", "case_statement", "conditional_expression"}
	case LangCPP:
		return []string{"if_statement", "while_statement", "do_statement", "for_statement", "case_statement", "conditional_expression", "catch_clause"}
	case LangCSharp:
		return []string{"if_statement", "while_statement", "do_statement", "for_statement", "foreach_statement", "switch_section", "catch_clause", "conditional_expression"}
	case LangPHP:
		return []string{
			"if_statement", "else_if_clause", "while_statement", "do_statement",
			"for_statement", "foreach_statement", "case_statement", "catch_clause",
			"conditional_expression", "match_conditional_expression",
		}
	case LangShell:
		return []string{"if_statement", "elif_clause", "while_statement", "for_statement", "c_style_for_statement", "case_item", "ternary_expression"}
	default:
		return nil
	}
}

// extractImports turns one import node into edges. Statements importing
// several modules produce one edge per module.
func (e *extractor) extractImports(node *sitter.Node) []Import {
	line := int(node.StartPoint().Row) + 1

	switch e.lang {
	case LangGo:
		return e.goImport(node, line)
	case LangPython:
		return e.pythonImport(node, line)
	case LangTypeScript, LangJavaScript, LangTSX:
		return e.jsImport(node, line)
	case LangJava:
		return e.javaImport(node, line)
	case LangRuby:
		return e.rubyImport(node, line)
	case LangRust:
		return e.rustImport(node, line)
	case LangC, LangCPP:
		return e.cImport(node, line)
	case LangCSharp:
		return e.csharpImport(node, line)
	case LangPHP:
		return e.phpImport(node, line)
	case LangShell:
		return e.shellImport(node, line)
	}
	return nil
}

func (e *extractor) goImport(node *sitter.Node, line int) []Import {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	spec := trimQuotes(GetNodeText(pathNode, e.source))
	if spec == "" {
		return nil
	}

	imp := Import{Spec: spec, Line: line}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		alias := GetNodeText(nameNode, e.source)
		if alias == "_" || alias == "." {
			imp.Wildcard = true
		} else {
			imp.Names = []string{alias}
		}
	} else {
		imp.Names = []string{pathTail(spec)}
	}
	return []Import{imp}
}

func (e *extractor) pythonImport(node *sitter.Node, line int) []Import {
	if node.Type() == "import_from_statement" {
		modNode := node.ChildByFieldName("module_name")
		spec := GetNodeText(modNode, e.source)
		if spec == "" {
			return nil
		}
		imp := Import{Spec: spec, Line: line}

		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.StartByte() == modNode.StartByte() && child.EndByte() == modNode.EndByte() {
				continue
			}
			switch child.Type() {
			case "wildcard_import":
				imp.Wildcard = true
			case "dotted_name", "identifier":
				imp.Names = append(imp.Names, GetNodeText(child, e.source))
			case "aliased_import":
				if alias := child.ChildByFieldName("alias"); alias != nil {
					imp.Names = append(imp.Names, GetNodeText(alias, e.source))
				}
			}
		}
		if len(imp.Names) == 0 && !imp.Wildcard {
			imp.Wildcard = true
		}
		return []Import{imp}
	}

	// Plain import: each module is its own edge. "import os.path" binds os.
	var imports []Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			spec := GetNodeText(child, e.source)
			imports = append(imports, Import{Spec: spec, Names: []string{dottedHead(spec)}, Line: line})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			spec := GetNodeText(nameNode, e.source)
			if spec == "" {
				continue
			}
			imp := Import{Spec: spec, Line: line}
			if alias := GetNodeText(aliasNode, e.source); alias != "" {
				imp.Names = []string{alias}
			} else {
				imp.Names = []string{dottedHead(spec)}
			}
			imports = append(imports, imp)
		}
	}
	return imports
}

func (e *extractor) jsImport(node *sitter.Node, line int) []Import {
	sourceNode := node.ChildByFieldName("source")
	spec := trimQuotes(GetNodeText(sourceNode, e.source))
	if spec == "" {
		return nil
	}
	imp := Import{Spec: spec, Line: line}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			clause := child.NamedChild(j)
			switch clause.Type() {
			case "identifier": // default import
				imp.Names = append(imp.Names, GetNodeText(clause, e.source))
			case "namespace_import": // * as ns
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					if clause.NamedChild(k).Type() == "identifier" {
						imp.Names = append(imp.Names, GetNodeText(clause.NamedChild(k), e.source))
					}
				}
			case "named_imports":
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					specifier := clause.NamedChild(k)
					if specifier.Type() != "import_specifier" {
						continue
					}
					if alias := specifier.ChildByFieldName("alias"); alias != nil {
						imp.Names = append(imp.Names, GetNodeText(alias, e.source))
					} else if name := specifier.ChildByFieldName("name"); name != nil {
						imp.Names = append(imp.Names, GetNodeText(name, e.source))
					}
				}
			}
		}
	}

	// Side-effect import: import './styles.css'
	if len(imp.Names) == 0 {
		imp.Wildcard = true
	}
	return []Import{imp}
}

func (e *extractor) javaImport(node *sitter.Node, line int) []Import {
	var spec string
	wildcard := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "scoped_identifier", "identifier":
			spec = GetNodeText(child, e.source)
		case "asterisk":
			wildcard = true
		}
	}
	if spec == "" {
		return nil
	}
	imp := Import{Spec: spec, Line: line, Wildcard: wildcard}
	if !wildcard {
		imp.Names = []string{dottedTail(spec)}
	}
	return []Import{imp}
}

func (e *extractor) rubyImport(node *sitter.Node, line int) []Import {
	methodNode := node.ChildByFieldName("method")
	method := GetNodeText(methodNode, e.source)
	if method != "require" && method != "require_relative" && method != "load" {
		return nil
	}
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		child := argsNode.NamedChild(i)
		if child.Type() == "string" {
			spec := trimQuotes(GetNodeText(child, e.source))
			if spec == "" {
				return nil
			}
			if method == "require_relative" && !strings.HasPrefix(spec, ".") {
				spec = "./" + spec
			}
			// requires bind no name; the unused check skips them
			return []Import{{Spec: spec, Line: line, Wildcard: true}}
		}
	}
	return nil
}

func (e *extractor) rustImport(node *sitter.Node, line int) []Import {
	argNode := node.ChildByFieldName("argument")
	if argNode == nil {
		return nil
	}
	text := GetNodeText(argNode, e.source)
	if text == "" {
		return nil
	}
	imp := Import{Spec: text, Line: line}
	switch {
	case strings.HasSuffix(text, "::*"):
		imp.Spec = strings.TrimSuffix(text, "::*")
		imp.Wildcard = true
	case strings.Contains(text, "{"):
		if idx := strings.Index(text, "::{"); idx >= 0 {
			imp.Spec = text[:idx]
		}
		imp.Wildcard = true
	case argNode.Type() == "use_as_clause":
		if alias := argNode.ChildByFieldName("alias"); alias != nil {
			imp.Names = []string{GetNodeText(alias, e.source)}
			if path := argNode.ChildByFieldName("path"); path != nil {
				imp.Spec = GetNodeText(path, e.source)
			}
		}
	default:
		imp.Names = []string{pathTail(text)}
	}
	return []Import{imp}
}

func (e *extractor) cImport(node *sitter.Node, line int) []Import {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	text := GetNodeText(pathNode, e.source)
	spec := strings.Trim(text, "\"<>")
	if spec == "" {
		return nil
	}
	// Headers bind no identifier; system includes stay unresolved by design.
	return []Import{{Spec: spec, Line: line, Wildcard: true}}
}

func (e *extractor) csharpImport(node *sitter.Node, line int) []Import {
	// A using directive carries one or two name children: the target, or an
	// alias identifier followed by the target.
	var names []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "qualified_name", "alias_qualified_name", "generic_name":
			names = append(names, child)
		}
	}
	if len(names) == 0 {
		return nil
	}

	spec := GetNodeText(names[len(names)-1], e.source)
	if spec == "" {
		return nil
	}
	imp := Import{Spec: spec, Line: line}
	if len(names) > 1 {
		imp.Names = []string{GetNodeText(names[0], e.source)}
	} else {
		imp.Names = []string{dottedTail(spec)}
	}
	return []Import{imp}
}

func (e *extractor) phpImport(node *sitter.Node, line int) []Import {
	if node.Type() != "namespace_use_declaration" {
		// require/include: the argument is a path string, binding nothing.
		var spec string
		Walk(node, e.source, func(n *sitter.Node, src []byte) bool {
			if spec != "" {
				return false
			}
			switch n.Type() {
			case "string", "encapsed_string":
				spec = strings.Trim(GetNodeText(n, src), `"'`)
				return false
			}
			return true
		})
		if spec == "" {
			return nil
		}
		return []Import{{Spec: spec, Line: line, Wildcard: true}}
	}

	// One declaration can list several clauses: use A\B, C\D as E;
	var imports []Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause.Type() != "namespace_use_clause" {
			continue
		}
		var spec, alias string
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "qualified_name", "name":
				spec = GetNodeText(part, e.source)
			case "namespace_aliasing_clause":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					if part.NamedChild(k).Type() == "name" {
						alias = GetNodeText(part.NamedChild(k), e.source)
					}
				}
			}
		}
		if spec == "" {
			continue
		}
		// Namespace separators become slashes so resolution treats the
		// spec as a path.
		spec = strings.ReplaceAll(spec, `\`, "/")
		imp := Import{Spec: spec, Line: line}
		if alias != "" {
			imp.Names = []string{alias}
		} else {
			imp.Names = []string{pathTail(spec)}
		}
		imports = append(imports, imp)
	}
	return imports
}

func (e *extractor) shellImport(node *sitter.Node, line int) []Import {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	cmd := GetNodeText(nameNode, e.source)
	if cmd != "source" && cmd != "." {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.StartByte() == nameNode.StartByte() {
			continue
		}
		switch child.Type() {
		case "word", "string", "raw_string", "concatenation":
			spec := strings.Trim(GetNodeText(child, e.source), `"'`)
			if spec == "" {
				return nil
			}
			// Sourcing binds no identifier; the whole file is pulled in.
			return []Import{{Spec: spec, Line: line, Wildcard: true}}
		}
	}
	return nil
}

func (e *extractor) extractFunction(node *sitter.Node, nodeType string) (Definition, bool) {
	name := e.functionName(node, nodeType)
	if name == "" {
		return Definition{}, false
	}

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	def := Definition{
		Kind:         e.functionKind(node, nodeType),
		Name:         name,
		StartLine:    startLine,
		EndLine:      endLine,
		ParamCount:   e.countParams(node, nodeType),
		BranchCount:  e.countBranches(node),
		HasDocstring: e.hasDocstring(node, startLine),
	}
	return def, true
}

func (e *extractor) extractClass(node *sitter.Node, nodeType string) (Definition, bool) {
	name := e.className(node, nodeType)
	if name == "" {
		return Definition{}, false
	}

	startLine := int(node.StartPoint().Row) + 1
	return Definition{
		Kind:         KindClass,
		Name:         name,
		StartLine:    startLine,
		EndLine:      int(node.EndPoint().Row) + 1,
		BranchCount:  e.countBranches(node),
		HasDocstring: e.hasDocstring(node, startLine),
	}, true
}

func (e *extractor) functionName(node *sitter.Node, nodeType string) string {
	// Arrow and function expressions surface through their declarator.
	if nodeType == "variable_declarator" {
		valueNode := node.ChildByFieldName("value")
		if valueNode == nil {
			return ""
		}
		switch valueNode.Type() {
		case "arrow_function", "function", "function_expression":
			return GetNodeText(node.ChildByFieldName("name"), e.source)
		}
		return ""
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return GetNodeText(nameNode, e.source)
	}

	// C/C++ bury the name inside nested declarators.
	if e.lang == LangC || e.lang == LangCPP {
		decl := node.ChildByFieldName("declarator")
		for decl != nil {
			switch decl.Type() {
			case "identifier", "field_identifier", "qualified_identifier":
				return GetNodeText(decl, e.source)
			}
			next := decl.ChildByFieldName("declarator")
			if next == nil {
				break
			}
			decl = next
		}
	}
	return ""
}

func (e *extractor) className(node *sitter.Node, nodeType string) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return GetNodeText(nameNode, e.source)
	}
	if e.lang == LangRuby {
		// Older ruby grammars expose the constant as a plain child.
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "constant" || child.Type() == "scope_resolution" {
				return GetNodeText(child, e.source)
			}
		}
	}
	return ""
}

func (e *extractor) functionKind(node *sitter.Node, nodeType string) DefKind {
	switch nodeType {
	case "method_declaration", "constructor_declaration", "method_definition", "singleton_method":
		return KindMethod
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		if e.classTypes[t] || t == "impl_item" {
			return KindMethod
		}
		if e.funcTypes[t] && t != "variable_declarator" {
			return KindFunction // nested function, not a method
		}
	}
	return KindFunction
}

func (e *extractor) countParams(node *sitter.Node, nodeType string) int {
	target := node
	if nodeType == "variable_declarator" {
		target = node.ChildByFieldName("value")
		if target == nil {
			return 0
		}
	}

	params := target.ChildByFieldName("parameters")
	if params == nil && (e.lang == LangC || e.lang == LangCPP) {
		decl := target.ChildByFieldName("declarator")
		for decl != nil && params == nil {
			params = decl.ChildByFieldName("parameters")
			decl = decl.ChildByFieldName("declarator")
		}
	}
	if params == nil {
		return 0
	}

	count := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		t := child.Type()
		if t == "comment" {
			continue
		}
		// Go groups names per declaration: (a, b int) is two parameters.
		if e.lang == LangGo && (t == "parameter_declaration" || t == "variadic_parameter_declaration") {
			names := 0
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.FieldNameForChild(j) == "name" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			count += names
			continue
		}
		count++
	}
	return count
}

// countBranches counts decision constructs in the definition's subtree,
// including short-circuit operators inside boolean expressions.
func (e *extractor) countBranches(node *sitter.Node) int {
	count := 0
	WalkTyped(node, e.source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if e.branchTypes[nodeType] {
			count++
			return true
		}
		switch nodeType {
		case "binary_expression", "boolean_operator", "logical_expression":
			if opNode := n.ChildByFieldName("operator"); opNode != nil {
				switch GetNodeText(opNode, src) {
				case "&&", "||", "and", "or":
					count++
				}
			}
		}
		return true
	})
	return count
}

func (e *extractor) hasDocstring(node *sitter.Node, startLine int) bool {
	if e.lang == LangPython {
		body := node.ChildByFieldName("body")
		if body != nil && body.NamedChildCount() > 0 {
			first := body.NamedChild(0)
			if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
				if first.NamedChild(0).Type() == "string" {
					return true
				}
			}
		}
		return false
	}
	return hasLeadingComment(e.lines, startLine, e.lang)
}
