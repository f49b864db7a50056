package ast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsmend/internal/types"
)

// StringValue returns the unquoted value of a string literal node.
func StringValue(f *File, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "string_fragment" {
			return f.Text(child)
		}
	}
	// Empty string literal has no fragment child.
	text := f.Text(n)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

// ImportsOf scans a file for import statements, including dynamic import()
// and require() forms, and returns one descriptor per statement in source
// order.
func ImportsOf(f *File) []types.ImportDescriptor {
	var imports []types.ImportDescriptor

	root := f.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "import_statement" {
			if desc := importStatementDescriptor(f, child); desc != nil {
				imports = append(imports, *desc)
			}
		}
	}

	// Dynamic import() and require() can appear anywhere in the tree.
	walk(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		if desc := callImportDescriptor(f, n); desc != nil {
			imports = append(imports, *desc)
		}
	})

	return imports
}

// ImportAt returns the import whose statement overlaps the 1-indexed line,
// or nil when the line holds no import.
func ImportAt(f *File, line int) *types.ImportDescriptor {
	for _, desc := range ImportsOf(f) {
		if desc.Overlaps(line) {
			d := desc
			return &d
		}
	}
	return nil
}

// ImportNodeAt returns the static import_statement node overlapping the
// 1-indexed line. Dynamic forms are not rewritable and return nil.
func ImportNodeAt(f *File, line int) *sitter.Node {
	root := f.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_statement" {
			continue
		}
		start := int(child.StartPoint().Row) + 1
		end := int(child.EndPoint().Row) + 1
		if line >= start && line <= end {
			return child
		}
	}
	return nil
}

// ImportSourceNode returns the string literal node holding an import
// statement's module specifier.
func ImportSourceNode(stmt *sitter.Node) *sitter.Node {
	return stmt.ChildByFieldName("source")
}

func importStatementDescriptor(f *File, stmt *sitter.Node) *types.ImportDescriptor {
	source := stmt.ChildByFieldName("source")
	if source == nil {
		return nil
	}

	desc := &types.ImportDescriptor{
		ModuleSpecifier: StringValue(f, source),
		StartLine:       int(stmt.StartPoint().Row) + 1,
		EndLine:         int(stmt.EndPoint().Row) + 1,
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			clause := child.NamedChild(j)
			switch clause.Type() {
			case "identifier":
				desc.DefaultName = f.Text(clause)
			case "namespace_import":
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					if clause.NamedChild(k).Type() == "identifier" {
						desc.NamespaceName = f.Text(clause.NamedChild(k))
					}
				}
			case "named_imports":
				desc.Named = append(desc.Named, namedImports(f, clause)...)
			}
		}
	}
	return desc
}

func namedImports(f *File, namedNode *sitter.Node) []types.NamedImport {
	var out []types.NamedImport
	for i := 0; i < int(namedNode.NamedChildCount()); i++ {
		spec := namedNode.NamedChild(i)
		if spec.Type() != "import_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		if name == nil {
			continue
		}
		ni := types.NamedImport{Imported: f.Text(name), Local: f.Text(name)}
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			ni.Local = f.Text(alias)
		}
		out = append(out, ni)
	}
	return out
}

// callImportDescriptor handles `import('x')` and `require('x')` expressions,
// deriving imported names from the enclosing variable declarator when one
// exists.
func callImportDescriptor(f *File, call *sitter.Node) *types.ImportDescriptor {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	isDynamic := fn.Type() == "import"
	isRequire := fn.Type() == "identifier" && f.Text(fn) == "require"
	if !isDynamic && !isRequire {
		return nil
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return nil
	}

	desc := &types.ImportDescriptor{
		ModuleSpecifier: StringValue(f, first),
		StartLine:       int(call.StartPoint().Row) + 1,
		EndLine:         int(call.EndPoint().Row) + 1,
	}

	// const X = require('y')      -> default binding X
	// const {a, b} = require('y') -> named bindings a, b
	for p := call.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "variable_declarator" {
			name := p.ChildByFieldName("name")
			if name == nil {
				break
			}
			switch name.Type() {
			case "identifier":
				desc.DefaultName = f.Text(name)
			case "object_pattern":
				for i := 0; i < int(name.NamedChildCount()); i++ {
					prop := name.NamedChild(i)
					if prop.Type() == "shorthand_property_identifier_pattern" {
						n := f.Text(prop)
						desc.Named = append(desc.Named, types.NamedImport{Imported: n, Local: n})
					}
				}
			}
			break
		}
		if p.Type() == "statement_block" || p.Type() == "program" {
			break
		}
	}
	return desc
}

// ExportsOf scans a file's top-level export statements and summarizes them.
// `export * from` marks the descriptor indeterminate instead of enumerating.
func ExportsOf(f *File) types.ExportDescriptor {
	var desc types.ExportDescriptor

	root := f.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "export_statement" {
			continue
		}
		collectExports(f, stmt, &desc)
	}
	return desc
}

func collectExports(f *File, stmt *sitter.Node, desc *types.ExportDescriptor) {
	isDefault := false
	for i := 0; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		switch c.Type() {
		case "default":
			isDefault = true
		case "*":
			if stmt.ChildByFieldName("source") != nil {
				desc.HasReexportAll = true
				return
			}
		case "namespace_export":
			// export * as ns from '...': ns is an enumerable named export.
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if c.NamedChild(j).Type() == "identifier" {
					desc.Named = append(desc.Named, f.Text(c.NamedChild(j)))
				}
			}
			return
		}
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		names := declarationNames(f, decl)
		if isDefault {
			if len(names) > 0 {
				desc.DefaultName = names[0]
			} else {
				desc.DefaultName = "default"
			}
			return
		}
		desc.Named = append(desc.Named, names...)
		return
	}

	if value := stmt.ChildByFieldName("value"); value != nil && isDefault {
		if value.Type() == "identifier" {
			desc.DefaultName = f.Text(value)
		} else {
			desc.DefaultName = "default"
		}
		return
	}

	// export { a, b as c } [from '...']
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			spec := child.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			exported := f.Text(name)
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = f.Text(alias)
			}
			if exported == "default" {
				desc.DefaultName = f.Text(name)
				continue
			}
			desc.Named = append(desc.Named, exported)
		}
	}

	if isDefault && desc.DefaultName == "" {
		// export default <anonymous expression> with no recognizable name.
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			child := stmt.NamedChild(i)
			if child.Type() == "identifier" {
				desc.DefaultName = f.Text(child)
				return
			}
		}
		desc.DefaultName = "default"
	}
}

func declarationNames(f *File, decl *sitter.Node) []string {
	switch decl.Type() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				names = append(names, f.Text(name))
			}
		}
		return names
	default:
		if name := decl.ChildByFieldName("name"); name != nil {
			return []string{f.Text(name)}
		}
	}
	return nil
}

// walk visits every node in the tree, depth first.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// RelativeSpecifier converts a resolved project path into the specifier a
// file at fromPath should use to import it: extension stripped, always
// starting with ./ or ../, and /index collapsed onto the directory.
func RelativeSpecifier(fromPath, targetPath string) string {
	fromDir := dirOf(fromPath)
	rel := relPath(fromDir, targetPath)

	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"} {
		if strings.HasSuffix(rel, ext) {
			rel = strings.TrimSuffix(rel, ext)
			break
		}
	}
	rel = strings.TrimSuffix(rel, "/index")

	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// relPath computes a slash-separated relative path between project-virtual
// paths. filepath.Rel is avoided because virtual paths are always
// slash-separated regardless of host OS.
func relPath(fromDir, target string) string {
	if fromDir == "" {
		return target
	}
	fromParts := strings.Split(fromDir, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(fromParts) && common < len(targetParts) && fromParts[common] == targetParts[common] {
		common++
	}

	var b strings.Builder
	for i := common; i < len(fromParts); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(targetParts[common:], "/"))
	return b.String()
}
