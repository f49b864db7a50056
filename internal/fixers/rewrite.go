package fixers

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tsmend/internal/ast"
	"tsmend/internal/types"
)

// renderImport prints an import statement from its descriptor. Local aliases
// are preserved; the clause order (default, namespace, named) matches what
// the grammar accepts.
func renderImport(desc types.ImportDescriptor, quote string) string {
	var clauses []string
	if desc.DefaultName != "" {
		clauses = append(clauses, desc.DefaultName)
	}
	if desc.NamespaceName != "" {
		clauses = append(clauses, "* as "+desc.NamespaceName)
	}
	if len(desc.Named) > 0 {
		var specs []string
		for _, n := range desc.Named {
			if n.Local != "" && n.Local != n.Imported {
				specs = append(specs, n.Imported+" as "+n.Local)
			} else {
				specs = append(specs, n.Imported)
			}
		}
		clauses = append(clauses, "{ "+strings.Join(specs, ", ")+" }")
	}

	spec := quote + desc.ModuleSpecifier + quote
	if len(clauses) == 0 {
		return "import " + spec + ";"
	}
	return "import " + strings.Join(clauses, ", ") + " from " + spec + ";"
}

// quoteOf returns the quote character an import statement's specifier uses,
// defaulting to single quotes.
func quoteOf(f *ast.File, stmt *sitter.Node) string {
	source := ast.ImportSourceNode(stmt)
	if source != nil {
		text := f.Text(source)
		if strings.HasPrefix(text, `"`) {
			return `"`
		}
	}
	return "'"
}

// replaceStatement returns an edit swapping an entire import statement for
// its re-rendered descriptor.
func replaceStatement(stmt *sitter.Node, desc types.ImportDescriptor, quote string) ast.Edit {
	return ast.ReplaceNode(stmt, renderImport(desc, quote))
}
