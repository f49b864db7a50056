package fixers

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// ExportShapeFixer reconciles an import clause with the shape of the target
// module's exports: default-only targets get a default import, named-only
// targets get a named import. The target file is never edited.
type ExportShapeFixer struct{}

func (f *ExportShapeFixer) Handles(code string) bool {
	return code == types.CodeExportShapeMismatch
}

func (f *ExportShapeFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
	res := types.NewFixResult()

	paths, byFile := groupByFile(issues)
	for _, path := range paths {
		fileIssues := byFile[path]

		tree, err := fctx.Files.Tree(fctx.Ctx, path)
		if err != nil {
			unfixableAll(res, fileIssues, fmt.Sprintf("cannot parse importing file: %v", err))
			continue
		}

		var edits []ast.Edit
		for _, d := range fileIssues {
			f.fixOne(fctx, res, tree, d, &edits)
		}
		if len(edits) > 0 {
			updated := ast.Apply(string(tree.Source), edits)
			res.MarkModified(path, updated)
			fctx.Files.Put(path, updated)
		}
	}
	return res
}

func (f *ExportShapeFixer) fixOne(
	fctx *Context,
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	edits *[]ast.Edit,
) {
	stmt := ast.ImportNodeAt(tree, d.Line)
	desc := ast.ImportAt(tree, d.Line)
	if stmt == nil || desc == nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "no import statement at the reported line"))
		return
	}

	target := fctx.Resolver.Resolve(fctx.Ctx, desc.ModuleSpecifier, d.FilePath)
	if target == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("cannot locate module '%s'", desc.ModuleSpecifier)))
		return
	}

	targetTree, err := fctx.Files.Tree(fctx.Ctx, target)
	if err != nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, fmt.Sprintf("cannot parse %s: %v", target, err)))
		return
	}

	exports := ast.ExportsOf(targetTree)
	defaultOnly := exports.DefaultName != "" && len(exports.Named) == 0 && !exports.HasReexportAll
	namedOnly := exports.DefaultName == "" && len(exports.Named) > 0 && !exports.HasReexportAll

	switch {
	case defaultOnly:
		f.toDefaultImport(res, tree, d, stmt, *desc, edits)
	case namedOnly:
		f.toNamedImport(res, tree, d, stmt, *desc, exports, edits)
	default:
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("%s mixes default and named exports; the intended import form is ambiguous", target)))
	}
}

// toDefaultImport rewrites a named or namespace import of a default-only
// module as a default import, keeping the importer's local binding.
func (f *ExportShapeFixer) toDefaultImport(
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	stmt *sitter.Node,
	desc types.ImportDescriptor,
	edits *[]ast.Edit,
) {
	var local string
	switch {
	case desc.DefaultName != "":
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"import already uses the default form; diagnostic appears stale"))
		return
	case desc.NamespaceName != "":
		local = desc.NamespaceName
	case len(desc.Named) > 0:
		local = desc.Named[0].Local
	default:
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"side-effect import carries no binding to convert"))
		return
	}

	rewritten := desc
	rewritten.DefaultName = local
	rewritten.NamespaceName = ""
	rewritten.Named = nil

	*edits = append(*edits, replaceStatement(stmt, rewritten, quoteOf(tree, stmt)))
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixImport,
		fmt.Sprintf("converted to default import of '%s'", local)))
	logging.FixerDebug("export-shape-mismatch: %s:%d default import '%s'", d.FilePath, d.Line, local)
}

// toNamedImport rewrites a default import of a named-only module as a named
// import, provided the local binding matches one of the target's exports.
func (f *ExportShapeFixer) toNamedImport(
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	stmt *sitter.Node,
	desc types.ImportDescriptor,
	exports types.ExportDescriptor,
	edits *[]ast.Edit,
) {
	if desc.DefaultName == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"import already uses the named form; diagnostic appears stale"))
		return
	}
	if !exports.HasNamed(desc.DefaultName) {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("no named export matches the default binding '%s'", desc.DefaultName)))
		return
	}

	rewritten := desc
	rewritten.Named = append([]types.NamedImport{{Imported: desc.DefaultName, Local: desc.DefaultName}}, desc.Named...)
	rewritten.DefaultName = ""

	*edits = append(*edits, replaceStatement(stmt, rewritten, quoteOf(tree, stmt)))
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixImport,
		fmt.Sprintf("converted to named import of '%s'", desc.DefaultName)))
	logging.FixerDebug("export-shape-mismatch: %s:%d named import '%s'", d.FilePath, d.Line, desc.DefaultName)
}
