package fixers

import (
	"fmt"
	"regexp"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// NamedImportFixer applies compiler "did you mean" suggestions to named
// import specifiers, but only after confirming the suggested name really is
// exported by the target module.
type NamedImportFixer struct{}

var didYouMeanRe = regexp.MustCompile(`(?i)did you mean ['"]([A-Za-z0-9_$]+)['"]`)

func (f *NamedImportFixer) Handles(code string) bool {
	return code == types.CodeIncorrectNamedImport
}

func (f *NamedImportFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
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

func (f *NamedImportFixer) fixOne(
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

	suggestion := ""
	if m := didYouMeanRe.FindStringSubmatch(d.Message); m != nil {
		suggestion = m[1]
	}
	if suggestion == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "diagnostic carries no suggested name"))
		return
	}

	written := writtenNameOf(d.Message, *desc, suggestion)
	if written == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"cannot match the diagnostic to a named specifier of the import"))
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
	if !exports.HasNamed(suggestion) {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("suggested name '%s' is not exported by %s", suggestion, target)))
		return
	}

	rewritten := *desc
	rewritten.Named = nil
	for _, n := range desc.Named {
		if n.Imported == written {
			// A local alias survives the rename; without one the local
			// binding follows the corrected name.
			local := suggestion
			if n.Local != n.Imported {
				local = n.Local
			}
			n = types.NamedImport{Imported: suggestion, Local: local}
		}
		rewritten.Named = append(rewritten.Named, n)
	}

	*edits = append(*edits, replaceStatement(stmt, rewritten, quoteOf(tree, stmt)))
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixImport,
		fmt.Sprintf("renamed import '%s' to '%s'", written, suggestion)))
	logging.FixerDebug("incorrect-named-import: %s:%d '%s' -> '%s'", d.FilePath, d.Line, written, suggestion)
}

// writtenNameOf finds which named specifier the diagnostic is about: a quoted
// token of the message, other than the suggestion, that matches an imported
// name of the statement.
func writtenNameOf(message string, desc types.ImportDescriptor, suggestion string) string {
	for _, q := range quotedNames(message) {
		if q == suggestion {
			continue
		}
		for _, n := range desc.Named {
			if n.Imported == q {
				return q
			}
		}
	}
	return ""
}
