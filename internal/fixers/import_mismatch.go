package fixers

import (
	"fmt"
	"sort"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// ImportMismatchFixer reconciles an import clause whose named specifiers do
// not line up with the target module's exports. Each specifier is kept,
// promoted to the default slot, corrected to the nearest export spelling, or
// dropped with an unfixable entry.
type ImportMismatchFixer struct{}

// maxSpellingDistance bounds how far a corrected export name may drift from
// the one the importer wrote.
const maxSpellingDistance = 2

func (f *ImportMismatchFixer) Handles(code string) bool {
	return code == types.CodeImportTypeMismatch
}

func (f *ImportMismatchFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
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

func (f *ImportMismatchFixer) fixOne(
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
	if len(desc.Named) == 0 {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "import has no named specifiers to reconcile"))
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
	if exports.HasReexportAll {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("%s re-exports another module; its export set cannot be verified", target)))
		return
	}

	rewritten := *desc
	rewritten.Named = nil
	changed := false
	var dropped []string

	for _, n := range desc.Named {
		switch {
		case exports.HasNamed(n.Imported):
			rewritten.Named = append(rewritten.Named, n)

		case exports.DefaultName != "" && n.Imported == exports.DefaultName && rewritten.DefaultName == "":
			// The importer named the module's default export; move it to the
			// default slot under its local binding.
			local := n.Local
			if local == "" {
				local = n.Imported
			}
			rewritten.DefaultName = local
			changed = true

		default:
			if corrected := nearestExport(n.Imported, exports.Named); corrected != "" {
				// Keep the local binding stable so references do not break.
				local := n.Local
				if local == "" {
					local = n.Imported
				}
				rewritten.Named = append(rewritten.Named, types.NamedImport{Imported: corrected, Local: local})
				changed = true
			} else {
				dropped = append(dropped, n.Imported)
				changed = true
			}
		}
	}

	for _, name := range dropped {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("'%s' has no counterpart among the exports of %s", name, target)))
	}

	if !changed {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"every named specifier already matches an export; diagnostic appears stale"))
		return
	}
	if rewritten.DefaultName == "" && rewritten.NamespaceName == "" && len(rewritten.Named) == 0 {
		// Nothing importable survives. Dropping the statement entirely would
		// discard a possible side effect, so leave the file alone.
		return
	}

	*edits = append(*edits, replaceStatement(stmt, rewritten, quoteOf(tree, stmt)))
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixImport,
		fmt.Sprintf("reconciled import clause with the exports of %s", target)))
	logging.FixerDebug("import-type-mismatch: %s:%d reconciled against %s", d.FilePath, d.Line, target)
}

// nearestExport returns the export name closest to the written one, within
// the spelling distance bound. Ties break lexicographically.
func nearestExport(written string, exported []string) string {
	best := ""
	bestDist := maxSpellingDistance + 1
	sorted := append([]string(nil), exported...)
	sort.Strings(sorted)
	for _, e := range sorted {
		if d := levenshtein(written, e); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}
