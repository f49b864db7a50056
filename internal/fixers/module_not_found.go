package fixers

import (
	"fmt"

	"tsmend/internal/ast"
	"tsmend/internal/infer"
	"tsmend/internal/logging"
	"tsmend/internal/resolve"
	"tsmend/internal/synth"
	"tsmend/internal/types"
)

// ModuleNotFoundFixer repairs imports whose target cannot be located. When
// the target exists somewhere in the project the import specifier is
// rewritten; when it does not and is not an external package, a stub module
// is created at the canonical path with one shaped export per expected name.
type ModuleNotFoundFixer struct{}

func (f *ModuleNotFoundFixer) Handles(code string) bool {
	return code == types.CodeModuleNotFound
}

func (f *ModuleNotFoundFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
	res := types.NewFixResult()

	paths, byFile := groupByFile(issues)
	for _, path := range paths {
		fileIssues := byFile[path]

		tree, err := fctx.Files.Tree(fctx.Ctx, path)
		if err != nil {
			unfixableAll(res, fileIssues, fmt.Sprintf("cannot parse importing file: %v", err))
			continue
		}

		// All rewrites for one file are collected and applied in one pass.
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

func (f *ModuleNotFoundFixer) fixOne(
	fctx *Context,
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	edits *[]ast.Edit,
) {
	desc := ast.ImportAt(tree, d.Line)
	if desc == nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "no import statement at the reported line"))
		return
	}

	spec := desc.ModuleSpecifier
	if fctx.Resolver.Classify(spec) == resolve.KindExternal {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("'%s' is an external dependency; run a package install instead", spec)))
		return
	}

	if resolved := fctx.Resolver.Resolve(fctx.Ctx, spec, d.FilePath); resolved != "" {
		if _, created := res.NewFiles[resolved]; created {
			// A sibling import already produced this stub during the current
			// pass; this diagnostic contributes its expected names to it.
			f.extendStub(fctx, res, tree, d, *desc, resolved)
			return
		}
		f.rewriteSpecifier(res, tree, d, *desc, resolved, edits)
		return
	}

	f.createStub(fctx, res, tree, d, *desc)
}

// rewriteSpecifier points the import at the file the resolver located.
func (f *ModuleNotFoundFixer) rewriteSpecifier(
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	desc types.ImportDescriptor,
	resolved string,
	edits *[]ast.Edit,
) {
	stmt := ast.ImportNodeAt(tree, d.Line)
	if stmt == nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			"only static import statements can be rewritten"))
		return
	}

	newSpec := ast.RelativeSpecifier(d.FilePath, resolved)
	if newSpec == desc.ModuleSpecifier {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("import target %s already exists; diagnostic appears stale", resolved)))
		return
	}

	source := ast.ImportSourceNode(stmt)
	quote := quoteOf(tree, stmt)
	*edits = append(*edits, ast.ReplaceNode(source, quote+newSpec+quote))
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixImport,
		fmt.Sprintf("rewrote import of '%s' to '%s'", desc.ModuleSpecifier, newSpec)))
	logging.FixerDebug("module-not-found: %s rewrote '%s' -> '%s'", d.FilePath, desc.ModuleSpecifier, newSpec)
}

// createStub synthesizes a new module exporting every name the import
// expects, shaped by how the importing file uses those names.
func (f *ModuleNotFoundFixer) createStub(
	fctx *Context,
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	desc types.ImportDescriptor,
) {
	expected := expectedNames(tree, desc)

	var locals []string
	for _, n := range expected {
		locals = append(locals, n.local)
	}
	markup := infer.HasMarkupUsage(tree, locals)

	canonical := fctx.Resolver.CanonicalPath(desc.ModuleSpecifier, d.FilePath, markup)
	if canonical == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("'%s' is an external dependency; run a package install instead", desc.ModuleSpecifier)))
		return
	}

	if fctx.Files.Get(canonical) != nil {
		// An earlier issue in this group already created the stub.
		res.Fixed = append(res.Fixed, types.Fixed(d, types.FixStub,
			fmt.Sprintf("module stub %s already created", canonical)))
		return
	}

	var defaultName string
	var named []string
	usageByName := map[string]*types.UsageClassification{}
	for _, n := range expected {
		usageByName[n.exported] = infer.Classify(tree, n.local)
		if n.isDefault {
			defaultName = n.exported
		} else {
			named = append(named, n.exported)
		}
	}

	content := synth.ModuleFile(defaultName, named, func(name string) *types.UsageClassification {
		return usageByName[name]
	})

	fctx.Files.Put(canonical, content)
	res.MarkNew(canonical, content)
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixStub,
		fmt.Sprintf("created module stub %s with %d export(s)", canonical, len(expected))))
	logging.FixerDebug("module-not-found: created stub %s for '%s'", canonical, desc.ModuleSpecifier)
}

// extendStub folds one more import's expected names into a stub this run
// created, skipping names the stub already exports.
func (f *ModuleNotFoundFixer) extendStub(
	fctx *Context,
	res *types.FixResult,
	tree *ast.File,
	d types.Diagnostic,
	desc types.ImportDescriptor,
	stubPath string,
) {
	stubTree, err := fctx.Files.Tree(fctx.Ctx, stubPath)
	if err != nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, fmt.Sprintf("cannot parse %s: %v", stubPath, err)))
		return
	}
	exports := ast.ExportsOf(stubTree)

	content := fctx.Files.Get(stubPath).Content
	added := 0
	for _, n := range expectedNames(tree, desc) {
		if n.isDefault {
			if exports.DefaultName != "" {
				continue
			}
			content = ast.AppendFragment(content, synth.Export(n.exported, infer.Classify(tree, n.local), true))
			exports.DefaultName = n.exported
			added++
			continue
		}
		if exports.HasNamed(n.exported) {
			continue
		}
		content = ast.AppendFragment(content, synth.Export(n.exported, infer.Classify(tree, n.local), false))
		exports.Named = append(exports.Named, n.exported)
		added++
	}

	if added > 0 {
		fctx.Files.Put(stubPath, content)
		res.MarkNew(stubPath, content)
	}
	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixStub,
		fmt.Sprintf("extended module stub %s with %d export(s)", stubPath, added)))
	logging.FixerDebug("module-not-found: extended stub %s for '%s' (+%d)", stubPath, desc.ModuleSpecifier, added)
}

// expectedName pairs an export name with the local binding the importer uses
// for it; usage analysis runs against the local name.
type expectedName struct {
	exported  string
	local     string
	isDefault bool
}

func expectedNames(tree *ast.File, desc types.ImportDescriptor) []expectedName {
	var names []expectedName
	if desc.DefaultName != "" {
		names = append(names, expectedName{exported: desc.DefaultName, local: desc.DefaultName, isDefault: true})
	}
	for _, n := range desc.Named {
		names = append(names, expectedName{exported: n.Imported, local: n.Local})
	}
	if desc.NamespaceName != "" {
		// A namespace import expects whatever members the importer touches.
		if uc := infer.Classify(tree, desc.NamespaceName); uc != nil && uc.Kind == types.UsageMemberAccess {
			for _, m := range uc.Members {
				names = append(names, expectedName{exported: m, local: m})
			}
		}
	}
	return names
}
