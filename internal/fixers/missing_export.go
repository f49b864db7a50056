package fixers

import (
	"fmt"
	"sort"

	"tsmend/internal/ast"
	"tsmend/internal/infer"
	"tsmend/internal/logging"
	"tsmend/internal/synth"
	"tsmend/internal/types"
)

// MissingExportFixer repairs named imports whose target file exists but does
// not export the requested name: it appends a shaped export to the target,
// never touching the importer.
type MissingExportFixer struct{}

func (f *MissingExportFixer) Handles(code string) bool {
	return code == types.CodeMissingNamedExport
}

func (f *MissingExportFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
	res := types.NewFixResult()

	// Fragments are grouped per target file so each target is rewritten once
	// even when several importers miss different names from it.
	fragments := map[string][]string{}
	added := map[string]bool{} // targetPath + name already queued

	paths, byFile := groupByFile(issues)
	for _, path := range paths {
		for _, d := range byFile[path] {
			f.fixOne(fctx, res, d, fragments, added)
		}
	}

	// Deterministic apply order.
	var targets []string
	for t := range fragments {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, target := range targets {
		file := fctx.Files.Get(target)
		if file == nil {
			continue
		}
		content := file.Content
		for _, frag := range fragments[target] {
			content = ast.AppendFragment(content, frag)
		}
		fctx.Files.Put(target, content)
		res.MarkModified(target, content)
	}
	return res
}

func (f *MissingExportFixer) fixOne(
	fctx *Context,
	res *types.FixResult,
	d types.Diagnostic,
	fragments map[string][]string,
	added map[string]bool,
) {
	tree, err := fctx.Files.Tree(fctx.Ctx, d.FilePath)
	if err != nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, fmt.Sprintf("cannot parse importing file: %v", err)))
		return
	}

	desc := ast.ImportAt(tree, d.Line)
	if desc == nil {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "no import statement at the reported line"))
		return
	}

	name, local := missingNameOf(d.Message, *desc)
	if name == "" {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, "cannot determine the missing export name"))
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
	if exports.HasNamed(name) {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("'%s' is already exported by %s; diagnostic appears stale", name, target)))
		return
	}
	if exports.HasReexportAll {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d,
			fmt.Sprintf("%s re-exports another module; its export set cannot be verified", target)))
		return
	}

	key := target + "\x00" + name
	if !added[key] {
		added[key] = true
		usage := infer.Classify(tree, local)
		fragments[target] = append(fragments[target], synth.Export(name, usage, false))
	}

	res.Fixed = append(res.Fixed, types.Fixed(d, types.FixExport,
		fmt.Sprintf("added export '%s' to %s", name, target)))
	logging.FixerDebug("missing-named-export: added '%s' to %s", name, target)
}

// missingNameOf pulls the missing export name out of the diagnostic message,
// preferring a quoted token that is actually a named import of the
// statement. Returns the exported name and the importer's local binding.
func missingNameOf(message string, desc types.ImportDescriptor) (string, string) {
	for _, q := range quotedNames(message) {
		for _, n := range desc.Named {
			if n.Imported == q {
				return q, n.Local
			}
		}
	}
	if len(desc.Named) == 1 {
		return desc.Named[0].Imported, desc.Named[0].Local
	}
	return "", ""
}
