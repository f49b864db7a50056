// Package engine orchestrates a repair run: it groups diagnostics by code,
// dispatches each group to its fixer in priority order over a shared file
// arena, and aggregates the results. Repair never returns an error and never
// panics; failures degrade to unfixable entries at the narrowest scope.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tsmend/internal/ast"
	"tsmend/internal/fixers"
	"tsmend/internal/logging"
	"tsmend/internal/project"
	"tsmend/internal/resolve"
	"tsmend/internal/types"
)

// Options carries the per-run knobs. Zero value means defaults: the standard
// alias table, no extra globals, the full fixer registry.
type Options struct {
	// Aliases maps specifier prefixes to project-relative directories.
	Aliases map[string]string
	// ExtraGlobals extends the undefined-name fixer's deny list.
	ExtraGlobals []string
	// Registry overrides the fixer table; nil selects the default one.
	Registry *fixers.Registry
}

// defaultAliases mirrors the config package defaults so library callers get
// sensible behavior without touching configuration at all.
var defaultAliases = map[string]string{
	"@/": "src/",
	"~/": "",
}

// Repair runs every applicable fixer over the diagnostics and returns the
// aggregate result. The input files and diagnostics are never mutated; all
// edits surface as full new file contents in the result.
func Repair(
	ctx context.Context,
	files []types.SourceFile,
	diags []types.Diagnostic,
	fetch project.FetchFunc,
	opts Options,
) (result *types.CodeFixResult) {
	runID := uuid.NewString()
	result = types.NewCodeFixResult(runID)

	// Last line of defense: a bug anywhere below must not escape to the
	// caller. Everything still pending is reported unfixable.
	defer func() {
		if r := recover(); r != nil {
			logging.EngineDebug("run %s: panic recovered at top level: %v", runID, r)
			safe := types.NewCodeFixResult(runID)
			for _, d := range diags {
				safe.Unfixable = append(safe.Unfixable, types.Unfixable(d,
					fmt.Sprintf("internal error: %v", r)))
			}
			result = safe
		}
	}()

	if len(diags) == 0 {
		logging.EngineDebug("run %s: no diagnostics, nothing to do", runID)
		return result
	}

	registry := opts.Registry
	if registry == nil {
		registry = fixers.NewRegistry()
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = defaultAliases
	}

	fm := project.NewFileMap(files, fetch)
	defer fm.Close()

	globals := make(map[string]bool, len(opts.ExtraGlobals))
	for _, g := range opts.ExtraGlobals {
		globals[g] = true
	}

	fctx := &fixers.Context{
		Ctx:      ctx,
		Files:    fm,
		Resolver: resolve.New(fm, aliases, aliasPrefixes(aliases)),
		Globals:  globals,
	}

	logging.EngineDebug("run %s: %d diagnostics over %d files", runID, len(diags), fm.Len())

	for _, group := range groupDiagnostics(registry, diags) {
		fixer := registry.Lookup(group.code)
		if fixer == nil {
			for _, d := range group.issues {
				result.Unfixable = append(result.Unfixable, types.Unfixable(d,
					fmt.Sprintf("no fixer is registered for code '%s'", d.Code)))
			}
			continue
		}

		logging.EngineDebug("run %s: %s handling %d issue(s)", runID, group.code, len(group.issues))
		result.Merge(boundResult(runGroup(fctx, fixer, group)))
	}

	logging.EngineDebug("run %s: %d fixed, %d unfixable, %d modified, %d new",
		runID, len(result.Fixed), len(result.Unfixable), len(result.ModifiedFiles), len(result.NewFiles))
	return result
}

// runGroup executes one fixer over its code group. A panicking fixer
// downgrades its whole group to unfixable without aborting the run.
func runGroup(fctx *fixers.Context, fixer fixers.Fixer, group codeGroup) (res *types.FixResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.EngineDebug("fixer for %s panicked: %v", group.code, r)
			res = types.NewFixResult()
			for _, d := range group.issues {
				res.Unfixable = append(res.Unfixable, types.Unfixable(d,
					fmt.Sprintf("fixer for '%s' failed: %v", group.code, r)))
			}
		}
	}()
	return fixer.Fix(fctx, group.issues)
}

// boundResult drops writes outside the engine's write boundary before they
// reach the aggregate. The built-in fixers never produce such paths; this
// guards custom registry entries.
func boundResult(res *types.FixResult) *types.FixResult {
	if res == nil {
		return nil
	}
	for _, files := range []map[string]string{res.ModifiedFiles, res.NewFiles} {
		for p := range files {
			if !ast.IsSourceScript(p) || underNodeModules(p) {
				logging.EngineDebug("dropping out-of-bounds write to %s", p)
				delete(files, p)
			}
		}
	}
	return res
}

// underNodeModules reports whether a project-relative path sits inside a
// package manager's tree.
func underNodeModules(p string) bool {
	return strings.HasPrefix(p, "node_modules/") || strings.Contains(p, "/node_modules/")
}

// codeGroup is one diagnostic code with its sorted issues.
type codeGroup struct {
	code   string
	issues []types.Diagnostic
}

// groupDiagnostics buckets diagnostics by code and orders the groups by
// registry tier, then code, so runs are deterministic regardless of input
// order. Issues within a group sort by path, line, column.
func groupDiagnostics(registry *fixers.Registry, diags []types.Diagnostic) []codeGroup {
	byCode := make(map[string][]types.Diagnostic)
	for _, d := range diags {
		byCode[d.Code] = append(byCode[d.Code], d)
	}

	groups := make([]codeGroup, 0, len(byCode))
	for code, issues := range byCode {
		types.SortDiagnostics(issues)
		groups = append(groups, codeGroup{code: code, issues: issues})
	}
	sort.Slice(groups, func(i, j int) bool {
		ti, tj := registry.Tier(groups[i].code), registry.Tier(groups[j].code)
		if ti != tj {
			return ti < tj
		}
		return groups[i].code < groups[j].code
	})
	return groups
}

// aliasPrefixes orders alias prefixes longest first so overlapping prefixes
// match deterministically.
func aliasPrefixes(aliases map[string]string) []string {
	prefixes := make([]string, 0, len(aliases))
	for p := range aliases {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return prefixes
}
