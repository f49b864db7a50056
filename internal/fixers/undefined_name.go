package fixers

import (
	"fmt"
	"strings"

	"tsmend/internal/ast"
	"tsmend/internal/infer"
	"tsmend/internal/logging"
	"tsmend/internal/synth"
	"tsmend/internal/types"
)

// UndefinedNameFixer declares names that are referenced but never defined or
// imported, shaping each declaration by how the file uses the name. Runtime
// globals are never declared; shadowing them would change program behavior.
type UndefinedNameFixer struct{}

// runtimeGlobals are names the host environment provides. A diagnostic about
// one of these means the project's lib configuration is wrong, not that a
// declaration is missing.
var runtimeGlobals = map[string]bool{
	"window":          true,
	"document":        true,
	"console":         true,
	"process":         true,
	"global":          true,
	"globalThis":      true,
	"require":         true,
	"module":          true,
	"exports":         true,
	"fetch":           true,
	"setTimeout":      true,
	"setInterval":     true,
	"clearTimeout":    true,
	"clearInterval":   true,
	"JSON":            true,
	"Math":            true,
	"Date":            true,
	"Promise":         true,
	"Symbol":          true,
	"Error":           true,
	"Map":             true,
	"Set":             true,
	"WeakMap":         true,
	"WeakSet":         true,
	"Proxy":           true,
	"Reflect":         true,
	"Intl":            true,
	"URL":             true,
	"URLSearchParams": true,
	"navigator":       true,
	"localStorage":    true,
	"sessionStorage":  true,
	"alert":           true,
	"atob":            true,
	"btoa":            true,
	"queueMicrotask":  true,
	"structuredClone": true,
}

func (f *UndefinedNameFixer) Handles(code string) bool {
	return code == types.CodeUndefinedName
}

func (f *UndefinedNameFixer) isGlobal(fctx *Context, name string) bool {
	return runtimeGlobals[name] || fctx.Globals[name]
}

func (f *UndefinedNameFixer) Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult {
	res := types.NewFixResult()

	paths, byFile := groupByFile(issues)
	for _, path := range paths {
		fileIssues := byFile[path]

		tree, err := fctx.Files.Tree(fctx.Ctx, path)
		if err != nil {
			unfixableAll(res, fileIssues, fmt.Sprintf("cannot parse file: %v", err))
			continue
		}

		// One declaration per name even when several lines report it.
		declared := map[string]bool{}
		var fragments []string

		for _, d := range fileIssues {
			name := undefinedNameOf(d.Message)
			if name == "" {
				res.Unfixable = append(res.Unfixable, types.Unfixable(d, "cannot determine the undefined name"))
				continue
			}
			if f.isGlobal(fctx, name) {
				res.Unfixable = append(res.Unfixable, types.Unfixable(d,
					fmt.Sprintf("'%s' is a runtime global; declaring it would shadow the host environment", name)))
				continue
			}

			if !declared[name] {
				declared[name] = true
				declCtx := infer.ClassifyDecl(tree, name)
				fragments = append(fragments, synth.Declaration(name, declCtx))
				logging.FixerDebug("undefined-name: %s declared '%s' as %v", path, name, declCtx.Kind)
			}
			res.Fixed = append(res.Fixed, types.Fixed(d, types.FixDeclaration,
				fmt.Sprintf("declared '%s' after the import block", name)))
		}

		if len(fragments) > 0 {
			updated := ast.InsertAfterImports(tree, strings.Join(fragments, "\n\n"))
			res.MarkModified(path, updated)
			fctx.Files.Put(path, updated)
		}
	}
	return res
}

// undefinedNameOf extracts the referenced name from the diagnostic message:
// the first quoted token that is a plausible identifier.
func undefinedNameOf(message string) string {
	for _, q := range quotedNames(message) {
		if isIdentifier(q) {
			return q
		}
	}
	return ""
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
