// Package fixers implements one repair strategy per diagnostic code. Each
// fixer edits files through the shared file map so later fixers observe
// earlier repairs, and converts its own failures into unfixable entries
// rather than letting them cross the orchestrator boundary.
package fixers

import (
	"context"
	"regexp"
	"sort"

	"tsmend/internal/project"
	"tsmend/internal/resolve"
	"tsmend/internal/types"
)

// Context is the shared mutable state one engine invocation threads through
// the fixers, in priority order. It is never shared across invocations.
type Context struct {
	Ctx      context.Context
	Files    *project.FileMap
	Resolver *resolve.Resolver
	// Globals is the deny-list of runtime globals the undefined-name fixer
	// must never declare.
	Globals map[string]bool
}

// Fixer handles exactly one diagnostic code end to end.
type Fixer interface {
	// Handles reports whether this fixer repairs the given diagnostic code.
	Handles(code string) bool
	// Fix runs the strategy over one code group. Issues arrive sorted by
	// file path then line. Implementations must not panic across this
	// boundary for per-issue failures; they report them as unfixable.
	Fix(fctx *Context, issues []types.Diagnostic) *types.FixResult
}

// Registry is the ordered strategy table mapping codes to fixers.
type Registry struct {
	fixers []Fixer
	tiers  map[string]int
}

// NewRegistry returns the default registry. Order encodes repair priority:
// module-not-found first (it may create files later fixers' targets depend
// on), declaration synthesis last (most speculative, must not preempt a more
// targeted strategy).
func NewRegistry() *Registry {
	return &Registry{
		fixers: []Fixer{
			&ModuleNotFoundFixer{},
			&MissingExportFixer{},
			&ExportShapeFixer{},
			&ImportMismatchFixer{},
			&NamedImportFixer{},
			&UndefinedNameFixer{},
		},
		tiers: map[string]int{
			types.CodeModuleNotFound:       1,
			types.CodeMissingNamedExport:   2,
			types.CodeExportShapeMismatch:  3,
			types.CodeImportTypeMismatch:   3,
			types.CodeIncorrectNamedImport: 4,
			types.CodeUndefinedName:        5,
		},
	}
}

// NewRegistryWithFixers builds a registry from an explicit strategy table.
// Callers embedding the engine can swap in custom strategies this way.
func NewRegistryWithFixers(tiers map[string]int, fs ...Fixer) *Registry {
	return &Registry{fixers: fs, tiers: tiers}
}

// Lookup returns the fixer handling code, or nil when none is registered.
func (r *Registry) Lookup(code string) Fixer {
	for _, f := range r.fixers {
		if f.Handles(code) {
			return f
		}
	}
	return nil
}

// Tier returns the priority tier for a code; unknown codes sort last.
func (r *Registry) Tier(code string) int {
	if t, ok := r.tiers[code]; ok {
		return t
	}
	return 1 << 16
}

// unfixableAll reports every issue with the same reason.
func unfixableAll(res *types.FixResult, issues []types.Diagnostic, reason string) {
	for _, d := range issues {
		res.Unfixable = append(res.Unfixable, types.Unfixable(d, reason))
	}
}

// groupByFile buckets issues by their file path; paths come back sorted so
// the per-file passes run in deterministic order.
func groupByFile(issues []types.Diagnostic) ([]string, map[string][]types.Diagnostic) {
	byFile := make(map[string][]types.Diagnostic)
	for _, d := range issues {
		byFile[d.FilePath] = append(byFile[d.FilePath], d)
	}
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, byFile
}

var quotedNameRe = regexp.MustCompile(`['"]([A-Za-z0-9_$@./-]+)['"]`)

// quotedNames extracts the quoted tokens of a diagnostic message, in order.
func quotedNames(message string) []string {
	var names []string
	for _, m := range quotedNameRe.FindAllStringSubmatch(message, -1) {
		names = append(names, m[1])
	}
	return names
}

// levenshtein computes the edit distance between two strings. Used by the
// import-type-mismatch fixer to catch near-miss specifier spellings.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
