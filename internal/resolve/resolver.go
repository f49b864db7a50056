// Package resolve maps module specifiers onto concrete project paths over a
// virtual, partially fetched file set. Specifiers classified as external are
// a package-manager concern and are never resolved or written to.
package resolve

import (
	"context"
	"path"
	"strings"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/project"
)

// Kind classifies a module specifier.
type Kind int

const (
	// KindExternal is a bare package specifier handled by a package manager.
	KindExternal Kind = iota
	// KindRelative is a relative or project-root-relative internal path.
	KindRelative
	// KindAliased starts with a configured alias prefix.
	KindAliased
)

func (k Kind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindRelative:
		return "relative"
	case KindAliased:
		return "aliased"
	}
	return "unknown"
}

// extensionOrder is the fixed probe order for extensionless specifiers.
// Keeping this order stable is what makes `./x` resolve identically when
// both x.ts and x.tsx exist.
var extensionOrder = []string{".ts", ".tsx", ".js", ".jsx"}

// Resolver resolves specifiers against one invocation's FileMap.
type Resolver struct {
	files   *project.FileMap
	aliases map[string]string // prefix -> project-relative target, e.g. "@/" -> "src/"
	// prefixes is aliases' keys, longest first, for deterministic matching.
	prefixes []string
}

// New creates a Resolver. aliasPrefixes must be the alias map keys ordered
// longest first; passing them explicitly keeps resolution deterministic.
func New(files *project.FileMap, aliases map[string]string, aliasPrefixes []string) *Resolver {
	return &Resolver{files: files, aliases: aliases, prefixes: aliasPrefixes}
}

// Classify applies the specifier classification rule: relative markers or a
// known alias prefix, or a slash together with an extension-looking final
// segment, mean internal; everything else is external.
func (r *Resolver) Classify(specifier string) Kind {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".." {
		return KindRelative
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(specifier, p) {
			return KindAliased
		}
	}
	if strings.Contains(specifier, "/") && looksLikeFile(lastSegment(specifier)) {
		return KindRelative
	}
	return KindExternal
}

// Normalize converts an internal specifier into its project-relative path,
// without probing for existence. Returns "" for external specifiers.
func (r *Resolver) Normalize(specifier, fromFile string) string {
	switch r.Classify(specifier) {
	case KindExternal:
		return ""
	case KindAliased:
		for _, p := range r.prefixes {
			if strings.HasPrefix(specifier, p) {
				return path.Clean(r.aliases[p] + strings.TrimPrefix(specifier, p))
			}
		}
		return ""
	default:
		if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
			specifier == "." || specifier == ".." {
			return path.Clean(path.Join(path.Dir(fromFile), specifier))
		}
		return path.Clean(specifier)
	}
}

// Resolve maps a specifier to a concrete resident path, fetching candidate
// paths (once each) through the file map. Returns "" when nothing matches.
// External specifiers are never resolved.
func (r *Resolver) Resolve(ctx context.Context, specifier, fromFile string) string {
	base := r.Normalize(specifier, fromFile)
	if base == "" {
		return ""
	}

	if r.files.Exists(ctx, base) {
		logging.ResolveDebug("%s -> %s (exact)", specifier, base)
		return base
	}

	for _, ext := range extensionOrder {
		candidate := base + ext
		if r.files.Exists(ctx, candidate) {
			logging.ResolveDebug("%s -> %s (extension probe)", specifier, candidate)
			return candidate
		}
	}

	if fuzzy := r.fuzzyMatch(base); fuzzy != "" {
		logging.ResolveDebug("%s -> %s (fuzzy)", specifier, fuzzy)
		return fuzzy
	}

	logging.ResolveDebug("%s unresolved (base %s)", specifier, base)
	return ""
}

// CanonicalPath returns the path at which a file for an unresolvable internal
// specifier should be created: the normalized base plus .tsx for markup
// shapes, .ts otherwise. Returns "" for external specifiers.
func (r *Resolver) CanonicalPath(specifier, fromFile string, markup bool) string {
	base := r.Normalize(specifier, fromFile)
	if base == "" {
		return ""
	}
	if ast.IsSourceScript(base) {
		return base
	}
	if markup {
		return base + ".tsx"
	}
	return base + ".ts"
}

// fuzzyMatch compares the specifier's final segment (extension stripped)
// against every resident file's final segment, accepting mutual containment.
// Ties break lexicographically so repeated runs agree.
func (r *Resolver) fuzzyMatch(base string) string {
	want := strings.ToLower(stripExt(lastSegment(base)))
	if want == "" {
		return ""
	}
	for _, p := range r.files.Paths() {
		have := strings.ToLower(stripExt(lastSegment(p)))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return p
		}
	}
	return ""
}

func lastSegment(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

func stripExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// looksLikeFile reports whether a path segment carries a file-extension-like
// suffix (a dot followed by 1-4 letters).
func looksLikeFile(segment string) bool {
	idx := strings.LastIndex(segment, ".")
	if idx <= 0 || idx == len(segment)-1 {
		return false
	}
	ext := segment[idx+1:]
	if len(ext) > 4 {
		return false
	}
	for _, c := range ext {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
