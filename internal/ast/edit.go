package ast

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Edit replaces the byte range [Start, End) of a source file with New.
// Ranges come from tree-sitter node positions, so edits never split a token.
type Edit struct {
	Start uint32
	End   uint32
	New   string
}

// ReplaceNode builds an Edit covering exactly one node.
func ReplaceNode(n *sitter.Node, text string) Edit {
	return Edit{Start: n.StartByte(), End: n.EndByte(), New: text}
}

// InsertAt builds a pure insertion Edit at the given byte offset.
func InsertAt(offset uint32, text string) Edit {
	return Edit{Start: offset, End: offset, New: text}
}

// Apply splices a set of non-overlapping edits into content. Edits are
// applied back-to-front so earlier offsets stay valid. Overlapping edits
// would indicate a fixer bug; the later-starting edit wins and the overlapped
// one is dropped rather than producing corrupt output.
func Apply(content string, edits []Edit) string {
	if len(edits) == 0 {
		return content
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start > sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	var b strings.Builder
	out := content
	lastStart := uint32(len(content)) + 1
	for _, e := range sorted {
		if e.End > uint32(len(out)) || e.Start > e.End {
			continue
		}
		if e.End > lastStart {
			continue // overlaps an already-applied edit
		}
		b.Reset()
		b.Grow(len(out) - int(e.End-e.Start) + len(e.New))
		b.WriteString(out[:e.Start])
		b.WriteString(e.New)
		b.WriteString(out[e.End:])
		out = b.String()
		lastStart = e.Start
	}
	return out
}

// LeadingImportEnd returns the byte offset just past the last statement in
// the leading contiguous run of import statements (comments between imports
// do not break the run). Synthesized declarations are inserted there. Returns
// 0 for a file that does not start with imports.
func LeadingImportEnd(f *File) uint32 {
	root := f.Root()
	var end uint32
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement", "comment":
			if child.Type() == "import_statement" {
				end = child.EndByte()
			}
		default:
			return end
		}
	}
	return end
}

// InsertAfterImports returns the file content with fragment inserted after
// the leading import run, separated by blank lines. A file with no leading
// imports gets the fragment before its first non-comment statement, so
// header comments stay on top.
func InsertAfterImports(f *File, fragment string) string {
	content := string(f.Source)
	fragment = strings.TrimRight(fragment, "\n")

	if offset := LeadingImportEnd(f); offset > 0 {
		return Apply(content, []Edit{InsertAt(offset, "\n\n"+fragment)})
	}

	root := f.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		return Apply(content, []Edit{InsertAt(child.StartByte(), fragment+"\n\n")})
	}
	// Nothing but comments (or empty).
	return AppendFragment(content, fragment)
}

// AppendFragment returns the file content with fragment appended at the end,
// separated by a blank line.
func AppendFragment(content, fragment string) string {
	trimmed := strings.TrimRight(content, "\n")
	fragment = strings.TrimRight(fragment, "\n")
	if trimmed == "" {
		return fragment + "\n"
	}
	return trimmed + "\n\n" + fragment + "\n"
}
