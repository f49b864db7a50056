// Package infer classifies how a name is used inside a file. The
// classification is a best-effort pattern match over the syntax tree, not a
// type inferencer: callers treat it as advisory, and a misread degrades to a
// generic stub rather than invalid output.
package infer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// usage kinds ranked: a markup element beats a call, a call beats a member
// access, a member access beats a bare reference. The ranking is what makes
// the single-pass scan order independent.
var kindRank = map[types.UsageKind]int{
	types.UsageMarkupElement: 4,
	types.UsageCall:          3,
	types.UsageMemberAccess:  2,
	types.UsageBareReference: 1,
}

// Classify scans the tree once and returns the strongest usage of name, or
// nil when the name is never used outside import statements.
func Classify(f *ast.File, name string) *types.UsageClassification {
	var (
		best     types.UsageKind
		props    []string
		argKinds []string
		members  []string
	)

	seenProp := map[string]bool{}
	seenMember := map[string]bool{}

	promote := func(kind types.UsageKind) bool {
		if kindRank[kind] > kindRank[best] {
			best = kind
			return true
		}
		return kind == best
	}

	walkTree(f.Root(), func(n *sitter.Node) {
		switch n.Type() {
		case "jsx_self_closing_element", "jsx_opening_element":
			tag := n.ChildByFieldName("name")
			if tag == nil || f.Text(tag) != name {
				return
			}
			if promote(types.UsageMarkupElement) {
				for _, attr := range attributeNames(f, n) {
					if !seenProp[attr] {
						seenProp[attr] = true
						props = append(props, attr)
					}
				}
			}

		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil || fn.Type() != "identifier" || f.Text(fn) != name {
				return
			}
			if promote(types.UsageCall) && argKinds == nil {
				argKinds = argumentKinds(f, n.ChildByFieldName("arguments"))
				if argKinds == nil {
					argKinds = []string{}
				}
			}

		case "member_expression":
			obj := n.ChildByFieldName("object")
			prop := n.ChildByFieldName("property")
			if obj == nil || prop == nil || obj.Type() != "identifier" || f.Text(obj) != name {
				return
			}
			if promote(types.UsageMemberAccess) {
				p := f.Text(prop)
				if !seenMember[p] {
					seenMember[p] = true
					members = append(members, p)
				}
			}

		case "identifier":
			if f.Text(n) != name || insideImport(n) || !isBareReference(n) {
				return
			}
			promote(types.UsageBareReference)
		}
	})

	if best == "" {
		return nil
	}

	uc := &types.UsageClassification{Name: name, Kind: best}
	switch best {
	case types.UsageMarkupElement:
		uc.Props = props
	case types.UsageCall:
		uc.ArgKinds = argKinds
	case types.UsageMemberAccess:
		uc.Members = members
	}
	logging.Get(logging.CategoryInfer).Debugf("classified %s as %s in %s", name, best, f.Path)
	return uc
}

// attributeNames collects the attribute names of a markup element node.
func attributeNames(f *ast.File, element *sitter.Node) []string {
	var names []string
	for i := 0; i < int(element.NamedChildCount()); i++ {
		child := element.NamedChild(i)
		if child.Type() != "jsx_attribute" {
			continue
		}
		if child.NamedChildCount() > 0 {
			names = append(names, f.Text(child.NamedChild(0)))
		}
	}
	return names
}

// argumentKinds classifies each call argument by literal kind.
func argumentKinds(f *ast.File, args *sitter.Node) []string {
	if args == nil {
		return nil
	}
	var kinds []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "string", "template_string":
			kinds = append(kinds, "string")
		case "number":
			kinds = append(kinds, "number")
		case "true", "false":
			kinds = append(kinds, "boolean")
		case "object":
			kinds = append(kinds, "object")
		case "array":
			kinds = append(kinds, "array")
		default:
			kinds = append(kinds, "unknown")
		}
	}
	return kinds
}

// insideImport reports whether a node sits inside an import statement;
// import specifiers are bindings, not usages.
func insideImport(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "import_statement" {
			return true
		}
	}
	return false
}

// isBareReference filters out identifier occurrences that a more specific
// branch already covers (call callee, member object, markup tag) and ones
// that are declarations rather than references.
func isBareReference(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return true
	}
	switch p.Type() {
	case "call_expression", "member_expression",
		"jsx_self_closing_element", "jsx_opening_element", "jsx_closing_element",
		"formal_parameters", "required_parameter", "optional_parameter":
		return false
	case "variable_declarator", "function_declaration", "class_declaration":
		// The binding side of a declaration is not a reference; the value
		// side of a declarator is.
		name := p.ChildByFieldName("name")
		return name == nil || name.StartByte() != n.StartByte() || name.EndByte() != n.EndByte()
	}
	return true
}

// =============================================================================
// DECLARATION CONTEXT (undefined-name heuristic)
// =============================================================================

// DeclKind distinguishes the declaration shapes the undefined-name fixer can
// synthesize.
type DeclKind string

const (
	DeclClass      DeclKind = "class"      // new Name(...)
	DeclType       DeclKind = "type"       // : Name, extends Name
	DeclEnum       DeclKind = "enum"       // Name.CONSTANT
	DeclAssignable DeclKind = "assignable" // Name = value
	DeclPlainValue DeclKind = "value"      // anything else
)

// DeclContext is the inferred declaration context for an undefined name.
type DeclContext struct {
	Kind DeclKind
	// Constants holds the accessed constant names for DeclEnum.
	Constants []string
}

// declRank orders context kinds so the scan is order independent: the more
// specific evidence wins.
var declRank = map[DeclKind]int{
	DeclClass:      5,
	DeclType:       4,
	DeclEnum:       3,
	DeclAssignable: 2,
	DeclPlainValue: 1,
}

// ClassifyDecl determines the declaration context of an undefined name.
func ClassifyDecl(f *ast.File, name string) DeclContext {
	ctx := DeclContext{Kind: DeclPlainValue}
	seen := map[string]bool{}

	promote := func(kind DeclKind) {
		if declRank[kind] > declRank[ctx.Kind] {
			ctx.Kind = kind
		}
	}

	walkTree(f.Root(), func(n *sitter.Node) {
		switch n.Type() {
		case "new_expression":
			c := n.ChildByFieldName("constructor")
			if c != nil && c.Type() == "identifier" && f.Text(c) == name {
				promote(DeclClass)
			}

		case "type_identifier":
			// `: Name`, `extends Name` and other type positions parse the
			// name as a type_identifier under both grammars.
			if f.Text(n) == name {
				promote(DeclType)
			}

		case "member_expression":
			obj := n.ChildByFieldName("object")
			prop := n.ChildByFieldName("property")
			if obj == nil || prop == nil || obj.Type() != "identifier" || f.Text(obj) != name {
				return
			}
			p := f.Text(prop)
			if isConstantName(p) {
				promote(DeclEnum)
				if !seen[p] {
					seen[p] = true
					ctx.Constants = append(ctx.Constants, p)
				}
			}

		case "assignment_expression":
			left := n.ChildByFieldName("left")
			if left != nil && left.Type() == "identifier" && f.Text(left) == name {
				promote(DeclAssignable)
			}
		}
	})

	return ctx
}

// isConstantName reports an ALL_CAPS style identifier.
func isConstantName(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := false
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c == '_' || (c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}

// walkTree visits every named node depth first.
func walkTree(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkTree(n.NamedChild(i), visit)
	}
}

// HasMarkupUsage reports whether any of the given names is used as a markup
// element in the file; the resolver uses this to pick .tsx for created files.
func HasMarkupUsage(f *ast.File, names []string) bool {
	for _, name := range names {
		if name == "" {
			continue
		}
		if uc := Classify(f, name); uc != nil && uc.Kind == types.UsageMarkupElement {
			return true
		}
	}
	return false
}
