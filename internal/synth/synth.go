// Package synth builds syntactically valid TypeScript fragments for missing
// exports and declarations. Fragments are emitted by a small writer working
// from structured shape data (usage classifications and declaration
// contexts); caller-controlled source text is never spliced into expressions.
// Every fragment carries a marker comment identifying it as generated.
package synth

import (
	"fmt"
	"strings"

	"tsmend/internal/infer"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// Marker is the comment line tagging every synthesized fragment.
const Marker = "// tsmend: generated placeholder, needs a real implementation."

// tsType maps an inferred argument kind to the parameter type the stub
// accepts.
func tsType(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "number":
		return "number"
	case "boolean":
		return "boolean"
	case "object":
		return "Record<string, unknown>"
	case "array":
		return "unknown[]"
	}
	return "unknown"
}

// Export builds an export fragment for name, shaped by its usage. A nil or
// bare-reference usage degrades to a generic constant; misclassification must
// never produce invalid output.
func Export(name string, usage *types.UsageClassification, asDefault bool) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString("\n")

	kw := "export"
	if asDefault {
		kw = "export default"
	}

	switch {
	case usage != nil && usage.Kind == types.UsageMarkupElement:
		writeComponent(&b, kw, name, usage.Props)
	case usage != nil && usage.Kind == types.UsageCall:
		writeFunction(&b, kw, name, usage.ArgKinds)
	case usage != nil && usage.Kind == types.UsageMemberAccess:
		writeObject(&b, name, usage.Members, asDefault)
	default:
		writeGeneric(&b, name, asDefault)
	}

	logging.Get(logging.CategorySynth).Debugf("synthesized export %s (default=%v)", name, asDefault)
	return b.String()
}

// writeComponent emits a component-shaped stub returning placeholder markup,
// parameterized by the inferred prop names.
func writeComponent(b *strings.Builder, kw, name string, props []string) {
	if len(props) == 0 {
		fmt.Fprintf(b, "%s function %s() {\n", kw, name)
	} else {
		var fields []string
		for _, p := range props {
			fields = append(fields, p+"?: unknown")
		}
		fmt.Fprintf(b, "%s function %s({ %s }: { %s }) {\n",
			kw, name, strings.Join(props, ", "), strings.Join(fields, "; "))
	}
	fmt.Fprintf(b, "  return <div data-placeholder=\"%s\" />;\n}\n", name)
}

// writeFunction emits a callable stub with one parameter per inferred
// argument, returning a neutral value.
func writeFunction(b *strings.Builder, kw, name string, argKinds []string) {
	var params []string
	for i, kind := range argKinds {
		params = append(params, fmt.Sprintf("arg%d: %s", i, tsType(kind)))
	}
	fmt.Fprintf(b, "%s function %s(%s) {\n  return undefined;\n}\n",
		kw, name, strings.Join(params, ", "))
}

// writeObject emits an object literal with one placeholder method per
// accessed member.
func writeObject(b *strings.Builder, name string, members []string, asDefault bool) {
	fmt.Fprintf(b, "export const %s = {\n", name)
	for _, m := range members {
		fmt.Fprintf(b, "  %s: () => undefined,\n", m)
	}
	b.WriteString("};\n")
	if asDefault {
		fmt.Fprintf(b, "export default %s;\n", name)
	}
}

// writeGeneric emits the fallback stub used when no usage information exists.
func writeGeneric(b *strings.Builder, name string, asDefault bool) {
	fmt.Fprintf(b, "export const %s = {};\n", name)
	if asDefault {
		fmt.Fprintf(b, "export default %s;\n", name)
	}
}

// Declaration builds a top-level declaration fragment for an undefined name,
// shaped by its declaration context.
func Declaration(name string, declCtx infer.DeclContext) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString("\n")

	switch declCtx.Kind {
	case infer.DeclClass:
		fmt.Fprintf(&b, "class %s {\n  constructor(..._args: unknown[]) {}\n}\n", name)

	case infer.DeclType:
		fmt.Fprintf(&b, "type %s = { [key: string]: unknown };\n", name)

	case infer.DeclEnum:
		constants := declCtx.Constants
		if len(constants) == 0 {
			constants = []string{"VALUE"}
		}
		fmt.Fprintf(&b, "const %s = {\n", name)
		for _, c := range constants {
			fmt.Fprintf(&b, "  %s: %q,\n", c, c)
		}
		b.WriteString("} as const;\n")

	case infer.DeclAssignable:
		fmt.Fprintf(&b, "let %s: unknown = undefined;\n", name)
		fmt.Fprintf(&b, "function get%s() {\n  return %s;\n}\n", capitalize(name), name)
		fmt.Fprintf(&b, "function set%s(value: unknown) {\n  %s = value;\n}\n", capitalize(name), name)

	default:
		fmt.Fprintf(&b, "const %s = {};\n", name)
	}

	logging.Get(logging.CategorySynth).Debugf("synthesized declaration %s (%s)", name, declCtx.Kind)
	return b.String()
}

// ModuleFile builds the full content of a newly created module: a file
// header plus one shaped export per expected name.
func ModuleFile(defaultName string, named []string, usageOf func(name string) *types.UsageClassification) string {
	var parts []string
	if defaultName != "" {
		parts = append(parts, Export(defaultName, usageOf(defaultName), true))
	}
	for _, n := range named {
		parts = append(parts, Export(n, usageOf(n), false))
	}
	if len(parts) == 0 {
		parts = append(parts, Marker+"\nexport {};\n")
	}
	return strings.Join(parts, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
