package fixers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsmend/internal/project"
	"tsmend/internal/resolve"
	"tsmend/internal/types"
)

func newTestContext(t *testing.T, files map[string]string) *Context {
	t.Helper()
	var sources []types.SourceFile
	for p, c := range files {
		sources = append(sources, types.SourceFile{Path: p, Content: c})
	}
	fm := project.NewFileMap(sources, nil)
	t.Cleanup(fm.Close)

	aliases := map[string]string{"@/": "src/", "~/": ""}
	return &Context{
		Ctx:      context.Background(),
		Files:    fm,
		Resolver: resolve.New(fm, aliases, []string{"@/", "~/"}),
		Globals:  map[string]bool{},
	}
}

func diag(code, path string, line int, message string) types.Diagnostic {
	return types.Diagnostic{Code: code, FilePath: path, Line: line, Column: 1, Message: message}
}

// ===== MODULE NOT FOUND =====

func TestModuleNotFoundRewritesNearMissSpecifier(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":     "import { helper } from './Utils';\n",
		"src/utils.ts": "export const helper = 1;\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './Utils'"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixImport, res.Fixed[0].Kind)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "'./utils'")
	assert.NotContains(t, res.ModifiedFiles["src/a.ts"], "'./Utils'")
}

func TestModuleNotFoundExternalPackage(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import _ from 'lodash';\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module 'lodash'"),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "external dependency")
	assert.Empty(t, res.ModifiedFiles)
	assert.Empty(t, res.NewFiles)
}

// A missing relative module whose default import is rendered as markup gets a
// component stub at the canonical .tsx path.
func TestModuleNotFoundCreatesComponentStub(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/app.tsx": "import Foo from './widgets';\n\nexport function App() {\n  return <Foo title=\"x\" />;\n}\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/app.tsx", 1, "Cannot find module './widgets'"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixStub, res.Fixed[0].Kind)

	stub, ok := res.NewFiles["src/widgets.tsx"]
	require.True(t, ok, "component stub must land at the .tsx canonical path")
	assert.Contains(t, stub, "export default function Foo")
	assert.Contains(t, stub, "title?: unknown")
	assert.Contains(t, stub, `data-placeholder="Foo"`)

	// The stub joins the arena so later fixers can see it.
	assert.NotNil(t, fctx.Files.Get("src/widgets.tsx"))
}

func TestModuleNotFoundStubWithoutMarkupUsesTS(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import { parse } from './parser';\n\nconst out = parse(\"x\", 1);\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './parser'"),
	})

	require.Len(t, res.Fixed, 1)
	stub, ok := res.NewFiles["src/parser.ts"]
	require.True(t, ok)
	assert.Contains(t, stub, "export function parse(arg0: string, arg1: number)")
}

// Two imports of the same missing module share one stub: the first creates
// it, the second folds its expected names in instead of reporting stale.
func TestModuleNotFoundSiblingImportsShareStub(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import Foo from './widgets';\nimport { Bar } from './widgets';\n\nconst x = Foo(1);\nconst y = Bar(\"s\");\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './widgets'"),
		diag(types.CodeModuleNotFound, "src/a.ts", 2, "Cannot find module './widgets'"),
	})

	require.Len(t, res.Fixed, 2)
	assert.Empty(t, res.Unfixable)
	for _, f := range res.Fixed {
		assert.Equal(t, types.FixStub, f.Kind)
	}

	stub := res.NewFiles["src/widgets.ts"]
	assert.Contains(t, stub, "export default function Foo(arg0: number)")
	assert.Contains(t, stub, "export function Bar(arg0: string)")
	assert.Empty(t, res.ModifiedFiles, "the importer is left alone")
}

// A default import that is never rendered nor called gets a generic
// placeholder default.
func TestModuleNotFoundStubForUnusedDefault(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import Thing from './missing';\n",
	})

	res := (&ModuleNotFoundFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './missing'"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixStub, res.Fixed[0].Kind)
	stub := res.NewFiles["src/missing.ts"]
	assert.Contains(t, stub, "export const Thing = {};")
	assert.Contains(t, stub, "export default Thing;")
}

// ===== MISSING NAMED EXPORT =====

// An importer renders a component the target file never exports; the export
// is synthesized in the target, shaped by the importer's markup usage.
func TestMissingExportAddsComponent(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.tsx": "import { Foo } from './b';\n\nexport function Page() {\n  return <Foo title=\"x\" />;\n}\n",
		"src/b.ts":  "export const bar = 1;\n",
	})

	res := (&MissingExportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeMissingNamedExport, "src/a.tsx", 1, "Module './b' has no exported member 'Foo'."),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixExport, res.Fixed[0].Kind)

	updated := res.ModifiedFiles["src/b.ts"]
	assert.Contains(t, updated, "export const bar = 1;", "existing exports must survive")
	assert.Contains(t, updated, "export function Foo({ title }")
	assert.Empty(t, res.ModifiedFiles["src/a.tsx"], "the importer is never edited")
}

func TestMissingExportReexportAllIndeterminate(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import { thing } from './b';\n",
		"src/b.ts": "export * from './c';\n",
		"src/c.ts": "export const other = 1;\n",
	})

	res := (&MissingExportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeMissingNamedExport, "src/a.ts", 1, "Module './b' has no exported member 'thing'."),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "cannot be verified")
	assert.Empty(t, res.ModifiedFiles)
}

func TestMissingExportStaleDiagnostic(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import { thing } from './b';\n",
		"src/b.ts": "export const thing = 1;\n",
	})

	res := (&MissingExportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeMissingNamedExport, "src/a.ts", 1, "Module './b' has no exported member 'thing'."),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "stale")
}

// ===== EXPORT SHAPE MISMATCH =====

func TestExportShapeNamedToDefault(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":      "import { settings } from './config';\n\nconsole.log(settings);\n",
		"src/config.ts": "export default function settings() { return {}; }\n",
	})

	res := (&ExportShapeFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeExportShapeMismatch, "src/a.ts", 1, "Module './config' has no exported member 'settings'. Did you mean to use 'import settings from' instead?"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "import settings from './config';")
}

func TestExportShapeDefaultToNamed(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":       "import helper from './helpers';\n",
		"src/helpers.ts": "export const helper = () => 1;\n",
	})

	res := (&ExportShapeFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeExportShapeMismatch, "src/a.ts", 1, "Module './helpers' has no default export."),
	})

	require.Len(t, res.Fixed, 1)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "import { helper } from './helpers';")
}

func TestExportShapeMixedExportsAmbiguous(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "import { stuff } from './b';\n",
		"src/b.ts": "export default function b() {}\nexport const extra = 1;\n",
	})

	res := (&ExportShapeFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeExportShapeMismatch, "src/a.ts", 1, "Shape mismatch importing './b'."),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "ambiguous")
	assert.Empty(t, res.ModifiedFiles)
}

// ===== IMPORT TYPE MISMATCH =====

func TestImportMismatchPartitionsSpecifiers(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":    "import { alpha, betta, gamma } from './vals';\n",
		"src/vals.ts": "export const alpha = 1;\nexport const beta = 2;\n",
	})

	res := (&ImportMismatchFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeImportTypeMismatch, "src/a.ts", 1, "Imported names do not match './vals'."),
	})

	require.Len(t, res.Fixed, 1)
	updated := res.ModifiedFiles["src/a.ts"]
	assert.Contains(t, updated, "alpha")
	assert.Contains(t, updated, "beta as betta", "near-miss spelling keeps the local binding")
	assert.NotContains(t, updated, "gamma")

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "'gamma'")
}

func TestImportMismatchPromotesDefaultName(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":      "import { widget } from './widget';\n",
		"src/widget.ts": "export default function widget() {}\nexport const size = 1;\n",
	})

	res := (&ImportMismatchFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeImportTypeMismatch, "src/a.ts", 1, "Imported names do not match './widget'."),
	})

	require.Len(t, res.Fixed, 1)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "import widget from './widget';")
}

// ===== INCORRECT NAMED IMPORT =====

// A confirmed "did you mean" suggestion is applied to the specifier.
func TestNamedImportAppliesConfirmedSuggestion(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":     "import { Toastr } from './toast';\n",
		"src/toast.ts": "export function Toaster() {}\n",
	})

	res := (&NamedImportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeIncorrectNamedImport, "src/a.ts", 1,
			"'Toastr' is not exported by './toast'; did you mean 'Toaster'?"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixImport, res.Fixed[0].Kind)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "import { Toaster } from './toast';")
}

func TestNamedImportPreservesLocalAlias(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":     "import { toast as notify } from './toast';\n\nnotify();\n",
		"src/toast.ts": "export function Toaster() {}\n",
	})

	res := (&NamedImportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeIncorrectNamedImport, "src/a.ts", 1,
			"'./toast' has no exported member named 'toast'. Did you mean 'Toaster'?"),
	})

	require.Len(t, res.Fixed, 1)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "import { Toaster as notify } from './toast';")
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "notify();", "call sites stay untouched")
}

// A suggestion the target does not actually export is rejected.
func TestNamedImportRejectsUnconfirmedSuggestion(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts":     "import { Toastr } from './toast';\n",
		"src/toast.ts": "export function Toaster() {}\n",
	})

	res := (&NamedImportFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeIncorrectNamedImport, "src/a.ts", 1,
			"'Toastr' is not exported by './toast'; did you mean 'Toasted'?"),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "'Toasted'")
	assert.Empty(t, res.ModifiedFiles)
}

// ===== UNDEFINED NAME =====

func TestUndefinedNameDeclaresAndDeniesGlobals(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/main.ts": "import { log } from './log';\n\nconst cache = new Cache();\nconsole.log(cache);\n",
		"src/log.ts":  "export const log = () => {};\n",
	})

	res := (&UndefinedNameFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeUndefinedName, "src/main.ts", 3, "Cannot find name 'Cache'."),
		diag(types.CodeUndefinedName, "src/main.ts", 4, "Cannot find name 'console'."),
	})

	require.Len(t, res.Fixed, 1)
	assert.Equal(t, types.FixDeclaration, res.Fixed[0].Kind)
	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "runtime global")

	updated := res.ModifiedFiles["src/main.ts"]
	assert.Contains(t, updated, "class Cache {")

	// The declaration lands after the import block, before first use.
	importIdx := strings.Index(updated, "./log")
	declIdx := strings.Index(updated, "class Cache")
	useIdx := strings.Index(updated, "new Cache()")
	assert.Greater(t, declIdx, importIdx)
	assert.Greater(t, useIdx, declIdx)
}

func TestUndefinedNameDeclaresOncePerFile(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "const x = helper();\nconst y = helper();\n",
	})

	res := (&UndefinedNameFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeUndefinedName, "src/a.ts", 1, "Cannot find name 'helper'."),
		diag(types.CodeUndefinedName, "src/a.ts", 2, "Cannot find name 'helper'."),
	})

	require.Len(t, res.Fixed, 2, "every diagnostic is answered")
	updated := res.ModifiedFiles["src/a.ts"]
	assert.Equal(t, 1, strings.Count(updated, "const helper"), "one declaration covers all sites")
}

func TestUndefinedNameHonorsExtraGlobals(t *testing.T) {
	fctx := newTestContext(t, map[string]string{
		"src/a.ts": "analytics.track();\n",
	})
	fctx.Globals["analytics"] = true

	res := (&UndefinedNameFixer{}).Fix(fctx, []types.Diagnostic{
		diag(types.CodeUndefinedName, "src/a.ts", 1, "Cannot find name 'analytics'."),
	})

	require.Len(t, res.Unfixable, 1)
	assert.Empty(t, res.ModifiedFiles)
}

// ===== REGISTRY =====

func TestRegistryLookupAndTiers(t *testing.T) {
	r := NewRegistry()

	assert.IsType(t, &ModuleNotFoundFixer{}, r.Lookup(types.CodeModuleNotFound))
	assert.IsType(t, &UndefinedNameFixer{}, r.Lookup(types.CodeUndefinedName))
	assert.Nil(t, r.Lookup("no-such-code"))

	assert.Less(t, r.Tier(types.CodeModuleNotFound), r.Tier(types.CodeMissingNamedExport))
	assert.Equal(t, r.Tier(types.CodeExportShapeMismatch), r.Tier(types.CodeImportTypeMismatch))
	assert.Less(t, r.Tier(types.CodeIncorrectNamedImport), r.Tier(types.CodeUndefinedName))
	assert.Greater(t, r.Tier("no-such-code"), r.Tier(types.CodeUndefinedName))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("same", "same"))
	assert.Equal(t, 1, levenshtein("betta", "beta"))
	assert.Equal(t, 2, levenshtein("Toastr", "Toasted"))
	assert.Equal(t, 5, levenshtein("", "gamma"))
}
