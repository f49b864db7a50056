package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tsmend/internal/fixers"
	"tsmend/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func src(path, content string) types.SourceFile {
	return types.SourceFile{Path: path, Content: content}
}

func diag(code, path string, line int, message string) types.Diagnostic {
	return types.Diagnostic{Code: code, FilePath: path, Line: line, Column: 1, Message: message}
}

func TestRepairNoDiagnosticsIsNoOp(t *testing.T) {
	files := []types.SourceFile{src("src/a.ts", "export const a = 1;\n")}

	res := Repair(context.Background(), files, nil, nil, Options{})

	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Fixed)
	assert.Empty(t, res.Unfixable)
	assert.Empty(t, res.ModifiedFiles)
	assert.Empty(t, res.NewFiles)
	assert.Equal(t, "export const a = 1;\n", files[0].Content, "input files are never mutated")
}

func TestRepairExternalImportsStayUntouched(t *testing.T) {
	files := []types.SourceFile{src("src/a.ts", "import React from 'react';\n")}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module 'react'"),
	}, nil, Options{})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "external dependency")
	assert.Empty(t, res.ModifiedFiles)
	assert.Empty(t, res.NewFiles)
}

// An earlier group's repair must be visible to later groups: the specifier
// rewrite from module-not-found feeds the missing-export fixer's resolution.
func TestRepairThreadsEditsAcrossGroups(t *testing.T) {
	files := []types.SourceFile{
		src("src/a.ts", "import { fmt } from './Helpers';\n\nconst s = fmt(\"x\");\n"),
		src("src/helpers.ts", "export const other = 1;\n"),
	}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeMissingNamedExport, "src/a.ts", 1, "Module './Helpers' has no exported member 'fmt'."),
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './Helpers'"),
	}, nil, Options{})

	require.Len(t, res.Fixed, 2)
	assert.Contains(t, res.ModifiedFiles["src/a.ts"], "'./helpers'")
	assert.Contains(t, res.ModifiedFiles["src/helpers.ts"], "export function fmt(arg0: string)")
}

// A file created by an early group and edited by a later one stays in
// NewFiles; it never shows up as modified.
func TestRepairCreatedFilesStayNew(t *testing.T) {
	files := []types.SourceFile{
		src("src/a.ts", "import Foo from './widgets';\nimport { Bar } from './widgets';\n\nconst x = Foo(1);\nconst y = Bar(\"s\");\n"),
	}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module './widgets'"),
		diag(types.CodeMissingNamedExport, "src/a.ts", 2, "Module './widgets' has no exported member 'Bar'."),
	}, nil, Options{})

	stub, ok := res.NewFiles["src/widgets.ts"]
	require.True(t, ok)
	assert.Contains(t, stub, "export default function Foo(arg0: number)")
	assert.Contains(t, stub, "export function Bar(arg0: string)")
	assert.NotContains(t, res.ModifiedFiles, "src/widgets.ts")
}

func TestRepairUnknownCodeIsUnfixable(t *testing.T) {
	files := []types.SourceFile{src("src/a.ts", "export const a = 1;\n")}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag("mystery-code", "src/a.ts", 1, "something odd"),
	}, nil, Options{})

	require.Len(t, res.Unfixable, 1)
	assert.Contains(t, res.Unfixable[0].Reason, "no fixer is registered for code 'mystery-code'")
}

func TestRepairFetchesEachPathAtMostOnce(t *testing.T) {
	calls := map[string]int{}
	fetch := func(ctx context.Context, path string) (*types.SourceFile, error) {
		calls[path]++
		return nil, nil
	}

	files := []types.SourceFile{
		src("src/a.ts", "import { util } from '@/lib/util';\n\nutil();\n"),
		src("src/b.ts", "import { util } from '@/lib/util';\n\nutil();\n"),
	}

	Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module '@/lib/util'"),
		diag(types.CodeModuleNotFound, "src/b.ts", 1, "Cannot find module '@/lib/util'"),
	}, fetch, Options{})

	for path, n := range calls {
		assert.LessOrEqual(t, n, 1, "path %s fetched more than once", path)
	}
	assert.NotEmpty(t, calls, "resolution must consult the fetch callback")
}

func TestRepairDeterministicAcrossRuns(t *testing.T) {
	files := []types.SourceFile{
		src("src/a.tsx", "import { Foo } from './b';\nimport missing from './gone';\n\nexport function P() {\n  return <Foo title=\"x\" />;\n}\n"),
		src("src/b.ts", "export const bar = 1;\n"),
	}
	diags := []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.tsx", 2, "Cannot find module './gone'"),
		diag(types.CodeMissingNamedExport, "src/a.tsx", 1, "Module './b' has no exported member 'Foo'."),
		diag(types.CodeUndefinedName, "src/a.tsx", 4, "Cannot find name 'P2'."),
	}

	first := Repair(context.Background(), files, diags, nil, Options{})

	// Same input in a different order must produce the same output.
	reordered := []types.Diagnostic{diags[2], diags[0], diags[1]}
	second := Repair(context.Background(), files, reordered, nil, Options{})

	ignoreRunID := cmpopts.IgnoreFields(types.CodeFixResult{}, "RunID")
	if diff := cmp.Diff(first, second, ignoreRunID); diff != "" {
		t.Fatalf("results differ between runs (-first +second):\n%s", diff)
	}
}

// panicker blows up on every group it is asked to fix.
type panicker struct{}

func (p *panicker) Handles(code string) bool { return code == types.CodeUndefinedName }

func (p *panicker) Fix(fctx *fixers.Context, issues []types.Diagnostic) *types.FixResult {
	panic("boom")
}

func TestRepairPanickingFixerDowngradesGroup(t *testing.T) {
	registry := fixers.NewRegistryWithFixers(
		map[string]int{types.CodeModuleNotFound: 1, types.CodeUndefinedName: 5},
		&fixers.ModuleNotFoundFixer{},
		&panicker{},
	)

	files := []types.SourceFile{
		src("src/a.ts", "import _ from 'lodash';\n\nconst c = new Cache();\n"),
	}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeModuleNotFound, "src/a.ts", 1, "Cannot find module 'lodash'"),
		diag(types.CodeUndefinedName, "src/a.ts", 3, "Cannot find name 'Cache'."),
	}, nil, Options{Registry: registry})

	require.Len(t, res.Unfixable, 2, "both the external import and the panicked group are reported")

	var reasons []string
	for _, u := range res.Unfixable {
		reasons = append(reasons, u.Reason)
	}
	assert.Contains(t, reasons[0]+reasons[1], "external dependency")
	assert.Contains(t, reasons[0]+reasons[1], "failed: boom")
}

// rogue claims every path it touches is fair game.
type rogue struct{}

func (r *rogue) Handles(code string) bool { return code == types.CodeUndefinedName }

func (r *rogue) Fix(fctx *fixers.Context, issues []types.Diagnostic) *types.FixResult {
	res := types.NewFixResult()
	res.MarkNew("node_modules/evil/index.ts", "export const evil = 1;\n")
	res.MarkModified("notes.txt", "not source")
	res.MarkNew("src/ok.ts", "export const ok = 1;\n")
	for _, d := range issues {
		res.Fixed = append(res.Fixed, types.Fixed(d, types.FixDeclaration, "handled"))
	}
	return res
}

func TestRepairDropsOutOfBoundsWrites(t *testing.T) {
	registry := fixers.NewRegistryWithFixers(
		map[string]int{types.CodeUndefinedName: 5},
		&rogue{},
	)

	files := []types.SourceFile{src("src/a.ts", "mystery();\n")}
	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeUndefinedName, "src/a.ts", 1, "Cannot find name 'mystery'."),
	}, nil, Options{Registry: registry})

	assert.NotContains(t, res.NewFiles, "node_modules/evil/index.ts")
	assert.NotContains(t, res.ModifiedFiles, "notes.txt")
	assert.Contains(t, res.NewFiles, "src/ok.ts", "in-bounds writes survive")
}

func TestRepairExtraGlobals(t *testing.T) {
	files := []types.SourceFile{src("src/a.ts", "telemetry.send();\n")}

	res := Repair(context.Background(), files, []types.Diagnostic{
		diag(types.CodeUndefinedName, "src/a.ts", 1, "Cannot find name 'telemetry'."),
	}, nil, Options{ExtraGlobals: []string{"telemetry"}})

	require.Len(t, res.Unfixable, 1)
	assert.Empty(t, res.ModifiedFiles)
}
