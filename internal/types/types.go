// Package types provides the shared data model used across tsmend packages.
// This package exists to break import cycles between the resolver, the fixers,
// and the engine. Types here are foundational data structures with no complex
// dependencies.
package types

import (
	"fmt"
	"sort"
)

// =============================================================================
// DIAGNOSTIC CODES
// =============================================================================

// Diagnostic codes are the engine's stable identifiers for the error
// categories it knows how to repair. The type-checking service that produces
// diagnostics is responsible for mapping raw compiler errors onto these codes.
const (
	CodeModuleNotFound       = "module-not-found"
	CodeMissingNamedExport   = "missing-named-export"
	CodeExportShapeMismatch  = "export-shape-mismatch"
	CodeImportTypeMismatch   = "import-type-mismatch"
	CodeIncorrectNamedImport = "incorrect-named-import"
	CodeUndefinedName        = "undefined-name"
)

// Diagnostic is a single compiler-reported error, as supplied by the caller.
// Line and Column are 1-indexed. Diagnostics are immutable input.
type Diagnostic struct {
	Code     string `json:"code"`
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

// Location returns a compact file:line description for logs and reasons.
func (d Diagnostic) Location() string {
	return fmt.Sprintf("%s:%d", d.FilePath, d.Line)
}

// SortDiagnostics orders diagnostics by file path, then line, then column.
// Fixers rely on this for deterministic output when a code group spans files.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].FilePath != diags[j].FilePath {
			return diags[i].FilePath < diags[j].FilePath
		}
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
}

// =============================================================================
// INPUT FILES
// =============================================================================

// SourceFile is a path/content pair, used both as engine input and as the
// result shape of the file-fetch callback.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// =============================================================================
// IMPORT / EXPORT DESCRIPTORS
// =============================================================================

// NamedImport is one specifier inside an import clause. Local equals Imported
// when no alias is present.
type NamedImport struct {
	Imported string
	Local    string
}

// ImportDescriptor describes one import statement (static, dynamic import()
// or require() form) of a file.
type ImportDescriptor struct {
	ModuleSpecifier string
	DefaultName     string
	NamespaceName   string
	Named           []NamedImport
	// StartLine/EndLine are 1-indexed and inclusive; used to find the import
	// overlapping a diagnostic's line.
	StartLine int
	EndLine   int
}

// Overlaps reports whether the given 1-indexed line falls inside the
// statement's line range.
func (d ImportDescriptor) Overlaps(line int) bool {
	return line >= d.StartLine && line <= d.EndLine
}

// ExportDescriptor summarizes the exports of a file. A re-export-all
// statement cannot be enumerated without resolving its target, so it is
// recorded as an indeterminate marker instead.
type ExportDescriptor struct {
	DefaultName    string
	Named          []string
	HasReexportAll bool
}

// HasNamed reports whether name is among the enumerated named exports.
func (d ExportDescriptor) HasNamed(name string) bool {
	for _, n := range d.Named {
		if n == name {
			return true
		}
	}
	return false
}

// =============================================================================
// USAGE CLASSIFICATION
// =============================================================================

// UsageKind classifies how a name is used at its use-sites.
type UsageKind string

const (
	UsageMarkupElement UsageKind = "markup-element"
	UsageCall          UsageKind = "call"
	UsageMemberAccess  UsageKind = "member-access"
	UsageBareReference UsageKind = "bare-reference"
)

// UsageClassification captures the inferred shape of a name from how it is
// used. Exactly one of Props/ArgKinds/Members is populated depending on Kind.
type UsageClassification struct {
	Name     string
	Kind     UsageKind
	Props    []string // markup-element: attribute names
	ArgKinds []string // call: literal kind per argument
	Members  []string // member-access: accessed property names
}

// =============================================================================
// FIX RESULTS
// =============================================================================

// FixKind tags what category of repair produced a FixedIssue.
type FixKind string

const (
	FixImport      FixKind = "import_fix"
	FixExport      FixKind = "export_fix"
	FixStub        FixKind = "stub_creation"
	FixDeclaration FixKind = "declaration_fix"
)

// FixedIssue records one diagnostic the engine repaired.
type FixedIssue struct {
	Code            string  `json:"code"`
	FilePath        string  `json:"filePath"`
	Line            int     `json:"line"`
	OriginalMessage string  `json:"originalMessage"`
	Description     string  `json:"description"`
	Kind            FixKind `json:"fixKind"`
}

// UnfixableIssue records one diagnostic the engine could not repair, with a
// human-readable reason.
type UnfixableIssue struct {
	Code            string `json:"code"`
	FilePath        string `json:"filePath"`
	Line            int    `json:"line"`
	OriginalMessage string `json:"originalMessage"`
	Reason          string `json:"reason"`
}

// Fixed builds a FixedIssue for a diagnostic.
func Fixed(d Diagnostic, kind FixKind, description string) FixedIssue {
	return FixedIssue{
		Code:            d.Code,
		FilePath:        d.FilePath,
		Line:            d.Line,
		OriginalMessage: d.Message,
		Description:     description,
		Kind:            kind,
	}
}

// Unfixable builds an UnfixableIssue for a diagnostic.
func Unfixable(d Diagnostic, reason string) UnfixableIssue {
	return UnfixableIssue{
		Code:            d.Code,
		FilePath:        d.FilePath,
		Line:            d.Line,
		OriginalMessage: d.Message,
		Reason:          reason,
	}
}

// FixResult is the output of a single fixer over one code group.
// ModifiedFiles and NewFiles map path to full new content.
type FixResult struct {
	Fixed         []FixedIssue
	Unfixable     []UnfixableIssue
	ModifiedFiles map[string]string
	NewFiles      map[string]string
}

// NewFixResult returns an empty result with allocated maps.
func NewFixResult() *FixResult {
	return &FixResult{
		ModifiedFiles: make(map[string]string),
		NewFiles:      make(map[string]string),
	}
}

// MarkModified records the new content of an edited file.
func (r *FixResult) MarkModified(path, content string) {
	if r.ModifiedFiles == nil {
		r.ModifiedFiles = make(map[string]string)
	}
	r.ModifiedFiles[path] = content
}

// MarkNew records the content of a created file.
func (r *FixResult) MarkNew(path, content string) {
	if r.NewFiles == nil {
		r.NewFiles = make(map[string]string)
	}
	r.NewFiles[path] = content
}

// CodeFixResult is the aggregate returned by the orchestrator.
type CodeFixResult struct {
	RunID         string            `json:"runId"`
	Fixed         []FixedIssue      `json:"fixedIssues"`
	Unfixable     []UnfixableIssue  `json:"unfixableIssues"`
	ModifiedFiles map[string]string `json:"modifiedFiles"`
	NewFiles      map[string]string `json:"newFiles"`
}

// NewCodeFixResult returns an empty aggregate with allocated maps.
func NewCodeFixResult(runID string) *CodeFixResult {
	return &CodeFixResult{
		RunID:         runID,
		ModifiedFiles: make(map[string]string),
		NewFiles:      make(map[string]string),
	}
}

// Merge folds a single fixer's result into the aggregate. A file created by
// an earlier fixer and edited by a later one stays in NewFiles; it never
// appears in both maps.
func (r *CodeFixResult) Merge(fr *FixResult) {
	if fr == nil {
		return
	}
	r.Fixed = append(r.Fixed, fr.Fixed...)
	r.Unfixable = append(r.Unfixable, fr.Unfixable...)
	for p, c := range fr.NewFiles {
		r.NewFiles[p] = c
	}
	for p, c := range fr.ModifiedFiles {
		if _, created := r.NewFiles[p]; created {
			r.NewFiles[p] = c
			continue
		}
		r.ModifiedFiles[p] = c
	}
}
