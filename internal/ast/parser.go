// Package ast wraps tree-sitter parsing of TypeScript/TSX sources and
// provides the traversal, scanning and editing primitives the fixers build on.
package ast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"tsmend/internal/logging"
)

// ErrParse indicates that neither grammar produced a clean syntax tree.
var ErrParse = errors.New("syntax tree has errors")

// Grammar identifies which tree-sitter grammar parsed a file.
type Grammar string

const (
	GrammarTSX        Grammar = "tsx"
	GrammarTypeScript Grammar = "typescript"
)

// File is a parsed source file. The tree stays valid only as long as Source
// is unchanged; the project file map re-parses after every content change.
type File struct {
	Path    string
	Source  []byte
	Grammar Grammar
	tree    *sitter.Tree
}

// Root returns the root node of the syntax tree.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text of a node.
func (f *File) Text(n *sitter.Node) string {
	return n.Content(f.Source)
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Parser parses TypeScript and TSX sources. Not safe for concurrent use;
// the engine is strictly sequential so each invocation owns one Parser.
type Parser struct {
	tsxParser *sitter.Parser
	tsParser  *sitter.Parser
}

// NewParser creates a Parser with both grammars loaded.
func NewParser() *Parser {
	tsxP := sitter.NewParser()
	tsxP.SetLanguage(tsx.GetLanguage())
	tsP := sitter.NewParser()
	tsP.SetLanguage(typescript.GetLanguage())
	return &Parser{tsxParser: tsxP, tsParser: tsP}
}

// Close releases both underlying parsers.
func (p *Parser) Close() {
	p.tsxParser.Close()
	p.tsParser.Close()
}

// Parse parses content with the TSX grammar first (the full feature set,
// including markup), falling back to the plain TypeScript grammar when the
// TSX tree contains syntax errors. Some legal TypeScript, e.g. `<T>value`
// casts, is ambiguous under TSX, so the fallback is not just error recovery.
// If both trees carry errors, Parse fails with ErrParse.
func (p *Parser) Parse(ctx context.Context, path, content string) (*File, error) {
	start := time.Now()
	src := []byte(content)

	tsxTree, err := p.tsxParser.ParseCtx(ctx, nil, src)
	if err == nil && !tsxTree.RootNode().HasError() {
		logging.ParseDebug("parsed %s with tsx grammar in %v", filepath.Base(path), time.Since(start))
		return &File{Path: path, Source: src, Grammar: GrammarTSX, tree: tsxTree}, nil
	}

	tsTree, tsErr := p.tsParser.ParseCtx(ctx, nil, src)
	if tsErr == nil && !tsTree.RootNode().HasError() {
		if tsxTree != nil {
			tsxTree.Close()
		}
		logging.ParseDebug("parsed %s with typescript grammar (tsx fallback) in %v",
			filepath.Base(path), time.Since(start))
		return &File{Path: path, Source: src, Grammar: GrammarTypeScript, tree: tsTree}, nil
	}

	if tsxTree != nil {
		tsxTree.Close()
	}
	if tsTree != nil {
		tsTree.Close()
	}
	logging.Get(logging.CategoryParse).Errorf("both grammars failed for %s", path)
	return nil, fmt.Errorf("parsing %s: %w", path, ErrParse)
}

// IsSourceScript reports whether path has an extension the engine treats as
// repairable source. Everything else stays outside the write boundary.
func IsSourceScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return true
	}
	return false
}
