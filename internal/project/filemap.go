// Package project holds the per-invocation virtual file set the repair
// engine works on. A FileMap is an arena keyed by path: it is constructed
// once per Repair call, grows as the fetch callback resolves new paths, and
// is never shared across invocations.
package project

import (
	"context"
	"sort"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

// FetchFunc resolves a not-yet-resident path to its content. Returning
// (nil, nil) means the path does not exist. Errors are downgraded to "not
// found" by the FileMap; they never abort a run.
type FetchFunc func(ctx context.Context, path string) (*types.SourceFile, error)

// File is one project file plus its lazily parsed tree. The cached tree is
// dropped whenever content changes, so readers always see a tree derived
// from the current content.
type File struct {
	Path    string
	Content string
	tree    *ast.File
}

// FileMap is the mutable path -> File arena for one engine invocation.
type FileMap struct {
	files   map[string]*File
	parser  *ast.Parser
	fetch   FetchFunc
	fetched map[string]bool // paths already attempted via fetch
}

// NewFileMap builds the arena from the caller's input files, keeping only
// source-script paths. fetch may be nil when the caller supplied the whole
// project up front.
func NewFileMap(files []types.SourceFile, fetch FetchFunc) *FileMap {
	m := &FileMap{
		files:   make(map[string]*File),
		parser:  ast.NewParser(),
		fetch:   fetch,
		fetched: make(map[string]bool),
	}
	for _, f := range files {
		if !ast.IsSourceScript(f.Path) {
			logging.Get(logging.CategoryProject).Debugf("skipping non-source file %s", f.Path)
			continue
		}
		m.files[f.Path] = &File{Path: f.Path, Content: f.Content}
	}
	return m
}

// Close releases cached trees and the parser.
func (m *FileMap) Close() {
	for _, f := range m.files {
		if f.tree != nil {
			f.tree.Close()
			f.tree = nil
		}
	}
	m.parser.Close()
}

// Len returns the number of resident files.
func (m *FileMap) Len() int {
	return len(m.files)
}

// Get returns the resident file for path, or nil. It never fetches.
func (m *FileMap) Get(path string) *File {
	return m.files[path]
}

// Paths returns all resident paths, sorted for deterministic iteration.
func (m *FileMap) Paths() []string {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Exists reports whether path is resident, attempting at most one fetch per
// path per invocation for non-resident ones. A fetch failure means "not
// found" for the rest of the run.
func (m *FileMap) Exists(ctx context.Context, path string) bool {
	if _, ok := m.files[path]; ok {
		return true
	}
	if m.fetch == nil || m.fetched[path] {
		return false
	}
	m.fetched[path] = true

	src, err := m.fetch(ctx, path)
	if err != nil {
		logging.Get(logging.CategoryProject).Debugf("fetch %s failed, treating as not found: %v", path, err)
		return false
	}
	if src == nil {
		return false
	}
	if !ast.IsSourceScript(src.Path) {
		return false
	}
	m.files[src.Path] = &File{Path: src.Path, Content: src.Content}
	logging.Get(logging.CategoryProject).Debugf("fetched %s (%d bytes)", src.Path, len(src.Content))
	return src.Path == path
}

// Put sets the content of a file, creating it if needed and invalidating any
// cached tree.
func (m *FileMap) Put(path, content string) {
	f, ok := m.files[path]
	if !ok {
		m.files[path] = &File{Path: path, Content: content}
		return
	}
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
	f.Content = content
}

// Tree returns the parsed tree for a resident file, parsing on first access
// and re-parsing after content changes. Parse failures are returned as-is so
// fixers can report them per issue.
func (m *FileMap) Tree(ctx context.Context, path string) (*ast.File, error) {
	f, ok := m.files[path]
	if !ok {
		return nil, &NotResidentError{Path: path}
	}
	if f.tree != nil {
		return f.tree, nil
	}
	tree, err := m.parser.Parse(ctx, path, f.Content)
	if err != nil {
		return nil, err
	}
	f.tree = tree
	return tree, nil
}

// NotResidentError reports a Tree request for a path outside the arena.
type NotResidentError struct {
	Path string
}

func (e *NotResidentError) Error() string {
	return "file not in project: " + e.Path
}
