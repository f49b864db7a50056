package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tsmend/internal/ast"
	"tsmend/internal/engine"
	"tsmend/internal/logging"
	"tsmend/internal/types"
)

var (
	projectDir      string
	diagnosticsPath string
	writeChanges    bool
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fixedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unfixableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	fileStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

// fixCmd runs one repair pass over the project
var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Repair the project from a diagnostics file",
	Long: `Fix loads the project's source files and a JSON diagnostics file,
runs every applicable repair strategy, and prints a summary. With --write the
modified and created files are written back to the project directory;
otherwise the run is a dry run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFix(cmd.Context())
	},
}

func init() {
	fixCmd.Flags().StringVarP(&projectDir, "project", "p", ".", "project root directory")
	fixCmd.Flags().StringVarP(&diagnosticsPath, "diagnostics", "d", "", "JSON file with compiler diagnostics (required)")
	fixCmd.Flags().BoolVarP(&writeChanges, "write", "w", false, "write repaired files back to disk")
	_ = fixCmd.MarkFlagRequired("diagnostics")

	watchCmd.Flags().StringVarP(&projectDir, "project", "p", ".", "project root directory")
	watchCmd.Flags().StringVarP(&diagnosticsPath, "diagnostics", "d", "", "JSON file with compiler diagnostics (required)")
	watchCmd.Flags().BoolVarP(&writeChanges, "write", "w", false, "write repaired files back to disk")
	_ = watchCmd.MarkFlagRequired("diagnostics")
}

func runFix(ctx context.Context) error {
	diags, err := loadDiagnostics(diagnosticsPath)
	if err != nil {
		return err
	}

	files, err := loadProject(ctx, projectDir)
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryCLI).Debugf("loaded %d source files from %s", len(files), projectDir)

	result := engine.Repair(ctx, files, diags, diskFetch(projectDir), engine.Options{
		Aliases:      cfg.Aliases,
		ExtraGlobals: cfg.ExtraGlobals,
	})

	printSummary(result)

	if writeChanges {
		if err := writeResult(projectDir, result); err != nil {
			return err
		}
	} else if len(result.ModifiedFiles)+len(result.NewFiles) > 0 {
		fmt.Println(dimStyle.Render("dry run; pass --write to apply these changes"))
	}
	return nil
}

// loadDiagnostics reads the JSON diagnostics array the type-check tooling
// produced.
func loadDiagnostics(path string) ([]types.Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading diagnostics: %w", err)
	}
	var diags []types.Diagnostic
	if err := json.Unmarshal(data, &diags); err != nil {
		return nil, fmt.Errorf("parsing diagnostics %s: %w", path, err)
	}
	return diags, nil
}

// loadProject walks the project directory and reads every source script
// concurrently. Paths in the returned set are slash-separated and relative to
// the root.
func loadProject(ctx context.Context, root string) ([]types.SourceFile, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if name == "node_modules" || strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ast.IsSourceScript(name) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	// Each goroutine writes a distinct slice element, so no lock is needed.
	files := make([]types.SourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", rel, err)
			}
			files[i] = types.SourceFile{Path: rel, Content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// diskFetch resolves paths the initial walk missed, for example files the
// walk skipped or paths produced by alias expansion.
func diskFetch(root string) func(ctx context.Context, path string) (*types.SourceFile, error) {
	return func(ctx context.Context, path string) (*types.SourceFile, error) {
		full := filepath.Join(root, filepath.FromSlash(path))
		data, err := os.ReadFile(full)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &types.SourceFile{Path: path, Content: string(data)}, nil
	}
}

// writeResult applies the repairs to disk.
func writeResult(root string, result *types.CodeFixResult) error {
	write := func(files map[string]string) error {
		for rel, content := range files {
			full := filepath.Join(root, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", rel, err)
			}
		}
		return nil
	}
	if err := write(result.ModifiedFiles); err != nil {
		return err
	}
	return write(result.NewFiles)
}

func printSummary(result *types.CodeFixResult) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("tsmend run %s", result.RunID)))

	for _, f := range result.Fixed {
		fmt.Printf("%s %s %s\n",
			fixedStyle.Render("fixed"),
			fileStyle.Render(fmt.Sprintf("%s:%d", f.FilePath, f.Line)),
			f.Description)
	}
	for _, u := range result.Unfixable {
		fmt.Printf("%s %s %s\n",
			unfixableStyle.Render("unfixable"),
			fileStyle.Render(fmt.Sprintf("%s:%d", u.FilePath, u.Line)),
			u.Reason)
	}

	var created []string
	for p := range result.NewFiles {
		created = append(created, p)
	}
	sort.Strings(created)
	for _, p := range created {
		fmt.Printf("%s %s\n", fixedStyle.Render("created"), fileStyle.Render(p))
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf("%d fixed, %d unfixable, %d modified, %d created",
		len(result.Fixed), len(result.Unfixable), len(result.ModifiedFiles), len(result.NewFiles))))
}
