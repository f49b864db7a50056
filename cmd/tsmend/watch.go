package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"tsmend/internal/ast"
	"tsmend/internal/logging"
)

// debounceWindow coalesces bursts of filesystem events (editors often emit
// several per save) into one repair pass.
const debounceWindow = 300 * time.Millisecond

// watchCmd reruns the repair pass whenever the diagnostics file or a source
// file changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun the repair pass on file changes",
	Long: `Watch monitors the project directory and the diagnostics file and
reruns the repair pass after each change. Intended to sit next to a type
checker running in watch mode: the checker refreshes the diagnostics file,
tsmend repairs what it can.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func runWatch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, projectDir); err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(diagnosticsPath)); err != nil {
		return fmt.Errorf("watching diagnostics: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runFix(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			logging.Get(logging.CategoryCLI).Debugf("change detected: %s", event)
			// New directories need to join the watch set.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchDirs(watcher, event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)

		case <-pending:
			if err := runFix(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		}
	}
}

// addWatchDirs registers root and every subdirectory, skipping node_modules
// and hidden directories.
func addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "node_modules" || (strings.HasPrefix(name, ".") && path != root) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// relevantEvent filters out events that cannot affect a repair pass.
func relevantEvent(e fsnotify.Event) bool {
	if !e.Op.Has(fsnotify.Create) && !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Rename) && !e.Op.Has(fsnotify.Remove) {
		return false
	}
	if filepath.Clean(e.Name) == filepath.Clean(diagnosticsPath) {
		return true
	}
	if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
		return true
	}
	return ast.IsSourceScript(e.Name)
}
