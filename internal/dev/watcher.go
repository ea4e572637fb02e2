package dev

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Change is one debounced batch of changed paths.
type Change struct {
	Paths []string
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Dirs are the directory trees to watch recursively.
	Dirs []string

	// Ignore patterns (globs, matched against base names and path
	// suffixes) that never trigger a change.
	Ignore []string

	// Debounce is how long changes accumulate before one batch fires.
	// Defaults to 100ms.
	Debounce time.Duration

	// Logger receives watcher diagnostics.
	Logger *slog.Logger
}

// DefaultIgnore excludes editor droppings and build artifacts.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"*_test.go",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher monitors route and asset directories in development, batching
// rapid changes into single notifications.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ignore   []glob.Glob
	debounce time.Duration
	logger   *slog.Logger
	onChange func(Change)
}

// NewWatcher creates a watcher over the configured directory trees.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var ignore []glob.Glob
	for _, pattern := range cfg.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			logger.Warn("invalid ignore pattern", "pattern", pattern, "error", err)
			continue
		}
		ignore = append(ignore, g)
	}

	w := &Watcher{
		fsw:      fsw,
		ignore:   ignore,
		debounce: cfg.Debounce,
		logger:   logger,
	}

	for _, dir := range cfg.Dirs {
		if err := w.addTree(dir); err != nil {
			logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	return w, nil
}

// OnChange sets the batch callback. Must be called before Start.
func (w *Watcher) OnChange(fn func(Change)) {
	w.onChange = fn
}

// addTree registers a directory and all its subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// ignored reports whether a path matches an ignore pattern.
func (w *Watcher) ignored(p string) bool {
	base := filepath.Base(p)
	for _, g := range w.ignore {
		if g.Match(base) || g.Match(filepath.ToSlash(p)) {
			return true
		}
	}
	return false
}

// Start runs the watch loop until the context ends. Changes within one
// debounce window coalesce into a single callback.
func (w *Watcher) Start(ctx context.Context) error {
	var (
		pending []string
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}

			// New directories join the watch so nested route files
			// created later still trigger.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
				}
			}

			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
				event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				pending = append(pending, event.Name)
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			if w.onChange != nil && len(pending) > 0 {
				w.onChange(Change{Paths: pending})
			}
			pending = nil
			fire = nil
		}
	}
}
