// Package watch loads schema files dropped into a directory.
//
// The watcher scans the directory once at start, then follows fsnotify
// events. Changes are collected and flushed on each debounce tick; a file
// whose content hash is unchanged since its last load is skipped. Removing
// a file does not remove the schema.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Loader publishes schema documents. Implemented by *lifecycle.Orchestrator.
type Loader interface {
	LoadSchema(ctx context.Context, data []byte, format rdf.Format, opts lifecycle.SchemaOptions) (model.Version, error)
}

// Config configures a Watcher.
type Config struct {
	Debounce time.Duration

	// Extensions lists the file extensions to load. Empty means every
	// extension rdf.FormatFromPath understands.
	Extensions []string
}

// Result reports one load attempt.
type Result struct {
	Path    string
	Version model.Version
	Err     error

	// Skipped is set when the schema version was already recorded.
	Skipped bool
}

// Watcher loads schema files from one directory.
type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions map[string]bool
	loader     Loader
	logger     *slog.Logger
	onResult   func(Result)

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashes map[string]string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnResult registers a callback invoked after every load attempt, from the
// watcher's goroutine.
func OnResult(f func(Result)) Option {
	return func(w *Watcher) { w.onResult = f }
}

// New creates a Watcher for dir.
func New(dir string, cfg Config, loader Loader, opts ...Option) *Watcher {
	w := &Watcher{
		dir:        dir,
		debounce:   cfg.Debounce,
		extensions: make(map[string]bool),
		loader:     loader,
		logger:     slog.Default(),
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run loads the files already in the directory and then follows changes
// until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if err := w.scan(ctx); err != nil {
		return err
	}
	w.logger.Info("watching", "dir", w.dir, "debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// scan loads every matching file in the directory, in name order.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.Type().IsRegular() && w.matches(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		w.load(ctx, path)
	}
	return nil
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(w.extensions) > 0 && !w.extensions[ext] {
		return false
	}
	_, err := rdf.FormatFromPath(path)
	return err == nil
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !w.matches(event.Name) {
		return
	}
	w.pendingMu.Lock()
	w.pending[event.Name] |= event.Op
	w.pendingMu.Unlock()
	w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
}

// flush loads every pending path that still exists, in name order.
func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	sort.Strings(paths)
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			delete(w.hashes, path)
			w.logger.Debug("file removed", "path", path)
			continue
		}
		w.load(ctx, path)
	}
}

// load publishes one file unless its content is unchanged.
func (w *Watcher) load(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.report(Result{Path: path, Err: err})
		return
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if w.hashes[path] == hash {
		return
	}

	format, err := rdf.FormatFromPath(path)
	if err != nil {
		w.report(Result{Path: path, Err: err})
		return
	}

	v, err := w.loader.LoadSchema(ctx, data, format, lifecycle.SchemaOptions{})
	switch {
	case err == nil:
		w.hashes[path] = hash
		w.report(Result{Path: path, Version: v})
	case errs.Is(err, errs.CodeVersionExists):
		w.hashes[path] = hash
		w.report(Result{Path: path, Err: err, Skipped: true})
	default:
		w.report(Result{Path: path, Err: err})
	}
}

func (w *Watcher) report(r Result) {
	switch {
	case r.Skipped:
		w.logger.Info("schema version already loaded", "path", r.Path)
	case r.Err != nil:
		w.logger.Warn("schema load failed", "path", r.Path, "code", errs.CodeOf(r.Err), "error", r.Err)
	default:
		w.logger.Info("schema loaded", "path", r.Path, "identity", r.Version.Identity, "version", r.Version.Version)
	}
	if w.onResult != nil {
		w.onResult(r)
	}
}
