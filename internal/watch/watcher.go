// Package watch provides a drop folder for Markdown files. Files placed
// in the watched directory are imported as contacts or notes and then
// consumed, so a file is never imported twice.
package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ekkohq/ekko/internal/importer"
)

// Imported is called after each successful import with the file's base
// name and the kind of entity created.
type Imported func(name, kind string)

// DropWatcher watches a directory and imports Markdown files dropped
// into it.
type DropWatcher struct {
	dir      string
	importer *importer.MarkdownImporter
	onImport Imported
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewDropWatcher creates a watcher for the given directory. onImport may
// be nil.
func NewDropWatcher(dir string, imp *importer.MarkdownImporter, onImport Imported) *DropWatcher {
	return &DropWatcher{
		dir:      dir,
		importer: imp,
		onImport: onImport,
		done:     make(chan struct{}),
	}
}

// Start begins watching. Files already in the directory are imported
// first, then new arrivals as they appear. Call Stop to clean up.
func (dw *DropWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(dw.dir, 0o755); err != nil {
		return err
	}

	dw.drainExisting(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dw.dir); err != nil {
		_ = w.Close()
		return err
	}
	dw.watcher = w

	go dw.loop(ctx)
	log.Printf("watch: importing markdown dropped into %s", dw.dir)
	return nil
}

// Stop shuts down the watcher.
func (dw *DropWatcher) Stop() {
	if dw.watcher != nil {
		_ = dw.watcher.Close()
	}
	<-dw.done
}

func (dw *DropWatcher) loop(ctx context.Context) {
	defer close(dw.done)
	for {
		select {
		case evt, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isMarkdown(evt.Name) {
				dw.processFile(ctx, evt.Name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: watcher error: %v", err)
		}
	}
}

func (dw *DropWatcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(dw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && isMarkdown(entry.Name()) {
			dw.processFile(ctx, filepath.Join(dw.dir, entry.Name()))
		}
	}
}

// processFile imports one file and removes it on success. Empty files
// are removed without importing.
func (dw *DropWatcher) processFile(ctx context.Context, path string) {
	name := filepath.Base(path)

	kind, err := dw.importer.ImportFile(ctx, path)
	if errors.Is(err, importer.ErrEmptyFile) {
		_ = os.Remove(path)
		return
	}
	if err != nil {
		// Left in place so the problem is visible and fixable.
		log.Printf("watch: failed to import %s: %v", name, err)
		return
	}
	_ = os.Remove(path)

	log.Printf("watch: imported %s as %s", name, kind)
	if dw.onImport != nil {
		dw.onImport(name, kind)
	}
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
