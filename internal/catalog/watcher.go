package catalog

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached folder scans when panorama files are
// added, removed, or renamed under the tours root.
type Watcher struct {
	catalog *Catalog
	fs      *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the catalog's tours root and its immediate
// subdirectories. Static config entries are unaffected; only scanned
// folders are refreshed.
func Watch(c *Catalog) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(c.Root()); err != nil {
		fw.Close()
		return nil, err
	}
	entries, err := os.ReadDir(c.Root())
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				// Best effort; a folder created later is picked up via
				// the root watch.
				fw.Add(filepath.Join(c.Root(), e.Name()))
			}
		}
	}

	w := &Watcher{catalog: c, fs: fw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("catalog: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.catalog.Root(), event.Name)
	if err != nil {
		return
	}

	dir := filepath.Dir(rel)
	switch {
	case dir == ".":
		// A folder appeared or vanished at the root.
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.fs.Add(event.Name)
			}
		}
		w.catalog.Refresh(rel)
	default:
		// A file changed inside a folder: rescan that folder.
		w.catalog.Refresh(filepath.ToSlash(dir))
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
