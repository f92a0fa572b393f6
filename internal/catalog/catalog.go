// Package catalog maps tour folder ids to ordered lists of panorama
// filenames. Entries come from two sources: static lists in the
// configuration, and directory scanning of the tours root. Static
// entries win since they preserve a curated order; scanned folders
// fall back to lexicographic order.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrUnknownFolder is returned when a folder id has neither a static
// entry nor a matching directory under the tours root.
var ErrUnknownFolder = errors.New("unknown tour folder")

// DefaultPatterns returns the standard panorama filename patterns.
func DefaultPatterns() []string {
	return []string{"*.jpg", "*.jpeg", "*.png", "*.webp"}
}

// Catalog resolves folder ids to ordered panorama filename lists.
type Catalog struct {
	root     string
	patterns []string

	mu      sync.RWMutex
	static  map[string][]string
	scanned map[string][]string
}

// New creates a Catalog over the given tours root. static holds
// config-provided folder entries; patterns are the glob patterns a
// filename must match to count as a panorama (e.g. "*.jpg").
func New(root string, static map[string][]string, patterns []string) *Catalog {
	c := &Catalog{
		root:     root,
		patterns: patterns,
		static:   make(map[string][]string, len(static)),
		scanned:  make(map[string][]string),
	}
	for folder, files := range static {
		c.static[folder] = append([]string(nil), files...)
	}
	return c
}

// Root returns the tours root directory.
func (c *Catalog) Root() string { return c.root }

// List returns the ordered filenames for a folder. Static entries take
// precedence; otherwise the folder's directory is scanned (and the scan
// cached until Refresh).
func (c *Catalog) List(folder string) ([]string, error) {
	if folder == "" || strings.ContainsAny(folder, `/\`) {
		return nil, fmt.Errorf("listing folder %q: %w", folder, ErrUnknownFolder)
	}

	c.mu.RLock()
	if files, ok := c.static[folder]; ok {
		defer c.mu.RUnlock()
		return append([]string(nil), files...), nil
	}
	if files, ok := c.scanned[folder]; ok {
		defer c.mu.RUnlock()
		return append([]string(nil), files...), nil
	}
	c.mu.RUnlock()

	files, err := c.scan(folder)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.scanned[folder] = files
	c.mu.Unlock()

	return append([]string(nil), files...), nil
}

// Folders returns every known folder id: static entries plus
// subdirectories of the root containing at least one panorama.
func (c *Catalog) Folders() []string {
	seen := make(map[string]bool)

	c.mu.RLock()
	for folder := range c.static {
		seen[folder] = true
	}
	c.mu.RUnlock()

	entries, err := os.ReadDir(c.root)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || seen[e.Name()] {
				continue
			}
			if files, err := c.scan(e.Name()); err == nil && len(files) > 0 {
				seen[e.Name()] = true
			}
		}
	}

	folders := make([]string, 0, len(seen))
	for folder := range seen {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}

// Refresh drops the cached scan for a folder so the next List rescans
// the directory. An empty folder drops every cached scan.
func (c *Catalog) Refresh(folder string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if folder == "" {
		c.scanned = make(map[string][]string)
		return
	}
	delete(c.scanned, folder)
}

// AssetPath resolves a folder and filename to the fetchable URL path,
// matching the viewer's ./<folder>/<file> layout.
func AssetPath(folder, filename string) string {
	return "./" + path.Join(folder, filename)
}

// scan reads the folder's directory and returns filenames matching the
// panorama patterns, in lexicographic order.
func (c *Catalog) scan(folder string) ([]string, error) {
	dir := filepath.Join(c.root, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scanning folder %s: %w", folder, ErrUnknownFolder)
		}
		return nil, fmt.Errorf("scanning folder %s: %w", folder, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if c.matches(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// matches reports whether a filename matches any panorama pattern.
// Matching is case-insensitive so IMG_x.JPG and img_x.jpg both count.
func (c *Catalog) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range c.patterns {
		if ok, err := doublestar.Match(strings.ToLower(pat), lower); err == nil && ok {
			return true
		}
	}
	return false
}
