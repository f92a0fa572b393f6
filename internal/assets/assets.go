// Package assets loads panorama images for a tour folder: per-fetch
// timeout, bounded concurrency, a path-keyed cache, and placeholder
// references for entries that fail so one bad image never fails the
// whole folder.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Asset is one panorama image. Identity key is Name; the slice index a
// folder load assigns is positional only and never survives reorders.
type Asset struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Loaded  bool   `json:"loaded"`
	Element []byte `json:"-"` // opaque image payload, nil when failed
	Err     string `json:"error,omitempty"`
}

// DisplayPath returns the path the presentation layer should render:
// the real asset for loaded images, a placeholder reference otherwise.
func (a *Asset) DisplayPath() string {
	if a.Loaded {
		return a.Path
	}
	return "placeholder://" + a.Name
}

// Fetcher resolves a ./<folder>/<file> asset path to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FileFetcher serves assets from the tours root on disk.
type FileFetcher struct {
	Root string
}

func (f *FileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	rel := strings.TrimPrefix(path, "./")
	rel = filepath.FromSlash(rel)
	if strings.Contains(rel, "..") {
		return nil, fmt.Errorf("fetching %s: path escapes tours root", path)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.Root, rel))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return data, nil
}

// HTTPFetcher fetches assets from a remote base URL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := strings.TrimSuffix(f.BaseURL, "/") + "/" + strings.TrimPrefix(path, "./")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return data, nil
}
