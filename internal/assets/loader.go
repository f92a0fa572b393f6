package assets

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ozolins/panotour/internal/catalog"
)

// ProgressFunc is called after each asset finishes (loaded or failed).
type ProgressFunc func(done, total int, name string)

// Loader fetches panorama assets with a per-fetch timeout, a bounded
// number of in-flight fetches, and a path-keyed cache.
type Loader struct {
	fetcher     Fetcher
	timeout     time.Duration
	concurrency int

	mu    sync.RWMutex
	cache map[string]*Asset
}

// NewLoader creates a Loader. concurrency below 1 is clamped to 1.
func NewLoader(fetcher Fetcher, timeout time.Duration, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{
		fetcher:     fetcher,
		timeout:     timeout,
		concurrency: concurrency,
		cache:       make(map[string]*Asset),
	}
}

// LoadFolder loads every file of a folder. The result slice is indexed
// by catalog position regardless of fetch completion order. Failed
// entries come back with Loaded=false and the error recorded; a
// canceled context marks the remaining entries failed and returns what
// finished. onProgress may be nil.
func (l *Loader) LoadFolder(ctx context.Context, folder string, files []string, onProgress ProgressFunc) []*Asset {
	total := len(files)
	results := make([]*Asset, total)
	if total == 0 {
		return results
	}

	sem := make(chan struct{}, l.concurrency)
	var done int64
	var wg sync.WaitGroup

	for i, file := range files {
		path := catalog.AssetPath(folder, file)

		if cached, ok := l.Cached(path); ok {
			results[i] = cached
			count := atomic.AddInt64(&done, 1)
			if onProgress != nil {
				onProgress(int(count), total, file)
			}
			continue
		}

		if ctx.Err() != nil {
			results[i] = &Asset{Name: file, Path: path, Err: ctx.Err().Error()}
			count := atomic.AddInt64(&done, 1)
			if onProgress != nil {
				onProgress(int(count), total, file)
			}
			continue
		}

		wg.Add(1)
		go func(i int, file, path string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = &Asset{Name: file, Path: path, Err: ctx.Err().Error()}
				count := atomic.AddInt64(&done, 1)
				if onProgress != nil {
					onProgress(int(count), total, file)
				}
				return
			}

			results[i] = l.loadOne(ctx, file, path)
			count := atomic.AddInt64(&done, 1)
			if onProgress != nil {
				onProgress(int(count), total, file)
			}
		}(i, file, path)
	}

	wg.Wait()
	return results
}

// Preload warms the cache for the given files without returning them.
func (l *Loader) Preload(ctx context.Context, folder string, files []string, onProgress ProgressFunc) {
	l.LoadFolder(ctx, folder, files, onProgress)
}

// Cached returns the cached asset for a path, if any. Only successful
// loads are cached, so a previously failed image is retried.
func (l *Loader) Cached(path string) (*Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[path]
	return a, ok
}

// CacheSize returns the number of cached assets.
func (l *Loader) CacheSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

func (l *Loader) loadOne(ctx context.Context, file, path string) *Asset {
	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := l.fetcher.Fetch(fetchCtx, path)
	if err != nil {
		return &Asset{Name: file, Path: path, Err: err.Error()}
	}

	a := &Asset{Name: file, Path: path, Loaded: true, Element: data}
	l.mu.Lock()
	l.cache[path] = a
	l.mu.Unlock()
	return a
}
