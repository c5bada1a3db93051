package patterns

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/watcher"
)

var (
	// ErrNotFound is returned by Load for a pattern with no file.
	ErrNotFound = errors.New("pattern not found")
	// ErrInvalidName is returned for names that are empty or contain a
	// path separator.
	ErrInvalidName = errors.New("invalid pattern name")
)

const fileExt = ".yaml"

// Option configures a Library.
type Option func(*Library)

// WithTTL sets how long decoded patterns stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(l *Library) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithoutCache makes every Load read the disk.
func WithoutCache() Option {
	return func(l *Library) {
		l.skipCache = true
	}
}

// Library reads and writes pattern files in one directory.
type Library struct {
	dir       string
	ttl       time.Duration
	skipCache bool
	cache     *memoryCache[File]
	loader    *readThrough[File]
	reads     atomic.Int64
}

// New creates a library over dir. The directory need not exist until Save.
func New(dir string, opts ...Option) *Library {
	l := &Library{
		dir: dir,
		ttl: DefaultExpiration,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newMemoryCache[File]("patterns", l.ttl, DefaultCleanupInterval)
	l.loader = &readThrough[File]{cache: l.cache, fn: l.read, skip: l.skipCache}
	return l
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Load returns the named pattern, decoding the file on a cache miss.
func (l *Library) Load(ctx context.Context, name string) (File, error) {
	if err := checkName(name); err != nil {
		return File{}, err
	}
	return l.loader.Get(ctx, name, l.ttl)
}

func (l *Library) read(ctx context.Context, name string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	l.reads.Add(1)
	path := l.path(name)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the library dir
	if errors.Is(err, os.ErrNotExist) {
		path = filepath.Join(l.dir, name+".yml")
		data, err = os.ReadFile(path) //nolint:gosec // G304: path is inside the library dir
	}
	if errors.Is(err, os.ErrNotExist) {
		return File{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return File{}, fmt.Errorf("reading pattern %s: %w", name, err)
	}
	f, err := Decode(data)
	if err != nil {
		log.ErrorErr(log.CatPatterns, "Invalid pattern file", err, "path", path)
		return File{}, fmt.Errorf("pattern %s: %w", name, err)
	}
	log.Debug(log.CatPatterns, "Pattern loaded", "name", name, "tracks", len(f.Tracks))
	return f, nil
}

// Reads counts disk reads, for cache diagnostics.
func (l *Library) Reads() int64 { return l.reads.Load() }

// List returns the sorted pattern names. A missing directory is empty.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Save writes the pattern atomically and drops any cached copy.
func (l *Library) Save(name string, f File) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("creating pattern directory: %w", err)
	}

	temp, err := os.CreateTemp(l.dir, "."+name+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, l.path(name)); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	l.Invalidate(name)
	log.Info(log.CatPatterns, "Pattern saved", "name", name)
	return nil
}

// Invalidate drops cached copies of the named patterns.
func (l *Library) Invalidate(names ...string) {
	l.cache.Delete(names...)
}

// Cached reports how many patterns are held in the cache.
func (l *Library) Cached() int { return l.cache.Len() }

// Watch invalidates changed patterns and calls onReload with their names
// until ctx is done. The directory must exist.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onReload func(names []string)) error {
	w, err := watcher.New(watcher.Config{Dir: l.dir, DebounceDur: debounce})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case names := <-changes:
				l.Invalidate(names...)
				log.Info(log.CatPatterns, "Patterns reloaded", "names", strings.Join(names, ","))
				if onReload != nil {
					onReload(names)
				}
			}
		}
	}()
	return nil
}

func (l *Library) path(name string) string {
	return filepath.Join(l.dir, name+fileExt)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
