package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/clubgraph/clubgraph/internal/graph"
)

const watchDebounce = 100 * time.Millisecond

// FileSource reads clubs and connections from JSON files on disk. The
// directory is expected to contain clubs.json and connections.json.
type FileSource struct {
	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewFileSource opens a file-backed source rooted at dir.
func NewFileSource(dir string, logger *slog.Logger) (*FileSource, error) {
	if dir == "" {
		return nil, ErrMissingPath
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", dir)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{dir: dir, logger: logger}, nil
}

func (f *FileSource) LoadClubs(ctx context.Context) ([]graph.Club, error) {
	var clubs []graph.Club
	if err := f.readJSON(ctx, "clubs.json", &clubs); err != nil {
		return nil, err
	}
	return clubs, nil
}

func (f *FileSource) LoadConnections(ctx context.Context) ([]graph.Connection, error) {
	var conns []graph.Connection
	if err := f.readJSON(ctx, "connections.json", &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (f *FileSource) readJSON(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Watch starts watching the data directory and invokes onChange after
// any of the JSON files is written. Events within the debounce window
// coalesce into a single callback. Watch returns immediately; the
// watcher stops when ctx is cancelled or Close is called.
func (f *FileSource) Watch(ctx context.Context, onChange func()) error {
	if f.watcher != nil {
		return fmt.Errorf("watch already active for %s", f.dir)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}
	f.watcher = watcher

	go func() {
		debounce := time.NewTimer(0)
		<-debounce.C
		pending := false

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isDataFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				pending = true
				debounce.Reset(watchDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("file watcher error", "error", err)
			case <-debounce.C:
				if pending {
					pending = false
					f.logger.Info("source files changed, reloading", "dir", f.dir)
					onChange()
				}
			}
		}
	}()
	return nil
}

func isDataFile(path string) bool {
	base := filepath.Base(path)
	return base == "clubs.json" || base == "connections.json"
}

func (f *FileSource) Close(_ context.Context) error {
	if f.watcher != nil {
		err := f.watcher.Close()
		f.watcher = nil
		return err
	}
	return nil
}
