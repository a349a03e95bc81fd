// Package fswatch notifies a caller when the plugins directory or the
// active-plugins/load-order files change on disk, so it can re-run
// ReloadChangedPlugins or Load. It is the reload-on-change primitive named
// for the Plugin entry's header/mtime fields, kept outside the state machine
// itself since the state machine stays a synchronous, side-channel-free
// value type.
package fswatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
)

// Watcher watches a plugins directory plus a fixed set of persistence files
// (plugins.txt, loadorder.txt, Morrowind.ini, ...) and calls OnChange,
// debounced, whenever any of them are created, written, removed or renamed.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	debounce  time.Duration
	mu        sync.Mutex
	timer     *time.Timer
	pending   bool

	OnChange func()
	OnError  func(error)
}

// New creates a Watcher over pluginsDir and the given extra files. Each extra
// file is watched through its parent directory, so the file itself may not
// yet exist (the directory must). debounce batches a burst of events - a save
// sweep across hundreds of plugin mtimes - into a single OnChange call.
func New(pluginsDir string, extraFiles []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fswatch: create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsWatcher: fsw,
		ctx:       ctx,
		cancel:    cancel,
		debounce:  debounce,
	}

	if err := fsw.Add(pluginsDir); err != nil {
		fsw.Close()
		cancel()
		return nil, fmt.Errorf("fswatch: watch plugins directory %s: %w", pluginsDir, err)
	}

	watchedDirs := map[string]bool{pluginsDir: true}
	for _, f := range extraFiles {
		if f == "" {
			continue
		}
		dir := filepath.Dir(f)
		if watchedDirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			cancel()
			return nil, fmt.Errorf("fswatch: watch %s: %w", dir, err)
		}
		watchedDirs[dir] = true
	}

	return w, nil
}

// Start begins processing filesystem events in a background goroutine. It
// must be called at most once.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.scheduleNotify(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

func (w *Watcher) scheduleNotify(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	fire := w.pending
	w.pending = false
	w.mu.Unlock()

	if fire && w.OnChange != nil {
		w.OnChange()
	}
}

// Close stops the background goroutine and releases the underlying
// fsnotify watches. Pending debounced events that have not yet fired are
// dropped: the caller is expected to reload explicitly on start-up anyway.
func (w *Watcher) Close() error {
	w.cancel()

	var result *multierror.Error
	if err := w.fsWatcher.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return result.ErrorOrNil()
}
