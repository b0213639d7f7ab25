package catalog

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a registry whenever its catalog file changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	path     string
	logger   *slog.Logger
	Reloaded chan struct{}
	closeCh  chan struct{}
	once     sync.Once
	done     chan struct{}
}

// Watch starts watching path. The parent directory is watched so that
// editors which replace the file by rename are picked up.
func Watch(path string, registry *Registry, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher:  w,
		registry: registry,
		path:     abs,
		logger:   logger,
		Reloaded: make(chan struct{}, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

// run coalesces bursts of events (truncate then write, rename then create)
// into one reload once the file has been quiet for the debounce window.
func (w *Watcher) run() {
	defer close(w.done)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	if err := w.registry.Reload(w.path); err != nil {
		w.logger.Warn("catalog reload failed, keeping previous palette", "path", w.path, "error", err)
		return
	}
	w.logger.Info("catalog reloaded", "path", w.path, "archetypes", w.registry.Current().Len())
	select {
	case w.Reloaded <- struct{}{}:
	default:
	}
}
