package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// Watcher reloads a Store when its catalog file changes on disk.
type Watcher struct {
	path           string
	store          *Store
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration

	mu            sync.Mutex
	debounceTimer *time.Timer
	done          chan struct{}
}

// NewWatcher watches the directory holding path so editors that replace the
// file by rename are still seen.
func NewWatcher(path string, store *Store, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch catalog file %s", path)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		path:           abs,
		store:          store,
		watcher:        fw,
		debouncePeriod: debounce,
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// Done is closed when the watch loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				logger.Debugw("Catalog watcher detected change",
					logger.FieldFile, event.Name,
					"op", event.Op.String())
				w.scheduleReload(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Catalog watcher error", logger.FieldError, err)
		}
	}
}

// scheduleReload collapses bursts of writes into one reload.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.store.Reload(ctx); err != nil {
			logger.Errorw("Catalog reload failed",
				logger.FieldFile, w.path,
				logger.FieldError, err)
		}
	})
}
