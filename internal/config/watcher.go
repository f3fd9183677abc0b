package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultReloadDebounce coalesces the burst of events an editor produces
// when saving a file.
const DefaultReloadDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
//
// The file's directory is watched rather than the file itself so that
// editors which replace the file by renaming are still observed.
type Watcher struct {
	path     string
	onReload func(*Config)
	debounce time.Duration
	log      log.FieldLogger

	fsw *fsnotify.Watcher

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger for reload failures.
func WithWatcherLogger(l log.FieldLogger) WatcherOption {
	return func(w *Watcher) {
		w.log = l
	}
}

// NewWatcher starts watching path. onReload receives every successfully
// loaded configuration; files that fail to load are logged and skipped.
func NewWatcher(path string, onReload func(*Config), opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrNoConfigFile
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		onReload: onReload,
		debounce: DefaultReloadDebounce,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = log.WithField("component", "config")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watch error")

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.WithError(err).WithField("path", w.path).Warn("config reload failed, keeping previous configuration")
		return
	}
	w.log.WithField("path", w.path).Info("config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
