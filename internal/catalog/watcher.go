package catalog

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cloudseed-visualizer/backend/internal/logger"
)

// Watcher observes the data directory and fires onChange after writes
// settle. The processing pipeline writes many files per flight, so events
// are debounced instead of reloading per file.
type Watcher struct {
	fw       *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	lg       *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching dir. onChange runs on the watcher goroutine.
func NewWatcher(dir string, onChange func(), lg *logger.Logger) (*Watcher, error) {
	return newWatcher(dir, 2*time.Second, onChange, lg)
}

func newWatcher(dir string, debounce time.Duration, onChange func(), lg *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		onChange: onChange,
		debounce: debounce,
		lg:       lg,
		done:     make(chan struct{}),
	}
	go w.loop()
	lg.Infof("catalog: watching %s for changes", dir)
	return w, nil
}

func (w *Watcher) loop() {
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				w.lg.Debugf("catalog: change detected: %s", ev)
				pending = time.After(w.debounce)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.lg.Warnf("catalog: watch error: %v", err)
		case <-pending:
			pending = nil
			w.onChange()
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}
