package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Subscriber receives the freshly loaded configuration after a reload.
type Subscriber func(*Config)

// Watcher reloads the configuration when the settings file changes on
// disk and publishes the result to subscribers. Editors save via
// rename, so the parent directory is watched rather than the file.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	subs []Subscriber

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the active settings file.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	path := SettingsPath()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Subscribe registers a callback invoked after every successful reload.
func (w *Watcher) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
	log.Debug().Str("path", w.path).Msg("Watching settings file")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// Reset the debounce window on every event in the burst.
			if timer == nil {
				timer = time.AfterFunc(reloadDebounce, w.reload)
			} else {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Settings watcher error")
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	cfg, err := Reload()
	if err != nil {
		log.Warn().Err(err).Msg("Settings reload failed, keeping previous configuration")
		return
	}

	log.Info().Str("path", w.path).Msg("Settings reloaded")

	w.mu.Lock()
	subs := make([]Subscriber, len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
}
