package config

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Mutable is the subset of Config that hot-reloads without a restart:
// the cooldown default, the fallback flag, and upstream endpoint order.
// Everything else (port, log file path, cache sizing) only takes effect
// on the next process start.
type Mutable struct {
	Fallback        bool
	Endpoints       []string
	CooldownSeconds int
}

func (c Config) mutable() Mutable {
	return Mutable{
		Fallback:        c.Fallback,
		Endpoints:       append([]string(nil), c.Endpoints...),
		CooldownSeconds: c.CooldownSeconds,
	}
}

// Watcher holds the live Mutable view of a config file, refreshed by a
// background fsnotify watch.
type Watcher struct {
	path string
	log  *logrus.Logger

	mu      sync.RWMutex
	current Mutable

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchFile starts watching path for writes and returns a Watcher seeded
// with initial's mutable fields. A zero-value path disables watching; the
// returned Watcher then just serves the initial snapshot forever.
//
// Hot-reloading never drops an in-flight request's chosen endpoint: Load
// returns a copy of Mutable, so a request already holding one keeps using
// it even if a concurrent reload swaps the Watcher's current endpoint
// order underneath it.
func WatchFile(path string, initial Config, log *logrus.Logger) (*Watcher, error) {
	w := &Watcher{path: path, log: log, current: initial.mutable(), done: make(chan struct{})}

	if path == "" {
		return w, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w.watcher = fw

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.WithError(err).Warn("config: watch error")
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if w.log != nil {
			w.log.WithError(err).Warn("config: reload failed, keeping previous values")
		}
		return
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if w.log != nil {
			w.log.WithError(err).Warn("config: reload produced invalid yaml, keeping previous values")
		}
		return
	}

	w.mu.Lock()
	w.current = cfg.mutable()
	w.mu.Unlock()

	if w.log != nil {
		w.log.Info("config: reloaded")
	}
}

// Current returns a snapshot of the hot-reloadable fields.
func (w *Watcher) Current() Mutable {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the background watch goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
