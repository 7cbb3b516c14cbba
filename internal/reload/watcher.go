// Package reload watches the host's compiled-code directories and reports
// changes, with support for suspending delivery while a build runs.
package reload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler receives the set of paths that changed.
type Handler func(paths []string)

// Watcher delivers file changes to a Handler. While suspended, changes are
// coalesced and delivered once on the final Resume.
type Watcher struct {
	fs      *fsnotify.Watcher
	handler Handler
	log     *zap.Logger

	mu      sync.Mutex
	depth   int
	pending map[string]struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// New watches dirs and calls handler for every change. log may be nil.
func New(dirs []string, handler Handler, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", d, err)
		}
	}

	w := &Watcher{
		fs:      fw,
		handler: handler,
		log:     log,
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.handle(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("hot reload watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	w.mu.Lock()
	if w.depth > 0 {
		w.pending[path] = struct{}{}
		w.mu.Unlock()
		w.log.Debug("hot reload deferred", zap.String("path", path))
		return
	}
	w.mu.Unlock()
	w.deliver([]string{path})
}

func (w *Watcher) deliver(paths []string) {
	if w.handler != nil && len(paths) > 0 {
		w.handler(paths)
	}
}

// Suspend stops delivery until the matching Resume.
func (w *Watcher) Suspend() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.depth++
}

// Resume undoes one Suspend. The last Resume flushes pending changes.
func (w *Watcher) Resume() {
	w.mu.Lock()
	if w.depth == 0 {
		w.mu.Unlock()
		return
	}
	w.depth--
	if w.depth > 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)
	w.deliver(paths)
}

// Suspended reports whether delivery is suspended.
func (w *Watcher) Suspended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.depth > 0
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
