package shaders

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vks/engine/core"
)

var sourceExtensions = map[string]struct{}{
	".vert": {},
	".frag": {},
	".comp": {},
}

// IsSource reports whether path has a GLSL stage extension.
func IsSource(path string) bool {
	_, ok := sourceExtensions[filepath.Ext(path)]
	return ok
}

// Watcher reports writes to shader sources in one directory.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	onChange func(path string)

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWatcher starts watching dir. onChange runs on the watcher goroutine.
func NewWatcher(dir string, onChange func(path string)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	w := &Watcher{
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	core.LogDebug("watching %s for shader changes", dir)
	return w, nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && IsSource(e.Name) {
				w.onChange(e.Name)
			}
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher goroutine. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsnotify.Close()
	})
	return err
}
