package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// RoutingWatcher hot-reloads the routing file. On every write it re-parses
// and re-validates the file and hands the result to the reload callback; a
// file that fails validation is ignored so the previous snapshot stays live.
type RoutingWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once

	// onReload receives each successfully parsed routing file.
	onReload func(*RoutingFile)
	// onError receives parse/validation failures; may be nil.
	onError func(error)
}

// WatchRoutingFile starts watching path and invokes onReload with each valid
// new version. The watch runs until Close is called.
func WatchRoutingFile(path string, onReload func(*RoutingFile), onError func(error)) (*RoutingWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create routing watcher: %w", err)
	}

	// Watch the directory, not the file: editors commonly replace the file
	// via rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch routing directory: %w", err)
	}

	rw := &RoutingWatcher{
		path:     path,
		watcher:  watcher,
		done:     make(chan struct{}),
		onReload: onReload,
		onError:  onError,
	}
	go rw.loop()
	return rw, nil
}

func (rw *RoutingWatcher) loop() {
	for {
		select {
		case <-rw.done:
			return
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(rw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			rf, err := LoadRoutingFile(rw.path)
			if err != nil {
				if rw.onError != nil {
					rw.onError(err)
				}
				continue
			}
			rw.onReload(rf)
		case _, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			// Keep watching; a transient watch error is not fatal.
		}
	}
}

// Close stops the watcher.
func (rw *RoutingWatcher) Close() error {
	var err error
	rw.once.Do(func() {
		close(rw.done)
		err = rw.watcher.Close()
	})
	return err
}
