package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// configWatcher reloads the migrator registration file into the store the
// moment it changes; the daemon schedules no make-migrators job of its own,
// so this watcher is its only trigger for re-registration. Grounded on docbuilder's daemon.ConfigWatcher
// (watch-the-directory, debounce rapid writes, reload on settle), with the
// reload action narrowed from "apply a whole new daemon config" to "re-run
// make-migrators".
type configWatcher struct {
	path         string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	reload       func()
}

func newConfigWatcher(path string, reload func()) (*configWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &configWatcher{path: absPath, watcher: w, debounceTime: 2 * time.Second, reload: reload}, nil
}

// run watches path's directory until ctx is canceled, debouncing bursts of
// writes (editors often write-then-rename) into a single reload call.
func (cw *configWatcher) run(ctx context.Context) {
	defer cw.watcher.Close()

	dir := filepath.Dir(cw.path)
	if err := cw.watcher.Add(dir); err != nil {
		slog.Error("failed to watch migrators config directory", "dir", dir, "error", err)
		return
	}
	file := filepath.Base(cw.path)

	var timer *time.Timer
	reloadChan := make(chan struct{}, 1)
	trigger := func() {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("migrators config watcher error", "error", err)
		case <-reloadChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cw.debounceTime, cw.reload)
		}
	}
}
