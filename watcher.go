package main

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ContentWatcher signals when files in the content directory change.
type ContentWatcher struct {
	watcher *fsnotify.Watcher
	changes chan struct{}
	log     *logrus.Entry
}

// WatchContent starts watching dir. Bursts of events collapse into a single
// pending change.
func WatchContent(dir string, log *logrus.Entry) (*ContentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = w.Add(dir)
	if err != nil {
		w.Close()
		return nil, err
	}

	cw := &ContentWatcher{
		watcher: w,
		changes: make(chan struct{}, 1),
		log:     log,
	}
	go cw.run()

	return cw, nil
}

func (cw *ContentWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			cw.log.Debugf("content changed: %s", event)
			cw.notify()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Errorf("watcher error: %s", err)
		}
	}
}

func (cw *ContentWatcher) notify() {
	select {
	case cw.changes <- struct{}{}:
	default:
	}
}

// Changes delivers at most one pending notification at a time.
func (cw *ContentWatcher) Changes() <-chan struct{} {
	return cw.changes
}

func (cw *ContentWatcher) Close() error {
	return cw.watcher.Close()
}
