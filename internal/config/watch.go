package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher reports edits to one file. It watches the parent directory so
// editors that save by rename-and-replace are still seen.
//
// Changes are coalesced: several writes between two Changed reads arrive as
// one signal. The consumer polls Changed from its own goroutine, which keeps
// the reload on the frame loop.
type FileWatcher struct {
	log     *zap.Logger
	path    string
	w       *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// WatchFile starts watching path. The file must exist.
func WatchFile(path string, log *zap.Logger) (*FileWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	fw := &FileWatcher{
		log:     log,
		path:    abs,
		w:       w,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	fw.wg.Add(1)
	go fw.loop()
	return fw, nil
}

// Path returns the absolute path being watched.
func (fw *FileWatcher) Path() string { return fw.path }

// Changed yields once per batch of edits.
func (fw *FileWatcher) Changed() <-chan struct{} { return fw.changed }

// Poll reports whether the file changed since the last Poll, without blocking.
func (fw *FileWatcher) Poll() bool {
	select {
	case <-fw.changed:
		return true
	default:
		return false
	}
}

// Close stops the watcher. Safe to call more than once.
func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.w.Close()
		fw.wg.Wait()
	})
	return err
}

func (fw *FileWatcher) loop() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			select {
			case fw.changed <- struct{}{}:
			default:
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.log.Warn("file watcher error", zap.String("path", fw.path), zap.Error(err))
		}
	}
}
