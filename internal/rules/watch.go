package rules

import (
	"fmt"
	"path/filepath"

	"github.com/closeguard/closeguard/internal/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a catalog file when it changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the catalog file at path. Every successful
// reload is delivered to onReload; a file that fails to load keeps the
// previous catalog in place. The parent directory is watched rather
// than the file itself so editors that replace the file atomically
// still trigger a reload.
func Watch(path string, log *logger.Logger, onReload func(*Catalog)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}

	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				catalog, err := Load(abs, log)
				if err != nil {
					log.Warn("Catalog reload failed, keeping previous catalog",
						zap.String("path", abs),
						zap.Error(err),
					)
					continue
				}

				log.Info("Catalog reloaded",
					zap.String("path", abs),
					zap.Int("rules", catalog.Len()),
				)
				onReload(catalog)

			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn("Catalog watcher error", zap.Error(err))

			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
