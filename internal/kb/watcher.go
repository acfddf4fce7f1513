package kb

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads the pattern table when an override file changes, so new
// known issues can be rolled out without restarting the scheduler.
type Watcher struct {
	kb       *KnowledgeBase
	path     string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	debounce time.Duration
}

// NewWatcher creates a watcher for a pattern override file.
func NewWatcher(kb *KnowledgeBase, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		kb:       kb,
		path:     path,
		watcher:  fsw,
		stopChan: make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// editors that replace the file via rename still trigger a reload.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop()
	log.Info().Str("path", w.path).Msg("Watching pattern override file")
	return nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of events from editors writing in chunks.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Pattern watcher error")
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	if err := w.kb.ReloadPatterns(w.path); err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("Pattern override reload failed, keeping current table")
		return
	}
	log.Info().Str("path", w.path).Int("patterns", len(w.kb.Patterns())).Msg("Reloaded pattern override")
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.watcher.Close()
}
