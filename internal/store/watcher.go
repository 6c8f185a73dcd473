package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wevolve/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a store when its cache file is changed by another
// process, for example a CLI edit while the page server is running.
type FileWatcher struct {
	mu sync.Mutex

	path  string
	store *Store

	lastModTime time.Time
	existed     bool

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	doneChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
}

// NewFileWatcher watches path and calls store.Reload on change.
func NewFileWatcher(path string, store *Store, debounceDelay time.Duration, logger *errors.Logger) *FileWatcher {
	if debounceDelay == 0 {
		debounceDelay = 250 * time.Millisecond
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileWatcher{
		path:          path,
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// Start begins watching. The parent directory is watched as well so atomic
// replacements and first-time creation are seen.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("store watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(fw.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	fw.fsWatcher = watcher
	fw.recordModTime()

	fw.running = true
	go fw.watchLoop()

	fw.logger.Info("Store file watcher started", "file", fw.path, "debounce_delay", fw.debounceDelay)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	err := fw.fsWatcher.Close()
	fw.mu.Unlock()

	<-fw.doneChan
	if err != nil {
		fw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	fw.logger.Info("Store file watcher stopped")
	return nil
}

func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.doneChan)
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if fw.shouldProcessEvent(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			fw.logger.LogError(err, "File watcher error")

		case <-fw.reloadChan:
			if fw.hasChanged() {
				fw.logger.Debug("Store file changed, reloading", "file", fw.path)
				if err := fw.store.Reload(context.Background()); err != nil {
					fw.logger.LogError(err, "Failed to reload store", "file", fw.path)
				}
			}

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return
	}
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
		}
	})
}

// hasChanged compares the file's modification time and existence with the
// last observation.
func (fw *FileWatcher) hasChanged() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	stat, err := os.Stat(fw.path)
	if err != nil {
		if os.IsNotExist(err) && fw.existed {
			fw.existed = false
			fw.lastModTime = time.Time{}
			return true
		}
		return false
	}
	if !fw.existed || !stat.ModTime().Equal(fw.lastModTime) {
		fw.existed = true
		fw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

// recordModTime must be called with mu held.
func (fw *FileWatcher) recordModTime() {
	if stat, err := os.Stat(fw.path); err == nil {
		fw.existed = true
		fw.lastModTime = stat.ModTime()
	}
}
