package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

// CheckList holds the check list used for new runs. Runs already created keep
// the list they were built with.
type CheckList struct {
	path string

	mu     sync.RWMutex
	checks []scan.Check
}

// NewCheckList loads the list from path, or uses the default checks when path
// is empty
func NewCheckList(path string) (*CheckList, error) {
	l := &CheckList{path: path, checks: scan.DefaultChecks}
	if path == "" {
		return l, nil
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Checks returns a copy of the current list
func (l *CheckList) Checks() []scan.Check {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]scan.Check(nil), l.checks...)
}

// Reload re-reads the file. On error the previous list stays in place.
func (l *CheckList) Reload() error {
	if l.path == "" {
		return nil
	}
	checks, err := LoadChecks(l.path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.checks = checks
	l.mu.Unlock()
	return nil
}

// Watch reloads the list whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (l *CheckList) Watch(ctx context.Context) error {
	if l.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.path, err)
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := l.Reload(); err != nil {
				logger.Warnf("config: keeping previous check list: %v", err)
				continue
			}
			logger.Infof("config: reloaded %d checks from %s", len(l.Checks()), l.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config: watcher error: %v", err)
		}
	}
}
