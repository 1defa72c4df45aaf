package seed

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch calls onChange with the reloaded file whenever path is written,
// created or renamed into place, until ctx is done. Bursts of events within
// delay are coalesced. A file that fails to load is logged and skipped.
func Watch(ctx context.Context, path string, delay time.Duration, logger logrus.FieldLogger, onChange func(*File)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger = logger.WithField("seed_file", abs)
	logger.Info("Watching seed file")

	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(delay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Seed watcher error")
		case <-timer.C:
			f, err := LoadFile(abs)
			if err != nil {
				logger.WithError(err).Error("Failed to reload seed file")
				continue
			}
			logger.Info("Seed file changed")
			onChange(f)
		}
	}
}
