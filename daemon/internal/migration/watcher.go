package migration

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch observes the media mount roots and invokes onDetect whenever a newly
// attached volume carries a prior installation marker. It blocks until the
// context is cancelled and is meant to run on its own goroutine.
func (c *Coordinator) Watch(ctx context.Context, onDetect func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("failed to close volume watcher: %v", err)
		}
	}()

	for _, root := range c.mediaRoots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := watcher.Add(root); err != nil {
			log.Warnf("cannot watch %s for new volumes: %v", root, err)
		}
	}

	log.Debugf("watching %v for external installations", c.mediaRoots)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			path, err := c.FindExternalInstall()
			if err != nil {
				log.Warnf("scan after volume change failed: %v", err)
				continue
			}
			if path != "" {
				onDetect(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("volume watcher error: %v", err)
		}
	}
}
