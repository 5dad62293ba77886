package commands

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch mirrors directory changes into the catalog until ctx is
// cancelled: creates/writes upsert, removes/renames delete. Run Scan
// once before calling Watch to pick up files that existed before the
// watcher started.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warnf("watcher error: %v", err)
		}
	}
}

func (c *Catalog) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if err := c.removeFile(event.Name); err != nil {
			c.log.Warnf("failed to remove catalog entry for %s: %v", event.Name, err)
		}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if err := c.syncFile(event.Name); err != nil {
			c.log.Warnf("failed to sync %s: %v", event.Name, err)
		}
	}
}
