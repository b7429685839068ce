package usage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchPricing watches a pricing YAML file and reloads the ledger's pricing
// table when it changes. It blocks until the context is cancelled.
//
// Reload failures keep the previous table active and are logged; a broken
// half-written file must not take down live pricing.
func (l *Ledger) WatchPricing(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself; editors replace
	// files on save, which drops a direct file watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	target := filepath.Clean(path)
	l.log.Info("watching pricing file", "path", target)

	// Debounce timer; editors emit bursts of write events per save.
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

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
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			table, err := LoadPricing(path)
			if err != nil {
				l.log.Warn("pricing reload failed, keeping previous table", "error", err)
				continue
			}
			l.ReloadPricing(table)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("pricing watcher error", "error", err)
		}
	}
}
