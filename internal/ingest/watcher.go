package ingest

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
)

// StartWatcher emits a tick whenever a matching file appears in dir, so the
// poll loop can wake early. The channel is a hint, not a queue: ticks
// coalesce and polling remains the source of truth.
func StartWatcher(ctx context.Context, dir string, logger *slog.Logger) (<-chan struct{}, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, common.WrapError(err, "create directory watcher")
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, common.WrapError(err, "watch input directory")
	}

	ticks := make(chan struct{}, 1)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Write) {
					continue
				}
				if !constants.AllowedExt(filepath.Ext(event.Name)) {
					continue
				}
				logger.Debug("watch.file_event", "op", event.Op.String(), "path", event.Name)
				select {
				case ticks <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch.error", "error", err)
			}
		}
	}()

	logger.Info("watch.started", "dir", dir)
	return ticks, nil
}
