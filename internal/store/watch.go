package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile watches the database file and its WAL for modification by other
// processes (an administrative wipe, a sqlite3 shell) and signals the change
// feed when it sees one. Writes made through this Store are reported a second
// time; subscribers simply re-read.
//
// The watcher runs until ctx is cancelled. In-memory databases cannot be
// watched.
func (s *Store) WatchFile(ctx context.Context, logger *slog.Logger) error {
	if isMemory(s.path) {
		return errors.New("watch file: in-memory database has no file")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("watch file: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch file: %w", err)
	}
	// Watch the directory: SQLite replaces and truncates the -wal file, which
	// would drop a watch placed on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch file: %w", err)
	}

	watched := map[string]bool{
		abs:          true,
		abs + "-wal": true,
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !watched[filepath.Clean(event.Name)] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					logger.DebugContext(ctx, "database file changed", "file", event.Name, "op", event.Op.String())
					s.feed.publish()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "error watching database file", "err", err)
			}
		}
	}()

	return nil
}
