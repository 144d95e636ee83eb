package host

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mfolders/internal/checksum"
	"github.com/starford/mfolders/internal/models"
)

const resyncDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the macros directory and translates file
// changes into lifecycle notifications until ctx is cancelled.
//
// Writes that leave a document byte-identical are dropped. New directories are
// added to the watch list and their documents reported as created. fsnotify
// reports renames on the old path only, so a rename is reported as a deletion
// followed by a debounced EventResync that lets the consumer pick up the new
// path through a full reconciliation.
func Watch(ctx context.Context, d *Dir, logger *slog.Logger, h EventHandler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, d.root); err != nil {
		return err
	}

	// Seed checksums so the first spurious Write after startup is ignored.
	sums := make(map[string]string)
	seedChecksums(d, sums)

	logger.Info("watcher: started", slog.String("root", d.root))

	var resyncTimer *time.Timer
	var resyncCh <-chan time.Time

	scheduleResync := func() {
		if resyncTimer == nil {
			resyncTimer = time.NewTimer(resyncDelay)
			resyncCh = resyncTimer.C
		} else {
			resyncTimer.Reset(resyncDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resyncTimer != nil {
				resyncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-resyncCh:
			seedChecksums(d, sums)
			h(Event{Kind: EventResync})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					reportNewDir(d, ev.Name, sums, logger, h)
					continue
				}
			}

			id, ok := d.idFor(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", readErr.Error()))
					continue
				}
				sum := checksum.Sum(data)
				prev, known := sums[id]
				if known && prev == sum {
					continue
				}
				sums[id] = sum
				kind := EventUpdated
				if !known {
					kind = EventCreated
				}
				logger.Debug("watcher: changed", slog.String("id", id), slog.String("op", string(kind)))
				h(Event{Kind: kind, Entry: ParseMacro(id, data).Descriptor})

			case ev.Op&fsnotify.Remove != 0:
				delete(sums, id)
				logger.Debug("watcher: deleted", slog.String("id", id))
				h(Event{Kind: EventDeleted, Entry: models.EntryDescriptor{ID: id}})

			case ev.Op&fsnotify.Rename != 0:
				delete(sums, id)
				logger.Debug("watcher: renamed away", slog.String("id", id))
				h(Event{Kind: EventDeleted, Entry: models.EntryDescriptor{ID: id}})
				scheduleResync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// seedChecksums replaces sums with the checksums of every document on disk.
func seedChecksums(d *Dir, sums map[string]string) {
	clear(sums)
	_ = filepath.WalkDir(d.root, func(p string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return nil
		}
		id, ok := d.idFor(p)
		if !ok {
			return nil
		}
		if data, readErr := os.ReadFile(p); readErr == nil {
			sums[id] = checksum.Sum(data)
		}
		return nil
	})
}

// reportNewDir reports every document found in a newly created directory.
func reportNewDir(d *Dir, dirPath string, sums map[string]string, logger *slog.Logger, h EventHandler) {
	_ = filepath.WalkDir(dirPath, func(p string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return nil
		}
		id, ok := d.idFor(p)
		if !ok {
			return nil
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		sums[id] = checksum.Sum(data)
		logger.Debug("watcher: created from new dir", slog.String("id", id))
		h(Event{Kind: EventCreated, Entry: ParseMacro(id, data).Descriptor})
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
