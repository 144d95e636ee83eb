package folders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
)

// Reconcile rebuilds the tree and the registry from the stored folder records
// and the live host entries. Live entries decide what exists; the records
// decide where it goes. Drift is repaired silently:
//   - ids of entries the host no longer has are pruned
//   - entries listed twice stay with the first folder
//   - folders whose parent is gone, cyclic or too deep become roots
//   - live entries no folder claims go to their author's player default
//     folder, else to the default folder
//
// When render is set the render sink is notified afterwards.
func (e *Engine) Reconcile(ctx context.Context, render bool) (models.ReconcileReport, error) {
	var rep models.ReconcileReport
	err := e.do(ctx, func(ctx context.Context) error {
		var err error
		rep, err = e.reconcile(ctx, render)
		return err
	})
	return rep, err
}

func (e *Engine) loadRecords(ctx context.Context) (models.FolderMap, []byte, error) {
	data, err := e.store.Get(ctx, storage.KeyFolders)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.FolderMap{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("folders: load: %w", err)
	}
	var recs models.FolderMap
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, nil, fmt.Errorf("folders: stored records: %w: %s", apperr.ErrParse, err.Error())
	}
	return recs, data, nil
}

func (e *Engine) reconcile(ctx context.Context, render bool) (models.ReconcileReport, error) {
	rep := models.ReconcileReport{Pruned: []string{}, Unassigned: []string{}}

	stored, raw, err := e.loadRecords(ctx)
	if err != nil {
		return rep, err
	}
	live, err := e.source.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("folders: list entries: %w", err)
	}
	liveByID := make(map[string]models.EntryDescriptor, len(live))
	for _, d := range live {
		liveByID[d.ID] = d
	}

	if len(stored) == 0 {
		stored = bootstrapRecords(live)
		rep.Bootstrapped = true
		e.log.Info("folders: bootstrapped sentinel folders", slog.Int("entries", len(live)))
	}
	normalizeSentinels(stored)

	previous := e.reg.IDs()
	e.reg.Reset()
	e.folders = make(map[string]*models.Folder, len(stored))
	pruned := make(map[string]struct{})
	listed := make(map[string]struct{})

	for _, id := range recordOrder(stored) {
		rec := stored[id]
		f := models.FolderFromRecord(id, rec)
		f.Content = []string{}
		e.folders[id] = f
		for _, entryID := range rec.MacroList {
			listed[entryID] = struct{}{}
		}
		if id == models.DefaultFolderID {
			continue
		}
		for _, entryID := range rec.MacroList {
			desc, ok := liveByID[entryID]
			if !ok {
				pruned[entryID] = struct{}{}
				continue
			}
			if e.reg.Has(entryID) {
				e.log.Debug("folders: entry listed twice",
					slog.String("entry", entryID), slog.String("folder", id))
				continue
			}
			e.reg.Upsert(desc)
			e.reg.Assign(entryID, id)
			f.Content = append(f.Content, entryID)
		}
	}

	e.repairPaths()
	e.rebuildChildren()
	e.repairPlayerDefaults()

	// Default's own listing keeps its order; entries nobody listed follow.
	d := dirty{}
	pending := append(slices.Clone(stored[models.DefaultFolderID].MacroList), liveIDs(live)...)
	for _, entryID := range pending {
		desc, ok := liveByID[entryID]
		if !ok {
			pruned[entryID] = struct{}{}
			continue
		}
		if e.reg.Has(entryID) {
			continue
		}
		e.reg.Upsert(desc)
		e.attach(entryID, e.destinationFor(entryID), d)
		if _, ok := listed[entryID]; !ok {
			rep.Unassigned = append(rep.Unassigned, entryID)
		}
	}

	for _, id := range previous {
		if _, ok := liveByID[id]; !ok {
			pruned[id] = struct{}{}
		}
	}
	for id := range pruned {
		rep.Pruned = append(rep.Pruned, id)
	}
	slices.Sort(rep.Pruned)
	if len(rep.Pruned) > 0 {
		e.log.Info("folders: pruned missing entries", slog.Int("count", len(rep.Pruned)))
	}

	e.records = make(models.FolderMap, len(e.folders))
	for id, f := range e.folders {
		e.records[id] = f.Record()
		f.State = models.StatePersisted
	}
	data, err := json.Marshal(e.records)
	if err != nil {
		return rep, fmt.Errorf("folders: encode records: %w", err)
	}
	if !bytes.Equal(data, raw) {
		if err := e.store.Set(ctx, storage.KeyFolders, data); err != nil {
			return rep, fmt.Errorf("folders: save: %w", err)
		}
	}

	if err := e.loadExpanded(ctx); err != nil {
		return rep, err
	}
	if err := e.loadUserFolderLocation(ctx); err != nil {
		return rep, err
	}

	rep.Folders = len(e.folders)
	rep.Entries = e.reg.Len()
	e.log.Debug("folders: reconciled",
		slog.Int("folders", rep.Folders), slog.Int("entries", rep.Entries))
	if render {
		e.render()
	}
	return rep, nil
}

func bootstrapRecords(live []models.EntryDescriptor) models.FolderMap {
	return models.FolderMap{
		models.HiddenFolderID: {
			ID:            models.HiddenFolderID,
			TitleText:     models.HiddenFolderTitle,
			ColorText:     models.DefaultColor,
			FontColorText: models.DefaultFontColor,
			PathToFolder:  []string{},
			MacroList:     []string{},
		},
		models.DefaultFolderID: {
			ID:            models.DefaultFolderID,
			TitleText:     models.DefaultFolderTitle,
			ColorText:     models.DefaultColor,
			FontColorText: models.DefaultFontColor,
			PathToFolder:  []string{},
			MacroList:     liveIDs(live),
		},
	}
}

// normalizeSentinels adds missing sentinel records and stamps every record
// with its own id. Sentinels are always roots without a player default.
func normalizeSentinels(recs models.FolderMap) {
	titles := map[string]string{
		models.DefaultFolderID: models.DefaultFolderTitle,
		models.HiddenFolderID:  models.HiddenFolderTitle,
	}
	for id, title := range titles {
		rec := recs[id]
		if rec.TitleText == "" {
			rec.TitleText = title
		}
		rec.PathToFolder = []string{}
		rec.PlayerDefault = nil
		recs[id] = rec
	}
	for id, rec := range recs {
		rec.ID = id
		recs[id] = rec
	}
}

// recordOrder lists regular folders by id, then hidden, then default.
func recordOrder(recs models.FolderMap) []string {
	ids := make([]string, 0, len(recs))
	for id := range recs {
		if !models.IsSentinelID(id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return append(ids, models.HiddenFolderID, models.DefaultFolderID)
}

func liveIDs(live []models.EntryDescriptor) []string {
	ids := make([]string, 0, len(live))
	for _, d := range live {
		ids = append(ids, d.ID)
	}
	return ids
}

// repairPaths rewrites every folder path from its parent chain. A folder whose
// parent is missing, a sentinel, part of a cycle, or too deep becomes a root.
func (e *Engine) repairPaths() {
	resolved := make(map[string][]string, len(e.folders))

	var resolve func(id string, seen map[string]bool) []string
	resolve = func(id string, seen map[string]bool) []string {
		if p, ok := resolved[id]; ok {
			return p
		}
		f := e.folders[id]
		path := []string{}
		parent := f.ParentID()
		if !f.IsSentinel() && parent != "" && parent != id && !seen[parent] {
			if pf, ok := e.folders[parent]; ok && !pf.IsSentinel() {
				seen[id] = true
				pp := resolve(parent, seen)
				if len(pp)+1 < e.limit {
					path = append(slices.Clone(pp), parent)
				}
			}
		}
		resolved[id] = path
		return path
	}

	for _, id := range e.sortedIDs() {
		f := e.folders[id]
		path := resolve(id, map[string]bool{})
		if !slices.Equal(path, f.Path) {
			e.log.Info("folders: repaired folder path",
				slog.String("id", id), slog.Int("depth", len(path)))
			f.Path = slices.Clone(path)
		}
	}
}

// repairPlayerDefaults keeps one folder per owner and clears sentinels.
func (e *Engine) repairPlayerDefaults() {
	owners := make(map[string]string)
	for _, id := range e.sortedIDs() {
		f := e.folders[id]
		if f.PlayerDefault == "" {
			continue
		}
		if f.IsSentinel() {
			f.PlayerDefault = ""
			continue
		}
		if holder, ok := owners[f.PlayerDefault]; ok {
			e.log.Info("folders: duplicate player default cleared",
				slog.String("id", id), slog.String("kept", holder))
			f.PlayerDefault = ""
			continue
		}
		owners[f.PlayerDefault] = id
	}
}
