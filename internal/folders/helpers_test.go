package folders

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
	"github.com/starford/mfolders/internal/testutil"
)

type fixture struct {
	e       *Engine
	src     *host.Memory
	store   *storage.Memory
	renders *atomic.Int32
}

func descriptors(ids ...string) []models.EntryDescriptor {
	out := make([]models.EntryDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.EntryDescriptor{ID: id, Name: "Macro " + id})
	}
	return out
}

func newEngine(t *testing.T, store *storage.Memory, src *host.Memory, opts Options) (*Engine, *atomic.Int32) {
	t.Helper()
	renders := &atomic.Int32{}
	opts.Logger = testutil.Logger()
	opts.Sink = RenderFunc(func() { renders.Add(1) })
	e := New(store, src, opts)
	t.Cleanup(e.Close)
	return e, renders
}

// newFixture returns a reconciled engine over an in-memory host holding entries.
func newFixture(t *testing.T, opts Options, entries ...models.EntryDescriptor) *fixture {
	t.Helper()
	src := host.NewMemory(entries...)
	store := storage.NewMemory()
	e, renders := newEngine(t, store, src, opts)
	_, err := e.Reconcile(context.Background(), false)
	require.NoError(t, err)
	return &fixture{e: e, src: src, store: store, renders: renders}
}

func (fx *fixture) create(t *testing.T, title, parent string) models.Folder {
	t.Helper()
	f, err := fx.e.CreateFolder(context.Background(), FolderInput{Title: title, ParentID: parent})
	require.NoError(t, err)
	return f
}

func (fx *fixture) folder(t *testing.T, id string) models.Folder {
	t.Helper()
	f, err := fx.e.Folder(context.Background(), id)
	require.NoError(t, err)
	return f
}

func (fx *fixture) snapshot(t *testing.T) map[string]models.Folder {
	t.Helper()
	all, err := fx.e.Folders(context.Background())
	require.NoError(t, err)
	return all
}

func (fx *fixture) storedRecords(t *testing.T) models.FolderMap {
	t.Helper()
	data, err := fx.store.Get(context.Background(), storage.KeyFolders)
	require.NoError(t, err)
	recs, err := DecodeRecords(data)
	require.NoError(t, err)
	return recs
}

// checkInvariants asserts the structural rules of the forest: every live entry
// has exactly one owner and no folder lists a dead entry, paths are acyclic,
// consistent with their parent and below the depth limit, and the children
// index agrees with the paths.
func checkInvariants(t *testing.T, fx *fixture) {
	t.Helper()
	ctx := context.Background()
	all := fx.snapshot(t)
	live, err := fx.src.List(ctx)
	require.NoError(t, err)

	owners := make(map[string][]string)
	for id, f := range all {
		for _, entryID := range f.Content {
			owners[entryID] = append(owners[entryID], id)
		}
	}
	liveSet := make(map[string]bool, len(live))
	for _, d := range live {
		liveSet[d.ID] = true
		assert.Len(t, owners[d.ID], 1, "entry %s owners %v", d.ID, owners[d.ID])
	}
	for entryID := range owners {
		assert.True(t, liveSet[entryID], "folder lists dead entry %s", entryID)
	}

	require.Contains(t, all, models.DefaultFolderID)
	require.Contains(t, all, models.HiddenFolderID)
	for id, f := range all {
		assert.NotContains(t, f.Path, id, "folder %s in its own path", id)
		assert.Less(t, len(f.Path), fx.e.limit, "folder %s too deep", id)
		if parent := f.ParentID(); parent != "" {
			p, ok := all[parent]
			require.True(t, ok, "folder %s has missing parent %s", id, parent)
			assert.Equal(t, append(slices.Clone(p.Path), parent), f.Path, "folder %s path", id)
			assert.Contains(t, p.Children, id)
		}
		for _, c := range f.Children {
			child := all[c]
			assert.Equal(t, id, child.ParentID(), "child %s of %s", c, id)
		}
	}
}
