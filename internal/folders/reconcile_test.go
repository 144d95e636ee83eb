package folders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
)

// seeded returns an unreconciled engine over a store preloaded with recs.
func seeded(t *testing.T, recs models.FolderMap, entries ...models.EntryDescriptor) *fixture {
	t.Helper()
	store := storage.NewMemory()
	data, err := json.Marshal(recs)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), storage.KeyFolders, data))
	src := host.NewMemory(entries...)
	e, renders := newEngine(t, store, src, Options{})
	return &fixture{e: e, src: src, store: store, renders: renders}
}

func TestReconcile_PrunesDeletedEntry(t *testing.T) {
	fx := seeded(t, models.FolderMap{
		"Y":                    {TitleText: "Y", PathToFolder: []string{}, MacroList: []string{"z", "a"}},
		models.DefaultFolderID: {TitleText: "Default", MacroList: []string{"b"}},
		models.HiddenFolderID:  {TitleText: "hidden-macros"},
	}, descriptors("a", "b")...)
	ctx := context.Background()

	rep, err := fx.e.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.False(t, rep.Bootstrapped)
	assert.Equal(t, []string{"z"}, rep.Pruned)
	assert.Empty(t, rep.Unassigned)
	assert.Equal(t, 2, rep.Entries)
	assert.Equal(t, int32(1), fx.renders.Load())

	for id, f := range fx.snapshot(t) {
		assert.NotContains(t, f.Content, "z", "folder %s", id)
	}
	_, err = fx.e.Entry(ctx, "z")
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, fx.folder(t, "Y").Content)
	assert.NotContains(t, fx.storedRecords(t)["Y"].MacroList, "z")
	checkInvariants(t, fx)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	fx := seeded(t, models.FolderMap{
		"orphan": {TitleText: "Orphan", PathToFolder: []string{"ghost"}, MacroList: []string{"a", "gone"}},
		"dup":    {TitleText: "Dup", PathToFolder: []string{}, MacroList: []string{"a", "b"}},
		"loop1":  {TitleText: "Loop1", PathToFolder: []string{"loop2"}},
		"loop2":  {TitleText: "Loop2", PathToFolder: []string{"loop1"}},
		"self":   {TitleText: "Self", PathToFolder: []string{"self"}},
		"under":  {TitleText: "Under", PathToFolder: []string{models.HiddenFolderID}},
	}, descriptors("a", "b", "c", "d")...)
	ctx := context.Background()

	rep, err := fx.e.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, rep.Pruned)
	assert.Equal(t, []string{"c", "d"}, rep.Unassigned)

	all := fx.snapshot(t)
	require.Contains(t, all, models.DefaultFolderID)
	require.Contains(t, all, models.HiddenFolderID)
	assert.Equal(t, models.DefaultFolderTitle, all[models.DefaultFolderID].Title)
	assert.Empty(t, all["orphan"].Path)
	assert.Empty(t, all["self"].Path)
	assert.Empty(t, all["under"].Path)
	assert.Equal(t, []string{"a", "b"}, all["dup"].Content, "first folder by id keeps a")
	assert.Empty(t, all["orphan"].Content)
	assert.Equal(t, []string{"c", "d"}, all[models.DefaultFolderID].Content)

	recs := fx.storedRecords(t)
	assert.Equal(t, models.HiddenFolderID, recs[models.HiddenFolderID].ID)
	assert.Equal(t, "orphan", recs["orphan"].ID)
	checkInvariants(t, fx)
}

func TestReconcile_AssignsToPlayerDefault(t *testing.T) {
	owner := "u1"
	fx := seeded(t, models.FolderMap{
		"mine":                 {TitleText: "Mine", PlayerDefault: &owner},
		models.DefaultFolderID: {MacroList: []string{"old"}},
		models.HiddenFolderID:  {},
	},
		models.EntryDescriptor{ID: "old", Name: "Old", Author: "u1"},
		models.EntryDescriptor{ID: "new", Name: "New", Author: "u1"},
		models.EntryDescriptor{ID: "other", Name: "Other", Author: "u2"},
	)

	_, err := fx.e.Reconcile(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, fx.folder(t, "mine").Content)
	assert.Equal(t, []string{"other"}, fx.folder(t, models.DefaultFolderID).Content)
	checkInvariants(t, fx)
}

func TestReconcile_DuplicatePlayerDefaultsCleared(t *testing.T) {
	owner := "u1"
	fx := seeded(t, models.FolderMap{
		"a": {TitleText: "A", PlayerDefault: &owner},
		"b": {TitleText: "B", PlayerDefault: &owner},
	})

	_, err := fx.e.Reconcile(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "u1", fx.folder(t, "a").PlayerDefault)
	assert.Empty(t, fx.folder(t, "b").PlayerDefault)
}

func TestReconcile_RegistryDropsVanishedEntries(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))

	fx.src.Remove("a")
	rep, err := fx.e.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rep.Pruned)
	assert.Empty(t, fx.folder(t, x.ID).Content)
	_, err = fx.e.Entry(ctx, "a")
	assert.Error(t, err)
	checkInvariants(t, fx)
}

func TestReconcile_IsStable(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	y := fx.create(t, "Y", x.ID)
	require.NoError(t, fx.e.AddEntry(ctx, y.ID, "b"))

	before := fx.snapshot(t)
	_, err := fx.e.Reconcile(ctx, false)
	require.NoError(t, err)
	after := fx.snapshot(t)
	for id, f := range before {
		assert.Equal(t, f.Content, after[id].Content, "folder %s", id)
		assert.Equal(t, f.Path, after[id].Path, "folder %s", id)
	}
	assert.Len(t, after, len(before))
}

func TestReconcile_CorruptStore(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Set(context.Background(), storage.KeyFolders, []byte("{not json")))
	e, _ := newEngine(t, store, host.NewMemory(), Options{})

	_, err := e.Reconcile(context.Background(), false)
	assert.Error(t, err)
}
