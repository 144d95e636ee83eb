package folders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

func TestReconcile_Bootstrap(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c")...)

	def := fx.folder(t, models.DefaultFolderID)
	assert.Equal(t, []string{"a", "b", "c"}, def.Content)
	assert.Equal(t, models.DefaultFolderTitle, def.Title)
	assert.Empty(t, fx.folder(t, models.HiddenFolderID).Content)

	recs := fx.storedRecords(t)
	assert.Len(t, recs, 2)
	assert.Equal(t, models.DefaultFolderID, recs[models.DefaultFolderID].ID)
	checkInvariants(t, fx)
}

func TestCreateFolder_ThenAddEntry(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c")...)
	ctx := context.Background()

	x := fx.create(t, "X", "")
	assert.Empty(t, x.Content)
	assert.Empty(t, x.Path)
	assert.Equal(t, models.DefaultColor, x.Color)
	assert.Equal(t, models.DefaultFontColor, x.FontColor)
	assert.Equal(t, models.StatePersisted, x.State)
	assert.Regexp(t, `^mfolder_[0-9A-Za-z]{10}$`, x.ID)

	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	assert.Equal(t, []string{"b", "c"}, fx.folder(t, models.DefaultFolderID).Content)
	assert.Equal(t, []string{"a"}, fx.folder(t, x.ID).Content)

	ent, err := fx.e.Entry(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, x.ID, ent.FolderID)

	recs := fx.storedRecords(t)
	assert.Equal(t, []string{"a"}, recs[x.ID].MacroList)
	assert.Equal(t, []string{"b", "c"}, recs[models.DefaultFolderID].MacroList)
	checkInvariants(t, fx)
}

func TestCreateFolder_WithEntriesAndValidation(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()

	f, err := fx.e.CreateFolder(ctx, FolderInput{Title: "Combat", Color: "#aa0000", Entries: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, f.Content)
	assert.Equal(t, "#aa0000", f.Color)

	_, err = fx.e.CreateFolder(ctx, FolderInput{Title: "Bad", Color: "red"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	before := fx.snapshot(t)
	_, err = fx.e.CreateFolder(ctx, FolderInput{Title: "Ghost", Entries: []string{"a", "missing"}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, before, fx.snapshot(t))

	_, err = fx.e.CreateFolder(ctx, FolderInput{Title: "Lost", ParentID: "nope"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	checkInvariants(t, fx)
}

func TestAddEntry_Idempotent(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")

	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	assert.Equal(t, []string{"a"}, fx.folder(t, x.ID).Content)
	checkInvariants(t, fx)
}

func TestAddEntry_RegistersFromHost(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")

	fx.src.Put(models.EntryDescriptor{ID: "late", Name: "Late"})
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "late"))
	ent, err := fx.e.Entry(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, x.ID, ent.FolderID)
	assert.Equal(t, "Late", ent.Name)

	assert.ErrorIs(t, fx.e.AddEntry(ctx, x.ID, "nope"), apperr.ErrNotFound)
	assert.ErrorIs(t, fx.e.AddEntry(ctx, "nope", "a"), apperr.ErrNotFound)
	checkInvariants(t, fx)
}

func TestRemoveEntry(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "b"))

	require.NoError(t, fx.e.RemoveEntry(ctx, x.ID, "a", false))
	assert.Equal(t, []string{"b"}, fx.folder(t, x.ID).Content)
	assert.Equal(t, []string{"a"}, fx.folder(t, models.HiddenFolderID).Content)
	checkInvariants(t, fx)

	assert.ErrorIs(t, fx.e.RemoveEntry(ctx, x.ID, "a", false), apperr.ErrNotFound)

	require.NoError(t, fx.e.RemoveEntry(ctx, x.ID, "b", true))
	assert.Empty(t, fx.folder(t, x.ID).Content)
	_, err := fx.e.Entry(ctx, "b")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, ok, err := fx.src.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "hard removal should delete the host document")
	checkInvariants(t, fx)
}

func TestMoveFolder_IntoDescendantRejected(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	y := fx.create(t, "Y", x.ID)
	z := fx.create(t, "Z", y.ID)

	before := fx.snapshot(t)
	for _, dest := range []string{x.ID, y.ID, z.ID} {
		err := fx.e.MoveFolder(ctx, x.ID, dest)
		assert.ErrorIs(t, err, apperr.ErrCycle, "dest %s", dest)
		assert.ErrorIs(t, err, apperr.ErrValidation, "dest %s", dest)
		assert.True(t, apperr.IsUserFacing(err))
	}
	assert.Equal(t, before, fx.snapshot(t))
	checkInvariants(t, fx)
}

func TestMoveFolder_RewritesSubtreePaths(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	a := fx.create(t, "A", "")
	b := fx.create(t, "B", a.ID)
	c := fx.create(t, "C", b.ID)
	d := fx.create(t, "D", "")

	require.NoError(t, fx.e.MoveFolder(ctx, b.ID, d.ID))
	assert.Equal(t, []string{d.ID}, fx.folder(t, b.ID).Path)
	assert.Equal(t, []string{d.ID, b.ID}, fx.folder(t, c.ID).Path)
	assert.Empty(t, fx.folder(t, a.ID).Children)
	assert.Equal(t, []string{b.ID}, fx.folder(t, d.ID).Children)
	assert.Equal(t, []string{d.ID, b.ID}, fx.storedRecords(t)[c.ID].PathToFolder)
	checkInvariants(t, fx)

	require.NoError(t, fx.e.MoveFolder(ctx, b.ID, ""))
	assert.Empty(t, fx.folder(t, b.ID).Path)
	assert.Equal(t, []string{b.ID}, fx.folder(t, c.ID).Path)
	checkInvariants(t, fx)

	require.NoError(t, fx.e.MoveFolder(ctx, c.ID, models.RootTargetID))
	assert.Empty(t, fx.folder(t, c.ID).Path)
	checkInvariants(t, fx)
}

func TestMoveFolder_SameParentIsNoop(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	p := fx.create(t, "P", "")
	c := fx.create(t, "C", p.ID)

	renders := fx.renders.Load()
	require.NoError(t, fx.e.MoveFolder(ctx, c.ID, p.ID))
	require.NoError(t, fx.e.MoveFolder(ctx, p.ID, ""))
	assert.Equal(t, renders, fx.renders.Load())
}

func TestSentinelProtection(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	before := fx.snapshot(t)

	for _, id := range []string{models.DefaultFolderID, models.HiddenFolderID} {
		for _, hard := range []bool{false, true} {
			err := fx.e.DeleteFolder(ctx, id, hard)
			assert.ErrorIs(t, err, apperr.ErrProtected)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		}
		assert.ErrorIs(t, fx.e.MoveFolder(ctx, id, x.ID), apperr.ErrProtected)
		assert.ErrorIs(t, fx.e.MoveFolder(ctx, x.ID, id), apperr.ErrProtected)
		_, err := fx.e.CreateFolder(ctx, FolderInput{Title: "Sub", ParentID: id})
		assert.ErrorIs(t, err, apperr.ErrProtected)
		_, err = fx.e.MoveTargets(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrProtected)
	}
	_, err := fx.e.UpdateFolder(ctx, models.HiddenFolderID, FolderUpdate{Title: ptr("Visible")})
	assert.ErrorIs(t, err, apperr.ErrProtected)

	assert.Equal(t, before, fx.snapshot(t))
	assert.Equal(t, []string{"a", "b"}, fx.folder(t, models.DefaultFolderID).Content)
}

func TestDepthLimit_Create(t *testing.T) {
	fx := newFixture(t, Options{DepthLimit: 4}, descriptors("a")...)
	ctx := context.Background()

	parent := ""
	for i := 0; i < 4; i++ {
		parent = fx.create(t, "Level", parent).ID
	}
	assert.Len(t, fx.folder(t, parent).Path, 3)

	_, err := fx.e.CreateFolder(ctx, FolderInput{Title: "Too deep", ParentID: parent})
	assert.ErrorIs(t, err, apperr.ErrDepthLimit)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	checkInvariants(t, fx)
}

func TestDepthLimit_Move(t *testing.T) {
	fx := newFixture(t, Options{DepthLimit: 4}, descriptors("a")...)
	ctx := context.Background()
	a := fx.create(t, "A", "")
	b := fx.create(t, "B", a.ID)
	c := fx.create(t, "C", b.ID)
	p := fx.create(t, "P", "")
	q := fx.create(t, "Q", p.ID)

	err := fx.e.MoveFolder(ctx, p.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrDepthLimit)
	assert.Empty(t, fx.folder(t, p.ID).Path)

	require.NoError(t, fx.e.MoveFolder(ctx, p.ID, b.ID))
	assert.Equal(t, []string{a.ID, b.ID, p.ID}, fx.folder(t, q.ID).Path)
	checkInvariants(t, fx)
}

func TestDeleteFolder_RootMovesContentToDefault(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	child := fx.create(t, "Child", x.ID)
	grand := fx.create(t, "Grand", child.ID)
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))

	require.NoError(t, fx.e.DeleteFolder(ctx, x.ID, false))

	_, err := fx.e.Folder(ctx, x.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, fx.folder(t, models.DefaultFolderID).Content, "a")
	assert.Empty(t, fx.folder(t, child.ID).Path)
	assert.Equal(t, []string{child.ID}, fx.folder(t, grand.ID).Path)
	assert.NotContains(t, fx.storedRecords(t), x.ID)
	checkInvariants(t, fx)
}

func TestDeleteFolder_NestedMovesContentToParent(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	p := fx.create(t, "P", "")
	x := fx.create(t, "X", p.ID)
	c := fx.create(t, "C", x.ID)
	g := fx.create(t, "G", c.ID)
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))

	require.NoError(t, fx.e.DeleteFolder(ctx, x.ID, false))

	assert.Equal(t, []string{"a"}, fx.folder(t, p.ID).Content)
	assert.Equal(t, []string{p.ID}, fx.folder(t, c.ID).Path)
	assert.Equal(t, []string{p.ID, c.ID}, fx.folder(t, g.ID).Path)
	assert.Equal(t, []string{c.ID}, fx.folder(t, p.ID).Children)
	checkInvariants(t, fx)
}

func TestDeleteFolder_HardDeletesEntries(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))

	require.NoError(t, fx.e.DeleteFolder(ctx, x.ID, true))

	_, ok, err := fx.src.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = fx.e.Entry(ctx, "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	checkInvariants(t, fx)
}

func TestDeleteEntry(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()

	require.NoError(t, fx.e.DeleteEntry(ctx, "a"))
	assert.Equal(t, []string{"b"}, fx.folder(t, models.DefaultFolderID).Content)
	_, ok, _ := fx.src.Get(ctx, "a")
	assert.False(t, ok)
	checkInvariants(t, fx)

	assert.ErrorIs(t, fx.e.DeleteEntry(ctx, "a"), apperr.ErrNotFound)
}

func TestUpdateFolder(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	y := fx.create(t, "Y", "")

	f, err := fx.e.UpdateFolder(ctx, x.ID, FolderUpdate{
		Title: ptr("Renamed"), Color: ptr("#123456"), Icon: ptr("/icons/sword.png"), PlayerDefault: ptr("u1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", f.Title)
	assert.Equal(t, "#123456", f.Color)
	assert.Equal(t, "u1", f.PlayerDefault)

	f, err = fx.e.UpdateFolder(ctx, x.ID, FolderUpdate{Color: ptr(""), FontColor: ptr(""), Icon: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultColor, f.Color)
	assert.Equal(t, models.DefaultFontColor, f.FontColor)
	assert.Empty(t, f.Icon)
	assert.Nil(t, fx.storedRecords(t)[x.ID].FolderIcon)

	_, err = fx.e.UpdateFolder(ctx, y.ID, FolderUpdate{PlayerDefault: ptr("u1")})
	require.NoError(t, err)
	assert.Empty(t, fx.folder(t, x.ID).PlayerDefault)
	assert.Equal(t, "u1", fx.folder(t, y.ID).PlayerDefault)

	_, err = fx.e.UpdateFolder(ctx, x.ID, FolderUpdate{Title: ptr("")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = fx.e.UpdateFolder(ctx, models.DefaultFolderID, FolderUpdate{PlayerDefault: ptr("u1")})
	assert.ErrorIs(t, err, apperr.ErrProtected)
	_, err = fx.e.UpdateFolder(ctx, models.DefaultFolderID, FolderUpdate{Title: ptr("Unsorted")})
	assert.NoError(t, err)
}

func TestStoreFailurePropagates(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")

	diskFull := errors.New("disk full")
	fx.store.FailSet = diskFull
	err := fx.e.AddEntry(ctx, x.ID, "a")
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, apperr.IsUserFacing(err))

	fx.store.FailSet = nil
	_, err = fx.e.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fx.folder(t, models.DefaultFolderID).Content)
	checkInvariants(t, fx)
}

func TestClosedEngine(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	fx.e.Close()
	_, err := fx.e.Tree(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func ptr(s string) *string { return &s }
