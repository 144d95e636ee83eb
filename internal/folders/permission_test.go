package folders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
)

func TestSetFolderPermission(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "b"))

	n, err := fx.e.SetFolderPermission(ctx, x.ID, models.PermissionObserver)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]models.PermissionLevel{
		"a": models.PermissionObserver,
		"b": models.PermissionObserver,
		"c": models.PermissionNone,
	} {
		d, ok, err := fx.src.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, d.Permission, "host %s", id)
		ent, err := fx.e.Entry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ent.Permission, "registry %s", id)
	}

	// The host's update notification for the write changes nothing.
	renders := fx.renders.Load()
	a, _, _ := fx.src.Get(ctx, "a")
	require.NoError(t, fx.e.HandleEvent(ctx, host.Event{Kind: host.EventUpdated, Entry: a}))
	assert.Equal(t, renders, fx.renders.Load())
	assert.Equal(t, []string{"a", "b"}, fx.folder(t, x.ID).Content)
	checkInvariants(t, fx)
}

func TestSetFolderPermission_Rejected(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()

	_, err := fx.e.SetFolderPermission(ctx, models.DefaultFolderID, models.PermissionLevel(7))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = fx.e.SetFolderPermission(ctx, "nope", models.PermissionOwner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	d, _, _ := fx.src.Get(ctx, "a")
	assert.Equal(t, models.PermissionNone, d.Permission)
}

func TestSetFolderPermission_SkipsVanishedEntries(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	fx.src.Remove("b")

	n, err := fx.e.SetFolderPermission(ctx, models.DefaultFolderID, models.PermissionLimited)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	d, _, _ := fx.src.Get(ctx, "a")
	assert.Equal(t, models.PermissionLimited, d.Permission)
}
