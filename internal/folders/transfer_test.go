package folders

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

func TestExportImport_RoundTrip(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b", "c", "d")...)
	ctx := context.Background()
	x := fx.create(t, "X", "")
	y := fx.create(t, "Y", x.ID)
	require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))
	require.NoError(t, fx.e.AddEntry(ctx, y.ID, "c"))
	require.NoError(t, fx.e.RemoveEntry(ctx, models.DefaultFolderID, "d", false))
	_, err := fx.e.UpdateFolder(ctx, y.ID, FolderUpdate{Icon: ptr("/icons/y.png"), PlayerDefault: ptr("u9")})
	require.NoError(t, err)

	before := fx.snapshot(t)
	exported, err := fx.e.ExportState(ctx)
	require.NoError(t, err)

	_, err = fx.e.ImportState(ctx, exported)
	require.NoError(t, err)

	after := fx.snapshot(t)
	require.Len(t, after, len(before))
	for id, f := range before {
		g := after[id]
		assert.Equal(t, f.Title, g.Title, "folder %s", id)
		assert.Equal(t, f.Path, g.Path, "folder %s", id)
		assert.Equal(t, f.Content, g.Content, "folder %s", id)
		assert.Equal(t, f.Icon, g.Icon, "folder %s", id)
		assert.Equal(t, f.PlayerDefault, g.PlayerDefault, "folder %s", id)
	}

	again, err := fx.e.ExportState(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(exported), string(again))
	checkInvariants(t, fx)
}

func TestImport_RejectsTooDeepRecord(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	fx.create(t, "Keep", "")
	before, err := fx.e.ExportState(ctx)
	require.NoError(t, err)

	path := make([]string, DefaultDepthLimit)
	for i := range path {
		path[i] = fmt.Sprintf("p%d", i)
	}
	payload := fmt.Sprintf(`{"ok":{"titleText":"OK","pathToFolder":[]},"deep":{"titleText":"Deep","pathToFolder":["%s"]}}`,
		strings.Join(path, `","`))

	_, err = fx.e.ImportState(ctx, []byte(payload))
	assert.ErrorIs(t, err, apperr.ErrDepthLimit)

	after, err := fx.e.ExportState(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestImport_Malformed(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a")...)
	ctx := context.Background()
	before, err := fx.e.ExportState(ctx)
	require.NoError(t, err)

	for _, payload := range []string{
		`{oops`,
		`[1,2,3]`,
		`{"x":{"titleText":"X","bogus":true}}`,
		`{"x":{}} {"y":{}}`,
	} {
		_, err := fx.e.ImportState(ctx, []byte(payload))
		assert.ErrorIs(t, err, apperr.ErrParse, "payload %s", payload)
		assert.True(t, apperr.IsUserFacing(err))
	}

	_, err = fx.e.ImportState(ctx, []byte(`{"x":{"titleText":"X","colorText":"blue"}}`))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	after, err := fx.e.ExportState(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestImport_EmptyBootstraps(t *testing.T) {
	for _, payload := range []string{"", "  \n", "{}", "null"} {
		fx := newFixture(t, Options{}, descriptors("a", "b")...)
		ctx := context.Background()
		x := fx.create(t, "X", "")
		require.NoError(t, fx.e.AddEntry(ctx, x.ID, "a"))

		rep, err := fx.e.ImportState(ctx, []byte(payload))
		require.NoError(t, err, "payload %q", payload)
		assert.True(t, rep.Bootstrapped)

		all := fx.snapshot(t)
		assert.Len(t, all, 2)
		assert.ElementsMatch(t, []string{"a", "b"}, all[models.DefaultFolderID].Content)
		checkInvariants(t, fx)
	}
}

func TestImport_ReplacesAndReconciles(t *testing.T) {
	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	fx.create(t, "Old", "")

	rep, err := fx.e.ImportState(ctx, []byte(`{
		"imported": {"titleText": "Imported", "colorText": "#336699", "fontColorText": "", "folderIcon": null,
			"pathToFolder": [], "macroList": ["b", "missing"], "playerDefault": null}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"missing"}, rep.Pruned)

	all := fx.snapshot(t)
	assert.Len(t, all, 3)
	assert.Equal(t, []string{"b"}, all["imported"].Content)
	assert.Equal(t, models.DefaultFontColor, all["imported"].FontColor)
	assert.Equal(t, []string{"a"}, all[models.DefaultFolderID].Content)
	checkInvariants(t, fx)
}

func TestDecodeRecords_LegacyKeys(t *testing.T) {
	data := []byte(`{"mfolder_old": {
		"_id": "mfolder_old", "titleText": "Old", "colorText": "#112233",
		"fontColorText": "#FFFFFF", "folderIcon": null, "pathToFolder": [],
		"macroList": ["a"], "playerDefault": null,
		"type": "Macro", "entity": "MacroFolder", "sorting": "a",
		"parent": null, "expanded": true
	}}`)
	recs, err := DecodeRecords(data)
	require.NoError(t, err)
	assert.Equal(t, "Old", recs["mfolder_old"].TitleText)
	assert.Equal(t, []string{"a"}, recs["mfolder_old"].MacroList)

	fx := newFixture(t, Options{}, descriptors("a", "b")...)
	ctx := context.Background()
	_, err = fx.e.ImportState(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fx.folder(t, "mfolder_old").Content)
	exported, err := fx.e.ExportState(ctx)
	require.NoError(t, err)
	assert.NotContains(t, string(exported), "entity")
	checkInvariants(t, fx)
}

func TestDecodeRecords_UnknownKeyRejected(t *testing.T) {
	_, err := DecodeRecords([]byte(`{"x": {"titleText": "X", "owner": "u1"}}`))
	assert.ErrorIs(t, err, apperr.ErrParse)
}
