package folders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
)

// TestRandomOperations drives seeded random sequences of tree mutations, host
// notifications and out-of-band host deletions, and checks the structural
// invariants after every step. Rejected operations must leave the tree and
// the host exactly as they were.
func TestRandomOperations(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			runRandomOperations(t, seed, 150)
		})
	}
}

func runRandomOperations(t *testing.T, seed int64, steps int) {
	rng := rand.New(rand.NewSource(seed))
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("e%02d", i)
	}
	fx := newFixture(t, Options{DepthLimit: 4}, descriptors(ids...)...)
	ctx := context.Background()

	pick := func(xs []string) string { return xs[rng.Intn(len(xs))] }
	liveIDs := func() []string {
		live, err := fx.src.List(ctx)
		require.NoError(t, err)
		out := make([]string, 0, len(live))
		for _, d := range live {
			out = append(out, d.ID)
		}
		return out
	}

	for step := 0; step < steps; step++ {
		all := fx.snapshot(t)
		folderIDs := make([]string, 0, len(all))
		for id := range all {
			folderIDs = append(folderIDs, id)
		}
		slices.Sort(folderIDs)
		live := liveIDs()

		var (
			op  string
			err error
		)
		switch n := rng.Intn(16); {
		case n < 2:
			parent := ""
			if rng.Intn(2) == 0 {
				parent = pick(folderIDs)
			}
			op = "create under " + parent
			_, err = fx.e.CreateFolder(ctx, FolderInput{Title: fmt.Sprintf("f%d", step), ParentID: parent})
		case n < 5:
			// Dead ids are picked too and must be rejected.
			folder, entry := pick(folderIDs), pick(ids)
			op = "add " + entry + " to " + folder
			err = fx.e.AddEntry(ctx, folder, entry)
		case n < 7:
			folder := pick(folderIDs)
			if len(all[folder].Content) == 0 {
				continue
			}
			entry, hard := pick(all[folder].Content), n == 6
			op = fmt.Sprintf("remove %s from %s hard=%t", entry, folder, hard)
			err = fx.e.RemoveEntry(ctx, folder, entry, hard)
		case n < 9:
			folder, dest := pick(folderIDs), ""
			if rng.Intn(3) > 0 {
				dest = pick(folderIDs)
			}
			op = "move " + folder + " to " + dest
			err = fx.e.MoveFolder(ctx, folder, dest)
		case n < 11:
			folder, hard := pick(folderIDs), n == 10 && rng.Intn(2) == 0
			op = fmt.Sprintf("delete %s hard=%t", folder, hard)
			err = fx.e.DeleteFolder(ctx, folder, hard)
		case n < 12:
			if len(live) == 0 {
				continue
			}
			entry := pick(live)
			op = "delete entry " + entry
			err = fx.e.DeleteEntry(ctx, entry)
		case n < 13:
			id := fmt.Sprintf("h%03d", step)
			ids = append(ids, id)
			desc := descriptors(id)[0]
			op = "host created " + id
			fx.src.Put(desc)
			err = fx.e.HandleEvent(ctx, host.Event{Kind: host.EventCreated, Entry: desc})
		case n < 14:
			if len(live) == 0 {
				continue
			}
			entry := pick(live)
			op = "host deleted " + entry
			fx.src.Remove(entry)
			err = fx.e.HandleEvent(ctx, host.Event{Kind: host.EventDeleted, Entry: models.EntryDescriptor{ID: entry}})
		case n < 15:
			if len(live) == 0 {
				continue
			}
			entry := pick(live)
			op = "vanished " + entry + " then reconcile"
			fx.src.Remove(entry)
			_, err = fx.e.Reconcile(ctx, false)
		default:
			op = "reconcile"
			_, err = fx.e.Reconcile(ctx, false)
		}

		if err != nil {
			require.True(t, errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound),
				"step %d %s: unexpected error %v", step, op, err)
			require.Equal(t, all, fx.snapshot(t), "step %d %s: rejected operation changed the tree", step, op)
			require.ElementsMatch(t, live, liveIDs(), "step %d %s: rejected operation changed the host", step, op)
		}
		checkInvariants(t, fx)
		if t.Failed() {
			t.Fatalf("invariants broken at step %d after %s", step, op)
		}
	}

	// A fresh reconcile from the persisted records reproduces the tree.
	before := fx.snapshot(t)
	_, err := fx.e.Reconcile(ctx, false)
	require.NoError(t, err)
	after := fx.snapshot(t)
	require.Len(t, after, len(before))
	for id, f := range before {
		require.Equal(t, f.Path, after[id].Path, "folder %s", id)
		require.ElementsMatch(t, f.Content, after[id].Content, "folder %s", id)
	}
}
