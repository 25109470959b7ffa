package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
	"github.com/NeseemGit/sb-squares/internal/infrastructure/repository/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestReconciler(repo square.Repository) (*SquareFeedReconciler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.February, 8, 18, 0, 0, 0, time.UTC)}
	r := NewSquareFeedReconciler("pool-1", repo, nil)
	r.now = clock.Now
	return r, clock
}

func claimedSquare(id string, owner string) square.Square {
	at := time.Date(2026, time.February, 8, 17, 59, 0, 0, time.UTC)
	return square.Square{
		ID:        id,
		PoolID:    "pool-1",
		OwnerID:   owner,
		OwnerName: owner,
		ClaimedAt: &at,
	}
}

func TestReconciler_PendingUnclaimOutranksStaleSnapshot(t *testing.T) {
	t.Parallel()

	r, clock := newTestReconciler(memory.NewSquareRepository(nil))

	r.ApplyLocalUnclaim(claimedSquare("sq-1", "user-a"))

	// The feed has not caught up; it still reports the old owner.
	r.ApplySnapshot([]square.Square{claimedSquare("sq-1", "user-a")})

	view := r.Snapshot()
	require.Len(t, view, 1)
	assert.False(t, view[0].Claimed(), "stale snapshot must not resurrect the released owner")
	assert.Nil(t, view[0].ClaimedAt)

	// Once the override window lapses the store is trusted again.
	clock.Advance(reconcileOverrideTTL + time.Second)
	r.ApplySnapshot([]square.Square{claimedSquare("sq-1", "user-a")})

	view = r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "user-a", view[0].OwnerID)
}

func TestReconciler_PendingUnclaimClearsOnConfirmation(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(memory.NewSquareRepository(nil))

	r.ApplyLocalUnclaim(claimedSquare("sq-1", "user-a"))

	// Feed confirms the square is free; the pin is dropped.
	r.ApplySnapshot([]square.Square{{ID: "sq-1", PoolID: "pool-1"}})

	// A later legitimate claim by someone else must come through immediately.
	r.ApplySnapshot([]square.Square{claimedSquare("sq-1", "user-b")})

	view := r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "user-b", view[0].OwnerID)
}

func TestReconciler_JustClaimedHeldAgainstStaleEmptySnapshot(t *testing.T) {
	t.Parallel()

	r, clock := newTestReconciler(memory.NewSquareRepository(nil))

	r.ApplyLocalClaim(claimedSquare("sq-1", "user-a"))

	// Feed still reports the square as free.
	r.ApplySnapshot([]square.Square{{ID: "sq-1", PoolID: "pool-1"}})

	view := r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "user-a", view[0].OwnerID, "optimistic claim must not flicker away")

	// Confirmation drops the pin.
	r.ApplySnapshot([]square.Square{claimedSquare("sq-1", "user-a")})
	view = r.Snapshot()
	assert.Equal(t, "user-a", view[0].OwnerID)

	// After the window, a free square in the feed wins.
	clock.Advance(reconcileOverrideTTL + time.Second)
	r.ApplySnapshot([]square.Square{{ID: "sq-1", PoolID: "pool-1"}})
	view = r.Snapshot()
	assert.False(t, view[0].Claimed())
}

func TestReconciler_SnapshotWinsForUnpinnedSquares(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(memory.NewSquareRepository(nil))

	r.ApplySnapshot([]square.Square{
		{ID: "sq-1", PoolID: "pool-1", Row: 0, Col: 0},
		claimedSquare("sq-2", "user-b"),
	})

	view := r.Snapshot()
	require.Len(t, view, 2)

	// Squares absent from the next snapshot are dropped.
	r.ApplySnapshot([]square.Square{claimedSquare("sq-2", "user-b")})
	view = r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "sq-2", view[0].ID)
}

func TestReconciler_ResyncMergesStoreState(t *testing.T) {
	t.Parallel()

	repo := memory.NewSquareRepository([]square.Square{
		{ID: "sq-1", PoolID: "pool-1", Row: 0, Col: 0},
		claimedSquare("sq-2", "user-b"),
	})
	r, _ := newTestReconciler(repo)
	r.resyncDelay = time.Millisecond

	require.NoError(t, r.Resync(context.Background()))

	view := r.Snapshot()
	require.Len(t, view, 2)
}

func TestReconciler_ResyncRetriesUnconfirmedClaim(t *testing.T) {
	t.Parallel()

	// The store has not seen the claim yet.
	repo := memory.NewSquareRepository([]square.Square{
		{ID: "sq-1", PoolID: "pool-1", Row: 0, Col: 0},
	})
	r, _ := newTestReconciler(repo)
	r.resyncDelay = time.Millisecond

	r.ApplyLocalClaim(claimedSquare("sq-1", "user-a"))

	require.NoError(t, r.Resync(context.Background()))

	view := r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "user-a", view[0].OwnerID, "pin must survive a resync inside the window")
}

func TestReconciler_RunAppliesFeedSnapshots(t *testing.T) {
	t.Parallel()

	repo := memory.NewSquareRepository([]square.Square{
		{ID: "sq-1", PoolID: "pool-1", Row: 0, Col: 0},
	})
	r, _ := newTestReconciler(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan []square.Square, 16)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, repo, func(view []square.Square) {
			updates <- view
		})
	}()

	// Initial snapshot.
	select {
	case view := <-updates:
		require.Len(t, view, 1)
		assert.False(t, view[0].Claimed())
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot delivered")
	}

	// A store mutation propagates through the feed.
	_, err := repo.Update(context.Background(), claimedSquare("sq-1", "user-a"))
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case view := <-updates:
			if len(view) == 1 && view[0].OwnerID == "user-a" {
				cancel()
				<-done
				return
			}
		case <-deadline:
			t.Fatal("claim never reached the reconciled view")
		}
	}
}
