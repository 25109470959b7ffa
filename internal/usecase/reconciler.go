package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
)

const (
	// How long an optimistic local write outranks a contradicting feed
	// snapshot before the store is trusted again.
	reconcileOverrideTTL = 6 * time.Second

	reconcileResyncDelay = 1500 * time.Millisecond
)

// SquareFeedReconciler maintains a client-facing view of one pool's grid by
// merging optimistic local writes with full-snapshot updates from the store
// feed. Snapshots can arrive stale relative to a write the caller just made;
// the reconciler keeps the local result pinned for a bounded window instead
// of letting the board flicker back to the old state.
type SquareFeedReconciler struct {
	mu sync.Mutex

	poolID string
	repo   square.Repository
	logger *slog.Logger

	view map[string]square.Square

	// Deadline maps: while now < deadline the local view of that square
	// outranks whatever a snapshot says.
	pendingUnclaim map[string]time.Time
	justClaimed    map[string]time.Time

	overrideTTL time.Duration
	resyncDelay time.Duration
	now         func() time.Time
}

func NewSquareFeedReconciler(poolID string, repo square.Repository, logger *slog.Logger) *SquareFeedReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SquareFeedReconciler{
		poolID:         poolID,
		repo:           repo,
		logger:         logger,
		view:           make(map[string]square.Square),
		pendingUnclaim: make(map[string]time.Time),
		justClaimed:    make(map[string]time.Time),
		overrideTTL:    reconcileOverrideTTL,
		resyncDelay:    reconcileResyncDelay,
		now:            time.Now,
	}
}

// ApplyLocalClaim records the result of a claim the caller just performed.
// The square is pinned as claimed until the feed confirms it or the
// override window lapses.
func (r *SquareFeedReconciler) ApplyLocalClaim(sq square.Square) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.view[sq.ID] = sq
	r.justClaimed[sq.ID] = r.now().Add(r.overrideTTL)
	delete(r.pendingUnclaim, sq.ID)
}

// ApplyLocalUnclaim records the result of an unclaim the caller just
// performed. The square is pinned as unclaimed until the feed stops
// reporting the old owner or the override window lapses.
func (r *SquareFeedReconciler) ApplyLocalUnclaim(sq square.Square) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sq.OwnerID = ""
	sq.OwnerName = ""
	sq.ClaimedAt = nil
	r.view[sq.ID] = sq
	r.pendingUnclaim[sq.ID] = r.now().Add(r.overrideTTL)
	delete(r.justClaimed, sq.ID)
}

// ApplySnapshot merges one full feed snapshot into the view.
//
// Per square: a pending unclaim keeps the local unclaimed view while the
// snapshot still shows an owner, and clears once the snapshot agrees; a
// just-claimed pin keeps the local claimed view while the snapshot still
// shows the square free; everything else takes the snapshot verbatim.
// Squares absent from the snapshot are dropped from the view.
func (r *SquareFeedReconciler) ApplySnapshot(items []square.Square) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expireLocked()

	next := make(map[string]square.Square, len(items))
	for _, sq := range items {
		if deadline, ok := r.pendingUnclaim[sq.ID]; ok {
			if sq.Claimed() && r.now().Before(deadline) {
				local := sq
				local.OwnerID = ""
				local.OwnerName = ""
				local.ClaimedAt = nil
				next[sq.ID] = local
				continue
			}
			delete(r.pendingUnclaim, sq.ID)
		}

		if deadline, ok := r.justClaimed[sq.ID]; ok {
			if !sq.Claimed() && r.now().Before(deadline) {
				if local, held := r.view[sq.ID]; held {
					next[sq.ID] = local
					continue
				}
			}
			if sq.Claimed() {
				delete(r.justClaimed, sq.ID)
			}
		}

		next[sq.ID] = sq
	}

	r.view = next
}

// Snapshot returns the reconciled view sorted by (row, col).
func (r *SquareFeedReconciler) Snapshot() []square.Square {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expireLocked()

	out := make([]square.Square, 0, len(r.view))
	for _, sq := range r.view {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Resync re-fetches the full grid from the store and merges it. When a
// just-claimed square is still unconfirmed after the first fetch, one
// delayed retry gives slow write propagation a chance before giving up on
// the pin.
func (r *SquareFeedReconciler) Resync(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SquareFeedReconciler.Resync")
	defer span.End()

	if err := r.fetchAndMerge(ctx); err != nil {
		return err
	}

	if !r.hasUnconfirmedClaims() {
		return nil
	}

	if err := sleepContext(ctx, r.resyncDelay); err != nil {
		return err
	}
	return r.fetchAndMerge(ctx)
}

// Run subscribes to the store feed and applies every snapshot until the
// context ends or the feed closes. onChange, when non-nil, fires after each
// applied snapshot.
func (r *SquareFeedReconciler) Run(ctx context.Context, feed square.Feed, onChange func([]square.Square)) error {
	snapshots, cancel, err := feed.Subscribe(ctx, r.poolID)
	if err != nil {
		return fmt.Errorf("%w: subscribe to square feed: %v", ErrDependencyUnavailable, err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case items, ok := <-snapshots:
			if !ok {
				return nil
			}
			r.ApplySnapshot(items)
			if onChange != nil {
				onChange(r.Snapshot())
			}
		}
	}
}

func (r *SquareFeedReconciler) fetchAndMerge(ctx context.Context) error {
	items, err := square.ListAll(ctx, r.repo, r.poolID, gridListPageSize)
	if err != nil {
		return fmt.Errorf("%w: list squares for pool %s: %v", ErrDependencyUnavailable, r.poolID, err)
	}
	r.ApplySnapshot(items)
	return nil
}

func (r *SquareFeedReconciler) hasUnconfirmedClaims() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.justClaimed) > 0
}

// expireLocked drops override entries whose window has lapsed. Callers hold
// r.mu.
func (r *SquareFeedReconciler) expireLocked() {
	now := r.now()
	for id, deadline := range r.pendingUnclaim {
		if !now.Before(deadline) {
			delete(r.pendingUnclaim, id)
		}
	}
	for id, deadline := range r.justClaimed {
		if !now.Before(deadline) {
			delete(r.justClaimed, id)
		}
	}
}
