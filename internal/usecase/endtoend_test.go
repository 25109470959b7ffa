package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
	"github.com/NeseemGit/sb-squares/internal/infrastructure/repository/memory"
	idgen "github.com/NeseemGit/sb-squares/internal/platform/id"
)

// Walks a 2x2 pool through its whole life: grid init, a contested claim,
// the unclaim authorization matrix, randomization, and an admin repair.
func TestPoolLifecycle_TwoByTwo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	poolRepo := memory.NewPoolRepository([]pool.Pool{{
		ID:        "pool-1",
		Name:      "Mini Pool",
		EventDate: "2026-02-08",
		GridSize:  2,
		Status:    pool.StatusOpen,
	}})
	squareRepo := memory.NewSquareRepository(nil)

	grid := NewGridService(poolRepo, squareRepo, idgen.NewUUIDGenerator(), nil)
	grid.cellBackoff = time.Millisecond
	grid.ensureDelay = time.Millisecond
	pools := NewPoolService(poolRepo, squareRepo, grid, idgen.NewUUIDGenerator(), nil)
	claims := NewClaimService(poolRepo, squareRepo, nil)

	if err := grid.InitializeGrid(ctx, "pool-1", 2); err != nil {
		t.Fatalf("InitializeGrid: %v", err)
	}

	squares, err := square.ListAll(ctx, squareRepo, "pool-1", 100)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(squares) != 4 {
		t.Fatalf("expected 4 squares, got %d", len(squares))
	}
	byCell := make(map[string]square.Square, len(squares))
	for _, sq := range squares {
		if sq.Claimed() {
			t.Fatalf("square (%d,%d) created claimed", sq.Row, sq.Col)
		}
		byCell[square.CellKey(sq.Row, sq.Col)] = sq
	}
	for _, key := range []string{"0:0", "0:1", "1:0", "1:1"} {
		if _, ok := byCell[key]; !ok {
			t.Fatalf("missing square at %s", key)
		}
	}

	corner := byCell["0:0"]

	claimed, err := claims.Claim(ctx, ClaimInput{SquareID: corner.ID, CallerID: "U1", DisplayName: "AB"})
	if err != nil {
		t.Fatalf("claim as U1: %v", err)
	}
	if claimed.OwnerID != "U1" || claimed.OwnerName != "AB" {
		t.Fatalf("unexpected owner after claim: %q/%q", claimed.OwnerID, claimed.OwnerName)
	}

	if _, err := claims.Claim(ctx, ClaimInput{SquareID: corner.ID, CallerID: "U2"}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("claim as U2: expected ErrAlreadyClaimed, got %v", err)
	}
	stored, _, _ := squareRepo.GetByID(ctx, corner.ID)
	if stored.OwnerID != "U1" {
		t.Fatalf("contested claim moved ownership to %q", stored.OwnerID)
	}

	if _, err := claims.Unclaim(ctx, UnclaimInput{SquareID: corner.ID, CallerID: "U2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unclaim as U2: expected ErrForbidden, got %v", err)
	}

	released, err := claims.Unclaim(ctx, UnclaimInput{SquareID: corner.ID, CallerID: "U1"})
	if err != nil {
		t.Fatalf("unclaim as U1: %v", err)
	}
	if released.Claimed() || released.ClaimedAt != nil {
		t.Fatalf("square still claimed after owner unclaim: %+v", released)
	}

	randomized, err := pools.Randomize(ctx, "pool-1")
	if err != nil {
		t.Fatalf("Randomize: %v", err)
	}
	if err := pool.ValidatePermutation(randomized.RowNumbers, 2); err != nil {
		t.Fatalf("row numbers: %v", err)
	}
	if err := pool.ValidatePermutation(randomized.ColNumbers, 2); err != nil {
		t.Fatalf("col numbers: %v", err)
	}
	if randomized.NumbersRevealed {
		t.Fatal("randomize must not reveal numbers")
	}

	assigned, err := claims.AssignSquare(ctx, AssignInput{SquareID: byCell["1:1"].ID, TargetUserID: "U3", TargetName: "CD"})
	if err != nil {
		t.Fatalf("AssignSquare: %v", err)
	}
	if assigned.OwnerID != "U3" || assigned.OwnerName != "CD" {
		t.Fatalf("unexpected owner after assign: %q/%q", assigned.OwnerID, assigned.OwnerName)
	}
}
