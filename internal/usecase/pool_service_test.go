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

func newTestPoolService(t *testing.T) (*PoolService, *memory.PoolRepository, *memory.SquareRepository) {
	t.Helper()

	poolRepo := memory.NewPoolRepository(nil)
	squareRepo := memory.NewSquareRepository(nil)

	grid := NewGridService(poolRepo, squareRepo, idgen.NewUUIDGenerator(), nil)
	grid.cellBackoff = time.Millisecond
	grid.ensureDelay = time.Millisecond

	svc := NewPoolService(poolRepo, squareRepo, grid, idgen.NewUUIDGenerator(), nil)

	return svc, poolRepo, squareRepo
}

func validCreateInput() CreatePoolInput {
	return CreatePoolInput{
		Name:      "Big Game Squares",
		EventDate: "2026-02-08",
		GridSize:  5,
	}
}

func TestCreate_PersistsDraftPoolWithFullGrid(t *testing.T) {
	t.Parallel()

	svc, _, squareRepo := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != pool.StatusDraft {
		t.Fatalf("expected DRAFT status, got %s", created.Status)
	}
	if created.CommishNotes != DefaultCommishNotes {
		t.Fatalf("expected default commish notes, got %q", created.CommishNotes)
	}

	count, _ := squareRepo.CountByPool(context.Background(), created.ID)
	if count != 25 {
		t.Fatalf("expected 25 squares, got %d", count)
	}
}

func TestCreate_RejectsInvalidGridSize(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	input := validCreateInput()
	input.GridSize = 3
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("grid size 3: expected ErrInvalidInput, got %v", err)
	}

	input.GridSize = 25
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("grid size 25: expected ErrInvalidInput, got %v", err)
	}
}

func TestRandomize_DrawsValidPermutationsAndStampsSquares(t *testing.T) {
	t.Parallel()

	svc, _, squareRepo := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Randomize(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Randomize: %v", err)
	}
	if err := pool.ValidatePermutation(updated.RowNumbers, 5); err != nil {
		t.Fatalf("row numbers: %v", err)
	}
	if err := pool.ValidatePermutation(updated.ColNumbers, 5); err != nil {
		t.Fatalf("col numbers: %v", err)
	}
	if updated.NumbersRevealed {
		t.Fatal("randomize must lower the reveal flag")
	}

	squares, err := square.ListAll(context.Background(), squareRepo, created.ID, 100)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	for _, sq := range squares {
		if sq.RowNumber == nil || sq.ColNumber == nil {
			t.Fatalf("square (%d,%d) missing stamped numbers", sq.Row, sq.Col)
		}
		if *sq.RowNumber != updated.RowNumbers[sq.Row] {
			t.Fatalf("square (%d,%d) row number %d does not match permutation %d", sq.Row, sq.Col, *sq.RowNumber, updated.RowNumbers[sq.Row])
		}
		if *sq.ColNumber != updated.ColNumbers[sq.Col] {
			t.Fatalf("square (%d,%d) col number %d does not match permutation %d", sq.Row, sq.Col, *sq.ColNumber, updated.ColNumbers[sq.Col])
		}
	}
}

func TestRandomize_RerunDrawsFreshNumbers(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 2; i++ {
		updated, err := svc.Randomize(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("Randomize pass %d: %v", i+1, err)
		}
		if err := pool.ValidatePermutation(updated.RowNumbers, 5); err != nil {
			t.Fatalf("pass %d row numbers: %v", i+1, err)
		}
	}
}

func TestSetRevealed_RequiresRandomizedNumbers(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.SetRevealed(context.Background(), created.ID, true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput before randomize, got %v", err)
	}

	if _, err := svc.Randomize(context.Background(), created.ID); err != nil {
		t.Fatalf("Randomize: %v", err)
	}
	updated, err := svc.SetRevealed(context.Background(), created.ID, true)
	if err != nil {
		t.Fatalf("SetRevealed: %v", err)
	}
	if !updated.NumbersRevealed {
		t.Fatal("expected reveal flag raised")
	}
}

func TestSetWinningSquares_Bounds(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tooMany := []pool.WinningSquare{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}, {Row: 3, Col: 3}, {Row: 4, Col: 4}}
	if _, err := svc.SetWinningSquares(context.Background(), created.ID, tooMany); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 5 winners, got %v", err)
	}

	outside := []pool.WinningSquare{{Row: 7, Col: 0}}
	if _, err := svc.SetWinningSquares(context.Background(), created.ID, outside); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for out-of-grid winner, got %v", err)
	}

	winners := []pool.WinningSquare{{Row: 0, Col: 3}, pool.UnsetWinner()}
	updated, err := svc.SetWinningSquares(context.Background(), created.ID, winners)
	if err != nil {
		t.Fatalf("SetWinningSquares: %v", err)
	}
	if len(updated.WinningSquares) != 2 {
		t.Fatalf("expected 2 winner slots stored, got %d", len(updated.WinningSquares))
	}
	if updated.WinningSquares[1].IsSet() {
		t.Fatal("sentinel slot must stay unset")
	}
}

func TestUpdateDetails_PatchesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "  Renamed Pool  "
	price := 12.5
	updated, err := svc.UpdateDetails(context.Background(), created.ID, UpdateDetailsInput{
		Name:           &name,
		PricePerSquare: &price,
	})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if updated.Name != "Renamed Pool" {
		t.Fatalf("expected trimmed name, got %q", updated.Name)
	}
	if updated.PricePerSquare != 12.5 {
		t.Fatalf("expected price 12.5, got %v", updated.PricePerSquare)
	}
	if updated.EventDate != created.EventDate {
		t.Fatalf("untouched field changed: %q", updated.EventDate)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), created.ID, pool.Status("PAUSED")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), created.ID, pool.StatusOpen)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != pool.StatusOpen {
		t.Fatalf("expected OPEN, got %s", updated.Status)
	}
}

func TestDelete_RemovesPoolAndSquares(t *testing.T) {
	t.Parallel()

	svc, _, squareRepo := newTestPoolService(t)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	count, _ := squareRepo.CountByPool(context.Background(), created.ID)
	if count != 0 {
		t.Fatalf("expected 0 squares after delete, got %d", count)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
