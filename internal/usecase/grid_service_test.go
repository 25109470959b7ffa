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

func newTestGridService(t *testing.T, p pool.Pool) (*GridService, *memory.SquareRepository) {
	t.Helper()

	poolRepo := memory.NewPoolRepository([]pool.Pool{p})
	squareRepo := memory.NewSquareRepository(nil)

	svc := NewGridService(poolRepo, squareRepo, idgen.NewUUIDGenerator(), nil)
	svc.cellBackoff = time.Millisecond
	svc.ensureDelay = time.Millisecond

	return svc, squareRepo
}

func testPool(id string, gridSize int) pool.Pool {
	return pool.Pool{
		ID:        id,
		Name:      "Big Game Squares",
		EventDate: "2026-02-08",
		GridSize:  gridSize,
		Status:    pool.StatusDraft,
	}
}

func TestInitializeGrid_CreatesFullGrid(t *testing.T) {
	t.Parallel()

	svc, squareRepo := newTestGridService(t, testPool("pool-1", 5))

	if err := svc.InitializeGrid(context.Background(), "pool-1", 5); err != nil {
		t.Fatalf("InitializeGrid: %v", err)
	}

	count, err := squareRepo.CountByPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("CountByPool: %v", err)
	}
	if count != 25 {
		t.Fatalf("expected 25 squares, got %d", count)
	}
}

func TestInitializeGrid_ReinvocationIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, squareRepo := newTestGridService(t, testPool("pool-1", 5))

	for i := 0; i < 3; i++ {
		if err := svc.InitializeGrid(context.Background(), "pool-1", 5); err != nil {
			t.Fatalf("InitializeGrid pass %d: %v", i+1, err)
		}
	}

	count, _ := squareRepo.CountByPool(context.Background(), "pool-1")
	if count != 25 {
		t.Fatalf("expected exactly 25 squares after repeated init, got %d", count)
	}
}

func TestInitializeGrid_ResumesPartialGrid(t *testing.T) {
	t.Parallel()

	svc, squareRepo := newTestGridService(t, testPool("pool-1", 5))

	// A prior attempt got through the first row before dying.
	for c := 0; c < 5; c++ {
		_, err := squareRepo.Create(context.Background(), square.Square{
			ID:     square.CellKey(0, c),
			PoolID: "pool-1",
			Row:    0,
			Col:    c,
		})
		if err != nil {
			t.Fatalf("seed square: %v", err)
		}
	}

	if err := svc.InitializeGrid(context.Background(), "pool-1", 5); err != nil {
		t.Fatalf("InitializeGrid: %v", err)
	}

	count, _ := squareRepo.CountByPool(context.Background(), "pool-1")
	if count != 25 {
		t.Fatalf("expected 25 squares after resume, got %d", count)
	}

	// The pre-existing cells must survive, not be recreated under new IDs.
	sq, exists, err := squareRepo.GetByID(context.Background(), square.CellKey(0, 3))
	if err != nil || !exists {
		t.Fatalf("seeded square lost: exists=%t err=%v", exists, err)
	}
	if sq.Row != 0 || sq.Col != 3 {
		t.Fatalf("unexpected seeded square position: (%d,%d)", sq.Row, sq.Col)
	}
}

func TestInitializeGrid_GridSizeMismatch(t *testing.T) {
	t.Parallel()

	svc, _ := newTestGridService(t, testPool("pool-1", 5))

	err := svc.InitializeGrid(context.Background(), "pool-1", 10)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInitializeGrid_UnknownPool(t *testing.T) {
	t.Parallel()

	svc, _ := newTestGridService(t, testPool("pool-1", 5))

	err := svc.InitializeGrid(context.Background(), "missing", 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// flakySquareRepo fails the first create attempt of every cell, then lets
// the retry through.
type flakySquareRepo struct {
	square.Repository
	attempted map[string]bool
}

func (r *flakySquareRepo) Create(ctx context.Context, item square.Square) (square.Square, error) {
	key := square.CellKey(item.Row, item.Col)
	if !r.attempted[key] {
		r.attempted[key] = true
		return square.Square{}, errors.New("store hiccup")
	}
	return r.Repository.Create(ctx, item)
}

func TestInitializeGrid_RetriesTransientCreateFailures(t *testing.T) {
	t.Parallel()

	poolRepo := memory.NewPoolRepository([]pool.Pool{testPool("pool-1", 5)})
	squareRepo := memory.NewSquareRepository(nil)
	flaky := &flakySquareRepo{Repository: squareRepo, attempted: make(map[string]bool)}

	svc := NewGridService(poolRepo, flaky, idgen.NewUUIDGenerator(), nil)
	svc.cellBackoff = time.Millisecond
	svc.ensureDelay = time.Millisecond

	if err := svc.InitializeGrid(context.Background(), "pool-1", 5); err != nil {
		t.Fatalf("InitializeGrid with flaky store: %v", err)
	}

	count, _ := squareRepo.CountByPool(context.Background(), "pool-1")
	if count != 25 {
		t.Fatalf("expected 25 squares despite transient failures, got %d", count)
	}
}

func TestEnsureInitialized_ReturnsFinalCount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestGridService(t, testPool("pool-1", 5))

	count, err := svc.EnsureInitialized(context.Background(), "pool-1", 5)
	if err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	if count != 25 {
		t.Fatalf("expected count 25, got %d", count)
	}
}

func TestEnsureInitialized_ReportsShortfall(t *testing.T) {
	t.Parallel()

	poolRepo := memory.NewPoolRepository([]pool.Pool{testPool("pool-1", 5)})
	squareRepo := memory.NewSquareRepository(nil)
	broken := &brokenSquareRepo{Repository: squareRepo}

	svc := NewGridService(poolRepo, broken, idgen.NewUUIDGenerator(), nil)
	svc.cellBackoff = time.Millisecond
	svc.ensureDelay = time.Millisecond

	_, err := svc.EnsureInitialized(context.Background(), "pool-1", 5)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

// brokenSquareRepo rejects every create.
type brokenSquareRepo struct {
	square.Repository
}

func (r *brokenSquareRepo) Create(context.Context, square.Square) (square.Square, error) {
	return square.Square{}, errors.New("store down")
}
