package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
	idgen "github.com/NeseemGit/sb-squares/internal/platform/id"
)

// DefaultCommishNotes seeds a new pool so the board never renders an empty
// commissioner panel.
const DefaultCommishNotes = "Welcome to the pool! Squares are first come, first served. " +
	"Payouts are announced before kickoff."

const deleteWorkerCount = 8

type CreatePoolInput struct {
	Name           string
	Description    string
	EventDate      string
	GridSize       int
	PricePerSquare float64
	TeamRowName    string
	TeamColName    string
	CommishNotes   string
	PrizePayouts   string
}

// UpdateDetailsInput uses pointer fields so absent fields stay untouched.
type UpdateDetailsInput struct {
	Name           *string
	Description    *string
	EventDate      *string
	PricePerSquare *float64
	TeamRowName    *string
	TeamColName    *string
	CommishNotes   *string
	PrizePayouts   *string
}

// PoolService owns the pool lifecycle: creation with an initialized grid,
// status transitions, number randomization, the reveal flag, winner slots,
// and cascading deletion.
type PoolService struct {
	poolRepo   pool.Repository
	squareRepo square.Repository
	grid       *GridService
	ids        idgen.Generator
	logger     *slog.Logger
	now        func() time.Time
	shuffle    func(n int, swap func(i, j int))
}

func NewPoolService(
	poolRepo pool.Repository,
	squareRepo square.Repository,
	grid *GridService,
	ids idgen.Generator,
	logger *slog.Logger,
) *PoolService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PoolService{
		poolRepo:   poolRepo,
		squareRepo: squareRepo,
		grid:       grid,
		ids:        ids,
		logger:     logger,
		now:        time.Now,
		shuffle:    rand.Shuffle,
	}
}

// Create persists a DRAFT pool and initializes its full grid before
// returning. A pool whose grid failed to materialize is reported as an
// error rather than left half-built silently.
func (s *PoolService) Create(ctx context.Context, input CreatePoolInput) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Create")
	defer span.End()

	id, err := s.ids.NewID()
	if err != nil {
		return pool.Pool{}, fmt.Errorf("generate pool id: %w", err)
	}

	notes := strings.TrimSpace(input.CommishNotes)
	if notes == "" {
		notes = DefaultCommishNotes
	}

	now := s.now().UTC()
	p := pool.Pool{
		ID:             id,
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		EventDate:      strings.TrimSpace(input.EventDate),
		GridSize:       input.GridSize,
		PricePerSquare: input.PricePerSquare,
		Status:         pool.StatusDraft,
		TeamRowName:    strings.TrimSpace(input.TeamRowName),
		TeamColName:    strings.TrimSpace(input.TeamColName),
		CommishNotes:   notes,
		PrizePayouts:   strings.TrimSpace(input.PrizePayouts),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.Validate(); err != nil {
		return pool.Pool{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created, err := s.poolRepo.Create(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: create pool: %v", ErrDependencyUnavailable, err)
	}

	if _, err := s.grid.EnsureInitialized(ctx, created.ID, created.GridSize); err != nil {
		return pool.Pool{}, err
	}

	s.logger.InfoContext(ctx, "pool created",
		"pool_id", created.ID,
		"grid_size", created.GridSize,
	)

	return created, nil
}

func (s *PoolService) List(ctx context.Context) ([]pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.List")
	defer span.End()

	pools, err := s.poolRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pools: %v", ErrDependencyUnavailable, err)
	}
	return pools, nil
}

func (s *PoolService) Get(ctx context.Context, poolID string) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Get")
	defer span.End()

	return s.getPool(ctx, poolID)
}

// ListSquares returns one page of the pool's grid in (row, col) order.
func (s *PoolService) ListSquares(ctx context.Context, poolID, pageToken string, limit int) (square.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.ListSquares")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return square.Page{}, fmt.Errorf("%w: pool_id is required", ErrInvalidInput)
	}

	page, err := s.squareRepo.ListByPool(ctx, poolID, pageToken, limit)
	if err != nil {
		return square.Page{}, fmt.Errorf("%w: list squares for pool %s: %v", ErrDependencyUnavailable, poolID, err)
	}
	return page, nil
}

// UpdateStatus moves the pool to the given state. Transitions are free-form
// by design; the commissioner can reopen a closed pool.
func (s *PoolService) UpdateStatus(ctx context.Context, poolID string, status pool.Status) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.UpdateStatus")
	defer span.End()

	if _, err := pool.ParseStatus(string(status)); err != nil {
		return pool.Pool{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, err
	}

	p.Status = status
	p.UpdatedAt = s.now().UTC()

	updated, err := s.poolRepo.Update(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: update pool: %v", ErrDependencyUnavailable, err)
	}

	s.logger.InfoContext(ctx, "pool status updated",
		"pool_id", updated.ID,
		"status", string(updated.Status),
	)

	return updated, nil
}

// UpdateDetails patches the editable metadata fields of a pool.
func (s *PoolService) UpdateDetails(ctx context.Context, poolID string, input UpdateDetailsInput) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.UpdateDetails")
	defer span.End()

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, err
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.EventDate != nil {
		p.EventDate = strings.TrimSpace(*input.EventDate)
	}
	if input.PricePerSquare != nil {
		p.PricePerSquare = *input.PricePerSquare
	}
	if input.TeamRowName != nil {
		p.TeamRowName = strings.TrimSpace(*input.TeamRowName)
	}
	if input.TeamColName != nil {
		p.TeamColName = strings.TrimSpace(*input.TeamColName)
	}
	if input.CommishNotes != nil {
		p.CommishNotes = strings.TrimSpace(*input.CommishNotes)
	}
	if input.PrizePayouts != nil {
		p.PrizePayouts = strings.TrimSpace(*input.PrizePayouts)
	}
	p.UpdatedAt = s.now().UTC()

	if err := p.Validate(); err != nil {
		return pool.Pool{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.poolRepo.Update(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: update pool: %v", ErrDependencyUnavailable, err)
	}

	return updated, nil
}

// Randomize draws two independent permutations of 0..gridSize-1 for the row
// and column digits, stores them on the pool with the reveal flag lowered,
// and stamps the assigned digits onto every square. Safe to re-run; each
// invocation draws fresh permutations.
func (s *PoolService) Randomize(ctx context.Context, poolID string) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Randomize")
	defer span.End()

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, err
	}

	p.RowNumbers = s.permutation(p.GridSize)
	p.ColNumbers = s.permutation(p.GridSize)
	p.NumbersRevealed = false
	p.UpdatedAt = s.now().UTC()

	updated, err := s.poolRepo.Update(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: update pool: %v", ErrDependencyUnavailable, err)
	}

	if err := s.stampSquareNumbers(ctx, updated); err != nil {
		return pool.Pool{}, err
	}

	s.logger.InfoContext(ctx, "pool numbers randomized", "pool_id", updated.ID)

	return updated, nil
}

// SetRevealed raises or lowers the reveal flag. Until raised, assigned
// digits stay hidden from non-admin reads.
func (s *PoolService) SetRevealed(ctx context.Context, poolID string, revealed bool) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.SetRevealed")
	defer span.End()

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, err
	}
	if revealed && (p.RowNumbers == nil || p.ColNumbers == nil) {
		return pool.Pool{}, fmt.Errorf("%w: numbers have not been randomized yet", ErrInvalidInput)
	}

	p.NumbersRevealed = revealed
	p.UpdatedAt = s.now().UTC()

	updated, err := s.poolRepo.Update(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: update pool: %v", ErrDependencyUnavailable, err)
	}

	return updated, nil
}

// SetWinningSquares records up to four period winners. The sentinel
// (-1,-1) marks a not-yet-decided slot.
func (s *PoolService) SetWinningSquares(ctx context.Context, poolID string, winners []pool.WinningSquare) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.SetWinningSquares")
	defer span.End()

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, err
	}

	if len(winners) > pool.WinnerSlots {
		return pool.Pool{}, fmt.Errorf("%w: at most %d winning squares", ErrInvalidInput, pool.WinnerSlots)
	}
	for _, w := range winners {
		if !w.IsSet() {
			continue
		}
		if w.Row >= p.GridSize || w.Col >= p.GridSize {
			return pool.Pool{}, fmt.Errorf("%w: winning square (%d,%d) is outside the grid", ErrInvalidInput, w.Row, w.Col)
		}
	}

	p.WinningSquares = winners
	p.UpdatedAt = s.now().UTC()

	updated, err := s.poolRepo.Update(ctx, p)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: update pool: %v", ErrDependencyUnavailable, err)
	}

	return updated, nil
}

// Delete removes the pool and all of its squares. Squares are deleted
// record by record over a worker pool; the store contract has no bulk
// conditional delete.
func (s *PoolService) Delete(ctx context.Context, poolID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Delete")
	defer span.End()

	p, err := s.getPool(ctx, poolID)
	if err != nil {
		return err
	}

	squares, err := square.ListAll(ctx, s.squareRepo, p.ID, gridListPageSize)
	if err != nil {
		return fmt.Errorf("%w: list squares for pool %s: %v", ErrDependencyUnavailable, p.ID, err)
	}

	workers, err := ants.NewPool(deleteWorkerCount)
	if err != nil {
		return fmt.Errorf("create delete worker pool: %w", err)
	}
	defer workers.Release()

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, sq := range squares {
		squareID := sq.ID
		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()
			if err := s.squareRepo.DeleteByID(ctx, squareID); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(ctx, "delete square failed",
					"pool_id", p.ID,
					"square_id", squareID,
					"error", err,
				)
			}
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
		}
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d squares could not be deleted", ErrDependencyUnavailable, n, len(squares))
	}

	// A concurrent grid repair can persist squares the listing never saw;
	// the sweep leaves nothing orphaned before the pool record goes.
	if err := s.squareRepo.DeleteByPool(ctx, p.ID); err != nil {
		return fmt.Errorf("%w: sweep pool squares: %v", ErrDependencyUnavailable, err)
	}

	if err := s.poolRepo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("%w: delete pool: %v", ErrDependencyUnavailable, err)
	}

	s.logger.InfoContext(ctx, "pool deleted",
		"pool_id", p.ID,
		"squares_deleted", len(squares),
	)

	return nil
}

func (s *PoolService) getPool(ctx context.Context, poolID string) (pool.Pool, error) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool_id is required", ErrInvalidInput)
	}

	p, exists, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: get pool by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return pool.Pool{}, fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}
	return p, nil
}

func (s *PoolService) permutation(size int) []int {
	values := make([]int, size)
	for i := range values {
		values[i] = i
	}
	s.shuffle(size, func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	return values
}

func (s *PoolService) stampSquareNumbers(ctx context.Context, p pool.Pool) error {
	squares, err := square.ListAll(ctx, s.squareRepo, p.ID, gridListPageSize)
	if err != nil {
		return fmt.Errorf("%w: list squares for pool %s: %v", ErrDependencyUnavailable, p.ID, err)
	}

	for _, sq := range squares {
		if sq.Row >= p.GridSize || sq.Col >= p.GridSize {
			continue
		}
		rowNum := p.RowNumbers[sq.Row]
		colNum := p.ColNumbers[sq.Col]
		sq.RowNumber = &rowNum
		sq.ColNumber = &colNum
		if _, err := s.squareRepo.Update(ctx, sq); err != nil {
			return fmt.Errorf("%w: stamp numbers on square %s: %v", ErrDependencyUnavailable, sq.ID, err)
		}
	}

	return nil
}
