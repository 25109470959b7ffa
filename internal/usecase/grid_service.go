package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
	idgen "github.com/NeseemGit/sb-squares/internal/platform/id"
)

const (
	gridListPageSize = 100

	// Per-cell create: 3 attempts total with a constant delay between them.
	cellCreateRetries = 2
	cellCreateBackoff = 250 * time.Millisecond

	// Caller policy after requesting initialization: poll the persisted
	// count and re-invoke up to this many passes before reporting a
	// shortfall.
	ensureInitPasses = 3
	ensureInitDelay  = 500 * time.Millisecond
)

// GridService populates the gridSize x gridSize squares of a pool, exactly
// once, tolerating partial prior completion.
type GridService struct {
	poolRepo   pool.Repository
	squareRepo square.Repository
	ids        idgen.Generator
	logger     *slog.Logger

	cellBackoff time.Duration
	ensureDelay time.Duration
}

func NewGridService(
	poolRepo pool.Repository,
	squareRepo square.Repository,
	ids idgen.Generator,
	logger *slog.Logger,
) *GridService {
	if logger == nil {
		logger = slog.Default()
	}

	return &GridService{
		poolRepo:    poolRepo,
		squareRepo:  squareRepo,
		ids:         ids,
		logger:      logger,
		cellBackoff: cellCreateBackoff,
		ensureDelay: ensureInitDelay,
	}
}

// InitializeGrid creates every missing (row, col) square for the pool in
// row-major order. Re-invoking converges to exactly gridSize^2 squares;
// cells created by earlier attempts are never rolled back.
func (s *GridService) InitializeGrid(ctx context.Context, poolID string, gridSize int) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.GridService.InitializeGrid")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return fmt.Errorf("%w: pool_id is required", ErrInvalidInput)
	}
	if gridSize <= 0 {
		return fmt.Errorf("%w: grid size must be positive", ErrInvalidInput)
	}

	p, exists, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return fmt.Errorf("%w: get pool by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}
	if p.GridSize != gridSize {
		return fmt.Errorf("%w: grid size %d does not match pool grid size %d", ErrInvalidInput, gridSize, p.GridSize)
	}

	existing, err := square.ListAll(ctx, s.squareRepo, poolID, gridListPageSize)
	if err != nil {
		return fmt.Errorf("%w: list squares for pool %s: %v", ErrDependencyUnavailable, poolID, err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, sq := range existing {
		have[square.CellKey(sq.Row, sq.Col)] = struct{}{}
	}

	created := 0
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if _, ok := have[square.CellKey(r, c)]; ok {
				continue
			}
			if err := s.createCell(ctx, poolID, r, c); err != nil {
				return err
			}
			created++
		}
	}

	if created > 0 {
		s.logger.InfoContext(ctx, "grid squares created",
			"pool_id", poolID,
			"created", created,
			"existing", len(existing),
		)
	}

	return nil
}

// EnsureInitialized runs InitializeGrid and polls the persisted square
// count, re-invoking up to a fixed number of passes. Returns the final
// count; when still short of gridSize^2 the error names the shortfall.
func (s *GridService) EnsureInitialized(ctx context.Context, poolID string, gridSize int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GridService.EnsureInitialized")
	defer span.End()

	want := gridSize * gridSize
	count := 0
	var initErr error

	for pass := 0; pass < ensureInitPasses; pass++ {
		if pass > 0 {
			if err := sleepContext(ctx, s.ensureDelay); err != nil {
				return count, err
			}
		}

		initErr = s.InitializeGrid(ctx, poolID, gridSize)

		var err error
		count, err = s.squareRepo.CountByPool(ctx, poolID)
		if err != nil {
			return 0, fmt.Errorf("%w: count squares for pool %s: %v", ErrDependencyUnavailable, poolID, err)
		}
		if count >= want {
			return count, nil
		}

		s.logger.WarnContext(ctx, "grid initialization pass incomplete",
			"pool_id", poolID,
			"pass", pass+1,
			"have", count,
			"want", want,
		)
	}

	if initErr != nil {
		return count, fmt.Errorf("grid initialization incomplete (%d of %d squares exist): %w", count, want, initErr)
	}
	return count, fmt.Errorf("%w: grid initialization incomplete: %d of %d squares exist", ErrDependencyUnavailable, count, want)
}

func (s *GridService) createCell(ctx context.Context, poolID string, row, col int) error {
	id, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate square id: %w", err)
	}

	item := square.Square{
		ID:     id,
		PoolID: poolID,
		Row:    row,
		Col:    col,
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cellBackoff), cellCreateRetries),
		ctx,
	)
	create := func() error {
		_, createErr := s.squareRepo.Create(ctx, item)
		return createErr
	}

	if err := backoff.Retry(create, policy); err != nil {
		return fmt.Errorf("%w: create square (%d,%d) for pool %s: %v", ErrDependencyUnavailable, row, col, poolID, err)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
