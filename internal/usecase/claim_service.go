package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
)

const (
	// Display labels are truncated to fit a grid cell tooltip.
	maxOwnerNameLength = 20

	fallbackOwnerName = "Me"
)

type ClaimInput struct {
	SquareID    string
	CallerID    string
	DisplayName string
	// DefaultName is the caller-supplied fallback (login identifier or
	// profile name) used when DisplayName is blank.
	DefaultName string
}

type UnclaimInput struct {
	SquareID string
	CallerID string
	IsAdmin  bool
}

type AssignInput struct {
	SquareID     string
	TargetUserID string
	TargetName   string
}

// ClaimResult is the per-square outcome of a batch claim. A failed item
// never fails the batch; every skip is surfaced individually.
type ClaimResult struct {
	SquareID string
	Square   square.Square
	Err      error
}

// ClaimService is the single source of truth for transitioning a square
// between unclaimed and claimed, for both self-service and admin-forced
// paths. Concurrency control is optimistic: a re-check-before-write plus the
// store's own conditional write resolve races, with the loser surfacing
// ErrAlreadyClaimed.
type ClaimService struct {
	poolRepo   pool.Repository
	squareRepo square.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewClaimService(poolRepo pool.Repository, squareRepo square.Repository, logger *slog.Logger) *ClaimService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ClaimService{
		poolRepo:   poolRepo,
		squareRepo: squareRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// Claim assigns an unclaimed square to the caller. The pool must be OPEN;
// self-service claims are enforced here on the server path, not only at the
// UI boundary. Re-claiming a square the caller already owns is a no-op
// success.
func (s *ClaimService) Claim(ctx context.Context, input ClaimInput) (square.Square, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClaimService.Claim")
	defer span.End()

	callerID := strings.TrimSpace(input.CallerID)
	if callerID == "" {
		return square.Square{}, fmt.Errorf("%w: caller identity is required", ErrUnauthorized)
	}
	squareID := strings.TrimSpace(input.SquareID)
	if squareID == "" {
		return square.Square{}, fmt.Errorf("%w: square_id is required", ErrInvalidInput)
	}

	sq, exists, err := s.squareRepo.GetByID(ctx, squareID)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: get square by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return square.Square{}, fmt.Errorf("%w: square %s does not exist; ask the pool admin to initialize the grid", ErrNotFound, squareID)
	}

	p, exists, err := s.poolRepo.GetByID(ctx, sq.PoolID)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: get pool by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return square.Square{}, fmt.Errorf("%w: pool=%s", ErrNotFound, sq.PoolID)
	}
	if p.Status != pool.StatusOpen {
		return square.Square{}, fmt.Errorf("%w: pool %s is not open for claiming", ErrForbidden, sq.PoolID)
	}

	// Re-check immediately before writing. A non-empty foreign owner means
	// the caller lost the race.
	if sq.Claimed() && sq.OwnerID != callerID {
		return square.Square{}, fmt.Errorf("%w: owned by another participant", ErrAlreadyClaimed)
	}

	claimedAt := s.now().UTC()
	sq.OwnerID = callerID
	sq.OwnerName = ownerDisplayName(input.DisplayName, input.DefaultName)
	sq.ClaimedAt = &claimedAt

	// The write carries Row/Col/PoolID unchanged: some backends evaluate
	// authorization rules against the full record.
	updated, won, err := s.squareRepo.ClaimIfUnowned(ctx, sq)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: update square: %v", ErrDependencyUnavailable, err)
	}
	if !won {
		return square.Square{}, fmt.Errorf("%w: owned by another participant", ErrAlreadyClaimed)
	}

	s.logger.InfoContext(ctx, "square claimed",
		"square_id", updated.ID,
		"pool_id", updated.PoolID,
		"row", updated.Row,
		"col", updated.Col,
	)

	return updated, nil
}

// ClaimBatch processes claims sequentially in selection order. Partial
// success is not an overall failure; the returned results carry one entry
// per requested square, failed items with their error.
func (s *ClaimService) ClaimBatch(ctx context.Context, inputs []ClaimInput) ([]ClaimResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClaimService.ClaimBatch")
	defer span.End()

	results := make([]ClaimResult, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		claimed, err := s.Claim(ctx, input)
		results = append(results, ClaimResult{
			SquareID: input.SquareID,
			Square:   claimed,
			Err:      err,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "batch claim item skipped",
				"square_id", input.SquareID,
				"error", err,
			)
		}
	}

	return results, nil
}

// Unclaim releases a claimed square. The caller must be the current owner
// or an admin. Unclaiming an already-unclaimed square is a no-op success.
func (s *ClaimService) Unclaim(ctx context.Context, input UnclaimInput) (square.Square, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClaimService.Unclaim")
	defer span.End()

	callerID := strings.TrimSpace(input.CallerID)
	if callerID == "" {
		return square.Square{}, fmt.Errorf("%w: caller identity is required", ErrUnauthorized)
	}
	squareID := strings.TrimSpace(input.SquareID)
	if squareID == "" {
		return square.Square{}, fmt.Errorf("%w: square_id is required", ErrInvalidInput)
	}

	sq, exists, err := s.squareRepo.GetByID(ctx, squareID)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: get square by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return square.Square{}, fmt.Errorf("%w: square=%s", ErrNotFound, squareID)
	}

	if !sq.Claimed() {
		return sq, nil
	}

	if !input.IsAdmin && sq.OwnerID != callerID {
		return square.Square{}, fmt.Errorf("%w: you can only unclaim your own square", ErrForbidden)
	}

	sq.OwnerID = ""
	sq.OwnerName = ""
	sq.ClaimedAt = nil

	updated, err := s.squareRepo.Update(ctx, sq)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: update square: %v", ErrDependencyUnavailable, err)
	}

	s.logger.InfoContext(ctx, "square unclaimed",
		"square_id", updated.ID,
		"pool_id", updated.PoolID,
		"admin", input.IsAdmin,
	)

	return updated, nil
}

// AssignSquare is the admin-only repair path for accidental unclaims: the
// owner is caller-supplied rather than derived from the requester. The
// target square must currently be unclaimed.
func (s *ClaimService) AssignSquare(ctx context.Context, input AssignInput) (square.Square, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClaimService.AssignSquare")
	defer span.End()

	squareID := strings.TrimSpace(input.SquareID)
	targetID := strings.TrimSpace(input.TargetUserID)
	if squareID == "" || targetID == "" {
		return square.Square{}, fmt.Errorf("%w: square_id and user_id are required", ErrInvalidInput)
	}

	sq, exists, err := s.squareRepo.GetByID(ctx, squareID)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: get square by id: %v", ErrDependencyUnavailable, err)
	}
	if !exists {
		return square.Square{}, fmt.Errorf("%w: square=%s", ErrNotFound, squareID)
	}
	if sq.Claimed() {
		return square.Square{}, fmt.Errorf("%w: assignment only repairs unclaimed squares", ErrAlreadyClaimed)
	}

	claimedAt := s.now().UTC()
	sq.OwnerID = targetID
	sq.OwnerName = ownerDisplayName(input.TargetName, "")
	sq.ClaimedAt = &claimedAt

	updated, won, err := s.squareRepo.ClaimIfUnowned(ctx, sq)
	if err != nil {
		return square.Square{}, fmt.Errorf("%w: update square: %v", ErrDependencyUnavailable, err)
	}
	if !won {
		return square.Square{}, fmt.Errorf("%w: assignment only repairs unclaimed squares", ErrAlreadyClaimed)
	}

	s.logger.InfoContext(ctx, "square assigned by admin",
		"square_id", updated.ID,
		"pool_id", updated.PoolID,
		"target_user_id", targetID,
	)

	return updated, nil
}

func ownerDisplayName(name, defaultName string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(defaultName)
	}
	if name == "" {
		name = fallbackOwnerName
	}
	return truncateName(name, maxOwnerNameLength)
}

// truncateName cuts on rune boundaries; byte slicing could split a
// multi-byte character and store invalid UTF-8.
func truncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit])
}
