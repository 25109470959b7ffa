package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
	"github.com/NeseemGit/sb-squares/internal/platform/logging"
	"github.com/NeseemGit/sb-squares/internal/usecase"
)

// GroupResolver resolves extra group claims from a secondary credential.
type GroupResolver interface {
	GroupsForToken(ctx context.Context, token string) []string
}

type Handler struct {
	poolService    *usecase.PoolService
	claimService   *usecase.ClaimService
	gridService    *usecase.GridService
	profileService *usecase.ProfileService
	squareFeed     square.Feed
	groups         GroupResolver
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	poolService *usecase.PoolService,
	claimService *usecase.ClaimService,
	gridService *usecase.GridService,
	profileService *usecase.ProfileService,
	squareFeed square.Feed,
	groups GroupResolver,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		poolService:    poolService,
		claimService:   claimService,
		gridService:    gridService,
		profileService: profileService,
		squareFeed:     squareFeed,
		groups:         groups,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

type claimSquareRequest struct {
	SquareID    string   `json:"squareId" validate:"omitempty,max=64"`
	SquareIDs   []string `json:"squareIds" validate:"omitempty,max=100,dive,required"`
	DisplayName string   `json:"displayName" validate:"omitempty,max=20"`
}

type unclaimSquareRequest struct {
	SquareID string `json:"squareId" validate:"required,max=64"`
	// AccessToken optionally carries the credential whose group claims hold
	// admin membership when the login token does not.
	AccessToken string `json:"accessToken" validate:"omitempty"`
}

type assignSquareRequest struct {
	SquareID    string `json:"squareId" validate:"required,max=64"`
	UserID      string `json:"userId" validate:"required,max=128"`
	DisplayName string `json:"displayName" validate:"omitempty,max=20"`
}

type createPoolRequest struct {
	Name           string  `json:"name" validate:"required,max=120"`
	Description    string  `json:"description" validate:"omitempty,max=2000"`
	EventDate      string  `json:"eventDate" validate:"required,max=64"`
	GridSize       int     `json:"gridSize" validate:"required,min=5,max=20"`
	PricePerSquare float64 `json:"pricePerSquare" validate:"gte=0"`
	TeamRowName    string  `json:"teamRowName" validate:"omitempty,max=120"`
	TeamColName    string  `json:"teamColName" validate:"omitempty,max=120"`
	CommishNotes   string  `json:"commishNotes" validate:"omitempty,max=4000"`
	PrizePayouts   string  `json:"prizePayouts" validate:"omitempty,max=4000"`
}

type updatePoolStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT OPEN CLOSED COMPLETED"`
}

type updatePoolDetailsRequest struct {
	Name           *string  `json:"name" validate:"omitempty,max=120"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	EventDate      *string  `json:"eventDate" validate:"omitempty,max=64"`
	PricePerSquare *float64 `json:"pricePerSquare" validate:"omitempty,gte=0"`
	TeamRowName    *string  `json:"teamRowName" validate:"omitempty,max=120"`
	TeamColName    *string  `json:"teamColName" validate:"omitempty,max=120"`
	CommishNotes   *string  `json:"commishNotes" validate:"omitempty,max=4000"`
	PrizePayouts   *string  `json:"prizePayouts" validate:"omitempty,max=4000"`
}

type initializeGridRequest struct {
	GridSize int `json:"gridSize" validate:"required,min=5,max=20"`
}

type revealNumbersRequest struct {
	Revealed bool `json:"revealed"`
}

type setWinnersRequest struct {
	Winners []winningSquareDTO `json:"winners" validate:"required,max=4,dive"`
}

type saveProfileRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=20"`
}

type winningSquareDTO struct {
	Row int `json:"row" validate:"min=-1,max=19"`
	Col int `json:"col" validate:"min=-1,max=19"`
}

type poolDTO struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description,omitempty"`
	EventDate       string             `json:"eventDate"`
	GridSize        int                `json:"gridSize"`
	PricePerSquare  float64            `json:"pricePerSquare"`
	Status          string             `json:"status"`
	RowNumbers      []int              `json:"rowNumbers,omitempty"`
	ColNumbers      []int              `json:"colNumbers,omitempty"`
	NumbersRevealed bool               `json:"numbersRevealed"`
	WinningSquares  []winningSquareDTO `json:"winningSquares,omitempty"`
	TeamRowName     string             `json:"teamRowName,omitempty"`
	TeamColName     string             `json:"teamColName,omitempty"`
	CommishNotes    string             `json:"commishNotes,omitempty"`
	PrizePayouts    string             `json:"prizePayouts,omitempty"`
	CreatedAtUTC    string             `json:"created_at_utc"`
	UpdatedAtUTC    string             `json:"updated_at_utc"`
}

type squareDTO struct {
	ID           string `json:"id"`
	PoolID       string `json:"poolId"`
	Row          int    `json:"row"`
	Col          int    `json:"col"`
	RowNumber    *int   `json:"rowNumber,omitempty"`
	ColNumber    *int   `json:"colNumber,omitempty"`
	OwnerID      string `json:"ownerId"`
	OwnerName    string `json:"ownerName,omitempty"`
	ClaimedAtUTC string `json:"claimed_at_utc,omitempty"`
}

type squarePageDTO struct {
	Items     []squareDTO `json:"items"`
	NextToken string      `json:"nextToken,omitempty"`
}

type claimResultDTO struct {
	SquareID string     `json:"squareId"`
	Square   *squareDTO `json:"square,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type profileDTO struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// poolToDTO omits the digit permutations until the commissioner reveals
// them. The status and reveal flag are always visible.
func poolToDTO(ctx context.Context, v pool.Pool) poolDTO {
	ctx, span := startSpan(ctx, "httpapi.poolToDTO")
	defer span.End()

	dto := poolDTO{
		ID:              v.ID,
		Name:            v.Name,
		Description:     v.Description,
		EventDate:       v.EventDate,
		GridSize:        v.GridSize,
		PricePerSquare:  v.PricePerSquare,
		Status:          string(v.Status),
		NumbersRevealed: v.NumbersRevealed,
		TeamRowName:     v.TeamRowName,
		TeamColName:     v.TeamColName,
		CommishNotes:    v.CommishNotes,
		PrizePayouts:    v.PrizePayouts,
		CreatedAtUTC:    v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAtUTC:    v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.NumbersRevealed {
		dto.RowNumbers = append([]int(nil), v.RowNumbers...)
		dto.ColNumbers = append([]int(nil), v.ColNumbers...)
	}
	for _, w := range v.WinningSquares {
		dto.WinningSquares = append(dto.WinningSquares, winningSquareDTO{Row: w.Row, Col: w.Col})
	}

	return dto
}

func squareToDTO(ctx context.Context, v square.Square, numbersRevealed bool) squareDTO {
	ctx, span := startSpan(ctx, "httpapi.squareToDTO")
	defer span.End()

	dto := squareDTO{
		ID:        v.ID,
		PoolID:    v.PoolID,
		Row:       v.Row,
		Col:       v.Col,
		OwnerID:   v.OwnerID,
		OwnerName: v.OwnerName,
	}
	if numbersRevealed {
		dto.RowNumber = v.RowNumber
		dto.ColNumber = v.ColNumber
	}
	if v.ClaimedAt != nil && !v.ClaimedAt.IsZero() {
		dto.ClaimedAtUTC = v.ClaimedAt.UTC().Format(time.RFC3339)
	}

	return dto
}

func profileToDTO(v userprofile.UserProfile) profileDTO {
	return profileDTO{
		UserID:      v.UserID,
		DisplayName: v.DisplayName,
		Email:       v.Email,
	}
}
