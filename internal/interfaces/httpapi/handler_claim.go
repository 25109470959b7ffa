package httpapi

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/NeseemGit/sb-squares/internal/domain/user"
	"github.com/NeseemGit/sb-squares/internal/usecase"
)

func (h *Handler) ClaimSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClaimSquare")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req claimSquareRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.SquareID == "" && len(req.SquareIDs) == 0 {
		writeError(ctx, w, fmt.Errorf("%w: squareId or squareIds is required", usecase.ErrInvalidInput))
		return
	}

	fallbackName := h.profileService.DefaultClaimName(ctx, principal)

	if len(req.SquareIDs) > 0 {
		h.claimSquareBatch(w, r, principal, req, fallbackName)
		return
	}

	claimed, err := h.claimService.Claim(ctx, usecase.ClaimInput{
		SquareID:    req.SquareID,
		CallerID:    principal.UserID,
		DisplayName: req.DisplayName,
		DefaultName: fallbackName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "claim square failed", "user_id", principal.UserID, "square_id", req.SquareID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, squareToDTO(ctx, claimed, h.poolNumbersRevealed(ctx, claimed.PoolID)))
}

func (h *Handler) claimSquareBatch(w http.ResponseWriter, r *http.Request, principal user.Principal, req claimSquareRequest, fallbackName string) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.claimSquareBatch")
	defer span.End()

	inputs := make([]usecase.ClaimInput, 0, len(req.SquareIDs))
	for _, squareID := range req.SquareIDs {
		inputs = append(inputs, usecase.ClaimInput{
			SquareID:    squareID,
			CallerID:    principal.UserID,
			DisplayName: req.DisplayName,
			DefaultName: fallbackName,
		})
	}

	results, err := h.claimService.ClaimBatch(ctx, inputs)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]claimResultDTO, 0, len(results))
	revealedByPool := make(map[string]bool)
	for _, result := range results {
		item := claimResultDTO{SquareID: result.SquareID}
		if result.Err != nil {
			item.Error = result.Err.Error()
		} else {
			revealed, ok := revealedByPool[result.Square.PoolID]
			if !ok {
				revealed = h.poolNumbersRevealed(ctx, result.Square.PoolID)
				revealedByPool[result.Square.PoolID] = revealed
			}
			dto := squareToDTO(ctx, result.Square, revealed)
			item.Square = &dto
		}
		items = append(items, item)
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) UnclaimSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UnclaimSquare")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req unclaimSquareRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	// Admin membership may ride on either credential; union both before
	// deciding whether this caller can release someone else's square.
	groups := principal.Groups
	if h.groups != nil && req.AccessToken != "" {
		groups = user.UnionGroups(groups, h.groups.GroupsForToken(ctx, req.AccessToken))
	}
	merged := user.Principal{UserID: principal.UserID, Email: principal.Email, Groups: groups}

	released, err := h.claimService.Unclaim(ctx, usecase.UnclaimInput{
		SquareID: req.SquareID,
		CallerID: principal.UserID,
		IsAdmin:  merged.IsAdmin(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "unclaim square failed", "user_id", principal.UserID, "square_id", req.SquareID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, squareToDTO(ctx, released, h.poolNumbersRevealed(ctx, released.PoolID)))
}

func (h *Handler) AssignSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AssignSquare")
	defer span.End()

	var req assignSquareRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	assigned, err := h.claimService.AssignSquare(ctx, usecase.AssignInput{
		SquareID:     req.SquareID,
		TargetUserID: req.UserID,
		TargetName:   req.DisplayName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "assign square failed", "square_id", req.SquareID, "target_user_id", req.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	// Admin-only response; digits are never masked for the assigner.
	writeSuccess(ctx, w, http.StatusOK, squareToDTO(ctx, assigned, true))
}

// poolNumbersRevealed reports whether the pool's digits are public.
// Participant-facing responses carry RowNumber/ColNumber only once the
// reveal flag is raised; a failed lookup masks rather than leaks.
func (h *Handler) poolNumbersRevealed(ctx context.Context, poolID string) bool {
	p, err := h.poolService.Get(ctx, poolID)
	if err != nil {
		h.logger.WarnContext(ctx, "pool reveal lookup failed, masking digits", "pool_id", poolID, "error", err)
		return false
	}
	return p.NumbersRevealed
}
