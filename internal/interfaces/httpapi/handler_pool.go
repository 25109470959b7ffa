package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/NeseemGit/sb-squares/internal/usecase"
)

const (
	defaultSquaresPageSize = 100
	maxSquaresPageSize     = 400
)

func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPools")
	defer span.End()

	pools, err := h.poolService.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list pools failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]poolDTO, 0, len(pools))
	for _, p := range pools {
		items = append(items, poolToDTO(ctx, p))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPool")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	p, err := h.poolService.Get(ctx, poolID)
	if err != nil {
		h.logger.WarnContext(ctx, "get pool failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, p))
}

func (h *Handler) ListPoolSquares(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPoolSquares")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	pageToken := strings.TrimSpace(r.URL.Query().Get("pageToken"))

	limit := defaultSquaresPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		if parsed > maxSquaresPageSize {
			parsed = maxSquaresPageSize
		}
		limit = parsed
	}

	p, err := h.poolService.Get(ctx, poolID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := h.poolService.ListSquares(ctx, poolID, pageToken, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list squares failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dto := squarePageDTO{
		Items:     make([]squareDTO, 0, len(page.Items)),
		NextToken: page.NextToken,
	}
	for _, sq := range page.Items {
		dto.Items = append(dto.Items, squareToDTO(ctx, sq, p.NumbersRevealed))
	}
	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyProfile")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	profile, exists, err := h.profileService.GetByUser(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get profile failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !exists {
		// No saved profile yet: return the identity-derived defaults so the
		// client always has something to render.
		writeSuccess(ctx, w, http.StatusOK, profileDTO{
			UserID: principal.UserID,
			Email:  principal.Email,
		})
		return
	}

	writeSuccess(ctx, w, http.StatusOK, profileToDTO(profile))
}

func (h *Handler) SaveMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveMyProfile")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req saveProfileRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	profile, err := h.profileService.Save(ctx, principal, req.DisplayName)
	if err != nil {
		h.logger.WarnContext(ctx, "save profile failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, profileToDTO(profile))
}
