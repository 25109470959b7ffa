package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/usecase"
)

func (h *Handler) CreatePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreatePool")
	defer span.End()

	var req createPoolRequest
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

	created, err := h.poolService.Create(ctx, usecase.CreatePoolInput{
		Name:           req.Name,
		Description:    req.Description,
		EventDate:      req.EventDate,
		GridSize:       req.GridSize,
		PricePerSquare: req.PricePerSquare,
		TeamRowName:    req.TeamRowName,
		TeamColName:    req.TeamColName,
		CommishNotes:   req.CommishNotes,
		PrizePayouts:   req.PrizePayouts,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create pool failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, poolToDTO(ctx, created))
}

func (h *Handler) UpdatePoolStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdatePoolStatus")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	var req updatePoolStatusRequest
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

	updated, err := h.poolService.UpdateStatus(ctx, poolID, pool.Status(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "update pool status failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, updated))
}

func (h *Handler) UpdatePoolDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdatePoolDetails")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	var req updatePoolDetailsRequest
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

	updated, err := h.poolService.UpdateDetails(ctx, poolID, usecase.UpdateDetailsInput{
		Name:           req.Name,
		Description:    req.Description,
		EventDate:      req.EventDate,
		PricePerSquare: req.PricePerSquare,
		TeamRowName:    req.TeamRowName,
		TeamColName:    req.TeamColName,
		CommishNotes:   req.CommishNotes,
		PrizePayouts:   req.PrizePayouts,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update pool details failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, updated))
}

func (h *Handler) InitializePoolGrid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InitializePoolGrid")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	var req initializeGridRequest
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

	count, err := h.gridService.EnsureInitialized(ctx, poolID, req.GridSize)
	if err != nil {
		h.logger.WarnContext(ctx, "initialize grid failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"squareCount": count})
}

func (h *Handler) RandomizePoolNumbers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RandomizePoolNumbers")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	updated, err := h.poolService.Randomize(ctx, poolID)
	if err != nil {
		h.logger.WarnContext(ctx, "randomize pool numbers failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, updated))
}

func (h *Handler) RevealPoolNumbers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RevealPoolNumbers")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	var req revealNumbersRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}

	updated, err := h.poolService.SetRevealed(ctx, poolID, req.Revealed)
	if err != nil {
		h.logger.WarnContext(ctx, "reveal pool numbers failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, updated))
}

func (h *Handler) SetPoolWinners(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetPoolWinners")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	var req setWinnersRequest
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

	winners := make([]pool.WinningSquare, 0, len(req.Winners))
	for _, wSlot := range req.Winners {
		winners = append(winners, pool.WinningSquare{Row: wSlot.Row, Col: wSlot.Col})
	}

	updated, err := h.poolService.SetWinningSquares(ctx, poolID, winners)
	if err != nil {
		h.logger.WarnContext(ctx, "set pool winners failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(ctx, updated))
}

func (h *Handler) DeletePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeletePool")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	if err := h.poolService.Delete(ctx, poolID); err != nil {
		h.logger.WarnContext(ctx, "delete pool failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}
