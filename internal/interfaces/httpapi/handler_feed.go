package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/NeseemGit/sb-squares/internal/usecase"
)

// StreamPoolSquares pushes full grid snapshots over Server-Sent Events.
// Every event carries the complete square list for the pool, so a client
// can rebuild its view from any single event.
func (h *Handler) StreamPoolSquares(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamPoolSquares")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))

	p, err := h.poolService.Get(ctx, poolID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: streaming is not supported by this connection", usecase.ErrInvalidInput))
		return
	}

	snapshots, cancel, err := h.squareFeed.Subscribe(ctx, poolID)
	if err != nil {
		h.logger.WarnContext(ctx, "subscribe square feed failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-snapshots:
			if !open {
				return
			}

			items := make([]squareDTO, 0, len(snapshot))
			for _, sq := range snapshot {
				items = append(items, squareToDTO(ctx, sq, p.NumbersRevealed))
			}
			payload, err := sonic.Marshal(items)
			if err != nil {
				h.logger.ErrorContext(ctx, "encode square snapshot failed", "pool_id", poolID, "error", err)
				return
			}

			if _, err := fmt.Fprintf(w, "event: squares\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
