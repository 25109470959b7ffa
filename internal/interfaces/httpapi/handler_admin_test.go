package httpapi

import (
	"context"
	"net/http"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/NeseemGit/sb-squares/internal/domain/user"
)

func adminPrincipal() user.Principal {
	return user.Principal{UserID: "commish", Email: "commish@example.com", Groups: []string{user.AdminGroup}}
}

func TestAdminRoutes_RejectNonAdmin(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: user.Principal{UserID: "user-a"}})

	rec := doJSON(t, fix.router, http.MethodPost, "/v1/pools", `{"name":"P","eventDate":"2026-02-08","gridSize":5}`, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestCreatePool_AdminSucceeds(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodPost, "/v1/pools", `{"name":"Playoff Pool","eventDate":"2026-01-18","gridSize":5}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	payload, _ := sonic.Marshal(envelope.Data)
	var dto poolDTO
	if err := sonic.Unmarshal(payload, &dto); err != nil {
		t.Fatalf("decode pool dto: %v", err)
	}
	if dto.Status != "DRAFT" {
		t.Fatalf("expected DRAFT, got %s", dto.Status)
	}
	if dto.CommishNotes == "" {
		t.Fatal("expected default commish notes")
	}
}

func TestCreatePool_RejectsOutOfRangeGridSize(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodPost, "/v1/pools", `{"name":"P","eventDate":"2026-01-18","gridSize":3}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRandomizeAndReveal_Flow(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	// Digits stay hidden while unrevealed.
	rec := doJSON(t, fix.router, http.MethodPost, "/v1/pools/pool-1/randomize", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("randomize: expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	payload, _ := sonic.Marshal(envelope.Data)
	var dto poolDTO
	if err := sonic.Unmarshal(payload, &dto); err != nil {
		t.Fatalf("decode pool dto: %v", err)
	}
	if dto.RowNumbers != nil || dto.ColNumbers != nil {
		t.Fatal("digits must stay hidden until revealed")
	}

	rec = doJSON(t, fix.router, http.MethodPost, "/v1/pools/pool-1/reveal", `{"revealed":true}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("reveal: expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	envelope = decodeEnvelope(t, rec)
	payload, _ = sonic.Marshal(envelope.Data)
	if err := sonic.Unmarshal(payload, &dto); err != nil {
		t.Fatalf("decode pool dto: %v", err)
	}
	if len(dto.RowNumbers) != 5 || len(dto.ColNumbers) != 5 {
		t.Fatalf("expected revealed digits, got rows=%v cols=%v", dto.RowNumbers, dto.ColNumbers)
	}
}

func TestListPoolSquares_MasksNumbersUntilRevealed(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	// Stamp numbers on one square directly; the pool is still unrevealed.
	sq, _, _ := fix.squareRepo.GetByID(context.Background(), "sq-0-0")
	n := 7
	sq.RowNumber = &n
	sq.ColNumber = &n
	if _, err := fix.squareRepo.Update(context.Background(), sq); err != nil {
		t.Fatalf("stamp square: %v", err)
	}

	rec := doJSON(t, fix.router, http.MethodGet, "/v1/pools/pool-1/squares", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	payload, _ := sonic.Marshal(envelope.Data)
	var page squarePageDTO
	if err := sonic.Unmarshal(payload, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 25 {
		t.Fatalf("expected 25 squares, got %d", len(page.Items))
	}
	for _, item := range page.Items {
		if item.RowNumber != nil || item.ColNumber != nil {
			t.Fatalf("square %s leaks digits before reveal", item.ID)
		}
	}
}

func TestListPoolSquares_Paginates(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodGet, "/v1/pools/pool-1/squares?limit=10", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	payload, _ := sonic.Marshal(envelope.Data)
	var page squarePageDTO
	if err := sonic.Unmarshal(payload, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(page.Items))
	}
	if page.NextToken == "" {
		t.Fatal("expected a continuation token")
	}

	rec = doJSON(t, fix.router, http.MethodGet, "/v1/pools/pool-1/squares?limit=10&pageToken="+page.NextToken, "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("second page: expected 200, got %d", rec.Code)
	}
}

func TestAssignSquare_AdminRepairsSquare(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodPost, "/v1/assign-square", `{"squareId":"sq-3-3","userId":"user-x","displayName":"Xavier"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	stored, _, _ := fix.squareRepo.GetByID(context.Background(), "sq-3-3")
	if stored.OwnerID != "user-x" {
		t.Fatalf("expected user-x to own the square, got %q", stored.OwnerID)
	}
}

func TestDeletePool_RemovesEverything(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodDelete, "/v1/pools/pool-1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	count, _ := fix.squareRepo.CountByPool(context.Background(), "pool-1")
	if count != 0 {
		t.Fatalf("expected all squares gone, got %d", count)
	}

	rec = doJSON(t, fix.router, http.MethodGet, "/v1/pools/pool-1", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestInitializePoolGrid_ReturnsSquareCount(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodPost, "/v1/pools/pool-1/grid", `{"gridSize":5}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	payload, _ := sonic.Marshal(envelope.Data)
	var data map[string]int
	if err := sonic.Unmarshal(payload, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data["squareCount"] != 25 {
		t.Fatalf("expected squareCount 25, got %d", data["squareCount"])
	}
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{})

	rec := doJSON(t, fix.router, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUpdatePoolStatus_Validates(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, stubVerifier{principal: adminPrincipal()})

	rec := doJSON(t, fix.router, http.MethodPut, "/v1/pools/pool-1/status", `{"status":"PAUSED"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, fix.router, http.MethodPut, "/v1/pools/pool-1/status", `{"status":"CLOSED"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
}
