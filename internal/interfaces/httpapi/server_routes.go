package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/pools", handler.ListPools)
	mux.HandleFunc("GET /v1/pools/{poolID}", handler.GetPool)
	mux.HandleFunc("GET /v1/pools/{poolID}/squares", handler.ListPoolSquares)
	mux.HandleFunc("GET /v1/pools/{poolID}/squares/stream", handler.StreamPoolSquares)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/claim-square", RequireAuth(verifier, http.HandlerFunc(handler.ClaimSquare)))
	mux.Handle("POST /v1/unclaim-square", RequireAuth(verifier, http.HandlerFunc(handler.UnclaimSquare)))
	mux.Handle("GET /v1/me/profile", RequireAuth(verifier, http.HandlerFunc(handler.GetMyProfile)))
	mux.Handle("PUT /v1/me/profile", RequireAuth(verifier, http.HandlerFunc(handler.SaveMyProfile)))
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	admin := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(verifier, RequireAdmin(h))
	}

	mux.Handle("POST /v1/pools", admin(handler.CreatePool))
	mux.Handle("PUT /v1/pools/{poolID}/status", admin(handler.UpdatePoolStatus))
	mux.Handle("PUT /v1/pools/{poolID}/details", admin(handler.UpdatePoolDetails))
	mux.Handle("POST /v1/pools/{poolID}/grid", admin(handler.InitializePoolGrid))
	mux.Handle("POST /v1/pools/{poolID}/randomize", admin(handler.RandomizePoolNumbers))
	mux.Handle("POST /v1/pools/{poolID}/reveal", admin(handler.RevealPoolNumbers))
	mux.Handle("PUT /v1/pools/{poolID}/winners", admin(handler.SetPoolWinners))
	mux.Handle("POST /v1/assign-square", admin(handler.AssignSquare))
	mux.Handle("DELETE /v1/pools/{poolID}", admin(handler.DeletePool))
}
