package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerGroupRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/groups", RequireAuth(verifier, http.HandlerFunc(handler.CreateGroup)))
	mux.Handle("GET /v1/groups", RequireAuth(verifier, http.HandlerFunc(handler.ListGroups)))
	mux.Handle("GET /v1/groups/{slug}", RequireAuth(verifier, http.HandlerFunc(handler.GetGroup)))
	mux.Handle("PUT /v1/groups/{slug}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateGroup)))
	mux.Handle("DELETE /v1/groups/{slug}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteGroup)))

	mux.Handle("POST /v1/groups/{slug}/join-requests", RequireAuth(verifier, http.HandlerFunc(handler.RequestJoin)))
	mux.Handle("POST /v1/groups/{slug}/join-requests/{requestID}/accept", RequireAuth(verifier, http.HandlerFunc(handler.AcceptJoinRequest)))
	mux.Handle("POST /v1/groups/{slug}/join-requests/{requestID}/reject", RequireAuth(verifier, http.HandlerFunc(handler.RejectJoinRequest)))

	mux.Handle("POST /v1/groups/{slug}/members/{userID}/promote", RequireAuth(verifier, http.HandlerFunc(handler.PromoteMember)))
	mux.Handle("POST /v1/groups/{slug}/members/{userID}/demote", RequireAuth(verifier, http.HandlerFunc(handler.DemoteMember)))
	mux.Handle("DELETE /v1/groups/{slug}/members/{userID}", RequireAuth(verifier, http.HandlerFunc(handler.RemoveMember)))
	mux.Handle("POST /v1/groups/{slug}/leave", RequireAuth(verifier, http.HandlerFunc(handler.LeaveGroup)))

	mux.Handle("GET /v1/groups/{slug}/stats", RequireAuth(verifier, http.HandlerFunc(handler.GetGroupStats)))
}

func registerGameRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/games", RequireAuth(verifier, http.HandlerFunc(handler.CreateGame)))
	mux.Handle("GET /v1/games/{gameID}", RequireAuth(verifier, http.HandlerFunc(handler.GetGame)))
	mux.Handle("PUT /v1/games/{gameID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateGame)))
	mux.Handle("DELETE /v1/games/{gameID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteGame)))

	mux.Handle("POST /v1/games/{gameID}/participations", RequireAuth(verifier, http.HandlerFunc(handler.AddParticipation)))
	mux.Handle("PUT /v1/games/{gameID}/participations/{participationID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateParticipation)))
	mux.Handle("DELETE /v1/games/{gameID}/participations/{participationID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteParticipation)))
}
