package handlers

import (
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/session/start", h.StartSession)
			r.Post("/session/end", h.EndSession)
			r.Get("/session/active", h.ActiveSession)
			r.Post("/session/list", h.ListSessions)
			r.Post("/session/scans", h.SessionScans)

			r.Post("/scan", h.Scan)

			r.Post("/deposit", h.Deposit)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
