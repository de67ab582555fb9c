package routes

import (
	"github.com/go-chi/chi"

	"github.com/smms/canteen-services/internal/pushsvc/handlers"
	"github.com/smms/canteen-services/internal/pushsvc/registry"
	"github.com/smms/canteen-services/internal/pushsvc/ws"
)

func SetRoutes(r *chi.Mux, s *ws.Ws, reg *registry.Registry) {
	h := handlers.NewHandler(s, reg)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)
		r.Get("/health", h.HealthHandler)
	})
}
