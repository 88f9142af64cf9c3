package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/library-kiosk/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	kioskHandler := handlers.NewKioskHandler(s.kiosk, s.embedder, s.decoder)
	recordsHandler := handlers.NewRecordsHandler(s.kiosk)

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Kiosk
		r.Post("/register", kioskHandler.Register)
		r.Post("/register/image", kioskHandler.RegisterImage)
		r.Post("/identify", kioskHandler.Identify)
		r.Post("/identify/image", kioskHandler.IdentifyImage)
		r.Post("/transactions", kioskHandler.Submit)
		r.Post("/transactions/scan", kioskHandler.SubmitScan)

		// Staff views
		r.Get("/records", recordsHandler.List)
		r.Get("/records/{name}/events", recordsHandler.Events)
		r.Get("/roster/audit", recordsHandler.Audit)
	})
}
