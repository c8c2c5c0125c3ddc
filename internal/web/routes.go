package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/faceratio/internal/web/handlers"
	"github.com/kozaktomas/faceratio/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.version)
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Sessions, s.deps.Analyzer)
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Analyzer)
	scansHandler := handlers.NewScansHandler(s.deps.Analyzer, s.deps.Scans)
	statsHandler := handlers.NewStatsHandler(s.deps.Stats)
	matchHandler := handlers.NewMatchHandler(s.deps.Matcher)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check is exempt from rate limiting
		r.Get("/health", healthHandler.Get)
		r.Get("/match/health", matchHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.config.Web.RateLimitPerSecond))

			// Capture sessions
			r.Post("/sessions", sessionsHandler.Create)
			r.Get("/sessions/{id}", sessionsHandler.Get)
			r.Post("/sessions/{id}/frames", sessionsHandler.PushFrames)
			r.Post("/sessions/{id}/complete", sessionsHandler.Complete)
			r.Delete("/sessions/{id}", sessionsHandler.Delete)

			// One-shot analysis
			r.Post("/analyze", analyzeHandler.Analyze)

			// Scan history. {id} is a device ID for GET and a scan ID for
			// DELETE; chi requires one wildcard name per path position.
			if s.deps.Scans != nil {
				r.Post("/scans", scansHandler.Create)
				r.Get("/scans/{id}", scansHandler.List)
				r.Delete("/scans/{id}", scansHandler.Delete)
			}

			r.Get("/stats", statsHandler.Get)
			r.Post("/match", matchHandler.Match)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
