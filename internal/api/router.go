package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the HTTP route tree with middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{id}", s.handleGetDevice)
			r.Put("/{id}", s.handleUpdateDevice)
			r.Delete("/{id}", s.handleDeleteDevice)
			r.Post("/{id}/command", s.handleDeviceCommand)
			r.Get("/{id}/samples", s.handleDeviceSamples)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleCreateSchedule)
			r.Get("/{id}", s.handleGetSchedule)
			r.Put("/{id}", s.handleUpdateSchedule)
			r.Post("/{id}/toggle", s.handleToggleSchedule)
			r.Delete("/{id}", s.handleDeleteSchedule)
		})

		r.Route("/limits", func(r chi.Router) {
			r.Get("/", s.handleListLimits)
			r.Post("/", s.handleCreateLimit)
			r.Get("/active", s.handleActiveLimit)
			r.Get("/{id}", s.handleGetLimit)
			r.Put("/{id}", s.handleUpdateLimit)
			r.Delete("/{id}", s.handleDeleteLimit)
		})

		r.Route("/energy", func(r chi.Router) {
			r.Get("/today", s.handleEnergyToday)
			r.Get("/blocked", s.handleBlockedDevices)
		})
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth reports service liveness and basic runtime counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"devices":    s.registry.Count(),
		"ws_clients": clients,
	})
}
