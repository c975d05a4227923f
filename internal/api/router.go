package api

import (
	"encoding/json"
	"net/http"

	"github.com/blaisecz/vitalsim/internal/api/handler"
	"github.com/blaisecz/vitalsim/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Router struct {
	statusHandler  *handler.StatusHandler
	summaryHandler *handler.SummaryHandler
	log            *zap.Logger
}

func NewRouter(statusHandler *handler.StatusHandler, summaryHandler *handler.SummaryHandler, log *zap.Logger) *Router {
	return &Router{
		statusHandler:  statusHandler,
		summaryHandler: summaryHandler,
		log:            log,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recovery(rt.log))
	r.Use(middleware.Tracing)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", rt.statusHandler.GetStatus)
		r.Get("/package", rt.statusHandler.GetPackage)
		r.Get("/profile", rt.statusHandler.GetProfile)
		r.Get("/summary", rt.summaryHandler.GetSummary)
	})

	return r
}
