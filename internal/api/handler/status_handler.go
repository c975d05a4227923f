package handler

import (
	"encoding/json"
	"net/http"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/executor"
	"github.com/blaisecz/vitalsim/pkg/problem"
)

// ExecutionStatus exposes the executor's point-in-time snapshot.
type ExecutionStatus interface {
	Status() executor.Snapshot
}

// PlanProvider exposes the currently adopted weekly package.
type PlanProvider interface {
	Current() *domain.WeeklyPackage
}

// StatusHandler serves the host-facing read-only views: execution
// progress, the current weekly package, and the simulated profile.
type StatusHandler struct {
	exec    ExecutionStatus
	plans   PlanProvider
	profile *domain.Profile
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(exec ExecutionStatus, plans PlanProvider, profile *domain.Profile) *StatusHandler {
	return &StatusHandler{
		exec:    exec,
		plans:   plans,
		profile: profile,
	}
}

// GetStatus handles GET /v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.exec.Status())
}

// GetPackage handles GET /v1/package
func (h *StatusHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg := h.plans.Current()
	if pkg == nil {
		problem.NotFound("No weekly package has been generated yet").Write(w)
		return
	}
	writeJSON(w, pkg)
}

// GetProfile handles GET /v1/profile
func (h *StatusHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.profile)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
