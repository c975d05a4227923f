package handler

import (
	"errors"
	"net/http"

	"github.com/blaisecz/vitalsim/internal/insights"
	"github.com/blaisecz/vitalsim/pkg/problem"
)

// SummaryHandler serves the LLM-generated weekly narrative.
type SummaryHandler struct {
	plans      PlanProvider
	summarizer insights.Summarizer
}

// NewSummaryHandler creates a new SummaryHandler. summarizer may be a
// nil *insights.OpenAIClient when OpenAI is not configured.
func NewSummaryHandler(plans PlanProvider, summarizer insights.Summarizer) *SummaryHandler {
	return &SummaryHandler{
		plans:      plans,
		summarizer: summarizer,
	}
}

// GetSummary handles GET /v1/summary
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	pkg := h.plans.Current()
	if pkg == nil {
		problem.NotFound("No weekly package has been generated yet").Write(w)
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), pkg)
	if err != nil {
		if errors.Is(err, insights.ErrUnavailable) {
			problem.ServiceUnavailable("Weekly summaries require an OpenAI API key").Write(w)
			return
		}
		problem.InternalError("Failed to generate weekly summary").Write(w)
		return
	}

	writeJSON(w, summary)
}
