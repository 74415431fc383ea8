package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string    `json:"status"`
	Ready      bool      `json:"ready"`
	RunID      string    `json:"run_id,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz. The process is healthy as soon as it
// serves; ready reports whether a report has been published.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	resp := healthResponse{Status: "ok"}
	if rep, err := h.deps.Report(); err == nil {
		resp.Ready = true
		resp.RunID = rep.RunID
		resp.FinishedAt = rep.FinishedAt
	}
	writeJSON(w, http.StatusOK, resp)
}
