package api

import (
	"net/http"
	"time"

	"github.com/okian/gisc/internal/domain/model"
)

type reportSummary struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Language    string                `json:"language,omitempty"`
	Influencers int                   `json:"influencers"`
	Windows     int                   `json:"windows"`
	Outcomes    map[model.Outcome]int `json:"outcomes"`
}

// ReportHandler serves a summary of the latest run.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleReport handles GET /report requests.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rep, err := h.deps.Report()
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportSummary{
		RunID:       rep.RunID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Language:    rep.Language,
		Influencers: len(rep.Influencers),
		Windows:     len(rep.Verdicts),
		Outcomes:    rep.Outcomes,
	})
}
