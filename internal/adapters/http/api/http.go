// Package api serves the latest analysis report over read-only HTTP routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/gisc/internal/app"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
)

// Dependencies required by HTTP handlers. app.Service satisfies it.
type Dependencies interface {
	TopN(ctx context.Context, n int) ([]model.ActorRank, error)
	Rank(ctx context.Context, actor string) (model.ActorRank, error)
	Verdicts(eligibleOnly bool) ([]model.Verdict, error)
	Genuineness(actor string) (model.Genuineness, error)
	Report() (*app.Report, error)
}

var _ Dependencies = (*app.Service)(nil)

// Server wires HTTP routes for the analysis API.
type Server struct {
	healthHandler      *HealthHandler
	reportHandler      *ReportHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	verdictsHandler    *VerdictsHandler
	genuinenessHandler *GenuinenessHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// the limit accepted by /influencers.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		reportHandler:      NewReportHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		verdictsHandler:    NewVerdictsHandler(deps),
		genuinenessHandler: NewGenuinenessHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/report", MetricsMiddleware(s.reportHandler.HandleReport, "report"))
	mux.HandleFunc("/influencers", MetricsMiddleware(s.leaderboardHandler.HandleGetInfluencers, "influencers"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/verdicts", MetricsMiddleware(s.verdictsHandler.HandleGetVerdicts, "verdicts"))
	mux.HandleFunc("/genuineness/", MetricsMiddleware(s.genuinenessHandler.HandleGetGenuineness, "genuineness"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError translates a dependency error into a response.
func writeUpstreamError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
