package api

import (
	"net/http"
	"strconv"
)

// VerdictsHandler serves per-window verdicts.
type VerdictsHandler struct {
	deps Dependencies
}

// NewVerdictsHandler creates a new verdicts handler.
func NewVerdictsHandler(deps Dependencies) *VerdictsHandler {
	return &VerdictsHandler{deps: deps}
}

// HandleGetVerdicts handles GET /verdicts[?eligible=true].
func (h *VerdictsHandler) HandleGetVerdicts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	var eligible bool
	if s := r.URL.Query().Get("eligible"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		eligible = v
	}
	verdicts, err := h.deps.Verdicts(eligible)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdicts)
}

// GenuinenessHandler serves actor genuineness scores.
type GenuinenessHandler struct {
	deps Dependencies
}

// NewGenuinenessHandler creates a new genuineness handler.
func NewGenuinenessHandler(deps Dependencies) *GenuinenessHandler {
	return &GenuinenessHandler{deps: deps}
}

// HandleGetGenuineness handles GET /genuineness/{actor}.
func (h *GenuinenessHandler) HandleGetGenuineness(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	actor, ok := pathParam(r, "/genuineness/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	g, err := h.deps.Genuineness(actor)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
