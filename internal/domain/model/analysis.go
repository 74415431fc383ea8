package model

import (
	"time"
)

// Window is the 24h slice of repository activity after an actor's watch.
type Window struct {
	Actor     string
	Repo      string
	Language  string
	TriggerID string    // id of the watch event that opened the window
	Start     time.Time // t0, the trigger timestamp
	End       time.Time // Start + 24h, exclusive
	Events    []Event   // all events on Repo in [Start, End), ordered
}

// Sample is one point of a curve.
type Sample struct {
	At    time.Time `json:"at"`
	Count float64   `json:"count"`
}

// Curve is an ordered series of samples.
type Curve []Sample

// Counts returns the sample values.
func (c Curve) Counts() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.Count
	}
	return out
}

// Outcome is the terminal state of a window in the pipeline.
type Outcome string

// Pipeline outcomes.
const (
	OutcomeSkippedInsufficientHistory Outcome = "skipped_insufficient_history"
	OutcomeSkippedNotEligible         Outcome = "skipped_not_eligible"
	OutcomeEligible                   Outcome = "eligible"
	OutcomeRendered                   Outcome = "rendered"
)

// Verdict is the evaluated result of one impact window.
type Verdict struct {
	Actor        string    `json:"actor"`
	Repo         string    `json:"repo"`
	Language     string    `json:"language,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Baseline     int       `json:"baseline"`
	Curve        Curve     `json:"curve"`
	Predicted    Curve     `json:"predicted,omitempty"`
	MaxDeviation float64   `json:"max_deviation"`
	Eligible     bool      `json:"eligible"`
	Outcome      Outcome   `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Chart        string    `json:"chart,omitempty"`
}

// Delta is the watcher growth over the window.
func (v Verdict) Delta() float64 {
	if len(v.Curve) == 0 {
		return 0
	}
	return v.Curve[len(v.Curve)-1].Count - v.Curve[0].Count
}

// Genuineness is an actor-level dispersion verdict.
type Genuineness struct {
	Actor      string    `json:"actor"`
	Strategy   string    `json:"strategy"`
	Deltas     []float64 `json:"deltas"`
	StdDev     float64   `json:"stddev"`
	Genuine    bool      `json:"genuine"`
	Sufficient bool      `json:"sufficient"`
}

// Job asks a worker to evaluate one actor watch.
type Job struct {
	Rank      int
	Actor     string
	Followers int
	Watch     Event
}
