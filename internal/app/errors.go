package app

import "errors"

// Sentinel errors returned by the analysis service.
var (
	// ErrInsufficientData means the store holds no follow events.
	ErrInsufficientData = errors.New("insufficient data: no follow events in store")
	// ErrUnknownLanguage means the language filter matches no repository.
	ErrUnknownLanguage = errors.New("unknown repository language")
	// ErrNoReport means no analysis run has completed yet.
	ErrNoReport = errors.New("no analysis report available")
	// ErrActorNotAnalyzed means the latest report has no windows for the actor.
	ErrActorNotAnalyzed = errors.New("actor not analyzed")
)
