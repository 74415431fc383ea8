package predict

import "errors"

// Sentinel errors for fitting.
var (
	// ErrInsufficientHistory means fewer than degree+1 samples preceded t0.
	ErrInsufficientHistory = errors.New("insufficient history for fit")
	// ErrIllConditioned means the samples cannot determine the polynomial.
	ErrIllConditioned = errors.New("fit is ill-conditioned")
	// ErrInvalidDegree means a negative polynomial degree was requested.
	ErrInvalidDegree = errors.New("invalid polynomial degree")
)
