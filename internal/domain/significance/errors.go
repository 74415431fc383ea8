package significance

import "errors"

// Sentinel errors for deviation tests.
var (
	ErrLengthMismatch  = errors.New("observed and predicted curves differ in length")
	ErrNoSamples       = errors.New("no samples to compare")
	ErrUnknownStrategy = errors.New("unknown significance strategy")
)
