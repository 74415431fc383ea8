package archive

import "errors"

// Sentinel errors for archive ingestion.
var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrMalformed         = errors.New("malformed archive record")
)
