package render

import "errors"

// Sentinel errors for chart output.
var (
	ErrRender            = errors.New("render chart")
	ErrUnsupportedFormat = errors.New("unsupported chart format")
)
