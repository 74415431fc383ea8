package growth

import "errors"

// ErrEmptyWindow reports a window with no watches after the trigger.
var ErrEmptyWindow = errors.New("no watch events in window")
