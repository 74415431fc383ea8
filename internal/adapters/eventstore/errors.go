package eventstore

import "errors"

// ErrStore wraps every transport or query failure. It is fatal to a run.
var ErrStore = errors.New("event store failure")
