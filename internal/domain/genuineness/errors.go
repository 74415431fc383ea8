package genuineness

import "errors"

// ErrUnknownStrategy reports an unsupported validator name.
var ErrUnknownStrategy = errors.New("unknown genuineness strategy")
