package eventstore

import "errors"

// ErrDuplicateEvent indicates an append reused an existing event id.
var ErrDuplicateEvent = errors.New("duplicate event id")
