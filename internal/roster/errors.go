package roster

import "errors"

// ErrInvalidRoster is returned when a roster file cannot be decoded or
// refers to unknown members.
var ErrInvalidRoster = errors.New("invalid roster")
