package pour

import (
	"errors"
	"fmt"
)

// ErrTapVacant is returned when the tap a pour or undo targets has been
// emptied in the meantime.
var ErrTapVacant = errors.New("tap is empty")

// FetchError means the inventory document could not be read. The engine
// reports StatusError until a later fetch succeeds.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch state: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// CommitError means a commit or undo write was rejected. By the time it is
// returned the engine has already dropped its optimistic state and refetched.
type CommitError struct {
	Op  string // "commit" or "undo"
	Tap int
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s tap %d: %v", e.Op, e.Tap, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
