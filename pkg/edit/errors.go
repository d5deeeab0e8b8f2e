package edit

import "errors"

var (
	// ErrNothingToUndo / ErrNothingToRedo are returned when a stack is
	// empty; callers treat these as a no-op, not a fatal condition.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrInvariantViolation wraps a revert/reapply failure that forced
	// the entire history to be cleared (spec §4.5, §7).
	ErrInvariantViolation = errors.New("command history cleared after an invariant violation")
)
