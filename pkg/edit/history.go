package edit

import (
	"fmt"

	"github.com/minimaxir/miditui/pkg/project"
)

// MaxHistory is the capacity of each of the undo and redo stacks
// (spec §4.5: "capped at 8 entries").
const MaxHistory = 8

// History holds the undo and redo stacks for one project's lifetime.
// It is not safe for concurrent use; the facade serializes all
// command application onto the control thread (spec §5).
type History struct {
	undo []*Command
	redo []*Command
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Apply applies cmd to p and pushes it onto the undo stack. This is
// for genuinely new, user-initiated mutations: it clears the redo
// stack, since redo only survives a chain of Undo calls uninterrupted
// by a fresh mutation (spec §4.5).
func (h *History) Apply(p *project.Project, cmd *Command) error {
	if err := cmd.apply(p); err != nil {
		return err
	}
	h.pushUndo(cmd)
	h.redo = nil
	return nil
}

// Undo reverts the most recent command, moving it onto the redo
// stack. If the revert itself fails (an invariant would be violated,
// e.g. a bulk LoadProject out of band removed a track a later command
// still references), the entire history is cleared and the error is
// returned wrapped in ErrInvariantViolation (spec §4.5, §7).
func (h *History) Undo(p *project.Project) error {
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.revert(p); err != nil {
		h.Clear()
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.pushRedo(cmd)
	return nil
}

// Redo reapplies the most recently undone command, moving it back
// onto the undo stack. It does not itself clear the redo stack, so a
// run of Undo calls followed by an equal run of Redo calls is lossless
// (spec §4.5, R3).
func (h *History) Redo(p *project.Project) error {
	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.apply(p); err != nil {
		h.Clear()
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.pushUndo(cmd)
	return nil
}

// ApplyGrouped behaves like Apply but stamps cmd with groupID so a
// later UndoGroup call reverts it together with every other command
// sharing the same groupID, rather than one keystroke at a time (spec
// §4.4). groupID 0 is reserved for ungrouped commands; callers should
// use a monotonically distinct nonzero id per group.
func (h *History) ApplyGrouped(p *project.Project, cmd *Command, groupID int64) error {
	cmd.groupID = groupID
	return h.Apply(p, cmd)
}

// UndoGroup reverts the most recent command and, if it carries a
// nonzero groupID, every consecutive command beneath it on the undo
// stack sharing that same groupID. Commands with groupID 0 revert one
// at a time, identical to Undo.
func (h *History) UndoGroup(p *project.Project) (int, error) {
	if len(h.undo) == 0 {
		return 0, ErrNothingToUndo
	}
	gid := h.undo[len(h.undo)-1].groupID
	n := 0
	for len(h.undo) > 0 {
		top := h.undo[len(h.undo)-1]
		if n > 0 && (gid == 0 || top.groupID != gid) {
			break
		}
		if err := h.Undo(p); err != nil {
			return n, err
		}
		n++
		if gid == 0 {
			break
		}
	}
	return n, nil
}

// Clear empties both stacks. Called on New Project, on successful
// Load, and whenever a revert/reapply hits an invariant violation.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// CanUndo / CanRedo report whether the respective stack has entries,
// for the UI to grey out menu items.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) pushUndo(cmd *Command) {
	h.undo = append(h.undo, cmd)
	if len(h.undo) > MaxHistory {
		h.undo = h.undo[1:]
	}
}

func (h *History) pushRedo(cmd *Command) {
	h.redo = append(h.redo, cmd)
	if len(h.redo) > MaxHistory {
		h.redo = h.redo[1:]
	}
}
