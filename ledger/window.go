/*
window.go - Mutation window policy

PURPOSE:
  Two independent, stateless checks gate entry mutations:
  - Edit window: an entry may be updated or deleted only while
    now - createdAt < 12h.
  - Undo window: a soft-deleted entry may be restored only while
    now - deletedAt < 30s.

EVALUATION:
  Both checks read the clock at call time and the entry's own timestamps.
  Nothing is cached; a request one second later may get a different answer.

SEE ALSO:
  - entry.go: UpdateEntry, DeleteEntry, RestoreEntry call these checks
*/
package ledger

import (
	"fmt"
	"time"
)

const (
	DefaultEditWindow = 12 * time.Hour
	DefaultUndoWindow = 30 * time.Second
)

// MutationWindow holds the window lengths and the clock they are measured
// against.
type MutationWindow struct {
	Clock Clock
	Edit  time.Duration
	Undo  time.Duration
}

// DefaultMutationWindow returns the 12h/30s policy on the system clock.
func DefaultMutationWindow() MutationWindow {
	return MutationWindow{Clock: SystemClock{}, Edit: DefaultEditWindow, Undo: DefaultUndoWindow}
}

// CanEdit reports whether an entry created at createdAt may still be
// updated or deleted.
func (w MutationWindow) CanEdit(createdAt time.Time) bool {
	return w.Clock.Now().Sub(createdAt) < w.Edit
}

// CanUndo reports whether a deletion stamped at deletedAt may still be
// restored.
func (w MutationWindow) CanUndo(deletedAt time.Time) bool {
	return w.Clock.Now().Sub(deletedAt) < w.Undo
}

// CheckEdit returns EDIT_WINDOW_EXPIRED when e is past its edit window.
func (w MutationWindow) CheckEdit(e Entry) error {
	if w.CanEdit(e.CreatedAt) {
		return nil
	}
	return &Error{
		Kind:    KindEditWindowExpired,
		Message: fmt.Sprintf("entries can only be changed within %s of creation", formatWindow(w.Edit)),
	}
}

// CheckUndo returns UNDO_EXPIRED when e's deletion is past its undo window.
func (w MutationWindow) CheckUndo(e Entry) error {
	if e.DeletedAt != nil && w.CanUndo(*e.DeletedAt) {
		return nil
	}
	return &Error{
		Kind:    KindUndoExpired,
		Message: fmt.Sprintf("deletions can only be undone within %s", formatWindow(w.Undo)),
	}
}

// UndoDeadline is the instant the undo window for a deletion closes.
func (w MutationWindow) UndoDeadline(deletedAt time.Time) time.Time {
	return deletedAt.Add(w.Undo)
}

func formatWindow(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
}
