package timer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the current phase.
	// Callers may log and ignore it.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoSplitToUndo is returned by UndoSplit on the first segment.
	ErrNoSplitToUndo = fmt.Errorf("%w: no split to undo", ErrInvalidTransition)
	// ErrSkipLastSegment is returned by SkipSplit on the last segment.
	ErrSkipLastSegment = fmt.Errorf("%w: cannot skip the last segment", ErrInvalidTransition)
	// ErrEmptyRun is returned when a timer is built over a run without segments.
	ErrEmptyRun = errors.New("run has no segments")
	// ErrUnknownComparison is returned when selecting a comparison that is not available.
	ErrUnknownComparison = errors.New("unknown comparison")
)

// TransitionError records the operation and phase of a rejected transition.
type TransitionError struct {
	Op    string
	Phase Phase
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s while %s: %v", e.Op, e.Phase, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func invalid(op string, phase Phase) error {
	return &TransitionError{Op: op, Phase: phase, Err: ErrInvalidTransition}
}
