package engine

import "errors"

var (
	// ErrInvalidArgument reports a caller bug such as a bad deal count.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidIndex reports a pile reference outside 0..NumPiles-1.
	ErrInvalidIndex = errors.New("invalid pile index")
	// ErrIllegalMove reports a rule violation; state is left unchanged.
	ErrIllegalMove = errors.New("illegal move")
	// ErrStaleUndo reports that the board changed since the undo record was taken.
	// The record is dropped.
	ErrStaleUndo = errors.New("stale undo state")
)
