package popnet

import "errors"

var (
	// ErrTooManyParents reports an attempt to give a segment a third
	// parent.
	ErrTooManyParents = errors.New("segment already has two parents")

	// ErrTooManyChildren reports an attempt to give a segment a third
	// child.
	ErrTooManyChildren = errors.New("segment already has two children")

	// ErrDateMismatch reports parent/child intervals that do not
	// abut: a child starting after its parent, or an end time that is
	// not the same parameter as the parent's start.
	ErrDateMismatch = errors.New("date mismatch between segments")

	// ErrMultipleRoots reports a network whose parent chains diverge
	// to more than one root.
	ErrMultipleRoots = errors.New("population network has multiple roots")

	// ErrInfeasible reports parameters outside bounds or a violated
	// time ordering.
	ErrInfeasible = errors.New("infeasible population network")
)
