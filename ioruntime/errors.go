package ioruntime

import "errors"

var (
	// ErrDoubleArm is the panic value AddEvent raises when the
	// requested event is already armed on that fd — arming a fd/event
	// pair twice is a programming bug, not a recoverable condition.
	ErrDoubleArm = errors.New("ioruntime: event already armed")

	// ErrNotArmed is returned by DelEvent/CancelEvent when the
	// requested event isn't currently armed on that fd.
	ErrNotArmed = errors.New("ioruntime: event not armed")

	// ErrTooManyArmed is returned by AddEvent when the configured
	// ioruntime.max_armed_events ceiling is already held.
	ErrTooManyArmed = errors.New("ioruntime: too many armed events")
)
