package fiber

import "errors"

var (
	// ErrAlreadyExec is returned by SwapIn when the fiber is already
	// running.
	ErrAlreadyExec = errors.New("fiber: already executing")

	// ErrNotResettable is returned by Reset when the fiber isn't in
	// {Init, Term, Excep}, or isn't an owned (stack-bearing) fiber.
	ErrNotResettable = errors.New("fiber: not resettable in current state")
)
