package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned when a control keeps receiving invalid
	// answers.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
	// ErrDeclined is returned when the user declines the final submit
	// confirmation.
	ErrDeclined = errors.New("tui: submission declined")
)
