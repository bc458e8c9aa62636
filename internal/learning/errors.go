package learning

import "errors"

// Domain errors for the learning package, checked with errors.Is().
var (
	// ErrCommandNotFound is returned when a command ID does not exist.
	ErrCommandNotFound = errors.New("learning: command not found")

	// ErrDuplicateName is returned when a command name (case-insensitive)
	// already exists for the device.
	ErrDuplicateName = errors.New("learning: duplicate command name")

	// ErrLearningInProgress is returned when a capture session is already
	// in flight for the device.
	ErrLearningInProgress = errors.New("learning: capture already in progress")

	// ErrNotLearned is returned when an operation requires a learned code
	// but the command is still a placeholder.
	ErrNotLearned = errors.New("learning: command not learned")

	// ErrUnknownTemplate is returned when a template name is not known.
	ErrUnknownTemplate = errors.New("learning: unknown template")
)
