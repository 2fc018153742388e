package nav

import "errors"

var (
	// ErrUnknownAction is returned for action types the engine cannot handle.
	ErrUnknownAction = errors.New("nav: unknown action type")

	// ErrNoTarget is returned for a seek action without a target object.
	ErrNoTarget = errors.New("nav: seek action requires a target object")

	// ErrUnknownPattern is returned when selecting an exploration pattern
	// the engine does not implement.
	ErrUnknownPattern = errors.New("nav: unknown exploration pattern")
)
