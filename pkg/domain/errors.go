package domain

import "errors"

var (
	// ErrValidation is returned for bad or missing tool arguments and paths escaping the project root.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when an operation requires a file or directory that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a destination already exists or a SEARCH block is absent or ambiguous.
	ErrConflict = errors.New("conflict")

	// ErrTransport is returned for network and authentication failures talking to the model.
	ErrTransport = errors.New("transport error")

	// ErrParse marks a response that matched no recognized schema.
	ErrParse = errors.New("parse error")

	// ErrLimitExceeded is returned when the iteration or file-size ceiling is hit.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrUnknownTool is returned when a tool call names no registered tool.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrRunInProgress is returned when a run is started or resumed while another is active.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrNotAwaiting is returned when an answer or decision arrives while the run is not waiting for one.
	ErrNotAwaiting = errors.New("run is not awaiting input")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)
