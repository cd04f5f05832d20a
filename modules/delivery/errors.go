package delivery

import "errors"

var (
	// ErrMessageNotFound is returned when a queue task references a message
	// that does not exist. This should never happen and fails the task.
	ErrMessageNotFound = errors.New("message not found")

	// ErrApplicationNotFound is returned when the sending context cannot be
	// resolved for a task's application.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrDestinationNotFound is returned when a dispatch cannot find the
	// destination row for its (message, endpoint) pair.
	ErrDestinationNotFound = errors.New("message destination not found")

	// ErrEndpointNotFound is returned when disabling an endpoint that no
	// longer exists.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrMalformedTask is returned for queue payloads that do not decode into
	// a known task shape. Such tasks are logged and dropped.
	ErrMalformedTask = errors.New("malformed queue task")
)
