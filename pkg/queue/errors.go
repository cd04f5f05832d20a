package queue

import "errors"

var (
	// ErrQueueClosed is returned when operating on a closed transport.
	ErrQueueClosed = errors.New("queue transport is closed")

	// ErrUnknownDelivery is returned when settling a delivery the transport
	// does not consider in flight. Usually the visibility timeout expired and
	// the task was already redelivered.
	ErrUnknownDelivery = errors.New("delivery is not in flight")

	// ErrEmptyPayload is returned when attempting to send an empty payload.
	ErrEmptyPayload = errors.New("payload cannot be empty")
)
