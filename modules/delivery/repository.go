package delivery

import (
	"context"
	"time"
)

// Repository is the persistence surface the delivery core needs. The worker
// only ever touches individual rows; the one batched write is the initial
// destination insert on batch expansion.
type Repository interface {
	// MessageByID loads a message. Returns ErrMessageNotFound when absent.
	MessageByID(ctx context.Context, msgID string) (*Message, error)

	// ApplicationByID loads an application scoped to its organization.
	// Returns ErrApplicationNotFound when absent.
	ApplicationByID(ctx context.Context, appID, orgID string) (*Application, error)

	// EndpointsByApp lists every endpoint of an application, including
	// disabled ones; filtering is the processor's concern.
	EndpointsByApp(ctx context.Context, appID string) ([]Endpoint, error)

	// DestinationByMsgAndEndpoint loads the destination row for a
	// (message, endpoint) pair. Returns ErrDestinationNotFound when absent.
	DestinationByMsgAndEndpoint(ctx context.Context, msgID, endpointID string) (*MessageDestination, error)

	// InsertDestinations writes all destination rows of a batch expansion in
	// one batched round trip.
	InsertDestinations(ctx context.Context, dests []MessageDestination) error

	// UpdateDestination sets the status and next_attempt of a destination.
	UpdateDestination(ctx context.Context, destID string, status MessageStatus, nextAttempt *time.Time) error

	// InsertAttempt appends one attempt row. Attempts are immutable.
	InsertAttempt(ctx context.Context, attempt *MessageAttempt) error

	// DisableEndpoint marks the endpoint disabled and records when its
	// failure streak started. Returns ErrEndpointNotFound when absent.
	DisableEndpoint(ctx context.Context, appID, endpointID string, firstFailureAt time.Time) error
}
