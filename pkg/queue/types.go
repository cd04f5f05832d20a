package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Delivery is one received task. It must be acknowledged (Ack) after
// successful processing or returned to the queue (Nack) on failure; a
// delivery that is neither acked nor nacked is redelivered after the
// transport's visibility timeout.
type Delivery struct {
	ID      uuid.UUID       `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Producer is the send half of the queue contract. Send with a positive delay
// must hold the task back for at least that long before it becomes
// receivable. Ack and Nack settle deliveries obtained from the Consumer.
type Producer interface {
	Send(ctx context.Context, payload []byte, delay time.Duration) error
	Ack(ctx context.Context, d Delivery) error
	Nack(ctx context.Context, d Delivery) error
}

// Consumer is the receive half of the queue contract. ReceiveAll blocks until
// at least one task is available (or ctx is done) and returns the tasks that
// are ready at that moment, up to the transport's batch limit if it has one.
// Deliveries are at-least-once.
type Consumer interface {
	ReceiveAll(ctx context.Context) ([]Delivery, error)
}

// Transport is a queue backend implementing both halves of the contract.
type Transport interface {
	Producer
	Consumer
}
