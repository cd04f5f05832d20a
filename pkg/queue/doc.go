// Package queue implements the durable task queue the delivery worker
// consumes from. The contract is intentionally small: a Producer sends opaque
// payloads (optionally delayed) and settles deliveries with Ack/Nack, a
// Consumer receives ready batches. Two transports are provided: Memory for
// tests and single-node use, and Redis for shared deployments. Deliveries are
// at-least-once; consumers must tolerate redelivery.
package queue
