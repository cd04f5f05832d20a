// Package delivery is the webhook delivery core: the worker loop that
// consumes tasks from the durable queue, the task processor that expands a
// message into per-endpoint dispatches, the dispatcher that signs and posts a
// single attempt, the retry scheduler with jittered backoff, and the health
// tracker that disables chronically failing endpoints.
//
// Delivery is at-least-once. Every HTTP attempt is recorded before the
// destination row moves; duplicate deliveries caused by queue redelivery are
// suppressed by the destination-status idempotency check. Ordering is
// best-effort only: retries rejoin the queue tail with a scheduled-after
// delay.
package delivery
