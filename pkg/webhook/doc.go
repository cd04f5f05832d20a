// Package webhook is the low-level HTTP layer for outbound webhook attempts.
// It knows nothing about persistence or retry schedules: the Client performs
// exactly one POST with redirects disabled and reports the response (or the
// transport error) to the caller, which decides what to record and when to
// retry. Backoff strategies live here for callers that retry inline, such as
// the operational webhook sender.
package webhook
