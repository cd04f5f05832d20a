// Package async provides generic helpers for running computations
// asynchronously and waiting for their completion.
//
// The package is centred around the generic Future type. Async starts the
// supplied function in its own goroutine and immediately returns a *Future;
// the caller waits with Await or AwaitWithTimeout. WaitAll coordinates a
// fan-out: it always awaits every future (no fail-fast), which is what the
// task processor relies on so that a nack never races still-running
// dispatches.
package async
