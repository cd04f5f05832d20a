// Package redis provides Redis connectivity for the delivery worker. The same
// client backs both the shared key-value store (endpoint failure streaks) and
// the Redis queue transport, so connection setup and health checking live here
// in one place.
package redis
