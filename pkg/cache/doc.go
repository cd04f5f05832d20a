// Package cache provides a generic in-process LRU cache with optional
// per-entry TTL. The task processor uses it to hold short-lived sending
// context snapshots (application + all its endpoints with their keys) so a
// burst of deliveries for one application does not hammer the database.
package cache
