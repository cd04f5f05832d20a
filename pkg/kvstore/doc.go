// Package kvstore defines the shared key-value store contract and its three
// backends: Memory (single node, tests), Redis (shared across workers), and
// None (no-op, degrades dependents gracefully). All values carry a TTL and
// key absence is semantically meaningful.
package kvstore
