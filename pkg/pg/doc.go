// Package pg owns PostgreSQL connectivity for the delivery worker: pool
// creation with startup retries, a healthcheck suitable for readiness probes,
// goose-based schema migrations, and error classification helpers shared by
// the repositories built on top of pgx.
package pg
