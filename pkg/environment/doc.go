// Package environment carries the deployment environment (development, staging,
// production) through context and exposes a logger extractor so every log line
// is stamped with the environment it was produced in.
package environment
