package queue

import "time"

// Config holds the configuration for the task queue transport.
type Config struct {
	// KeyPrefix namespaces the Redis keys of one queue instance.
	KeyPrefix string `env:"QUEUE_KEY_PREFIX" envDefault:"hookrelay"`

	// PollInterval bounds how long a ReceiveAll call blocks before it
	// re-checks the delayed set and the shutdown signal.
	PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"500ms"`

	// BatchSize caps how many tasks a single ReceiveAll call of the Redis
	// transport returns. The memory transport does not apply it and returns
	// every ready task.
	BatchSize int `env:"QUEUE_BATCH_SIZE" envDefault:"20"`

	// VisibilityTimeout is how long a received-but-unsettled delivery stays
	// invisible before it is handed out again. It must exceed the slowest
	// expected dispatch, including the HTTP request timeout.
	VisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT" envDefault:"3m"`
}
