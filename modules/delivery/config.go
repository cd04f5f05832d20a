package delivery

import "time"

// Config holds the delivery core settings.
type Config struct {
	// RetrySchedule is the ordered list of base delays indexed by attempt
	// count. Its length is the maximum number of automatic attempts after
	// the first.
	RetrySchedule []time.Duration `env:"RETRY_SCHEDULE" envSeparator:"," envDefault:"5s,5m,30m,2h,5h,10h,10h"`

	// RequestTimeout bounds each outbound HTTP attempt.
	RequestTimeout time.Duration `env:"WORKER_REQUEST_TIMEOUT" envDefault:"30s"`

	// EndpointFailureDisableAfter is the grace period of continuous failure
	// before an endpoint is disabled automatically.
	EndpointFailureDisableAfter time.Duration `env:"ENDPOINT_FAILURE_DISABLE_AFTER" envDefault:"120h"`

	// WhitelabelHeaders replaces the svix-* header names with webhook-*.
	WhitelabelHeaders bool `env:"WHITELABEL_HEADERS" envDefault:"false"`

	// AppCacheTTL bounds the staleness of the cached sending context.
	AppCacheTTL time.Duration `env:"APP_CACHE_TTL" envDefault:"30s"`

	// AppCacheSize caps how many sending contexts are held in memory.
	AppCacheSize int `env:"APP_CACHE_SIZE" envDefault:"1024"`

	// OperationalWebhookURL receives platform meta-events (attempt failing,
	// attempt exhausted, endpoint disabled). Empty disables emission.
	OperationalWebhookURL string `env:"OPERATIONAL_WEBHOOK_URL"`

	// OperationalWebhookKey is the base64 HMAC key used to sign operational
	// webhooks. When it is empty, operational webhooks are posted with an
	// empty signature header.
	OperationalWebhookKey string `env:"OPERATIONAL_WEBHOOK_KEY"`

	// ShutdownTimeout is how long Run waits for in-flight dispatches to
	// finish after the worker loop stops.
	ShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
