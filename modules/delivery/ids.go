package delivery

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifiers are prefixed ULIDs so an id is self-typed and time-ordered:
// msg_..., ep_..., app_..., att_..., msgdest_....
const (
	msgIDPrefix     = "msg_"
	endpointPrefix  = "ep_"
	appIDPrefix     = "app_"
	attemptIDPrefix = "att_"
	msgDestPrefix   = "msgdest_"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newID(prefix string, t time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	entropyMu.Unlock()
	return prefix + id.String()
}

// NewMessageID mints a message id stamped with t.
func NewMessageID(t time.Time) string { return newID(msgIDPrefix, t) }

// NewEndpointID mints an endpoint id stamped with t.
func NewEndpointID(t time.Time) string { return newID(endpointPrefix, t) }

// NewApplicationID mints an application id stamped with t.
func NewApplicationID(t time.Time) string { return newID(appIDPrefix, t) }

// NewAttemptID mints an attempt id stamped with t. Attempt ids share the
// attempt's created_at timestamp, which yields monotonic-ish ordering per
// endpoint.
func NewAttemptID(t time.Time) string { return newID(attemptIDPrefix, t) }

// NewDestinationID mints a message destination id stamped with t.
func NewDestinationID(t time.Time) string { return newID(msgDestPrefix, t) }

// IDPrefix returns the type prefix of a prefixed id, including the
// underscore, or "" when the id carries none.
func IDPrefix(id string) string {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		return id[:i+1]
	}
	return ""
}
