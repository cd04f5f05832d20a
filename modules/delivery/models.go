package delivery

import (
	"encoding/json"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/signature"
)

// MessageStatus is the delivery state of a destination or attempt. The
// numeric values are part of the persisted schema, so the order is fixed.
type MessageStatus int16

const (
	StatusSuccess MessageStatus = 0
	StatusPending MessageStatus = 1
	StatusFail    MessageStatus = 2
	StatusSending MessageStatus = 3
)

func (s MessageStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusFail:
		return "fail"
	case StatusSending:
		return "sending"
	default:
		return "unknown"
	}
}

// TriggerType records what caused an attempt: the regular scheduler or a
// manual retry requested by an operator.
type TriggerType int16

const (
	TriggerScheduled TriggerType = 0
	TriggerManual    TriggerType = 1
)

func (t TriggerType) String() string {
	if t == TriggerManual {
		return "manual"
	}
	return "scheduled"
}

// Application is the customer-scoped container of endpoints and messages.
type Application struct {
	ID    string
	OrgID string
	UID   *string
}

// Message is an immutable event published against an application.
type Message struct {
	ID        string
	AppID     string
	OrgID     string
	UID       *string
	EventType string
	Channels  []string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// OldSigningKey is a rotated-out endpoint secret kept for verification
// continuity.
type OldSigningKey struct {
	Key       signature.Secret `json:"key"`
	RotatedAt time.Time        `json:"rotated_at"`
}

// Endpoint is a customer-owned URL subscribed to receive messages.
type Endpoint struct {
	ID             string
	AppID          string
	UID            *string
	URL            string
	Headers        map[string]string
	Key            signature.Secret
	OldSigningKeys []OldSigningKey
	FilterTypes    []string
	Channels       []string
	Disabled       bool
	FirstFailureAt *time.Time
}

// signingKeys returns the key vector for one attempt: current key first, then
// rotated keys in storage order (oldest to newest).
func (e *Endpoint) signingKeys() []signature.Secret {
	keys := make([]signature.Secret, 0, 1+len(e.OldSigningKeys))
	keys = append(keys, e.Key)
	for _, old := range e.OldSigningKeys {
		keys = append(keys, old.Key)
	}
	return keys
}

// subscribedTo reports whether the endpoint's event-type filter admits the
// message. An absent filter admits everything.
func (e *Endpoint) subscribedTo(eventType string) bool {
	if len(e.FilterTypes) == 0 {
		return true
	}
	for _, t := range e.FilterTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// listensOn reports whether the endpoint's channel filter intersects the
// message's channels. An absent filter on either side admits the message.
func (e *Endpoint) listensOn(channels []string) bool {
	if len(e.Channels) == 0 || len(channels) == 0 {
		return true
	}
	for _, mc := range channels {
		for _, ec := range e.Channels {
			if mc == ec {
				return true
			}
		}
	}
	return false
}

// MessageDestination is the per-endpoint delivery record for a message.
// Status transitions only through the dispatcher: Pending/Sending into
// Success or Fail; manual retries may move a terminal row back into Sending.
type MessageDestination struct {
	ID          string
	MsgID       string
	EndpointID  string
	Status      MessageStatus
	NextAttempt *time.Time
	CreatedAt   time.Time
}

// MessageAttempt is the append-only record of one HTTP attempt.
// ResponseStatusCode is 0 when the request never produced a response.
type MessageAttempt struct {
	ID                 string
	CreatedAt          time.Time
	EndedAt            *time.Time
	MsgID              string
	EndpointID         string
	MsgDestID          string
	URL                string
	ResponseStatusCode int16
	Response           string
	Status             MessageStatus
	Trigger            TriggerType
}
