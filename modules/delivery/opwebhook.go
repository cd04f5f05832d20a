package delivery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/secrets"
	"github.com/dmitrymomot/hookrelay/pkg/signature"
	"github.com/dmitrymomot/hookrelay/pkg/webhook"
)

// Operational webhook event types.
const (
	EventMessageAttemptFailing   = "message.attempt.failing"
	EventMessageAttemptExhausted = "message.attempt.exhausted"
	EventEndpointDisabled        = "endpoint.disabled"
)

// OperationalWebhookEvent is one platform meta-event addressed to an
// organization's operational endpoints.
type OperationalWebhookEvent struct {
	Type  string `json:"type"`
	OrgID string `json:"org_id"`
	Data  any    `json:"data"`
}

// AttemptInfo is the slice of an attempt embedded in operational payloads.
type AttemptInfo struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	ResponseStatusCode int16     `json:"response_status_code"`
	Timestamp          time.Time `json:"timestamp"`
}

// MessageAttemptEvent is the payload of the attempt-failing and
// attempt-exhausted events.
type MessageAttemptEvent struct {
	AppID       string      `json:"app_id"`
	AppUID      *string     `json:"app_uid,omitempty"`
	EndpointID  string      `json:"endpoint_id"`
	MsgID       string      `json:"msg_id"`
	MsgEventID  *string     `json:"msg_event_id,omitempty"`
	LastAttempt AttemptInfo `json:"last_attempt"`
}

// EndpointDisabledEvent is the payload emitted when an endpoint is disabled
// after its failure grace period lapsed.
type EndpointDisabledEvent struct {
	AppID       string    `json:"app_id"`
	AppUID      *string   `json:"app_uid,omitempty"`
	EndpointID  string    `json:"endpoint_id"`
	EndpointUID *string   `json:"endpoint_uid,omitempty"`
	FailSince   time.Time `json:"fail_since"`
}

func attemptInfo(attempt *MessageAttempt) AttemptInfo {
	return AttemptInfo{
		ID:                 attempt.ID,
		URL:                attempt.URL,
		ResponseStatusCode: attempt.ResponseStatusCode,
		Timestamp:          attempt.CreatedAt,
	}
}

// NewMessageAttemptFailingEvent reports a delivery that keeps failing while
// retries are still scheduled.
func NewMessageAttemptFailingEvent(task Task, ids dispatchIDs, attempt *MessageAttempt) OperationalWebhookEvent {
	return OperationalWebhookEvent{
		Type:  EventMessageAttemptFailing,
		OrgID: ids.OrgID,
		Data: MessageAttemptEvent{
			AppID:       task.AppID,
			AppUID:      ids.AppUID,
			EndpointID:  task.EndpointID,
			MsgID:       task.MsgID,
			MsgEventID:  ids.MsgUID,
			LastAttempt: attemptInfo(attempt),
		},
	}
}

// NewMessageAttemptExhaustedEvent reports a delivery whose retry schedule ran out.
func NewMessageAttemptExhaustedEvent(task Task, ids dispatchIDs, attempt *MessageAttempt) OperationalWebhookEvent {
	return OperationalWebhookEvent{
		Type:  EventMessageAttemptExhausted,
		OrgID: ids.OrgID,
		Data: MessageAttemptEvent{
			AppID:       task.AppID,
			AppUID:      ids.AppUID,
			EndpointID:  task.EndpointID,
			MsgID:       task.MsgID,
			MsgEventID:  ids.MsgUID,
			LastAttempt: attemptInfo(attempt),
		},
	}
}

// NewEndpointDisabledEvent reports an endpoint auto-disabled by the health tracker.
func NewEndpointDisabledEvent(task Task, ids dispatchIDs, endp Endpoint, failSince time.Time) OperationalWebhookEvent {
	return OperationalWebhookEvent{
		Type:  EventEndpointDisabled,
		OrgID: ids.OrgID,
		Data: EndpointDisabledEvent{
			AppID:       task.AppID,
			AppUID:      ids.AppUID,
			EndpointID:  task.EndpointID,
			EndpointUID: endp.UID,
			FailSince:   failSince,
		},
	}
}

// OpEventSender is the dispatcher's view of the operational webhook
// collaborator. Send blocks until the event settled; it never reports
// failure because operational webhooks must not affect delivery outcomes.
type OpEventSender interface {
	Send(ctx context.Context, orgID string, event OperationalWebhookEvent)
}

// opWebhookMaxRetries bounds the inline retries of one operational send.
const opWebhookMaxRetries = 2

// OperationalWebhookSender posts platform meta-events to the configured
// operational endpoint. Sends are best-effort: failures are logged and never
// escalate the outcome of the delivery that produced the event. A sender
// without a configured URL drops every event.
type OperationalWebhookSender struct {
	client  *webhook.Client
	backoff webhook.BackoffStrategy
	url     string
	key     *signature.Secret
	enc     secrets.Encryption
	log     *slog.Logger
}

// NewOperationalWebhookSender builds the sender from config. The signing key
// is the base64-encoded HMAC secret from OperationalWebhookKey.
func NewOperationalWebhookSender(cfg Config, enc secrets.Encryption, log *slog.Logger) (*OperationalWebhookSender, error) {
	s := &OperationalWebhookSender{
		client:  webhook.NewClient(cfg.RequestTimeout),
		backoff: webhook.DefaultBackoffStrategy(),
		url:     cfg.OperationalWebhookURL,
		enc:     enc,
		log:     log,
	}

	if cfg.OperationalWebhookURL != "" && cfg.OperationalWebhookKey != "" {
		raw, err := base64.StdEncoding.DecodeString(cfg.OperationalWebhookKey)
		if err != nil {
			return nil, err
		}
		key, err := signature.NewHmacSecret(enc, raw)
		if err != nil {
			return nil, err
		}
		s.key = &key
	}

	return s, nil
}

var _ OpEventSender = (*OperationalWebhookSender)(nil)

// Send serializes and posts the event. It blocks until the send settled
// (delivered, or retries spent) but never returns an error.
func (s *OperationalWebhookSender) Send(ctx context.Context, orgID string, event OperationalWebhookEvent) {
	if s.url == "" {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to serialize operational webhook", logger.Error(err), logger.OrgID(orgID))
		return
	}

	now := time.Now().UTC()
	msgID := NewMessageID(now)

	var keys []signature.Secret
	if s.key != nil {
		keys = []signature.Secret{*s.key}
	}
	signatures, err := signature.Sign(s.enc, msgID, now.Unix(), body, keys)
	if err != nil {
		s.log.Error("failed to sign operational webhook", logger.Error(err), logger.OrgID(orgID))
		return
	}

	headers := buildHeaders(now.Unix(), msgID, signatures, false, nil, s.log)

	for attempt := 0; ; attempt++ {
		resp, err := s.client.Post(ctx, s.url, headers, body)
		if err == nil && resp.Success() {
			return
		}
		if attempt >= opWebhookMaxRetries {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			s.log.Warn("operational webhook delivery failed",
				slog.String("event_type", event.Type),
				logger.OrgID(orgID),
				logger.StatusCode(status),
				logger.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff.NextInterval(attempt + 1)):
		}
	}
}
