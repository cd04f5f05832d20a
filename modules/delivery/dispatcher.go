package delivery

import (
	"context"
	"encoding/base64"
	"log/slog"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/queue"
	"github.com/dmitrymomot/hookrelay/pkg/secrets"
	"github.com/dmitrymomot/hookrelay/pkg/signature"
	"github.com/dmitrymomot/hookrelay/pkg/webhook"
)

// jitterDelta is the maximum deviation from the retry schedule when a failed
// attempt is re-enqueued, as a fraction of the base delay.
const jitterDelta = 0.2

// failingEventAfter is the attempt count at which a MessageAttemptFailing
// operational webhook is emitted while retries are still scheduled.
const failingEventAfter = 4

// Dispatcher performs a single-endpoint delivery attempt: sign, POST, record
// the attempt, update the destination, and either clear or advance the retry
// and health-tracking state.
type Dispatcher struct {
	cfg      Config
	enc      secrets.Encryption
	repo     Repository
	client   *webhook.Client
	producer queue.Producer
	health   *HealthTracker
	opSender OpEventSender
	log      *slog.Logger
}

// NewDispatcher wires a dispatcher. The webhook client is built here so every
// dispatch shares one redirect-free pooled transport with the configured
// request timeout.
func NewDispatcher(
	cfg Config,
	enc secrets.Encryption,
	repo Repository,
	producer queue.Producer,
	health *HealthTracker,
	opSender OpEventSender,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		enc:      enc,
		repo:     repo,
		client:   webhook.NewClient(cfg.RequestTimeout),
		producer: producer,
		health:   health,
		opSender: opSender,
		log:      log,
	}
}

// dispatchIDs carries identifiers that only matter for operational webhook
// payloads.
type dispatchIDs struct {
	OrgID  string
	AppUID *string
	MsgUID *string
}

// Dispatch runs one attempt of task against endp. A non-nil return means an
// infrastructure failure (DB, store, queue); HTTP failures are handled by
// scheduling a retry and return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task, ids dispatchIDs, payload []byte, endp Endpoint) error {
	now := time.Now().UTC()

	signatures, err := signature.Sign(d.enc, task.MsgID, now.Unix(), payload, endp.signingKeys())
	if err != nil {
		// Decryption failure is a configuration bug; fail the task.
		return err
	}
	headers := buildHeaders(now.Unix(), task.MsgID, signatures, d.cfg.WhitelabelHeaders, endp.Headers, d.log)

	resp, httpErr := d.client.Post(ctx, endp.URL, headers, payload)

	msgDest, err := d.repo.DestinationByMsgAndEndpoint(ctx, task.MsgID, task.EndpointID)
	if err != nil {
		return err
	}

	// A destination that is already terminal means this delivery is a
	// duplicate caused by a re-enqueue; skip it silently. Manual retries
	// always proceed.
	if msgDest.Status != StatusPending && msgDest.Status != StatusSending && task.Trigger != TriggerManual {
		d.log.Warn("message destination is not pending, skipping duplicate delivery",
			slog.String("msg_dest_id", msgDest.ID),
			slog.String("status", msgDest.Status.String()))
		return nil
	}

	ended := time.Now().UTC()
	attempt := &MessageAttempt{
		// Attempt id and created_at share the dispatch timestamp.
		ID:         NewAttemptID(now),
		CreatedAt:  now,
		EndedAt:    &ended,
		MsgID:      task.MsgID,
		EndpointID: endp.ID,
		MsgDestID:  msgDest.ID,
		URL:        endp.URL,
		Trigger:    task.Trigger,
	}

	succeeded := false
	switch {
	case httpErr != nil:
		attempt.ResponseStatusCode = 0
		attempt.Response = httpErr.Error()
		attempt.Status = StatusFail
	default:
		attempt.ResponseStatusCode = int16(resp.StatusCode)
		attempt.Response = bytesToString(resp.Body)
		if resp.Success() {
			attempt.Status = StatusSuccess
			succeeded = true
		} else {
			attempt.Status = StatusFail
		}
	}

	// The attempt row is recorded for every HTTP call, success or failure,
	// before the destination is touched.
	if err := d.repo.InsertAttempt(ctx, attempt); err != nil {
		return err
	}

	if succeeded {
		return d.handleSuccess(ctx, task, msgDest, endp)
	}
	return d.handleFailure(ctx, task, ids, msgDest, endp, attempt)
}

func (d *Dispatcher) handleSuccess(ctx context.Context, task Task, msgDest *MessageDestination, endp Endpoint) error {
	if err := d.repo.UpdateDestination(ctx, msgDest.ID, StatusSuccess, nil); err != nil {
		return err
	}
	if err := d.health.OnSuccess(ctx, task.AppID, task.EndpointID); err != nil {
		return err
	}

	d.log.Debug("delivery succeeded",
		slog.String("msg_dest_id", msgDest.ID),
		logger.EndpointID(endp.ID))
	return nil
}

func (d *Dispatcher) handleFailure(ctx context.Context, task Task, ids dispatchIDs, msgDest *MessageDestination, endp Endpoint, attempt *MessageAttempt) error {
	attemptCount := int(task.AttemptCount)

	switch {
	case task.Trigger == TriggerManual:
		// Manual retries never reschedule and never touch the failure streak.
		d.log.Debug("manual retry failed",
			slog.String("msg_dest_id", msgDest.ID),
			logger.EndpointID(endp.ID))
		return nil

	case attemptCount < len(d.cfg.RetrySchedule):
		delay := jittered(d.cfg.RetrySchedule[attemptCount])

		nextAttempt := time.Now().UTC().Add(delay)
		if err := d.repo.UpdateDestination(ctx, msgDest.ID, msgDest.Status, &nextAttempt); err != nil {
			return err
		}

		if attemptCount == failingEventAfter {
			d.opSender.Send(ctx, ids.OrgID, NewMessageAttemptFailingEvent(task, ids, attempt))
		}

		d.log.Debug("delivery failed, retry scheduled",
			slog.String("msg_dest_id", msgDest.ID),
			logger.EndpointID(endp.ID),
			logger.AttemptCount(attemptCount),
			logger.Duration(delay))

		retry := NewMessageV1Task(task.MsgID, task.AppID, task.EndpointID, task.AttemptCount+1, task.Trigger)
		encoded, err := retry.Encode()
		if err != nil {
			return err
		}
		return d.producer.Send(ctx, encoded, delay)

	default:
		if err := d.repo.UpdateDestination(ctx, msgDest.ID, StatusFail, nil); err != nil {
			return err
		}

		d.opSender.Send(ctx, ids.OrgID, NewMessageAttemptExhaustedEvent(task, ids, attempt))

		firstFailureAt, err := d.health.OnFailure(ctx, task.AppID, task.EndpointID, d.cfg.EndpointFailureDisableAfter)
		if err != nil {
			return err
		}
		if firstFailureAt == nil {
			return nil
		}

		d.opSender.Send(ctx, ids.OrgID, NewEndpointDisabledEvent(task, ids, endp, *firstFailureAt))

		d.log.Info("endpoint disabled after sustained failure",
			logger.AppID(task.AppID),
			logger.EndpointID(task.EndpointID),
			slog.Time("fail_since", *firstFailureAt))

		return d.repo.DisableEndpoint(ctx, task.AppID, task.EndpointID, *firstFailureAt)
	}
}

// jittered draws uniformly from [base*(1-jitterDelta), base*(1+jitterDelta)].
func jittered(base time.Duration) time.Duration {
	factor := 1 - jitterDelta + 2*jitterDelta*rand.Float64()
	return time.Duration(float64(base) * factor)
}

// bytesToString keeps the stored response printable: valid UTF-8 is stored
// as-is, anything else is base64-encoded.
func bytesToString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}
