package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/queue"
	"github.com/dmitrymomot/hookrelay/pkg/secrets"
	"github.com/dmitrymomot/hookrelay/pkg/signature"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig() Config {
	return Config{
		RetrySchedule:               []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond},
		RequestTimeout:              2 * time.Second,
		EndpointFailureDisableAfter: time.Hour,
		AppCacheTTL:                 30 * time.Second,
		AppCacheSize:                16,
		ShutdownTimeout:             time.Second,
	}
}

func testSecret(t *testing.T) signature.Secret {
	t.Helper()
	key, err := signature.NewHmacSecret(secrets.NewNoop(), []byte("test-signing-key"))
	require.NoError(t, err)
	return key
}

// memRepo is an in-memory Repository for tests.
type memRepo struct {
	mu        sync.Mutex
	messages  map[string]*Message
	apps      map[string]*Application
	endpoints map[string][]Endpoint
	dests     map[string]*MessageDestination
	attempts  []MessageAttempt
	disabled  map[string]time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		messages:  make(map[string]*Message),
		apps:      make(map[string]*Application),
		endpoints: make(map[string][]Endpoint),
		dests:     make(map[string]*MessageDestination),
		disabled:  make(map[string]time.Time),
	}
}

func (r *memRepo) addMessage(m *Message) { r.messages[m.ID] = m }

func (r *memRepo) addApp(a *Application) { r.apps[a.ID] = a }

func (r *memRepo) addEndpoint(e Endpoint) {
	r.endpoints[e.AppID] = append(r.endpoints[e.AppID], e)
}

func (r *memRepo) addDestination(d *MessageDestination) { r.dests[d.ID] = d }

func (r *memRepo) MessageByID(_ context.Context, msgID string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[msgID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) ApplicationByID(_ context.Context, appID, orgID string) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[appID]
	if !ok || a.OrgID != orgID {
		return nil, ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) EndpointsByApp(_ context.Context, appID string) ([]Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Endpoint(nil), r.endpoints[appID]...), nil
}

func (r *memRepo) DestinationByMsgAndEndpoint(_ context.Context, msgID, endpointID string) (*MessageDestination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.dests {
		if d.MsgID == msgID && d.EndpointID == endpointID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrDestinationNotFound
}

func (r *memRepo) InsertDestinations(_ context.Context, dests []MessageDestination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dests {
		cp := d
		r.dests[d.ID] = &cp
	}
	return nil
}

func (r *memRepo) UpdateDestination(_ context.Context, destID string, status MessageStatus, nextAttempt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dests[destID]
	if !ok {
		return ErrDestinationNotFound
	}
	d.Status = status
	d.NextAttempt = nextAttempt
	return nil
}

func (r *memRepo) InsertAttempt(_ context.Context, attempt *MessageAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *memRepo) DisableEndpoint(_ context.Context, appID, endpointID string, firstFailureAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.endpoints[appID] {
		if e.ID == endpointID {
			r.endpoints[appID][i].Disabled = true
			r.endpoints[appID][i].FirstFailureAt = &firstFailureAt
			r.disabled[endpointID] = firstFailureAt
			return nil
		}
	}
	return ErrEndpointNotFound
}

func (r *memRepo) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

func (r *memRepo) lastAttempt() MessageAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[len(r.attempts)-1]
}

func (r *memRepo) destination(destID string) MessageDestination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.dests[destID]
}

var _ Repository = (*memRepo)(nil)

// sentTask is one recorded retry enqueue.
type sentTask struct {
	Task  Task
	Delay time.Duration
}

// memProducer records retry enqueues.
type memProducer struct {
	mu   sync.Mutex
	sent []sentTask
}

func (p *memProducer) Send(_ context.Context, payload []byte, delay time.Duration) error {
	var task Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentTask{Task: task, Delay: delay})
	return nil
}

func (p *memProducer) Ack(context.Context, queue.Delivery) error  { return nil }
func (p *memProducer) Nack(context.Context, queue.Delivery) error { return nil }

func (p *memProducer) sentTasks() []sentTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentTask(nil), p.sent...)
}

var _ queue.Producer = (*memProducer)(nil)

// opRecorder captures operational webhook events.
type opRecorder struct {
	mu     sync.Mutex
	events []OperationalWebhookEvent
}

func (r *opRecorder) Send(_ context.Context, _ string, event OperationalWebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *opRecorder) recorded() []OperationalWebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OperationalWebhookEvent(nil), r.events...)
}

func (r *opRecorder) ofType(eventType string) []OperationalWebhookEvent {
	var out []OperationalWebhookEvent
	for _, e := range r.recorded() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

var _ OpEventSender = (*opRecorder)(nil)
