package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTransport is an in-process queue for tests and single-node
// deployments. Delayed sends are parked until due; unsettled deliveries are
// redelivered after the visibility timeout.
type MemoryTransport struct {
	mu       sync.Mutex
	ready    []Delivery
	delayed  map[uuid.UUID]*time.Timer
	inflight map[uuid.UUID]inflightDelivery
	notify   chan struct{}
	closed   bool

	visibilityTimeout time.Duration
	pollInterval      time.Duration
}

type inflightDelivery struct {
	delivery Delivery
	deadline time.Time
}

// NewMemoryTransport creates an in-memory queue transport.
func NewMemoryTransport(cfg Config) *MemoryTransport {
	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = 3 * time.Minute
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &MemoryTransport{
		delayed:           make(map[uuid.UUID]*time.Timer),
		inflight:          make(map[uuid.UUID]inflightDelivery),
		notify:            make(chan struct{}, 1),
		visibilityTimeout: visibility,
		pollInterval:      poll,
	}
}

// Close stops the transport. Pending timers are cancelled; parked tasks are lost.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	for id, timer := range t.delayed {
		timer.Stop()
		delete(t.delayed, id)
	}
	return nil
}

func (t *MemoryTransport) Send(_ context.Context, payload []byte, delay time.Duration) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrQueueClosed
	}

	d := Delivery{ID: uuid.New(), Payload: append([]byte(nil), payload...)}
	if delay <= 0 {
		t.ready = append(t.ready, d)
		t.wake()
		return nil
	}

	id := d.ID
	t.delayed[id] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		delete(t.delayed, id)
		t.ready = append(t.ready, d)
		t.wake()
	})
	return nil
}

func (t *MemoryTransport) Ack(_ context.Context, d Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.inflight[d.ID]; !ok {
		return ErrUnknownDelivery
	}
	delete(t.inflight, d.ID)
	return nil
}

func (t *MemoryTransport) Nack(_ context.Context, d Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	inflight, ok := t.inflight[d.ID]
	if !ok {
		return ErrUnknownDelivery
	}
	delete(t.inflight, d.ID)
	t.ready = append(t.ready, inflight.delivery)
	t.wake()
	return nil
}

// ReceiveAll blocks until at least one task is ready, then drains and returns
// all of them. Returned deliveries are in flight until settled.
func (t *MemoryTransport) ReceiveAll(ctx context.Context) ([]Delivery, error) {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, ErrQueueClosed
		}

		t.requeueExpiredLocked(time.Now())

		if len(t.ready) > 0 {
			batch := t.ready
			t.ready = nil
			deadline := time.Now().Add(t.visibilityTimeout)
			for _, d := range batch {
				t.inflight[d.ID] = inflightDelivery{delivery: d, deadline: deadline}
			}
			t.mu.Unlock()
			return batch, nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.notify:
		case <-time.After(t.pollInterval):
		}
	}
}

// requeueExpiredLocked returns deliveries whose visibility timeout has lapsed
// to the ready list. Must be called with the lock held.
func (t *MemoryTransport) requeueExpiredLocked(now time.Time) {
	for id, inflight := range t.inflight {
		if now.After(inflight.deadline) {
			delete(t.inflight, id)
			t.ready = append(t.ready, inflight.delivery)
		}
	}
}

func (t *MemoryTransport) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}
