package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/async"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

// Processor expands one queue task into per-endpoint dispatches.
type Processor struct {
	repo       Repository
	apps       *appCache
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewProcessor wires a task processor.
func NewProcessor(repo Repository, dispatcher *Dispatcher, cfg Config, log *slog.Logger) *Processor {
	return &Processor{
		repo:       repo,
		apps:       newAppCache(repo, cfg),
		dispatcher: dispatcher,
		log:        log,
	}
}

// ProcessTask runs one queue task to completion. A non-nil return means the
// task must be redelivered (the worker nacks); per-endpoint HTTP failures are
// not task failures — they are rescheduled through the retry queue.
func (p *Processor) ProcessTask(ctx context.Context, task Task) error {
	if task.Kind == TaskHealthCheck {
		return nil
	}

	msg, err := p.repo.MessageByID(ctx, task.MsgID)
	if err != nil {
		return err
	}

	snap, err := p.apps.fetch(ctx, msg.AppID, msg.OrgID)
	if err != nil {
		return err
	}

	endpoints := snap.filteredEndpoints(task.Trigger, msg)
	if task.Kind == TaskMessageV1 {
		targeted := endpoints[:0]
		for _, e := range endpoints {
			if e.ID == task.EndpointID {
				targeted = append(targeted, e)
			}
		}
		endpoints = targeted
	}

	// First expansion: create all destination rows in one batch before any
	// attempt is made, so a crash mid-fan-out leaves resumable state.
	if task.Kind == TaskMessageBatch {
		now := time.Now().UTC()
		dests := make([]MessageDestination, 0, len(endpoints))
		for _, e := range endpoints {
			next := now
			dests = append(dests, MessageDestination{
				ID:          NewDestinationID(now),
				MsgID:       msg.ID,
				EndpointID:  e.ID,
				Status:      StatusSending,
				NextAttempt: &next,
				CreatedAt:   now,
			})
		}
		if err := p.repo.InsertDestinations(ctx, dests); err != nil {
			return err
		}
	}

	ids := dispatchIDs{OrgID: msg.OrgID, AppUID: snap.App.UID, MsgUID: msg.UID}

	futures := make([]*async.Future[struct{}], 0, len(endpoints))
	for _, endp := range endpoints {
		endpointTask := task
		if task.Kind == TaskMessageBatch {
			endpointTask = NewMessageV1Task(msg.ID, task.AppID, endp.ID, 0, task.Trigger)
		}

		futures = append(futures, async.Async(ctx, endp, func(ctx context.Context, endp Endpoint) (struct{}, error) {
			return struct{}{}, p.dispatcher.Dispatch(ctx, endpointTask, ids, msg.Payload, endp)
		}))
	}

	if _, err := async.WaitAll(futures...); err != nil {
		p.log.Error("some dispatches failed unexpectedly",
			logger.MessageID(msg.ID),
			logger.Error(err))
		return err
	}

	return nil
}
