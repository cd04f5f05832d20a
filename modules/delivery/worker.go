package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/queue"
)

// consumerErrorBackoff is the pause after a transient queue receive error.
const consumerErrorBackoff = 10 * time.Millisecond

// Worker is the long-running queue consumer. It pulls task batches, spawns
// one goroutine per delivery, and settles each delivery with ack on success
// or nack on error. Each receive returns at most what the queue hands out in
// one batch; the loop itself never blocks on task execution, so deliveries
// from successive batches run concurrently without a cap.
type Worker struct {
	transport queue.Transport
	processor *Processor
	cfg       Config
	log       *slog.Logger

	stopping atomic.Bool
	wg       sync.WaitGroup
}

// NewWorker wires a worker loop.
func NewWorker(transport queue.Transport, processor *Processor, cfg Config, log *slog.Logger) *Worker {
	return &Worker{
		transport: transport,
		processor: processor,
		cfg:       cfg,
		log:       log,
	}
}

// Shutdown flags the loop to stop. The current batch is nacked back to the
// queue and Run returns after in-flight deliveries settle or the shutdown
// timeout lapses.
func (w *Worker) Shutdown() {
	w.stopping.Store(true)
}

// Run consumes until ctx is cancelled or Shutdown is called. It always
// returns nil after a clean drain; queue receive errors are retried.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", logger.Component("worker"))

	for {
		batch, err := w.transport.ReceiveAll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
				break
			}
			w.log.Error("error receiving tasks", logger.Error(err))
			time.Sleep(consumerErrorBackoff)
			continue
		}

		if w.stopping.Load() || ctx.Err() != nil {
			w.nackBatch(batch)
			break
		}

		for _, d := range batch {
			w.wg.Add(1)
			go func(d queue.Delivery) {
				defer w.wg.Done()
				w.handleDelivery(ctx, d)
			}(d)
		}
	}

	w.drain()
	w.log.Info("worker stopped", logger.Component("worker"))
	return nil
}

func (w *Worker) handleDelivery(ctx context.Context, d queue.Delivery) {
	task, err := DecodeTask(d.Payload)
	if err != nil {
		// A payload that cannot decode will never succeed; drop it.
		w.log.Error("dropping malformed task", logger.DeliveryID(d.ID), logger.Error(err))
		if err := w.transport.Ack(ctx, d); err != nil {
			w.log.Error("error acking malformed task", logger.DeliveryID(d.ID), logger.Error(err))
		}
		return
	}

	if err := w.processor.ProcessTask(ctx, task); err != nil {
		w.log.Error("error executing task",
			logger.DeliveryID(d.ID),
			slog.String("task_kind", string(task.Kind)),
			logger.MessageID(task.MsgID),
			logger.Error(err))
		if err := w.transport.Nack(ctx, d); err != nil {
			w.log.Error("error nacking task", logger.DeliveryID(d.ID), logger.Error(err))
		}
		return
	}

	if err := w.transport.Ack(ctx, d); err != nil {
		w.log.Error("error acking task", logger.DeliveryID(d.ID), logger.Error(err))
	}
}

// nackBatch returns an entire received batch to the queue, used when the
// shutdown flag is observed after a receive.
func (w *Worker) nackBatch(batch []queue.Delivery) {
	// The run context may already be cancelled; settling must still reach
	// the transport.
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
	defer cancel()

	for _, d := range batch {
		if err := w.transport.Nack(ctx, d); err != nil {
			w.log.Error("error nacking task during shutdown", logger.DeliveryID(d.ID), logger.Error(err))
		}
	}
}

// drain waits for in-flight deliveries with the configured grace period.
// Deliveries that outlive it are redelivered by the queue's visibility
// timeout, and the idempotency check suppresses their duplicates.
func (w *Worker) drain() {
	timeout := w.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		w.log.Warn("shutdown grace period lapsed with deliveries in flight")
	}
}
