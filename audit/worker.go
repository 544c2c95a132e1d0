package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker persists events off the request path. Events are buffered on a
// channel; a full buffer drops the event with a warning rather than
// blocking a ledger operation.
type Worker struct {
	eventCh chan Event
	logger  Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(logger Logger, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining audit events before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.logger.Save(context.Background(), event); err != nil {
						slog.Error("failed to save audit event during shutdown", "error", err, "event_type", event.Type)
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.logger.Save(w.ctx, event); err != nil {
					slog.Error("failed to save audit event", "error", err, "event_type", event.Type)
				}
			}
		}
	}()
}

// Log queues the event. A full buffer or a stopped worker drops it with
// a warning; the caller is never blocked.
func (w *Worker) Log(event Event) {
	select {
	case <-w.ctx.Done():
		slog.Warn("audit worker stopped, dropping event", "event_type", event.Type)
		return
	default:
	}
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("audit channel full, dropping event", "event_type", event.Type)
	}
}

// Shutdown stops the worker and waits for buffered events to be drained.
// The channel is left open so a straggling Log cannot panic; it is
// dropped by the ctx guard instead.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
