package services

import (
	"context"
	"errors"
	"time"

	"sp-export/logger"
	"sp-export/models"
)

const popTimeout = 5 * time.Second

// Worker drains the export queue one request at a time.
type Worker struct {
	queue   Queue
	exports *ExportService
	log     logger.Logger
}

func NewWorker(queue Queue, exports *ExportService, log logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	return &Worker{queue: queue, exports: exports, log: log}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", logger.Ctx{"queue": QueueKey})

	for {
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return nil
		}

		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker stopped")
				return nil
			}
			w.log.Error("error reading from queue", logger.Ctx{"err": err.Error()})
			// back off while the queue is unreachable
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext waits for one request and runs it. It reports false when the
// wait timed out with nothing to do.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	req, err := w.queue.Pop(ctx, popTimeout)
	if err != nil {
		if errors.Is(err, ErrQueueEmpty) {
			return false, nil
		}
		return false, err
	}

	w.log.Info("processing invocation", logger.Ctx{
		"invocation": req.InvocationID,
		"queued_for": time.Since(req.QueuedAt).String(),
	})

	inv, runErr := w.exports.RunWithID(ctx, req.InvocationID)
	w.log.Info("finished invocation", logger.Ctx{
		"invocation": inv.ID,
		"status":     inv.Status,
		"failed":     runErr != nil,
	})
	return true, nil
}

// Enqueue records a pending invocation and pushes it to the queue.
func Enqueue(ctx context.Context, queue Queue, store ResultStore, id string, event []byte) (models.Invocation, error) {
	inv := models.Invocation{
		ID:        id,
		Status:    models.StatusPending,
		Stage:     models.StageIdle,
		Key:       ObjectKey,
		StartedAt: time.Now().UTC(),
	}
	if store != nil {
		if err := store.Save(ctx, inv); err != nil {
			return models.Invocation{}, err
		}
	}
	if err := queue.Push(ctx, models.ExecutionRequest{
		InvocationID: id,
		Event:        event,
		QueuedAt:     inv.StartedAt,
	}); err != nil {
		return models.Invocation{}, err
	}
	return inv, nil
}
