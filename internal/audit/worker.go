package audit

import (
	"context"
	"log/slog"
)

// Worker drains a Recorder into the Store. Append failures are logged and
// skipped; a broken audit sink must not stop the service.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, rec *Recorder, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: rec.Events(), logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-w.inbox:
			if err := w.store.Append(ctx, ev); err != nil {
				w.logger.Error("append audit event", "action", ev.Action, "error", err)
			}
		}
	}
}
