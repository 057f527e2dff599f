package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/store"
)

// QueueWatchdog heals the operation queue in the background. Operations
// stuck in flight past the timeout (a crash mid network call) return to
// pending with a consumed retry, and operations whose record vanished
// are dropped. Satisfies the workers.Worker contract.
type QueueWatchdog struct {
	queue           store.OperationQueue
	inFlightTimeout time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

func NewQueueWatchdog(queue store.OperationQueue, cfg config.Sync, log *logger.Logger) *QueueWatchdog {
	timeout := cfg.InFlightTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &QueueWatchdog{
		queue:           queue,
		inFlightTimeout: timeout,
		logger:          log,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps the queue once per timeout interval until ctx is cancelled.
func (w *QueueWatchdog) Run(ctx context.Context) {
	t := time.NewTicker(w.inFlightTimeout)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.sweep(ctx)
		}
	}
}

func (w *QueueWatchdog) sweep(ctx context.Context) {
	now := w.now()

	requeued, err := w.queue.RequeueStuck(ctx, now.Add(-w.inFlightTimeout), now)
	if err != nil {
		w.logger.Warn().
			Str("func", "QueueWatchdog.sweep").
			Err(err).
			Msg("failed to requeue stuck operations")
	} else if requeued > 0 {
		w.logger.Info().
			Str("func", "QueueWatchdog.sweep").
			Int64("requeued", requeued).
			Msg("returned stuck in-flight operations to the queue")
	}

	dropped, err := w.queue.DropOrphans(ctx)
	if err != nil {
		w.logger.Warn().
			Str("func", "QueueWatchdog.sweep").
			Err(err).
			Msg("failed to drop orphan operations")
	} else if dropped > 0 {
		w.logger.Info().
			Str("func", "QueueWatchdog.sweep").
			Int64("dropped", dropped).
			Msg("dropped operations whose record no longer exists")
	}
}
