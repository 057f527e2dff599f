package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-offsync/internal/logger"
)

type syncJob struct {
	manager SyncManager
	monitor Connectivity
	logger  *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewSyncJob creates a background job that runs sync cycles on a ticker
// and immediately after connectivity is regained. The job is idle until
// Start is called.
func NewSyncJob(manager SyncManager, monitor Connectivity, log *logger.Logger) SyncJob {
	return &syncJob{
		manager: manager,
		monitor: monitor,
		logger:  log,
	}
}

// Start implements SyncJob. It stops any previously running job, then
// launches a goroutine that syncs every interval and whenever the
// monitor reports the remote came back. The goroutine exits when ctx is
// cancelled or Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	jobCtx, cancel := context.WithCancel(ctx)

	// buffered so a transition arriving mid cycle is remembered, and
	// repeated transitions collapse into one pending trigger
	wake := make(chan struct{}, 1)
	unsubscribe := j.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	j.mu.Lock()
	j.cancel = cancel
	j.unsubscribe = unsubscribe
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.syncOnce(jobCtx)
			case <-wake:
				j.syncOnce(jobCtx)
			}
		}
	}()
}

// Stop implements SyncJob. It cancels the background goroutine, detaches
// from the monitor and blocks until the goroutine has fully exited. Safe
// to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	unsubscribe := j.unsubscribe
	j.cancel = nil
	j.unsubscribe = nil
	j.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

func (j *syncJob) syncOnce(ctx context.Context) {
	_, err := j.manager.SyncNow(ctx)
	if err == nil || errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrEngineOffline) {
		return
	}
	j.logger.Warn().
		Str("func", "syncJob.syncOnce").
		Err(err).
		Msg("background sync cycle failed")
}
