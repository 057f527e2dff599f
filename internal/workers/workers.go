package workers

import (
	"context"
	"sync"
)

// Workers aggregates background workers and runs each in its own
// goroutine. Run blocks until every worker has returned, which happens
// after ctx is cancelled.
type Workers struct {
	workers []Worker
}

func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

func (w *Workers) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, worker := range w.workers {
		wg.Add(1)
		go func(worker Worker) {
			defer wg.Done()
			worker.Run(ctx)
		}(worker)
	}
	wg.Wait()
}
