package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hypogate/domain/core"
	"hypogate/internal"
	"hypogate/internal/errors"
)

// Result is the outcome of one dispatched experiment.
type Result struct {
	ExperimentID core.ExperimentID
	Outcome      *Outcome
	Err          error
	Duration     time.Duration
}

// Dispatcher runs queued experiments concurrently. Each experiment is driven
// sequentially by one worker; the semaphore bounds how many run at once so
// external rate limits hold regardless of the worker count.
type Dispatcher struct {
	orch    *Orchestrator
	sem     *semaphore.Weighted
	queue   chan core.ExperimentID
	results chan Result
	logger  *internal.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher bounded by the engine's concurrency limit.
func NewDispatcher(orch *Orchestrator, logger *internal.Logger) *Dispatcher {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	limit := orch.Engine().MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{
		orch:    orch,
		sem:     semaphore.NewWeighted(int64(limit)),
		queue:   make(chan core.ExperimentID, DEFAULT_QUEUE_SIZE),
		results: make(chan Result, DEFAULT_RESULT_BUFFER),
		logger:  logger.Named("dispatcher"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartWorkerPool starts numWorkers worker loops.
func (d *Dispatcher) StartWorkerPool(numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	d.logger.Info("starting worker pool with %d workers", numWorkers)
	for i := 0; i < numWorkers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
}

// workerLoop drains the queue until it is closed or the dispatcher stops.
func (d *Dispatcher) workerLoop(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("worker %d started", workerID)

	for {
		select {
		case <-d.ctx.Done():
			return
		case id, ok := <-d.queue:
			if !ok {
				return
			}
			d.process(workerID, id)
		}
	}
}

func (d *Dispatcher) process(workerID int, id core.ExperimentID) {
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.publish(Result{ExperimentID: id, Err: errors.Cancelled("")})
		return
	}
	defer d.sem.Release(1)

	started := time.Now()
	outcome, err := d.orch.Run(d.ctx, id)
	res := Result{ExperimentID: id, Outcome: outcome, Err: err, Duration: time.Since(started)}
	if err != nil {
		d.logger.Error("worker %d: experiment %s aborted: %v", workerID, id, err)
	} else {
		d.logger.Info("worker %d: experiment %s finished %s in %s", workerID, id, outcome.Status(), res.Duration)
	}
	d.publish(res)
}

// publish waits for a reader when the buffer is full. It gives up only once
// the dispatcher is cancelled; the terminal status is already stored by then.
func (d *Dispatcher) publish(res Result) {
	select {
	case d.results <- res:
		return
	default:
	}
	d.logger.Debug("result buffer full, waiting to deliver %s", res.ExperimentID)
	select {
	case d.results <- res:
	case <-d.ctx.Done():
		d.logger.Warn("dispatcher stopped before result for %s was read", res.ExperimentID)
	}
}

// Enqueue schedules an experiment. It never blocks.
func (d *Dispatcher) Enqueue(id core.ExperimentID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New(errors.CodeCancelled, "dispatcher stopped")
	}
	select {
	case d.queue <- id:
		d.logger.Debug("experiment %s queued", id)
		return nil
	default:
		return errors.Newf(errors.CodeInternalError, "job queue full - cannot accept experiment %s", id)
	}
}

// Results delivers outcomes as experiments finish.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Stop closes the queue and waits for running experiments up to timeout.
// On timeout the run context is cancelled, which stops each experiment at
// its next phase boundary.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.logger.Info("initiating graceful shutdown")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("all workers stopped gracefully")
	case <-time.After(timeout):
		d.logger.Warn("timeout waiting for workers, cancelling running experiments")
		d.cancel()
		<-done
	}
	d.cancel()
}

// RunAll drives every experiment to a terminal status with at most limit
// running at once. Outcomes are returned in input order. Only store
// failures abort the batch.
func RunAll(ctx context.Context, orch *Orchestrator, ids []core.ExperimentID, limit int) ([]*Outcome, error) {
	if limit < 1 {
		limit = orch.Engine().MaxConcurrent
	}
	outcomes := make([]*Outcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			out, err := orch.Run(gctx, id)
			if err != nil {
				return errors.Wrapf(err, "experiment %s", id)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
