// Package worker implements the durable-mode Worker Pool (C8):
// configurable-count goroutines leasing pending jobs from
// job.PgStore's SKIP LOCKED queue and running them through an
// engine.Runner. Absent in in-memory mode, where job.MemStore
// self-dispatches each job onto its own goroutine at enqueue time.
//
// Grounded on minis/22-worker-pool-with-backpressure and
// minis/06-worker-pool-wordcount (bounded pool of goroutines pulling
// from a shared source, WaitGroup-coordinated shutdown), generalized
// from an in-memory channel of jobs to a SQL lease loop since the
// durable store's "channel" is the jobs table itself.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/job"
	"github.com/kevichi7/bench-sort/internal/metrics"
	"github.com/kevichi7/bench-sort/internal/model"
)

// leaseRetryInterval is how long an idle worker sleeps after finding
// no pending job before trying to lease again, spec.md §4.8.
const leaseRetryInterval = 100 * time.Millisecond

// Pool runs N worker goroutines against a durable job.PgStore. Queue
// depth is sampled on a schedule via robfig/cron rather than on every
// lease attempt, so the gauge update doesn't compete with the lease
// loop for a connection.
type Pool struct {
	store   *job.PgStore
	runner  engine.Runner
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger

	workers int
	busy    int
	busyMu  sync.Mutex

	cron *cron.Cron

	wg   sync.WaitGroup
	stop chan struct{}
}

func New(store *job.PgStore, runner engine.Runner, workers int, defaultTimeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		store:   store,
		runner:  runner,
		timeout: defaultTimeout,
		metrics: m,
		logger:  logger.With().Str("component", "worker").Logger(),
		workers: workers,
		cron:    cron.New(),
		stop:    make(chan struct{}),
	}
}

// Start launches the worker goroutines and the queue-depth sampler.
// ctx governs the pool's own lifetime; per-job cancellation is a
// second, independently-cancelable context registered with the store.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}

	if _, err := p.cron.AddFunc("@every 5s", p.sampleQueueDepth); err != nil {
		p.logger.Error().Err(err).Msg("failed to schedule queue depth sampler")
	} else {
		p.cron.Start()
	}
}

// Stop signals every worker to finish its current lease attempt and
// exit, then waits. It does not cancel in-flight jobs; CancelAll on
// the store does that separately during graceful shutdown.
func (p *Pool) Stop() {
	close(p.stop)
	p.cron.Stop()
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		rec, err := p.store.Lease(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("lease attempt failed")
			sleep(ctx, p.stop, leaseRetryInterval)
			continue
		}
		if rec == nil {
			sleep(ctx, p.stop, leaseRetryInterval)
			continue
		}

		p.setBusy(1)
		p.runLeased(ctx, rec, logger)
		p.setBusy(-1)
	}
}

func (p *Pool) runLeased(ctx context.Context, rec *job.Record, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.store.RegisterCancel(rec.ID, cancel)
	defer p.store.UnregisterCancel(rec.ID)

	if p.metrics != nil {
		p.metrics.JobsRunning.Inc()
		defer p.metrics.JobsRunning.Dec()
	}

	started := time.Now()
	rows, runErr := p.runner.Run(runCtx, rec.Call)

	var status model.Status
	var errMsg string
	switch {
	case runCtx.Err() != nil:
		status = model.StatusCanceled
	case runErr != nil:
		status = model.StatusFailed
		errMsg = runErr.Error()
	default:
		status = model.StatusDone
	}

	if err := p.store.Finish(ctx, rec.ID, status, rows, errMsg); err != nil {
		logger.Error().Err(err).Str("job_id", rec.ID).Msg("failed to persist job outcome")
	}

	if p.metrics != nil {
		p.metrics.JobsCompleted.WithLabelValues(string(status)).Inc()
		p.metrics.JobDuration.WithLabelValues(string(status)).Observe(time.Since(started).Seconds())
	}
}

func (p *Pool) setBusy(delta int) {
	p.busyMu.Lock()
	p.busy += delta
	busy := p.busy
	p.busyMu.Unlock()
	if p.metrics != nil {
		p.metrics.WorkersBusy.Set(float64(busy))
	}
}

func (p *Pool) sampleQueueDepth() {
	if p.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	depth, err := p.store.QueueDepth(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("queue depth sample failed")
		return
	}
	p.metrics.QueueDepth.Set(float64(depth))
}

func sleep(ctx context.Context, stop chan struct{}, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-stop:
	case <-t.C:
	}
}
