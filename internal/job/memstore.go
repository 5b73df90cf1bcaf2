package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/metrics"
	"github.com/kevichi7/bench-sort/internal/model"
)

// entry pairs a job record with its cancel token. The record's
// mutable fields are guarded by their own lock (rather than the map's
// RWMutex) to prevent publication tears between the goroutine running
// the job and concurrent pollers, per spec.md §5.
type entry struct {
	mu     sync.Mutex
	record Record
	cancel context.CancelFunc
}

// MemStore is the in-memory Job Store variant: a map guarded by a
// RWMutex, one background goroutine per job, grounded on the teacher's
// internal/database.DB (map + sync.RWMutex) generalized from a
// read-only in-memory dataset to a mutable job lifecycle, and on
// minis/22-worker-pool-with-backpressure for the run-in-a-goroutine
// shape.
type MemStore struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	runner  engine.Runner
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
	seq     atomic.Int64
}

func NewMemStore(runner engine.Runner, defaultTimeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *MemStore {
	return &MemStore{
		jobs:    make(map[string]*entry),
		runner:  runner,
		timeout: defaultTimeout,
		metrics: m,
		logger:  logger,
	}
}

// Enqueue creates a pending record with a time-derived id (spec.md
// §3) and immediately starts a background goroutine to run it; the
// in-memory variant has no separate worker pool.
func (s *MemStore) Enqueue(ctx context.Context, call engine.Call) (string, error) {
	id := fmt.Sprintf("%x-%d", time.Now().UnixNano(), s.seq.Add(1))

	runCtx, cancel := context.WithCancel(context.Background())
	e := &entry{
		record: Record{
			ID:        id,
			Status:    model.StatusPending,
			Call:      call,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.jobs[id] = e
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
	}

	go s.run(runCtx, e)

	return id, nil
}

func (s *MemStore) run(ctx context.Context, e *entry) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	e.mu.Lock()
	if e.record.Status.Terminal() {
		// Canceled while still pending; never entered running.
		e.mu.Unlock()
		return
	}
	now := time.Now()
	e.record.Status = model.StatusRunning
	e.record.StartedAt = &now
	e.mu.Unlock()
	if s.metrics != nil {
		s.metrics.JobsRunning.Inc()
		defer s.metrics.JobsRunning.Dec()
	}

	rows, err := s.runner.Run(timeoutCtx, e.record.Call)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.record.Status.Terminal() {
		// A concurrent Cancel already committed a terminal transition.
		return
	}

	finished := time.Now()
	e.record.FinishedAt = &finished

	switch {
	case timeoutCtx.Err() != nil:
		e.record.Status = model.StatusCanceled
		e.record.Error = ""
	case err != nil:
		e.record.Status = model.StatusFailed
		e.record.Error = err.Error()
	default:
		e.record.Status = model.StatusDone
		e.record.Result = rows
	}

	if s.metrics != nil {
		s.metrics.JobsCompleted.WithLabelValues(string(e.record.Status)).Inc()
		if d := e.record.DurationMs(); d != nil {
			s.metrics.JobDuration.WithLabelValues(string(e.record.Status)).Observe(float64(*d) / 1000.0)
		}
	}
}

func (s *MemStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.record
	return &rec, nil
}

// Cancel signals the job's cancel token. Per spec.md's open question,
// this implementation returns success even if the job has already
// completed naturally (canceled wins only if it commits first); see
// DESIGN.md for the chosen interpretation.
func (s *MemStore) Cancel(ctx context.Context, id string) error {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	terminal := e.record.Status.Terminal()
	if !terminal {
		if e.record.Status == model.StatusPending {
			// Never entered running; transition straight to canceled.
			now := time.Now()
			e.record.Status = model.StatusCanceled
			e.record.StartedAt = &now
			e.record.FinishedAt = &now
		}
	}
	e.mu.Unlock()

	e.cancel()
	return nil
}

func (s *MemStore) ActiveCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.jobs {
		e.mu.Lock()
		if !e.record.Status.Terminal() {
			count++
		}
		e.mu.Unlock()
	}
	return count, nil
}

func (s *MemStore) CancelAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.jobs {
		e.mu.Lock()
		terminal := e.record.Status.Terminal()
		e.mu.Unlock()
		if !terminal {
			e.cancel()
		}
	}
}

func (s *MemStore) Close() error { return nil }
