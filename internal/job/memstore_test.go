package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/model"
)

// stubRunner lets each test script exactly how long a call blocks and
// what it returns, without exercising the real sort engine.
type stubRunner struct {
	delay  time.Duration
	rows   []model.ResultRow
	err    error
	called chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, call engine.Call) ([]model.ResultRow, error) {
	if s.called != nil {
		close(s.called)
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.rows, s.err
}

func (s *stubRunner) ListAlgorithms(model.ElemType, []string) ([]string, error) {
	return nil, nil
}

func waitForStatus(t *testing.T, s *MemStore, id string, want model.Status, timeout time.Duration) *Record {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rec, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if rec.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %s in time", id, want)
	return nil
}

func TestMemStore_EnqueueAndComplete(t *testing.T) {
	runner := &stubRunner{rows: []model.ResultRow{{Algo: "std_sort"}}}
	s := NewMemStore(runner, time.Second, nil, zerolog.Nop())

	id, err := s.Enqueue(context.Background(), engine.Call{N: 10})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	rec := waitForStatus(t, s, id, model.StatusDone, time.Second)
	if len(rec.Result) != 1 || rec.Result[0].Algo != "std_sort" {
		t.Errorf("expected the stub's result to be recorded, got %+v", rec.Result)
	}
	if rec.DurationMs() == nil {
		t.Error("expected a duration once the job is terminal")
	}
}

func TestMemStore_EngineFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	s := NewMemStore(runner, time.Second, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})

	rec := waitForStatus(t, s, id, model.StatusFailed, time.Second)
	if rec.Error != "boom" {
		t.Errorf("expected error message to be recorded, got %q", rec.Error)
	}
}

func TestMemStore_Timeout(t *testing.T) {
	runner := &stubRunner{delay: time.Second}
	s := NewMemStore(runner, 20*time.Millisecond, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})

	rec := waitForStatus(t, s, id, model.StatusCanceled, time.Second)
	if rec.Status != model.StatusCanceled {
		t.Errorf("expected timeout to land as canceled, got %s", rec.Status)
	}
}

func TestMemStore_CancelWhileRunning(t *testing.T) {
	started := make(chan struct{})
	runner := &stubRunner{delay: time.Second, called: started}
	s := NewMemStore(runner, time.Minute, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})
	<-started

	if err := s.Cancel(context.Background(), id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	rec := waitForStatus(t, s, id, model.StatusCanceled, time.Second)
	if rec.FinishedAt == nil {
		t.Error("expected FinishedAt to be set after cancellation settles")
	}
}

func TestMemStore_CancelUnknownID(t *testing.T) {
	s := NewMemStore(&stubRunner{}, time.Second, nil, zerolog.Nop())
	if err := s.Cancel(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_GetUnknownID(t *testing.T) {
	s := NewMemStore(&stubRunner{}, time.Second, nil, zerolog.Nop())
	if _, err := s.Get(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_ActiveCount(t *testing.T) {
	started := make(chan struct{})
	runner := &stubRunner{delay: 200 * time.Millisecond, called: started}
	s := NewMemStore(runner, time.Minute, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})
	<-started

	active, err := s.ActiveCount(context.Background())
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if active != 1 {
		t.Errorf("expected 1 active job while running, got %d", active)
	}

	waitForStatus(t, s, id, model.StatusDone, time.Second)

	active, _ = s.ActiveCount(context.Background())
	if active != 0 {
		t.Errorf("expected 0 active jobs once terminal, got %d", active)
	}
}

func TestMemStore_CancelAll(t *testing.T) {
	started := make(chan struct{})
	runner := &stubRunner{delay: time.Second, called: started}
	s := NewMemStore(runner, time.Minute, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})
	<-started

	s.CancelAll()

	waitForStatus(t, s, id, model.StatusCanceled, time.Second)
}

func TestMemStore_CancelBeforeRunning(t *testing.T) {
	// A long enough warmup delay (via engine.Call) isn't available on
	// the stub, so this exercises the pending->canceled short-circuit
	// by canceling immediately, racing the goroutine scheduler; the
	// store must land on canceled either way since Cancel always wins
	// once observed.
	runner := &stubRunner{delay: 50 * time.Millisecond}
	s := NewMemStore(runner, time.Minute, nil, zerolog.Nop())

	id, _ := s.Enqueue(context.Background(), engine.Call{N: 10})
	_ = s.Cancel(context.Background(), id)

	rec := waitForStatus(t, s, id, model.StatusCanceled, time.Second)
	if !rec.Status.Terminal() {
		t.Error("expected canceled status to be terminal")
	}
}
