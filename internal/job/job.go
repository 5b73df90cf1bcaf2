// Package job implements the Job Store capability (C7): a shared
// interface with an in-memory and a durable (Postgres) variant, per
// spec.md §4.7/§9 ("code that depends on it must not reach behind the
// interface").
package job

import (
	"context"
	"time"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/model"
)

// Record is the full internal job record; JobView (model package) is
// its public JSON projection.
type Record struct {
	ID         string
	Status     model.Status
	Call       engine.Call
	Result     []model.ResultRow
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (r *Record) DurationMs() *int64 {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return nil
	}
	ms := r.FinishedAt.Sub(*r.StartedAt).Milliseconds()
	return &ms
}

// View projects a Record to the public JSON shape, spec.md §6.
func (r *Record) View() model.JobView {
	v := model.JobView{
		ID:         r.ID,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.DurationMs(),
	}
	if r.Status == model.StatusDone {
		v.Result = r.Result
	}
	if r.Status == model.StatusFailed || r.Status == model.StatusCanceled {
		msg := r.Error
		v.Error = &msg
	}
	return v
}

// Store is the capability interface both job-store variants satisfy.
// The interface itself carries no metrics hooks. MemStore records
// jobs_submitted_total, jobs_running, jobs_completed_total and
// job_duration_seconds itself; PgStore records none of them. In
// durable mode worker.Pool records jobs_running, jobs_completed_total
// and job_duration_seconds, and jobs_submitted_total is not incremented.
type Store interface {
	// Enqueue creates a new pending job and returns its id.
	Enqueue(ctx context.Context, call engine.Call) (string, error)
	// Get returns the current record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// Cancel requests cancellation of id; a no-op on an already
	// terminal job. Returns ErrNotFound if the id is unknown.
	Cancel(ctx context.Context, id string) error
	// ActiveCount returns the number of jobs in {pending, running}.
	ActiveCount(ctx context.Context) (int, error)
	// CancelAll signals every non-terminal job's cancel token, used
	// during graceful shutdown (C11).
	CancelAll()
	Close() error
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "job not found" }
