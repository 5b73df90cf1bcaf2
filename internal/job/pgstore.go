package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/model"
)

// PgStore is the durable Job Store variant: a relational table with
// SQL status transitions and SKIP LOCKED leasing (spec.md §4.7).
// Cancel tokens live only in a process-local map, never in the row
// (spec.md §9's "Cyclic handles" note).
type PgStore struct {
	db *sqlx.DB

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

type jobRow struct {
	ID          string         `db:"id"`
	Status      string         `db:"status"`
	RequestJSON []byte         `db:"request_json"`
	ResultJSON  sql.NullString `db:"result_json"`
	Error       sql.NullString `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at"`
	FinishedAt  sql.NullTime   `db:"finished_at"`
	DurationMs  sql.NullInt64  `db:"duration_ms"`
}

// Open connects to Postgres and applies the single `001` migration.
func Open(databaseURL string, maxConns int) (*PgStore, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("storage: ping db: %w", err)
	}

	if err := Migrate(db.DB); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	return &PgStore{db: db, cancels: make(map[string]context.CancelFunc)}, nil
}

func (s *PgStore) Enqueue(ctx context.Context, call engine.Call) (string, error) {
	id := uuid.New().String()
	reqJSON, err := json.Marshal(call)
	if err != nil {
		return "", fmt.Errorf("internal: marshal call: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, request_json, created_at, dist, elem_type, repeats, threads, baseline, algos, mode)
		VALUES ($1, 'pending', $2, now(), $3, $4, $5, $6, $7, $8, $9)
	`, id, reqJSON, call.Distribution, call.ElemType, call.Repeats, call.Threads, call.Baseline,
		joinAlgos(call.Algorithms), "inprocess")
	if err != nil {
		return "", fmt.Errorf("storage: insert job: %w", err)
	}

	return id, nil
}

func joinAlgos(algos []string) string {
	out := ""
	for i, a := range algos {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}

func (s *PgStore) Get(ctx context.Context, id string) (*Record, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, status, request_json, result_json, error, created_at, started_at, finished_at, duration_ms
		FROM jobs WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get job: %w", err)
	}
	return rowToRecord(row)
}

func rowToRecord(row jobRow) (*Record, error) {
	var call engine.Call
	if err := json.Unmarshal(row.RequestJSON, &call); err != nil {
		return nil, fmt.Errorf("internal: decode stored request: %w", err)
	}

	rec := &Record{
		ID:        row.ID,
		Status:    model.Status(row.Status),
		Call:      call,
		CreatedAt: row.CreatedAt,
	}
	if row.StartedAt.Valid {
		t := row.StartedAt.Time
		rec.StartedAt = &t
	}
	if row.FinishedAt.Valid {
		t := row.FinishedAt.Time
		rec.FinishedAt = &t
	}
	if row.Error.Valid {
		rec.Error = row.Error.String
	}
	if row.ResultJSON.Valid && row.ResultJSON.String != "" {
		var rows []model.ResultRow
		if err := json.Unmarshal([]byte(row.ResultJSON.String), &rows); err != nil {
			return nil, fmt.Errorf("internal: decode stored result: %w", err)
		}
		rec.Result = rows
	}
	return rec, nil
}

// Lease atomically claims one pending job with SELECT ... FOR UPDATE
// SKIP LOCKED and marks it running, spec.md §4.7/§4.8. Returns
// (nil, nil) when there is nothing to lease.
func (s *PgStore) Lease(ctx context.Context) (*Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback()

	var row jobRow
	err = tx.GetContext(ctx, &row, `
		SELECT id, status, request_json, result_json, error, created_at, started_at, finished_at, duration_ms
		FROM jobs WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: lease select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'running', started_at = now() WHERE id = $1
	`, row.ID); err != nil {
		return nil, fmt.Errorf("storage: lease update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: lease commit: %w", err)
	}

	row.Status = "running"
	return rowToRecord(row)
}

// Finish records a terminal outcome for a leased job.
func (s *PgStore) Finish(ctx context.Context, id string, status model.Status, result []model.ResultRow, errMsg string) error {
	var resultJSON sql.NullString
	if status == model.StatusDone {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("internal: marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, result_json = $3, error = $4,
		    finished_at = now(),
		    duration_ms = EXTRACT(EPOCH FROM (now() - started_at)) * 1000
		WHERE id = $1
	`, id, string(status), resultJSON, errMsg)
	if err != nil {
		return fmt.Errorf("storage: finish job: %w", err)
	}
	return nil
}

// Cancel signals the in-memory cancel token if the job is leased on
// this process, and (regardless) marks the row canceled in SQL if it
// is still pending, spec.md §4.7.
func (s *PgStore) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, leased := s.cancels[id]
	s.mu.Unlock()
	if leased {
		cancel()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'canceled', error = '', finished_at = now(),
		    duration_ms = EXTRACT(EPOCH FROM (now() - created_at)) * 1000
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("storage: cancel job: %w", err)
	}

	if !leased {
		n, _ := res.RowsAffected()
		if n == 0 {
			// Either unknown, already terminal, or already running
			// (handled by whichever worker holds the lease).
			if _, err := s.Get(ctx, id); err != nil {
				return err
			}
		}
	}

	return nil
}

// RegisterCancel stores a cancel token for a job this process just
// leased, and unregisters it on completion; process-local only, per
// spec.md §9.
func (s *PgStore) RegisterCancel(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
}

func (s *PgStore) UnregisterCancel(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.mu.Unlock()
}

func (s *PgStore) ActiveCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT count(*) FROM jobs WHERE status IN ('pending', 'running')
	`)
	if err != nil {
		return 0, fmt.Errorf("storage: active count: %w", err)
	}
	return count, nil
}

// QueueDepth returns the pending-only count for the queue_depth gauge.
func (s *PgStore) QueueDepth(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM jobs WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("storage: queue depth: %w", err)
	}
	return count, nil
}

// CancelAll signals every cancel token held by this process. Pending
// rows are deliberately left alone on shutdown: spec.md §4.11 says
// they remain pending for the next instance to lease.
func (s *PgStore) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
}

func (s *PgStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PgStore)(nil)
