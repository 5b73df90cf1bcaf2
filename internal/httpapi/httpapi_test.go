package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/auth"
	"github.com/kevichi7/bench-sort/internal/config"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/job"
	"github.com/kevichi7/bench-sort/internal/metrics"
	"github.com/kevichi7/bench-sort/internal/model"
	"github.com/kevichi7/bench-sort/internal/ratelimit"
)

// fakeRunner gives handler tests a controllable engine.Runner without
// exercising the real sort algorithms.
type fakeRunner struct {
	rows  []model.ResultRow
	err   error
	names []string
}

func (f *fakeRunner) Run(ctx context.Context, call engine.Call) ([]model.ResultRow, error) {
	return f.rows, f.err
}

func (f *fakeRunner) ListAlgorithms(model.ElemType, []string) ([]string, error) {
	return f.names, nil
}

// fakeStore backs /jobs* handler tests without a real MemStore or
// Postgres store.
type fakeStore struct {
	jobs   map[string]*job.Record
	active int
	err    error
}

func newFakeStore() *fakeStore { return &fakeStore{jobs: map[string]*job.Record{}} }

func (s *fakeStore) Enqueue(ctx context.Context, call engine.Call) (string, error) {
	id := "job-1"
	s.jobs[id] = &job.Record{ID: id, Status: model.StatusPending, Call: call}
	return id, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*job.Record, error) {
	rec, ok := s.jobs[id]
	if !ok {
		return nil, job.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) Cancel(ctx context.Context, id string) error {
	rec, ok := s.jobs[id]
	if !ok {
		return job.ErrNotFound
	}
	rec.Status = model.StatusCanceled
	return nil
}

func (s *fakeStore) ActiveCount(ctx context.Context) (int, error) { return s.active, s.err }
func (s *fakeStore) CancelAll()                                  {}
func (s *fakeStore) Close() error                                { return nil }

var _ job.Store = (*fakeStore)(nil)

func testDeps() (*Deps, *fakeStore) {
	store := newFakeStore()
	limits := config.LimitsConfig{
		MaxN: 1000, MaxRepeats: 10, MaxThreads: 4, MaxJobs: 5,
		DefaultMs: 1000, Workers: 1, MaxBodyBytes: 1 << 20,
	}
	ks, _ := auth.Load(nil, "")
	reg := prometheus.NewRegistry()
	return &Deps{
		Limits:      limits,
		Logger:      zerolog.Nop(),
		Metrics:     metrics.New(reg),
		Registry:    reg,
		Runner:      &fakeRunner{rows: []model.ResultRow{{Algo: "std_sort", N: 10}}},
		Store:       store,
		RateLimiter: ratelimit.New(1_000_000, 1_000_000, false),
		Auth:        ks,
		Mode:        "inprocess",
	}, store
}

func validRequestBody() []byte {
	body, _ := json.Marshal(model.Request{
		N: 100, Distribution: model.DistRandom, ElemType: model.I32,
		Repeats: 1, Algorithms: []string{"std_sort"},
	})
	return body
}

func TestRouter_Healthz(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_Readyz(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Run_Success(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []model.ResultRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(rows) != 1 || rows[0].Algo != "std_sort" {
		t.Errorf("unexpected result rows: %+v", rows)
	}
}

func TestRouter_Run_ValidationError(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	body, _ := json.Marshal(model.Request{N: 0, Distribution: model.DistRandom, ElemType: model.I32})
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for N=0, got %d", rec.Code)
	}
}

func TestRouter_Run_MalformedBody(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestRouter_Jobs_SubmitAndFetch(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var submitted submitJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/jobs/"+submitted.JobID, nil))
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching submitted job, got %d", getRec.Code)
	}
}

func TestRouter_Jobs_NotFound(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_Jobs_AdmissionLimit(t *testing.T) {
	deps, store := testDeps()
	store.active = deps.Limits.MaxJobs
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once max_jobs is reached, got %d", rec.Code)
	}
}

func TestRouter_Jobs_CancelUnknown(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/does-not-exist/cancel", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_Jobs_RequiresAuthWhenConfigured(t *testing.T) {
	deps, _ := testDeps()
	ks, _ := auth.Load([]string{"secret-key"}, "")
	deps.Auth = ks
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without an API key, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(validRequestBody()))
	req2.Header.Set("X-API-Key", "secret-key")
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusAccepted {
		t.Errorf("expected 202 with a valid API key, got %d", rec2.Code)
	}
}

func TestRouter_Meta(t *testing.T) {
	deps, _ := testDeps()
	deps.Runner = &fakeRunner{names: []string{"std_sort"}}
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var meta metaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(meta.Algos[model.I32]) != 1 || meta.Algos[model.I32][0] != "std_sort" {
		t.Errorf("unexpected meta algos: %+v", meta.Algos)
	}
}

func TestRouter_Limits(t *testing.T) {
	deps, _ := testDeps()
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limits", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var limits limitsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &limits); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if limits.MaxN != deps.Limits.MaxN {
		t.Errorf("expected max_n=%d, got %d", deps.Limits.MaxN, limits.MaxN)
	}
}

func TestEffectiveTimeout(t *testing.T) {
	cases := []struct {
		requested, deflt, want int
	}{
		{0, 30000, 30000},
		{-5, 30000, 30000},
		{5000, 30000, 5000},
		{60000, 30000, 30000},
	}
	for _, c := range cases {
		got := effectiveTimeout(c.requested, c.deflt)
		if int(got.Milliseconds()) != c.want {
			t.Errorf("effectiveTimeout(%d,%d) = %v, want %dms", c.requested, c.deflt, got, c.want)
		}
	}
}
