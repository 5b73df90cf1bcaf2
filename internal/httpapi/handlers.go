package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/kevichi7/bench-sort/internal/apierr"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/job"
	"github.com/kevichi7/bench-sort/internal/model"
	"github.com/kevichi7/bench-sort/internal/validate"
)

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

// readySampleDistributions is the small set exercised on every
// readiness check: a tiny end-to-end smoke run per distribution
// family, not just algorithm discovery.
var readySampleDistributions = []model.Distribution{
	model.DistRandom, model.DistSorted, model.DistReverseSorted,
}

func readyHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := d.Runner.ListAlgorithms(model.I32, nil); err != nil {
			writeNotReady(w, "algorithm discovery failed")
			return
		}

		for _, dist := range readySampleDistributions {
			call := engine.Call{
				N: 64, Distribution: dist, ElemType: model.I32,
				Repeats: 1, Seed: engine.DefaultSeed,
				Algorithms: []string{"std_sort"}, AssertSorted: true,
			}
			if _, err := d.Runner.Run(ctx, call); err != nil {
				writeNotReady(w, "smoke run failed for "+string(dist))
				return
			}
		}

		if err := checkResources(); err != nil {
			writeNotReady(w, err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}

func writeNotReady(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "reason": reason})
}

// checkResources is a process/mem sanity check using gopsutil, not a
// hard capacity gate — it only fails readiness on an unrecoverable
// stats read, never on a particular usage threshold (spec.md names no
// such threshold).
func checkResources() error {
	if _, err := mem.VirtualMemory(); err != nil {
		return err
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		_, _ = p.MemoryInfo()
	}
	return nil
}

type metaResponse struct {
	Types []model.ElemType           `json:"types"`
	Dists []model.Distribution       `json:"dists"`
	Algos map[model.ElemType][]string `json:"algos"`
}

func metaHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plugins := r.URL.Query()["plugin"]

		algos := make(map[model.ElemType][]string, len(model.ElemTypes))
		for _, t := range model.ElemTypes {
			names, err := d.Runner.ListAlgorithms(t, plugins)
			if err != nil {
				apierr.WriteError(w, d.Logger, apierr.Enginef(err))
				return
			}
			algos[t] = names
		}

		apierr.WriteJSON(w, http.StatusOK, metaResponse{
			Types: model.ElemTypes,
			Dists: model.Distributions,
			Algos: algos,
		})
	}
}

type limitsResponse struct {
	MaxN         int    `json:"max_n"`
	MaxRepeats   int    `json:"max_repeats"`
	MaxThreads   int    `json:"max_threads"`
	MaxJobs      int    `json:"max_jobs"`
	DefaultMs    int    `json:"default_timeout_ms"`
	Workers      int    `json:"workers"`
	MaxBodyBytes int64  `json:"max_body_bytes"`
	Mode         string `json:"mode"`
}

func limitsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteJSON(w, http.StatusOK, limitsResponse{
			MaxN:         d.Limits.MaxN,
			MaxRepeats:   d.Limits.MaxRepeats,
			MaxThreads:   d.Limits.MaxThreads,
			MaxJobs:      d.Limits.MaxJobs,
			DefaultMs:    d.Limits.DefaultMs,
			Workers:      d.Limits.Workers,
			MaxBodyBytes: d.Limits.MaxBodyBytes,
			Mode:         d.Mode,
		})
	}
}

// decodeRequest decodes the request body, tolerating unknown fields
// per spec.md §6 ("Unknown fields are ignored").
func decodeRequest(r *http.Request) (*model.Request, error) {
	var req model.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apierr.Validationf("malformed request body")
	}
	return &req, nil
}

// checkStrict rejects unknown algorithm/baseline names when
// limits.strict_algorithms is enabled (spec.md §4.1's opt-in strict
// mode), via validate.Strict against the engine's own advertised list.
func (d *Deps) checkStrict(req *model.Request) *apierr.Error {
	if !d.Limits.StrictAlgorithms {
		return nil
	}
	known, err := d.Runner.ListAlgorithms(req.ElemType, req.Plugins)
	if err != nil {
		return apierr.Enginef(err)
	}
	if err := validate.Strict(req, known); err != nil {
		return apierr.Validationf("%s", err.Error())
	}
	return nil
}

// runMode labels the RunDuration histogram for a single call: the
// shell runner is always "shell"; the in-process runner is "cgo" when
// the request references plugins (exercising the cgo loader), else
// "in-process".
func (d *Deps) runMode(call engine.Call) string {
	if d.Mode == "shell" {
		return "shell"
	}
	if len(call.Plugins) > 0 {
		return "cgo"
	}
	return "in-process"
}

func runHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			apierr.WriteError(w, d.Logger, err)
			return
		}

		if apiErr := validate.Validate(req, d.Limits); apiErr != nil {
			apierr.WriteError(w, d.Logger, apiErr)
			return
		}
		if apiErr := d.checkStrict(req); apiErr != nil {
			apierr.WriteError(w, d.Logger, apiErr)
			return
		}

		call := validate.BuildCall(req)
		deadline := effectiveTimeout(req.TimeoutMs, d.Limits.DefaultMs)
		ctx, cancel := context.WithTimeout(r.Context(), deadline)
		defer cancel()

		start := time.Now()
		rows, err := d.Runner.Run(ctx, call)
		mode := d.runMode(call)
		if d.Metrics != nil {
			d.Metrics.RunDuration.WithLabelValues(mode, string(call.Distribution), string(call.ElemType)).
				Observe(time.Since(start).Seconds())
		}
		if err != nil {
			apierr.WriteError(w, d.Logger, apierr.Enginef(err))
			return
		}

		apierr.WriteJSON(w, http.StatusOK, rows)
	}
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

func submitJobHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			apierr.WriteError(w, d.Logger, err)
			return
		}

		if apiErr := validate.Validate(req, d.Limits); apiErr != nil {
			apierr.WriteError(w, d.Logger, apiErr)
			return
		}
		if apiErr := d.checkStrict(req); apiErr != nil {
			apierr.WriteError(w, d.Logger, apiErr)
			return
		}

		// Admission check performed atomically within this request's
		// goroutine, spec.md §4.9: count then enqueue, no other
		// request-scoped code runs between them.
		active, err := d.Store.ActiveCount(r.Context())
		if err != nil {
			apierr.WriteError(w, d.Logger, apierr.Storagef(err))
			return
		}
		if active >= d.Limits.MaxJobs {
			apierr.WriteError(w, d.Logger, apierr.Admissionf("too many jobs"))
			return
		}

		call := validate.BuildCall(req)
		id, err := d.Store.Enqueue(r.Context(), call)
		if err != nil {
			apierr.WriteError(w, d.Logger, apierr.Storagef(err))
			return
		}

		apierr.WriteJSON(w, http.StatusAccepted, submitJobResponse{JobID: id})
	}
}

func getJobHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := d.Store.Get(r.Context(), id)
		if err != nil {
			if err == job.ErrNotFound {
				apierr.WriteError(w, d.Logger, apierr.NotFoundf("job not found"))
				return
			}
			apierr.WriteError(w, d.Logger, apierr.Storagef(err))
			return
		}
		apierr.WriteJSON(w, http.StatusOK, rec.View())
	}
}

type cancelResponse struct {
	Status string `json:"status"`
}

func cancelJobHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Store.Cancel(r.Context(), id); err != nil {
			if err == job.ErrNotFound {
				apierr.WriteError(w, d.Logger, apierr.NotFoundf("job not found"))
				return
			}
			apierr.WriteError(w, d.Logger, apierr.Storagef(err))
			return
		}
		apierr.WriteJSON(w, http.StatusOK, cancelResponse{Status: "cancelled"})
	}
}
