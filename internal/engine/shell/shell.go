// Package shell implements the child-process engine execution mode
// from spec.md's Design Notes: the same request/response JSON bytes
// as the in-process engine, but produced by an external
// bench-sort-core binary. Grounded on the teacher's buffered-IO style
// in minis/17-file-streaming-bufio and the retry-around-an-external-call
// shape of minis/08-http-client-retries, generalized from HTTP to a
// subprocess boundary. A failed subprocess run is returned as an error
// and is not retried.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/model"
)

// Engine shells out to a bench-sort-core binary for every invocation.
// Side effects are suppressed via --service-mode so the child never
// writes files, per the Engine Invocation contract in spec.md §3.
type Engine struct {
	bin string
}

func New(bin string) *Engine {
	return &Engine{bin: bin}
}

var _ engine.Runner = (*Engine)(nil)

type wireRequest struct {
	Call engine.Call `json:"call"`
	Mode string      `json:"mode"`
}

func (e *Engine) Run(ctx context.Context, call engine.Call) ([]model.ResultRow, error) {
	payload, err := json.Marshal(wireRequest{Call: call, Mode: "run"})
	if err != nil {
		return nil, fmt.Errorf("internal: marshal engine call: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.bin, "--service-mode")
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("internal: engine subprocess failed: %w (%s)", err, stderr.String())
	}

	var rows []model.ResultRow
	if err := json.Unmarshal(stdout.Bytes(), &rows); err != nil {
		return nil, fmt.Errorf("internal: decode engine output: %w", err)
	}
	return rows, nil
}

func (e *Engine) ListAlgorithms(elemType model.ElemType, plugins []string) ([]string, error) {
	payload, err := json.Marshal(map[string]any{
		"mode":      "list",
		"elem_type": elemType,
		"plugins":   plugins,
	})
	if err != nil {
		return nil, fmt.Errorf("internal: marshal list request: %w", err)
	}

	cmd := exec.Command(e.bin, "--service-mode")
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("internal: engine subprocess failed: %w (%s)", err, stderr.String())
	}

	var names []string
	if err := json.Unmarshal(stdout.Bytes(), &names); err != nil {
		return nil, fmt.Errorf("internal: decode algorithm list: %w", err)
	}
	return names, nil
}
