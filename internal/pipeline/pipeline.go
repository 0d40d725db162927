// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a run through its phases: discover the work list,
// process each item in order, finalize the run summary, then generate the
// analysis report. Single-threaded and strictly sequential; one failed item
// never aborts the batch.
// Implements: prd002-processing (R2, R3), prd004-reporting (R1);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/medscan/internal/archive"
	"github.com/pdiddy/medscan/internal/discover"
	"github.com/pdiddy/medscan/internal/inference"
	"github.com/pdiddy/medscan/internal/process"
	"github.com/pdiddy/medscan/internal/report"
	"github.com/pdiddy/medscan/internal/runstore"
	"github.com/pdiddy/medscan/pkg/types"
)

// Phase is the controller's current stage. Phases advance strictly forward
// within a run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDiscovering Phase = "discovering"
	PhaseProcessing  Phase = "processing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseSummarizing Phase = "summarizing"
	PhaseDone        Phase = "done"
)

// Result bundles the outcome of a completed run.
type Result struct {
	// Summary is the finalized aggregate, also persisted as results.json.
	Summary *types.RunSummary

	// State is the run state after the final phase, including the log.
	State *types.RunState

	// RunID is the run's row id in the history store, or 0 when no store
	// is attached.
	RunID int64
}

// Controller owns the run state and advances it phase by phase. A
// controller is reusable: each Run starts from a fresh state. Phase is safe
// to read from other goroutines while a run is in flight.
type Controller struct {
	cfg     types.PipelineConfig
	router  *process.Router
	backend inference.Backend
	store   *runstore.Store
	w       io.Writer

	mu    sync.Mutex
	phase Phase
}

// New wires a controller. The store may be nil, disabling checkpointing.
// Progress output defaults to io.Discard.
func New(cfg types.PipelineConfig, backend inference.Backend, store *runstore.Store, w io.Writer) *Controller {
	if w == nil {
		w = io.Discard
	}
	return &Controller{
		cfg:     cfg,
		router:  process.NewRouter(backend, cfg.Discovery, cfg.Archive, cfg.Inference.MaxTokens, w),
		backend: backend,
		store:   store,
		w:       w,
		phase:   PhaseIdle,
	}
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Run executes one full pipeline pass. Item-level failures are captured as
// formatted result strings and the batch continues; only discovery,
// finalization, and report generation failures are run-level.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	state := types.NewRunState()
	res := &Result{State: state}

	phase := PhaseDiscovering
	for phase != PhaseDone {
		c.setPhase(phase)

		switch phase {
		case PhaseDiscovering:
			if err := discover.Discover(state, c.cfg.Discovery, c.w); err != nil {
				return res, c.failRun(ctx, res.RunID, fmt.Errorf("discovery: %w", err))
			}
			res.RunID = c.beginRun(ctx, len(state.Items))
			phase = PhaseProcessing

		case PhaseProcessing:
			if state.Cursor >= len(state.Items) {
				phase = PhaseFinalizing
				continue
			}
			c.step(ctx, state, res.RunID)

		case PhaseFinalizing:
			summary, err := report.Finalize(state, c.cfg.Discovery.OutputDir, c.w)
			if err != nil {
				return res, c.failRun(ctx, res.RunID, fmt.Errorf("finalizing run: %w", err))
			}
			res.Summary = summary
			phase = PhaseSummarizing

		case PhaseSummarizing:
			err := report.Summarize(ctx, c.backend, state, c.cfg.Discovery.OutputDir,
				c.cfg.Inference.MaxTokens, c.w)
			if err != nil {
				return res, c.failRun(ctx, res.RunID, err)
			}
			phase = PhaseDone
		}
	}

	c.setPhase(PhaseDone)
	c.finishRun(ctx, res.RunID, runstore.StatusCompleted)

	if c.cfg.Archive.AutoArchive {
		if _, err := archive.Snapshot(c.cfg.Discovery.OutputDir, c.cfg.Inference, c.w); err != nil {
			fmt.Fprintf(c.w, "warning: could not archive run: %v\n", err)
		}
	}
	return res, nil
}

// step processes items[cursor]. The cursor always advances and a log
// message is always appended, success or failure.
func (c *Controller) step(ctx context.Context, state *types.RunState, runID int64) {
	item := state.Items[state.Cursor]
	position := state.Cursor

	fmt.Fprintf(c.w, "processing item %d/%d: %s\n", position+1, len(state.Items), item.Name)

	result, err := c.router.Route(ctx, item)
	failed := err != nil
	if failed {
		result = fmt.Sprintf("Error processing %s: %s", item.Name, err)
		fmt.Fprintf(c.w, "%s\n", result)
	}

	state.Results[item.Name] = result
	state.Cursor++
	state.Logf("Processed %s (%d/%d).", item.Name, state.Cursor, len(state.Items))

	c.checkpoint(ctx, runID, position, item, result, failed)
}

// beginRun opens a history row. Store failures are warnings, never fatal.
func (c *Controller) beginRun(ctx context.Context, totalItems int) int64 {
	if c.store == nil {
		return 0
	}
	id, err := c.store.BeginRun(ctx, totalItems)
	if err != nil {
		fmt.Fprintf(c.w, "warning: could not record run start: %v\n", err)
		return 0
	}
	return id
}

func (c *Controller) checkpoint(ctx context.Context, runID int64, position int, item types.Item, result string, failed bool) {
	if c.store == nil || runID == 0 {
		return
	}
	if err := c.store.CheckpointItem(ctx, runID, position, item, result, failed); err != nil {
		fmt.Fprintf(c.w, "warning: could not checkpoint %s: %v\n", item.Name, err)
	}
}

func (c *Controller) finishRun(ctx context.Context, runID int64, status string) {
	if c.store == nil || runID == 0 {
		return
	}
	if err := c.store.FinishRun(ctx, runID, status); err != nil {
		fmt.Fprintf(c.w, "warning: could not record run finish: %v\n", err)
	}
}

// failRun marks the history row failed and passes the run-level error
// through.
func (c *Controller) failRun(ctx context.Context, runID int64, err error) error {
	c.setPhase(PhaseDone)
	c.finishRun(ctx, runID, runstore.StatusFailed)
	return err
}
