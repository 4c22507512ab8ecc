package executor

import (
	"context"
	"fmt"

	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "job", n.ID)

		if ctx.Err() != nil {
			e.cancelNode(ctx, n, ctx.Err())
			continue
		}

		workerLogger.Debug("Worker picked up job for execution.")
		n.SetState(dag.Running)
		err := e.runJob(ctx, n)

		if err != nil {
			if ctx.Err() != nil {
				workerLogger.Warn("Job cancelled mid-run.", "error", err)
				n.SetState(dag.Cancelled)
				n.Err = err
				e.cancelDependents(ctx, n)
			} else {
				workerLogger.Error("Job execution failed.", "error", err)
				n.SetState(dag.Failed)
				n.Err = err
				e.skipDependents(ctx, n)
			}
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Job execution succeeded.")
		n.SetState(dag.Succeeded)

		for _, dependent := range n.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent job.", "dependent", dependent.ID)
				dependent.SetState(dag.Ready)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream jobs as skipped. Jobs with
// no path to the failed job are untouched and run to completion.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents {
		d := dependent
		finished := d.Finish(func() {
			logger.Warn("Skipping job due to upstream failure.", "job", d.ID, "failed_dependency", n.ID)
			d.SetState(dag.Skipped)
			d.Err = fmt.Errorf("skipped due to upstream failure of %q", n.ID)
			e.wg.Done()
		})
		if finished {
			e.skipDependents(ctx, d)
		}
	}
}

// cancelNode finalizes a job that never got to run because the run context
// was cancelled, then releases its downstream jobs the same way.
func (e *Executor) cancelNode(ctx context.Context, n *dag.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	n.Finish(func() {
		logger.Warn("Cancelling job before execution.", "job", n.ID)
		n.SetState(dag.Cancelled)
		n.Err = cause
		e.wg.Done()
	})
	e.cancelDependents(ctx, n)
}

// cancelDependents recursively cancels every job downstream of n. Without
// this cascade, jobs whose dependencies never reach a terminal state would
// strand the run's WaitGroup.
func (e *Executor) cancelDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents {
		d := dependent
		finished := d.Finish(func() {
			logger.Warn("Cancelling job due to upstream cancellation.", "job", d.ID)
			d.SetState(dag.Cancelled)
			d.Err = fmt.Errorf("cancelled before execution: %w", context.Cause(ctx))
			e.wg.Done()
		})
		if finished {
			e.cancelDependents(ctx, d)
		}
	}
}
