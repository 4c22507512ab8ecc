package executor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/y0sshi/conveyor/internal/cachestore"
	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/dag"
)

// defaultWorkers bounds concurrency when the caller does not.
const defaultWorkers = 4

// Options configures an Executor.
type Options struct {
	// Workers is the size of the concurrent worker pool. Zero or negative
	// selects a small default.
	Workers int
	// WorkDir is the directory commands run in and cache paths resolve
	// against. Empty means the process working directory.
	WorkDir string
	// Cache enables keyed artifact caching for jobs that declare a cache
	// spec. Nil disables caching entirely.
	Cache *cachestore.Store
	// PipelineEnv is applied to every job, before the job's own env.
	PipelineEnv []config.EnvVar
}

// Executor orchestrates one run of a job graph.
type Executor struct {
	graph       *dag.Graph
	workers     int
	workDir     string
	cache       *cachestore.Store
	pipelineEnv []config.EnvVar

	wg        sync.WaitGroup
	durations sync.Map // job name -> time.Duration
}

// New creates an executor for the given graph.
func New(graph *dag.Graph, opts Options) *Executor {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Executor{
		graph:       graph,
		workers:     workers,
		workDir:     opts.WorkDir,
		cache:       opts.Cache,
		pipelineEnv: opts.PipelineEnv,
	}
}

// Run executes the entire graph concurrently and returns the per-job results
// plus an error describing the first root-cause failure, if any. It respects
// the cancellation signal from the provided context; a cancelled run reports
// ctx's error, not a job failure.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))

	logger.Debug("Initializing executor, finding root jobs...")
	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.State() == dag.Ready {
			logger.Debug("Found root job.", "job", node.ID)
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Found all root jobs.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all jobs to complete...")
	e.wg.Wait()
	logger.Info("All jobs completed.")
	close(readyChan)

	return e.collect(ctx)
}

// collect assembles the per-job results and derives the run-level error.
func (e *Executor) collect(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	result := &Result{}
	var failedJobs []string
	var rootCause error
	cancelled := false

	for _, id := range sortedNodeIDs(e.graph) {
		node := e.graph.Nodes[id]
		jr := &JobResult{Job: id, State: node.State(), Err: node.Err}
		if d, ok := e.durations.Load(id); ok {
			jr.Duration = d.(time.Duration)
		}
		result.Jobs = append(result.Jobs, jr)

		switch node.State() {
		case dag.Failed:
			logger.Error("Job failed.", "job", id, "error", node.Err)
			failedJobs = append(failedJobs, id)
			if rootCause == nil {
				rootCause = node.Err
			}
		case dag.Skipped:
			logger.Warn("Job skipped.", "job", id, "reason", node.Err)
		case dag.Cancelled:
			cancelled = true
		}
	}

	if rootCause != nil {
		return result, fmt.Errorf("execution failed for %s: %w", strings.Join(failedJobs, ", "), rootCause)
	}
	if cancelled {
		return result, fmt.Errorf("run cancelled: %w", context.Cause(ctx))
	}
	return result, nil
}

// sortedNodeIDs returns the graph's job names in a stable order for
// reporting.
func sortedNodeIDs(g *dag.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
