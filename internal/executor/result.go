package executor

import (
	"time"

	"github.com/y0sshi/conveyor/internal/dag"
)

// JobResult is the terminal outcome of one job in a run.
type JobResult struct {
	Job      string
	State    dag.JobState
	Duration time.Duration
	Err      error
}

// Result aggregates every job's outcome for one pipeline run. Jobs are
// ordered by name.
type Result struct {
	Jobs []*JobResult
}

// Job returns the result for the named job, or nil.
func (r *Result) Job(name string) *JobResult {
	for _, jr := range r.Jobs {
		if jr.Job == name {
			return jr
		}
	}
	return nil
}

// Succeeded reports whether every job succeeded. A single failing leaf is
// enough to fail the pipeline even if sibling branches succeed.
func (r *Result) Succeeded() bool {
	for _, jr := range r.Jobs {
		if jr.State != dag.Succeeded {
			return false
		}
	}
	return true
}
