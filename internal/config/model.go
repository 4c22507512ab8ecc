package config

import "github.com/y0sshi/conveyor/internal/trigger"

// Model is the unified, format-agnostic representation of every pipeline
// manifest loaded for a run, independent of the format it was written in.
type Model struct {
	Pipelines []*Pipeline
}

// Pipeline is the full dependency graph of jobs activated together by one
// triggering event.
type Pipeline struct {
	Name string
	// Env is applied to every job in the pipeline, before the job's own
	// environment. Run-wide toggles (e.g. enabling incremental compilation)
	// belong here rather than in ambient process state.
	Env     []EnvVar
	Trigger *trigger.Rules
	Jobs    []*Job
}

// Job is a named, independently executable unit of work.
type Job struct {
	Name string
	// Needs lists the names of jobs that must succeed before this one starts.
	Needs []string
	// Env is visible only for the duration of this job's commands.
	Env []EnvVar
	// Commands run in declared order; the first non-zero exit fails the job.
	Commands []string
	Cache    *CacheSpec
}

// EnvVar is a single environment pair. Pairs keep their declared order.
type EnvVar struct {
	Name  string
	Value string
}

// CacheSpec declares a keyed artifact cache for a job. The key is derived
// from the contents of the key files, so editing any of them produces a
// fresh key and an empty restore on the next run.
type CacheSpec struct {
	// KeyPrefix namespaces the derived key, e.g. "cargo".
	KeyPrefix string
	// KeyFiles are hashed, in order, to form the cache key. Lock files are
	// the usual choice.
	KeyFiles []string
	// Paths are the path prefixes saved after a successful run and restored
	// before the next one.
	Paths []string
}

// Job returns the pipeline's job with the given name, or nil.
func (p *Pipeline) Job(name string) *Job {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
