// Package dag builds and validates the job dependency graph of a pipeline.
// It owns the per-job state machine and the counters the executor uses to
// schedule jobs; it performs no execution itself.
package dag
