package dag

import (
	"sync"
	"sync/atomic"

	"github.com/y0sshi/conveyor/internal/config"
)

// JobState is the scheduling state of a single job node.
//
// Transitions: Pending -> (Blocked | Ready) -> Running -> (Succeeded | Failed).
// A job whose dependency fails or is skipped goes straight to Skipped without
// running; cancellation moves any non-terminal job to Cancelled.
type JobState int32

const (
	Pending JobState = iota
	Blocked
	Ready
	Running
	Succeeded
	Failed
	Skipped
	Cancelled
)

// String returns the lowercase name used in logs and reports.
func (s JobState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Blocked:
		return "blocked"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from s.
func (s JobState) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Cancelled:
		return true
	}
	return false
}

// Graph is the validated dependency graph of one pipeline.
type Graph struct {
	Nodes map[string]*Node
}

// Node is a single job in the graph plus its scheduling state.
type Node struct {
	// ID is the job name; job names are unique within a pipeline.
	ID  string
	Job *config.Job

	// Deps are the jobs this node needs; Dependents need this node.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// Err holds the failure (or skip/cancel reason) once the node is terminal.
	Err error

	// depCount is an atomic counter of unmet dependencies, used by the
	// executor to decide readiness.
	depCount atomic.Int32
	// state is the node's current JobState, managed atomically.
	state atomic.Int32
	// finishOnce guards the skip/cancel path so a node is finalized and
	// accounted for exactly once.
	finishOnce sync.Once
}

// State returns the node's current state.
func (n *Node) State() JobState {
	return JobState(n.state.Load())
}

// SetState records a state transition.
func (n *Node) SetState(s JobState) {
	n.state.Store(int32(s))
}

// DecrementDepCount atomically marks one dependency as satisfied and returns
// the number still unmet.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// SetInitialCounters primes the dependency counter and the initial state
// after linking. Roots start Ready; everything else is Blocked.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
	if len(n.Deps) == 0 {
		n.state.Store(int32(Ready))
	} else {
		n.state.Store(int32(Blocked))
	}
}

// Finish runs fn exactly once for the skip/cancel path. It returns true if
// fn ran, false if the node was already finalized by an earlier caller.
func (n *Node) Finish(fn func()) bool {
	ran := false
	n.finishOnce.Do(func() {
		ran = true
		fn()
	})
	return ran
}
