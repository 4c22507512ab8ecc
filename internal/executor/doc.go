// Package executor runs a validated job graph on a pool of concurrent
// workers. Jobs become eligible the moment their last dependency succeeds;
// a failed job causes its transitive dependents to be skipped while
// unrelated jobs run to completion, and cancelling the run context moves
// every non-terminal job to Cancelled without running its commands.
package executor
