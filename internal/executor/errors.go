package executor

import "fmt"

// CommandError reports a job command that exited non-zero. It is terminal
// for the job, and recoverable at the pipeline level: downstream jobs are
// skipped while independent jobs keep running.
type CommandError struct {
	Job      string
	Index    int
	Command  string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("job %q: command %d (%q) exited with code %d", e.Job, e.Index, e.Command, e.ExitCode)
}

// Unwrap exposes the underlying os/exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}
