package executor

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/y0sshi/conveyor/internal/cachestore"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/dag"
)

// runJob executes one job: restore its cache, run its commands in declared
// order stopping at the first failure, and save the cache after success.
// Cache trouble is logged and ignored; the cache is an optimization, not a
// correctness requirement.
func (e *Executor) runJob(ctx context.Context, n *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("job", n.ID)
	logger.Info("▶️ Starting job")

	start := time.Now()
	defer func() {
		e.durations.Store(n.ID, time.Since(start))
	}()

	var cacheKey string
	if spec := n.Job.Cache; spec != nil && e.cache != nil {
		key, err := cachestore.Key(e.workDir, spec)
		if err != nil {
			logger.Warn("Cache key unavailable, continuing without cache.", "error", err)
		} else {
			cacheKey = key
			hit, err := e.cache.Restore(ctx, key, e.workDir)
			switch {
			case err != nil:
				logger.Warn("Cache restore failed, continuing without cache.", "key", key, "error", err)
			case hit:
				logger.Info("♻️ Cache restored", "key", key)
			default:
				logger.Debug("Cache miss, starting cold.", "key", key)
			}
		}
	}

	env := mergeEnv(e.pipelineEnv, n.Job.Env)
	for i, command := range n.Job.Commands {
		if err := e.runCommand(ctx, n.ID, i, command, env); err != nil {
			return err
		}
	}

	// Save only after every command succeeded; a failed or cancelled job
	// must not publish artifacts under the key.
	if cacheKey != "" {
		if err := e.cache.Save(ctx, cacheKey, e.workDir, n.Job.Cache.Paths); err != nil {
			logger.Warn("Cache save failed, continuing.", "key", cacheKey, "error", err)
		} else {
			logger.Info("📦 Cache saved", "key", cacheKey)
		}
	}

	logger.Info("✅ Finished job")
	return nil
}

// runCommand runs a single opaque shell command. Exit code zero is success;
// anything else fails the job. Output is streamed to the logger line by line
// and never interpreted.
func (e *Executor) runCommand(ctx context.Context, job string, index int, command string, env []string) error {
	logger := ctxlog.FromContext(ctx).With("job", job)
	logger.Info("▶️ Running command", "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.workDir
	cmd.Env = env

	stdout := newLineWriter(logger, "stdout")
	stderr := newLineWriter(logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	defer stdout.Flush()
	defer stderr.Flush()

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &CommandError{
			Job:      job,
			Index:    index,
			Command:  command,
			ExitCode: exitCode,
			Err:      err,
		}
	}
	return nil
}
