package executor

import (
	"os"

	"github.com/y0sshi/conveyor/internal/config"
)

// mergeEnv builds the environment for one job's commands: the process
// environment, then the pipeline-wide pairs, then the job's own pairs.
// os/exec keeps the last value for a duplicated key, so later layers win.
// The result is scoped to the spawned commands; nothing leaks into the
// executor's own process environment.
func mergeEnv(layers ...[]config.EnvVar) []string {
	out := os.Environ()
	for _, layer := range layers {
		for _, v := range layer {
			out = append(out, v.Name+"="+v.Value)
		}
	}
	return out
}
