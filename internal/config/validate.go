package config

import "fmt"

// Validate checks structural invariants that hold regardless of the manifest
// format: unique pipeline and job names, non-empty commands, and cache specs
// that actually declare something. Dependency resolution (unknown or cyclic
// `needs` references) is the graph builder's job.
func (m *Model) Validate() error {
	seenPipelines := make(map[string]struct{})
	for _, p := range m.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("pipeline with empty name")
		}
		if _, dup := seenPipelines[p.Name]; dup {
			return fmt.Errorf("duplicate pipeline %q", p.Name)
		}
		seenPipelines[p.Name] = struct{}{}

		seenJobs := make(map[string]struct{})
		for _, j := range p.Jobs {
			if j.Name == "" {
				return fmt.Errorf("pipeline %q: job with empty name", p.Name)
			}
			if _, dup := seenJobs[j.Name]; dup {
				return fmt.Errorf("pipeline %q: duplicate job %q", p.Name, j.Name)
			}
			seenJobs[j.Name] = struct{}{}

			if len(j.Commands) == 0 {
				return fmt.Errorf("pipeline %q: job %q declares no commands", p.Name, j.Name)
			}
			if c := j.Cache; c != nil {
				if len(c.KeyFiles) == 0 {
					return fmt.Errorf("pipeline %q: job %q: cache without key_files", p.Name, j.Name)
				}
				if len(c.Paths) == 0 {
					return fmt.Errorf("pipeline %q: job %q: cache without paths", p.Name, j.Name)
				}
			}
		}
	}
	return nil
}
