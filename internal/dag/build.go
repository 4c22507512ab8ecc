package dag

import (
	"context"
	"fmt"

	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
)

// CycleError reports a circular `needs` chain in a pipeline definition. The
// pipeline is malformed; no job runs.
type CycleError struct {
	Job string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving job %q", e.Job)
}

// Build constructs a complete, validated dependency graph from a pipeline.
func Build(ctx context.Context, pipeline *config.Pipeline) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "pipeline", pipeline.Name)
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create a node per job.
	for _, j := range pipeline.Jobs {
		if _, exists := graph.Nodes[j.Name]; exists {
			return nil, fmt.Errorf("duplicate job %q", j.Name)
		}
		graph.Nodes[j.Name] = &Node{
			ID:         j.Name,
			Job:        j,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link `needs` edges.
	if err := linkNodes(ctx, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters and initial states.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}
	logger.Debug("Build: Counter initialization complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Debug("Build: Graph construction successful.")
	return graph, nil
}

// linkNodes establishes dependency links from each job's `needs` list.
func linkNodes(ctx context.Context, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, node := range graph.Nodes {
		for _, dep := range node.Job.Needs {
			if dep == node.ID {
				return fmt.Errorf("job %q depends on itself", node.ID)
			}
			depNode, ok := graph.Nodes[dep]
			if !ok {
				return fmt.Errorf("job %q needs unknown job %q", node.ID, dep)
			}
			if _, exists := node.Deps[dep]; exists {
				continue
			}
			logger.Debug("Linking dependency.", "job", node.ID, "needs", dep)
			node.Deps[dep] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return &CycleError{Job: dep.ID}
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
