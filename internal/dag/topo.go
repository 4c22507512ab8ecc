package dag

import (
	"fmt"
	"slices"
)

// TopoOrder returns the job names in an order where every job appears after
// all of its dependencies. Ties are broken by name, so the result is
// deterministic for a fixed pipeline. The executor does not consume this
// order directly (independent jobs run concurrently); it exists for
// reporting and for callers that want a serial view of the graph.
func (g *Graph) TopoOrder() ([]string, error) {
	remaining := make(map[string]int, len(g.Nodes))
	var ready []string
	for id, node := range g.Nodes {
		remaining[id] = len(node.Deps)
		if len(node.Deps) == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.Nodes[id].Dependents {
			remaining[depID]--
			if remaining[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		slices.Sort(unlocked)
		ready = append(ready, unlocked...)
		slices.Sort(ready)
	}

	if len(order) != len(g.Nodes) {
		// Unreachable after Build's cycle detection, kept as a safety net
		// for graphs assembled by hand.
		return nil, fmt.Errorf("graph contains a cycle; %d of %d jobs orderable", len(order), len(g.Nodes))
	}
	return order, nil
}
