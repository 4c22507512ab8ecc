package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/y0sshi/conveyor/internal/config"
)

// job is a test helper for a command-less job definition.
func job(name string, needs ...string) *config.Job {
	return &config.Job{Name: name, Needs: needs, Commands: []string{"true"}}
}

func pipeline(jobs ...*config.Job) *config.Pipeline {
	return &config.Pipeline{Name: "test", Jobs: jobs}
}

func TestBuild_ValidGraph(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), pipeline(
		job("lint"),
		job("build"),
		job("test", "build"),
	))
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 3)

	testNode := graph.Nodes["test"]
	require.NotNil(t, testNode)
	assert.Contains(t, testNode.Deps, "build")
	assert.Contains(t, graph.Nodes["build"].Dependents, "test")
	assert.Empty(t, graph.Nodes["lint"].Deps)
}

func TestBuild_InitialStates(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), pipeline(
		job("lint"),
		job("build"),
		job("test", "build"),
	))
	require.NoError(t, err)

	assert.Equal(t, Ready, graph.Nodes["lint"].State(), "root jobs start ready")
	assert.Equal(t, Ready, graph.Nodes["build"].State(), "root jobs start ready")
	assert.Equal(t, Blocked, graph.Nodes["test"].State(), "dependent jobs start blocked")
}

func TestBuild_CycleDetection(t *testing.T) {
	t.Parallel()

	t.Run("direct cycle yields CycleError", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(
			job("a", "b"),
			job("b", "a"),
		))
		require.Error(t, err)

		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr), "expected a *CycleError, got %v", err)
	})

	t.Run("longer cycle is detected", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(
			job("a", "d"),
			job("b", "a"),
			job("c", "b"),
			job("d", "c"),
		))
		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(
			job("ok"),
			job("x", "y"),
			job("y", "x"),
		))
		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
	})

	t.Run("transitive edge is not a cycle", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(
			job("a"),
			job("b", "a"),
			job("c", "a", "b"),
		))
		assert.NoError(t, err)
	})
}

func TestBuild_ErrorCases(t *testing.T) {
	t.Parallel()

	t.Run("self dependency", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(job("a", "a")))
		assert.ErrorContains(t, err, "depends on itself")
	})

	t.Run("unknown needs target", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(job("a", "missing")))
		assert.ErrorContains(t, err, `needs unknown job "missing"`)
	})

	t.Run("duplicate job name", func(t *testing.T) {
		t.Parallel()
		_, err := Build(context.Background(), pipeline(job("a"), job("a")))
		assert.ErrorContains(t, err, "duplicate job")
	})
}

func TestTopoOrder(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), pipeline(
		job("lint"),
		job("build"),
		job("test", "build"),
		job("package", "build", "test"),
	))
	require.NoError(t, err)

	order, err := graph.TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 4)

	// Every job appears after all of its dependencies.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for id, node := range graph.Nodes {
		for dep := range node.Deps {
			assert.Less(t, pos[dep], pos[id], "%s must come after %s", id, dep)
		}
	}

	// Ties break by name, so the full order is deterministic.
	assert.Equal(t, []string{"build", "lint", "test", "package"}, order)
}

func TestNode_Finish(t *testing.T) {
	t.Parallel()

	n := &Node{ID: "a"}
	calls := 0
	assert.True(t, n.Finish(func() { calls++ }))
	assert.False(t, n.Finish(func() { calls++ }), "second finish must not run")
	assert.Equal(t, 1, calls)
}

func TestJobState(t *testing.T) {
	t.Parallel()

	for _, s := range []JobState{Succeeded, Failed, Skipped, Cancelled} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
	for _, s := range []JobState{Pending, Blocked, Ready, Running} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "skipped", Skipped.String())
}
