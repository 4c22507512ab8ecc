package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/y0sshi/conveyor/internal/hcl"
	"github.com/y0sshi/conveyor/internal/trigger"
	"github.com/y0sshi/conveyor/internal/yamlcfg"
)

// writeManifest writes a manifest file into dir and returns its path.
func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewApp_LoadsManifests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "first.hcl", `
pipeline "from-hcl" {
  job "a" {
    run = ["true"]
  }
}
`)
	writeManifest(t, dir, "second.yml", `
pipeline:
  name: from-yaml
  jobs:
    - name: b
      run: ["true"]
`)

	appConfig := &Config{ManifestPath: dir, LogFormat: "text"}
	testApp, _ := SetupAppTest(t, appConfig, hcl.NewLoader(), yamlcfg.NewLoader())

	model := testApp.Model()
	require.Len(t, model.Pipelines, 2)
	// Pipelines merge in loader order, so HCL manifests come first.
	assert.Equal(t, "from-hcl", model.Pipelines[0].Name)
	assert.Equal(t, "from-yaml", model.Pipelines[1].Name)
}

func TestNewApp_SingleFilePath(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, t.TempDir(), "only.hcl", `
pipeline "solo" {
  job "a" {
    run = ["true"]
  }
}
`)

	appConfig := &Config{ManifestPath: path, LogFormat: "text"}
	testApp, _ := SetupAppTest(t, appConfig, hcl.NewLoader())
	require.Len(t, testApp.Model().Pipelines, 1)
	assert.Equal(t, "solo", testApp.Model().Pipelines[0].Name)
}

func TestNewApp_PanicsOnFatalConfig(t *testing.T) {
	t.Parallel()

	t.Run("no loaders", func(t *testing.T) {
		t.Parallel()
		appConfig := &Config{ManifestPath: t.TempDir(), LogFormat: "text", LogLevel: "error"}
		assert.PanicsWithError(t, "no manifest loaders provided", func() {
			NewApp(&SafeBuffer{}, appConfig)
		})
	})

	t.Run("missing manifest path", func(t *testing.T) {
		t.Parallel()
		appConfig := &Config{ManifestPath: filepath.Join(t.TempDir(), "ghost"), LogFormat: "text", LogLevel: "error"}
		assert.Panics(t, func() {
			NewApp(&SafeBuffer{}, appConfig, hcl.NewLoader())
		})
	})

	t.Run("invalid model", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeManifest(t, dir, "dup.hcl", `
pipeline "same" {
  job "a" {
    run = ["true"]
  }
}

pipeline "same" {
  job "a" {
    run = ["true"]
  }
}
`)
		appConfig := &Config{ManifestPath: dir, LogFormat: "text", LogLevel: "error"}
		assert.Panics(t, func() {
			NewApp(&SafeBuffer{}, appConfig, hcl.NewLoader())
		})
	})
}

func TestRunEvent_TriggerFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	workDir := t.TempDir()
	writeManifest(t, dir, "ci.hcl", `
pipeline "gated" {
  trigger {
    events   = ["push"]
    branches = ["master"]
  }

  job "mark" {
    run = ["touch gated.ran"]
  }
}

pipeline "open" {
  job "mark" {
    run = ["touch open.ran"]
  }
}
`)

	appConfig := &Config{ManifestPath: dir, WorkDir: workDir, LogFormat: "text"}
	testApp, logBuffer := SetupAppTest(t, appConfig, hcl.NewLoader())

	// A feature-branch push matches only the untriggered pipeline.
	err := testApp.RunEvent(context.Background(), trigger.Event{Kind: trigger.Push, Branch: "feature/x"}, appConfig)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(workDir, "gated.ran"))
	assert.ErrorIs(t, statErr, os.ErrNotExist, "gated pipeline must not run for a feature branch")
	_, statErr = os.Stat(filepath.Join(workDir, "open.ran"))
	assert.NoError(t, statErr, "untriggered pipeline matches every event")
	assert.Contains(t, logBuffer.String(), "Pipeline not activated by event")
}

func TestRunEvent_FullRunWithCache(t *testing.T) {
	t.Parallel()

	manifestDir := t.TempDir()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	writeManifest(t, manifestDir, "ci.hcl", `
pipeline "build-then-test" {
  job "build" {
    run = ["mkdir -p target", "echo artifact > target/stamp"]

    cache {
      key_files = ["deps.lock"]
      paths     = ["target"]
    }
  }

  job "test" {
    needs = ["build"]
    run   = ["test -f target/stamp"]
  }
}
`)

	ev := trigger.Event{Kind: trigger.Push, Branch: "master"}

	// First run populates the cache.
	warmDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(warmDir, "deps.lock"), []byte("v1"), 0o644))
	appConfig := &Config{ManifestPath: manifestDir, WorkDir: warmDir, CacheDir: cacheDir, LogFormat: "text"}
	testApp, _ := SetupAppTest(t, appConfig, hcl.NewLoader())
	require.NoError(t, testApp.RunEvent(context.Background(), ev, appConfig))

	// Second run in a fresh checkout restores the build artifacts.
	coldDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(coldDir, "deps.lock"), []byte("v1"), 0o644))
	appConfig = &Config{ManifestPath: manifestDir, WorkDir: coldDir, CacheDir: cacheDir, LogFormat: "text"}
	testApp, logBuffer := SetupAppTest(t, appConfig, hcl.NewLoader())
	require.NoError(t, testApp.RunEvent(context.Background(), ev, appConfig))

	assert.Contains(t, logBuffer.String(), "Cache restored")
}

func TestRunEvent_FailurePropagates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "ci.hcl", `
pipeline "doomed" {
  job "boom" {
    run = ["exit 7"]
  }
}
`)

	appConfig := &Config{ManifestPath: dir, WorkDir: t.TempDir(), LogFormat: "text"}
	testApp, _ := SetupAppTest(t, appConfig, hcl.NewLoader())

	err := testApp.RunEvent(context.Background(), trigger.Event{Kind: trigger.Push, Branch: "master"}, appConfig)
	require.Error(t, err)
	assert.ErrorContains(t, err, `pipeline "doomed"`)
	assert.ErrorContains(t, err, "execution failed for boom")
}

func TestRunEvent_CycleAbortsBeforeExecution(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	workDir := t.TempDir()
	writeManifest(t, dir, "ci.hcl", `
pipeline "cyclic" {
  job "a" {
    needs = ["b"]
    run   = ["touch a.ran"]
  }

  job "b" {
    needs = ["a"]
    run   = ["touch b.ran"]
  }
}
`)

	appConfig := &Config{ManifestPath: dir, WorkDir: workDir, LogFormat: "text"}
	testApp, _ := SetupAppTest(t, appConfig, hcl.NewLoader())

	err := testApp.RunEvent(context.Background(), trigger.Event{Kind: trigger.Push, Branch: "master"}, appConfig)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to build dependency graph")

	entries, readErr := os.ReadDir(workDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no job may run when the graph is cyclic")
}
