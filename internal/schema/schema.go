// Package schema holds the HCL-facing structures a pipeline manifest is
// decoded into. They mirror the manifest syntax exactly and are translated
// into the format-agnostic config model by the HCL loader.
package schema

import "github.com/hashicorp/hcl/v2"

// ManifestConfig represents the top-level structure of a manifest file,
// containing every pipeline declared in it.
type ManifestConfig struct {
	Pipelines []*Pipeline `hcl:"pipeline,block"`
	Body      hcl.Body    `hcl:",remain"`
}

// Pipeline represents a `pipeline` block: the jobs triggered together by
// one event.
type Pipeline struct {
	Name    string         `hcl:"name,label"`
	Env     hcl.Expression `hcl:"env,optional"`
	Trigger *Trigger       `hcl:"trigger,block"`
	Jobs    []*Job         `hcl:"job,block"`
}

// Trigger represents the `trigger` block: which events and branches
// activate the pipeline.
type Trigger struct {
	Events   []string `hcl:"events,optional"`
	Branches []string `hcl:"branches,optional"`
}

// Job represents a `job` block. `env` stays an expression so the loader can
// evaluate it to an object and keep the values typed until translation.
type Job struct {
	Name     string         `hcl:"name,label"`
	Needs    []string       `hcl:"needs,optional"`
	Env      hcl.Expression `hcl:"env,optional"`
	Commands []string       `hcl:"run"`
	Cache    *Cache         `hcl:"cache,block"`
}

// Cache represents the `cache` block inside a job.
type Cache struct {
	KeyPrefix string   `hcl:"key_prefix,optional"`
	KeyFiles  []string `hcl:"key_files"`
	Paths     []string `hcl:"paths"`
}
