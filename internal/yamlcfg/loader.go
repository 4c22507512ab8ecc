// Package yamlcfg implements the config.Loader interface for YAML pipeline
// manifests. The YAML schema is a one-to-one rendering of the HCL manifest
// syntax; both formats translate into the same config model.
package yamlcfg

import (
	"context"
	"fmt"
	"os"

	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/trigger"
	"gopkg.in/yaml.v3"
)

// Loader parses YAML pipeline manifests into the unified config model.
type Loader struct{}

// NewLoader creates a new YAML manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yml", ".yaml"}
}

// manifestDoc is the top-level document: either a single pipeline or a list.
type manifestDoc struct {
	Pipeline  *pipelineDoc   `yaml:"pipeline"`
	Pipelines []*pipelineDoc `yaml:"pipelines"`
}

type pipelineDoc struct {
	Name    string      `yaml:"name"`
	Env     yaml.Node   `yaml:"env"`
	Trigger *triggerDoc `yaml:"trigger"`
	Jobs    []*jobDoc   `yaml:"jobs"`
}

type triggerDoc struct {
	Events   []string `yaml:"events"`
	Branches []string `yaml:"branches"`
}

type jobDoc struct {
	Name     string    `yaml:"name"`
	Needs    []string  `yaml:"needs"`
	Env      yaml.Node `yaml:"env"`
	Commands []string  `yaml:"run"`
	Cache    *cacheDoc `yaml:"cache"`
}

type cacheDoc struct {
	KeyPrefix string   `yaml:"key_prefix"`
	KeyFiles  []string `yaml:"key_files"`
	Paths     []string `yaml:"paths"`
}

// Load parses every given file and returns the combined model.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	for _, path := range files {
		logger.Debug("Parsing YAML manifest.", "path", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var doc manifestDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}

		docs := doc.Pipelines
		if doc.Pipeline != nil {
			docs = append(docs, doc.Pipeline)
		}
		for _, p := range docs {
			translated, err := translatePipeline(p)
			if err != nil {
				return nil, fmt.Errorf("%s: pipeline %q: %w", path, p.Name, err)
			}
			model.Pipelines = append(model.Pipelines, translated)
		}
	}

	logger.Debug("YAML manifests loaded.", "pipelines", len(model.Pipelines))
	return model, nil
}

// translatePipeline converts the YAML document into the agnostic model.
func translatePipeline(p *pipelineDoc) (*config.Pipeline, error) {
	env, err := decodeEnv(&p.Env)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}

	out := &config.Pipeline{
		Name: p.Name,
		Env:  env,
	}
	if p.Trigger != nil {
		out.Trigger = &trigger.Rules{
			Events:   p.Trigger.Events,
			Branches: p.Trigger.Branches,
		}
	}
	for _, j := range p.Jobs {
		jobEnv, err := decodeEnv(&j.Env)
		if err != nil {
			return nil, fmt.Errorf("job %q: env: %w", j.Name, err)
		}
		job := &config.Job{
			Name:     j.Name,
			Needs:    j.Needs,
			Env:      jobEnv,
			Commands: j.Commands,
		}
		if j.Cache != nil {
			job.Cache = &config.CacheSpec{
				KeyPrefix: j.Cache.KeyPrefix,
				KeyFiles:  j.Cache.KeyFiles,
				Paths:     j.Cache.Paths,
			}
		}
		out.Jobs = append(out.Jobs, job)
	}
	return out, nil
}

// decodeEnv walks a YAML mapping node directly so the declared pair order
// survives; unmarshalling into a Go map would shuffle it.
func decodeEnv(node *yaml.Node) ([]config.EnvVar, error) {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("must be a mapping of strings")
	}

	var pairs []config.EnvVar
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var key, val string
		if err := keyNode.Decode(&key); err != nil {
			return nil, err
		}
		if err := valNode.Decode(&val); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		pairs = append(pairs, config.EnvVar{Name: key, Value: val})
	}
	return pairs, nil
}
