package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/schema"
	"github.com/y0sshi/conveyor/internal/trigger"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translatePipeline converts the HCL-specific pipeline schema into the
// agnostic model.
func (l *Loader) translatePipeline(p *schema.Pipeline) (*config.Pipeline, error) {
	env, err := evalEnv(p.Env)
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
		translated, err := l.translateJob(j)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		out.Jobs = append(out.Jobs, translated)
	}
	return out, nil
}

// translateJob converts the HCL-specific job schema into the agnostic model.
func (l *Loader) translateJob(j *schema.Job) (*config.Job, error) {
	env, err := evalEnv(j.Env)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}

	out := &config.Job{
		Name:     j.Name,
		Needs:    j.Needs,
		Env:      env,
		Commands: j.Commands,
	}
	if j.Cache != nil {
		out.Cache = &config.CacheSpec{
			KeyPrefix: j.Cache.KeyPrefix,
			KeyFiles:  j.Cache.KeyFiles,
			Paths:     j.Cache.Paths,
		}
	}
	return out, nil
}

// evalEnv evaluates an `env` attribute to an object of strings. Object keys
// iterate in lexical order, which keeps the derived pair list deterministic
// for a fixed manifest.
func evalEnv(expr hcl.Expression) ([]config.EnvVar, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("must be an object of strings, got %s", val.Type().FriendlyName())
	}

	var pairs []config.EnvVar
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		strVal, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", k.AsString(), err)
		}
		if strVal.IsNull() {
			return nil, fmt.Errorf("value for %q is null", k.AsString())
		}
		pairs = append(pairs, config.EnvVar{Name: k.AsString(), Value: strVal.AsString()})
	}
	return pairs, nil
}
