package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/y0sshi/conveyor/internal/config"
	"github.com/y0sshi/conveyor/internal/ctxlog"
	"github.com/y0sshi/conveyor/internal/schema"
)

// Loader parses HCL pipeline manifests into the unified config model.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load parses every given file and returns the combined model.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	for _, path := range files {
		logger.Debug("Parsing HCL manifest.", "path", path)
		hclFile, diags := l.parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}

		var manifest schema.ManifestConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &manifest); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		for _, p := range manifest.Pipelines {
			translated, err := l.translatePipeline(p)
			if err != nil {
				return nil, fmt.Errorf("%s: pipeline %q: %w", path, p.Name, err)
			}
			model.Pipelines = append(model.Pipelines, translated)
		}
	}

	logger.Debug("HCL manifests loaded.", "pipelines", len(model.Pipelines))
	return model, nil
}
