package config

import "context"

// Loader translates manifest files of one concrete format into the unified
// model. Implementations exist for HCL and YAML manifests.
type Loader interface {
	// Extensions returns the file name suffixes this loader claims,
	// e.g. ".hcl".
	Extensions() []string

	// Load parses the given files and returns their combined model.
	Load(ctx context.Context, files ...string) (*Model, error)
}
