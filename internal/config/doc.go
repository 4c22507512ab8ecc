// Package config defines the unified, format-agnostic model of a pipeline
// manifest. Loaders for concrete formats (HCL, YAML) translate their schemas
// into this model; everything downstream of loading operates on it alone.
package config
