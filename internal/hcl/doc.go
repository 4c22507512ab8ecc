// Package hcl implements the config.Loader interface for HCL pipeline
// manifests. It decodes manifest files into the schema structures and
// translates them into the format-agnostic config model.
package hcl
